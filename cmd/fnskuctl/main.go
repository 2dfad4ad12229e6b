package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

var (
	marketplace string
	rootCmd     = &cobra.Command{
		Use:   "fnskuctl",
		Short: "Operate the FNSKU conversion service",
		Long: `fnskuctl runs FNSKU conversions and maintenance against the same database
and Redis the API server uses. Configuration is read from the environment
and an optional .env file.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&marketplace, "marketplace", "m", "US", "marketplace code")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(creditsCmd())
	rootCmd.AddCommand(usersCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("[fnskuctl] Interrupted, shutting down...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
