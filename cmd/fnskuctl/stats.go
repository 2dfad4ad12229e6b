package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show conversion cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := svc.Converter.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total entries\t%d\n", stats.Total)
			fmt.Fprintf(w, "Successful\t%d\n", stats.Successful)
			fmt.Fprintf(w, "Success rate\t%.2f%%\n", stats.SuccessRate)
			fmt.Fprintf(w, "Avg confidence\t%.3f\n", stats.AvgConfidence)
			fmt.Fprintf(w, "Stale\t%d\n", stats.Stale)
			fmt.Fprintf(w, "Expired\t%d\n", stats.Expired)
			fmt.Fprintf(w, "Cache hits\t%d\n", stats.TotalHits)

			methods := make([]string, 0, len(stats.MethodDistribution))
			for m := range stats.MethodDistribution {
				methods = append(methods, m)
			}
			sort.Strings(methods)
			for _, m := range methods {
				fmt.Fprintf(w, "  %s\t%d\n", m, stats.MethodDistribution[m])
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}
