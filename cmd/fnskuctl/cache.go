package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the conversion cache",
	}
	cmd.AddCommand(cacheCleanupCmd())
	cmd.AddCommand(cacheInvalidateCmd())
	cmd.AddCommand(cacheFlushHitsCmd())
	return cmd
}

func cacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := svc.Cache.CleanupExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Printf("Removed %d expired entries\n", removed)
			return nil
		},
	}
}

func cacheInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate FNSKU",
		Short: "Mark a cached conversion stale so the next request recomputes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validation := fnsku.Validate(args[0])
			if !validation.Valid {
				return &fnsku.FormatError{Validation: validation}
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			found, err := svc.Cache.MarkStale(cmd.Context(), validation.Formatted)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no cached conversion for %s", validation.Formatted)
			}
			fmt.Printf("Marked %s stale\n", validation.Formatted)
			return nil
		},
	}
}

func cacheFlushHitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-hits",
		Short: "Apply buffered cache hit counts to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := svc.Hits.Flush(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Flushed hit counts for %d FNSKUs\n", n)
			return nil
		},
	}
}
