package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
)

func convertCmd() *cobra.Command {
	var (
		file     string
		asJSON   bool
		noCache  bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "convert [FNSKU...]",
		Short: "Convert FNSKUs to ASINs",
		Long: `Convert one or more FNSKUs. Codes come from the arguments and, with --file,
one per line from a file ("-" reads stdin). A single code honours --no-cache and
--no-verify; several codes run as a batch with a progress bar.

No credits are charged: this command talks to the conversion engine directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codes, err := readCodes(args, file)
			if err != nil {
				return err
			}
			if len(codes) == 0 {
				return fmt.Errorf("no FNSKUs given")
			}
			mkt, err := amazon.NormalizeMarketplace(marketplace)
			if err != nil {
				return err
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			var results []*fnsku.ConversionResult
			if len(codes) == 1 {
				result, cerr := svc.Converter.Convert(ctx, codes[0], fnsku.ConvertOptions{
					Marketplace: mkt,
					UseCache:    !noCache,
					VerifyASIN:  !noVerify,
				})
				if result == nil {
					return cerr
				}
				results = append(results, result)
			} else {
				bar := progressbar.NewOptions(len(codes),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("Converting"),
				)
				progress := &progressReporter{bar: bar, warn: os.Stderr}
				results = svc.Converter.BulkConvertWithProgress(ctx, codes, mkt, func(done int, _ *fnsku.ConversionResult) {
					progress.set(done)
				})
				progress.finish()
			}

			// hits recorded during this run go straight to the table
			if _, ferr := svc.Hits.Flush(ctx); ferr != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to flush hit counters: %v\n", ferr)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			return printResults(results)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read FNSKUs from file, one per line (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore cached results (single FNSKU only)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip ASIN verification (single FNSKU only)")

	return cmd
}

func printResults(results []*fnsku.ConversionResult) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FNSKU\tASIN\tCONFIDENCE\tMETHOD\tCACHED\tERROR")

	failed := 0
	for _, r := range results {
		asin := r.ASINValue()
		if asin == "" {
			asin = "-"
		}
		if !r.Success {
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s (%.2f)\t%s\t%t\t%s\n", r.FNSKU, asin, r.Confidence, r.ConfidenceScore, r.Method, r.Cached, r.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d converted, %d failed\n", len(results)-failed, failed)
	return nil
}

type progressBar interface {
	Set(int) error
	Finish() error
}

// progressReporter drives the batch progress bar. Bar write failures do not
// abort the batch; the first one is reported after the bar finishes.
type progressReporter struct {
	bar  progressBar
	warn io.Writer
	err  error
}

func (p *progressReporter) set(done int) {
	if err := p.bar.Set(done); err != nil && p.err == nil {
		p.err = err
	}
}

func (p *progressReporter) finish() {
	if err := p.bar.Finish(); err != nil && p.err == nil {
		p.err = err
	}
	fmt.Fprintln(p.warn)
	if p.err != nil {
		fmt.Fprintf(p.warn, "warning: progress bar: %v\n", p.err)
	}
}
