package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/optimode/emailfinder"
)

func batchCmd() *cobra.Command {
	var (
		input   string
		workers int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Find email addresses for every row of a CSV file",
		Long: `batch reads rows of first,last,company[,domains] where domains is a
semicolon separated list of extra domains to sweep. Use --input - to read
from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return errors.Wrap(err, "open input")
				}
				defer f.Close()
				r = f
			}
			reqs, err := readRequests(r)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				return errors.New("no rows in input")
			}

			finder, _, log, err := newFinder()
			if err != nil {
				return err
			}
			log.WithField("rows", len(reqs)).WithField("workers", workers).Info("starting batch")

			bar := progressbar.NewOptions(len(reqs),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("people"),
			)
			resps := findMany(cmd, finder, reqs, workers, bar)
			_ = bar.Finish()

			records := batchRecords(reqs, resps)
			if output == "csv" {
				return writeCSV(cmd.OutOrStdout(), records)
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "CSV file with first,last,company[,domains] rows")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "requests processed concurrently")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json|csv")
	return cmd
}

// findMany splits reqs into worker-sized chunks so the progress bar moves
// while the batch runs.
func findMany(cmd *cobra.Command, finder *emailfinder.Finder, reqs []emailfinder.Request, workers int, bar *progressbar.ProgressBar) []emailfinder.Response {
	if workers <= 0 {
		workers = 4
	}
	out := make([]emailfinder.Response, 0, len(reqs))
	for start := 0; start < len(reqs); start += workers {
		end := min(start+workers, len(reqs))
		out = append(out, finder.FindMany(cmd.Context(), reqs[start:end], workers)...)
		_ = bar.Add(end - start)
	}
	return out
}
