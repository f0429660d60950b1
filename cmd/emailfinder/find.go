package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/optimode/emailfinder"
)

func findCmd() *cobra.Command {
	var (
		req        emailfinder.Request
		domain     string
		noHeadless bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the email address of one person",
		Example: `  emailfinder find --first John --last Smith --company "Acme Corp"
  emailfinder find --first Ana --last Lee --company Initech --domains gmail.com --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			finder, _, _, err := newFinder()
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			opts := []emailfinder.FindOption{
				emailfinder.WithProgress(func(done, total int, o emailfinder.VerificationOutcome) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetWriter(os.Stderr),
							progressbar.OptionSetDescription("verifying"),
							progressbar.OptionClearOnFinish(),
						)
					}
					bar.Describe(o.Candidate.Address)
					_ = bar.Set(done)
				}),
			}
			if domain != "" {
				opts = append(opts, emailfinder.WithDomain(domain))
			}
			if noHeadless {
				opts = append(opts, emailfinder.WithHeadless(false))
			}

			resp, err := finder.Find(cmd.Context(), req, opts...)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}
			if err != nil && len(resp.Results) == 0 {
				return err
			}

			switch output {
			case "json":
				if werr := writeJSON(cmd.OutOrStdout(), resp); werr != nil {
					return werr
				}
			default:
				renderProfile(cmd.OutOrStdout(), resp.Profile)
				renderTable(cmd.OutOrStdout(), resp.Results)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&req.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&req.Company, "company", "", "company name")
	cmd.Flags().StringSliceVar(&req.ExtraDomains, "domains", nil, "extra domains to sweep (comma separated)")
	cmd.Flags().StringVar(&domain, "domain", "", "company domain, skips domain resolution")
	cmd.Flags().BoolVar(&noHeadless, "no-headless", false, "show the browser window so challenges can be solved by hand")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table|json")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}
