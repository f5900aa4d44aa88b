package main

import (
	"errors"
	"fmt"

	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/output"
	"github.com/spf13/cobra"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List archived runs, or print one archived run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context(), cmd, loadOptions{store: true})
			if err != nil {
				return err
			}
			defer a.close()
			if a.store == nil {
				return errors.New("run archive is disabled: set store.enabled")
			}

			format := a.outputFormat
			if len(args) == 1 {
				run, err := a.store.LoadRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w, err := output.NewWriter(cmd.OutOrStdout(), format)
				if err != nil {
					return err
				}
				if !w.Structured() {
					// Archived payloads are documents; fall back to JSON.
					if w, err = output.NewWriter(cmd.OutOrStdout(), constants.OutputFormatJSON); err != nil {
						return err
					}
				}
				return w.Document(run)
			}

			if limit < 0 {
				return fmt.Errorf("invalid limit %d", limit)
			}
			runs, err := a.store.ListRuns(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}
			w, err := output.NewWriter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			return w.Runs(runs)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list runs of this analysis")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 lists all)")
	return cmd
}

