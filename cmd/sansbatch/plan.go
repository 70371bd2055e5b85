package main

import (
	"github.com/spf13/cobra"

	"github.com/askiada/go-reduction/pkg/pipeline/drawer"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		tf  tableFlags
		row int
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the reduction steps of a row as a DOT graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf.apply(cmd, a.cfg)
			top, err := tf.topLevel()
			if err != nil {
				return err
			}
			s, err := openSession(a.cfg, a.logger)
			if err != nil {
				return err
			}
			entry, err := s.table.TableEntry(row)
			if err != nil {
				return err
			}
			steps, err := buildRow(s, entry, top)
			if err != nil {
				return err
			}

			return drawer.Reduction(cmd.OutOrStdout(), steps)
		},
	}
	tf.register(cmd)
	cmd.Flags().IntVar(&row, "row", 0, "index of the row to plan")

	return cmd
}
