package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/askiada/go-reduction/pkg/batch"
	"github.com/askiada/go-reduction/pkg/reduction"
	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/table"
	"github.com/askiada/go-reduction/pkg/workhandler"
)

func newReduceCmd(a *app) *cobra.Command {
	var (
		tf          tableFlags
		concurrency int
		drawPath    string
		retain      bool
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce every row of a batch table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf.apply(cmd, a.cfg)
			if cmd.Flags().Changed("concurrency") {
				a.cfg.Batch.Concurrency = concurrency
			}
			if cmd.Flags().Changed("draw") {
				a.cfg.Batch.DrawPath = drawPath
			}
			if cmd.Flags().Changed("retain") {
				a.cfg.Batch.RetainAuxiliary = retain
			}
			top, err := tf.topLevel()
			if err != nil {
				return err
			}

			s, err := openSession(a.cfg, a.logger)
			if err != nil {
				return err
			}
			if dryRun {
				return planRows(cmd.OutOrStdout(), s, top)
			}

			return reduceRows(cmd, a, s, top)
		},
	}
	tf.register(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "rows reduced at once")
	cmd.Flags().StringVar(&drawPath, "draw", "", "write a DOT drawing of the batch pipeline to this file")
	cmd.Flags().BoolVar(&retain, "retain", false, "keep dark current and sensitivity workspaces across rows")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compose and assemble rows without running them")

	return cmd
}

func reduceRows(cmd *cobra.Command, a *app, s *session, top state.TopLevel) error {
	queue := workhandler.NewEventQueue()
	opts := []batch.Option{
		batch.WithLogger(a.logger),
		batch.WithConcurrency(a.cfg.Batch.Concurrency),
	}
	if a.cfg.Batch.DrawPath != "" {
		opts = append(opts, batch.WithDrawing(a.cfg.Batch.DrawPath))
	}
	runner, err := batch.NewRunner(s.table, s.director, s.reducer, queue, opts...)
	if err != nil {
		return err
	}

	b, err := runner.ProcessAll(cmd.Context(), top)
	if err != nil {
		return err
	}
	err = b.Wait()
	queue.ProcessEvents()
	printRows(cmd.OutOrStdout(), s.table)

	return err
}

// planRows prints the steps each row would run.
func planRows(w io.Writer, s *session, top state.TopLevel) error {
	for _, index := range s.table.ValidRowIndices() {
		row, err := s.table.TableEntry(index)
		if err != nil {
			return err
		}
		steps, err := buildRow(s, row, top)
		if err != nil {
			fmt.Fprintf(w, "%d\t%s\t%s\n", index, table.Error, err)

			continue
		}
		roles := make([]string, len(steps))
		for i, step := range steps {
			roles[i] = string(step.Role)
		}
		fmt.Fprintf(w, "%d\t%s\t%v\n", index, row.SampleScatter, roles)
	}

	return nil
}

func buildRow(s *session, row *table.RowEntry, top state.TopLevel) ([]*reduction.Step, error) {
	st, err := s.director.CreateState(row, top)
	if err != nil {
		return nil, err
	}

	return s.reducer.Build(st)
}

func printRows(w io.Writer, tbl *table.Table) {
	for i, row := range tbl.Rows() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, row.SampleScatter, row.State(), row.ToolTip())
	}
}
