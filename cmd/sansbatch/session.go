package main

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-reduction/internal/config"
	"github.com/askiada/go-reduction/pkg/batchfile"
	"github.com/askiada/go-reduction/pkg/director"
	"github.com/askiada/go-reduction/pkg/reduction"
	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/table"
	"github.com/askiada/go-reduction/pkg/userfile"
)

// tableFlags are shared by the commands that read a batch table.
type tableFlags struct {
	userFile       string
	batchFile      string
	dimensionality string
	saveFormats    []string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.userFile, "user-file", "", "YAML user file holding the base settings")
	cmd.Flags().StringVar(&f.batchFile, "batch-file", "", "batch table, .csv or .xlsx")
	cmd.Flags().StringVar(&f.dimensionality, "dimensionality", "", "force 1D or 2D reductions")
	cmd.Flags().StringSliceVar(&f.saveFormats, "save", nil, "output formats, overriding the user file")
}

func (f *tableFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("user-file") {
		cfg.UserFile = f.userFile
	}
	if cmd.Flags().Changed("batch-file") {
		cfg.BatchFile = f.batchFile
	}
}

// topLevel turns the flags into settings that win over any user file.
func (f *tableFlags) topLevel() (state.TopLevel, error) {
	top := state.TopLevel{}
	switch f.dimensionality {
	case "":
	case "1D", "1d":
		top.Dimensionality = state.OneDim
	case "2D", "2d":
		top.Dimensionality = state.TwoDim
	default:
		return top, errors.Wrapf(config.ErrInvalidConfig, "dimensionality %q", f.dimensionality)
	}
	if f.saveFormats != nil {
		top.SaveFormats = make([]state.SaveFormat, len(f.saveFormats))
		for i, format := range f.saveFormats {
			top.SaveFormats[i] = state.SaveFormat(format)
		}
	}

	return top, nil
}

// session is a loaded batch table with everything needed to reduce it.
type session struct {
	table    *table.Table
	director *director.Director
	reducer  *reduction.Reducer
}

func openSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter, err := userfile.NewAdapter(userfile.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	base, err := adapter.Load(cfg.UserFile)
	if err != nil {
		return nil, err
	}
	dir, err := director.New(base,
		director.WithUserFileLoader(adapter),
		director.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	tbl := table.NewTable(table.WithLogger(logger))
	if err := tbl.SetUserFile(cfg.UserFile); err != nil {
		return nil, err
	}
	if err := batchfile.LoadIntoTable(tbl, cfg.BatchFile); err != nil {
		return nil, err
	}

	runner := &loggingRunner{logger: logger}
	reducer := reduction.NewReducer(
		reduction.WithLogger(logger),
		reduction.WithAlgorithms(runner),
	)
	if cfg.Batch.RetainAuxiliary {
		err := reducer.Substitute(reduction.RoleDarkCurrent, reduction.NewDarkCurrent(runner).Retain())
		if err != nil {
			return nil, err
		}
		err = reducer.Substitute(reduction.RoleSensitivity, reduction.NewSensitivity(runner).Retain())
		if err != nil {
			return nil, err
		}
	}

	return &session{table: tbl, director: dir, reducer: reducer}, nil
}

// loggingRunner stands in for the numerical engine: every algorithm call is
// logged and succeeds.
type loggingRunner struct {
	logger *slog.Logger
}

func (r *loggingRunner) Run(ctx context.Context, call reduction.Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.logger.Info("algorithm",
		slog.String("name", call.Algorithm),
		slog.String("output", call.Output),
		slog.Any("inputs", call.Inputs),
		slog.Any("params", call.Params),
	)

	return nil
}
