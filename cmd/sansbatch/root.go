package main

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-reduction/internal/config"
	"github.com/askiada/go-reduction/internal/logging"
)

// app carries the resolved configuration to the subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	logLevel  string
	logFormat string
	logNoTime bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sansbatch",
		Short:         "Compose and reduce SANS batch tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text or json)")
	root.PersistentFlags().BoolVar(&a.logNoTime, "log-no-time", false, "omit timestamps from logs")

	root.AddCommand(newReduceCmd(a), newPlanCmd(a), newHintCmd())

	return root
}

// setup resolves defaults, then SANS_ variables, then flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		if err := cfg.Log.Level.UnmarshalText([]byte(a.logLevel)); err != nil {
			return errors.Wrapf(config.ErrInvalidConfig, "log level %q", a.logLevel)
		}
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = config.LogFormat(a.logFormat)
	}
	if flags.Changed("log-no-time") {
		cfg.Log.NoTime = a.logNoTime
	}

	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Log)

	return nil
}
