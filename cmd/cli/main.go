package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keshon/autoreply/internal/config"
	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/stats"
)

// app is the state shared by the subcommands.
type app struct {
	cfg     *config.Config
	sink    *logging.Sink
	log     logging.Logger
	verbose bool

	patternsDir string
	dataDir     string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "autoreply",
		Short:         "Inspect pattern statistics and test patterns offline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.sink != nil {
				return a.sink.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.patternsDir, "patterns-dir", "", "pattern documents directory (overrides PATTERNS_DIR)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "statistics directory (overrides DATA_DIR)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(reportCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(topCmd(a))
	root.AddCommand(validateCmd(a))
	root.AddCommand(testCmd(a))

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.patternsDir != "" {
		cfg.PatternsDir = a.patternsDir
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	sink, err := logging.New(logging.Options{
		ConsoleLevel: level,
		Format:       cfg.LogFormat,
		Console:      cmd.ErrOrStderr(),
		Service:      "autoreply-cli",
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.sink = sink
	a.log = sink.Logger()
	return nil
}

func (a *app) ledger() (*stats.Ledger, error) {
	return stats.Open(a.cfg.DataDir, stats.Options{Logger: a.log})
}
