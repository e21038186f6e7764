// Command lp is the liftplan CLI: it loads a lifted STRIPS domain and
// problem, enumerates applicable ground actions and computes successor
// states, optionally persisting trajectories in SQLite.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/daviddao/liftplan/pkg/config"
)

const version = "1.0.0"

// exitError carries a non-default exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code:
// 0 on success, 1 on error, 2 when verify finds a mismatch.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.Close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintf(stderr, "lp: %s\n", ee.msg)
		return ee.code
	}
	fmt.Fprintf(stderr, "lp: %v\n", err)
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	var (
		cfgPath string
		verbose bool
		jsonOut bool
	)

	root := &cobra.Command{
		Use:   "lp",
		Short: "lp - lifted successor generation for STRIPS planning tasks",
		Long: `lp loads a planning domain and problem written in YAML and answers
successor-generation queries over the current state: which ground actions
are applicable, whether a given action is applicable, and what state it
leads to.

Runs persist trajectories in SQLite so they can be resumed later.

Environment:
  LIFTPLAN_DB         SQLite database path (default: .liftplan/liftplan.db)
  LIFTPLAN_LOG_LEVEL  debug, info, warn or error
  LIFTPLAN_WORKERS    parallel schema workers for applicable

Exit codes:
  0  success
  1  error
  2  verify found a mismatch`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("json") {
				cfg.JSON = jsonOut
			}

			zc := zap.NewProductionConfig()
			level, err := cfg.Level()
			if err != nil {
				return err
			}
			if verbose {
				level = zapcore.DebugLevel
			}
			zc.Level = zap.NewAtomicLevelAt(level)
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			a.cfg = cfg
			a.cfgPath = cfgPath
			a.log = logger
			a.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join(config.DefaultDir, "config.yaml"), "config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")

	root.AddCommand(
		newPrintCmd(a),
		newApplicableCmd(a),
		newCheckCmd(a),
		newNextCmd(a),
		newExampleCmd(a),
		newVerifyCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}

// taskFlags registers the domain and problem file flags shared by most
// commands.
func taskFlags(cmd *cobra.Command, domain, problem *string, problemRequired bool) {
	cmd.Flags().StringVarP(domain, "domain", "d", "", "domain file (YAML)")
	cmd.Flags().StringVarP(problem, "problem", "p", "", "problem file (YAML)")
	_ = cmd.MarkFlagRequired("domain")
	if problemRequired {
		_ = cmd.MarkFlagRequired("problem")
	}
}
