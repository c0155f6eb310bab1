// Package cmd implements the stagehand CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	defFile string
	verbose bool

	appVersion = "dev"
)

// Exit codes produced by the CLI. Script failures are distinguished from
// setup and environment failures; a fully skipped pipeline is still success.
const (
	exitOK      = 0
	exitScript  = 1
	exitSetup   = 2
	exitLoad    = 3
	exitGeneric = 4
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

var rootCmd = &cobra.Command{
	Use:           "stagehand",
	Short:         "Staged CI pipeline engine with scoped caching",
	Long:          "Stagehand loads a staged pipeline definition, filters jobs by the incoming repository event, restores content-addressed caches and runs each job's provisioned scripts.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&defFile, "file", "f", ".stagehand.yml", "pipeline definition file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(serveCmd)
}

// SetVersionInfo sets the version and commit for display.
func SetVersionInfo(version, cmt string) {
	appVersion = version
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("stagehand %s (commit: %s)\n", version, cmt))
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stagehand: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitGeneric)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
