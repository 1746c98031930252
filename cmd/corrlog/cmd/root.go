// Package cmd contains the CLI commands for corrlog.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Used for flags
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "corrlog",
	Short: "corrlog - Log Correlation and Incident Reporting Engine",
	Long: `corrlog correlates application log streams against a knowledge base
of known anomaly/problem pairs and produces incident reports.

It ingests scenario archives (a knowledge base file plus raw log files),
classifies WARNING and ERROR records against the knowledge base, links
anomalies to their root-cause problems, ranks incidents by impact and
flags both predicted-but-missing anomalies and novel ones.

Examples:
  # Analyze a scenario archive
  corrlog analyze case_7.zip

  # Analyze an extracted case directory, keep run history
  corrlog analyze ./case_7 --history runs.db

  # Watch a drop directory for new archives
  corrlog watch /srv/corrlog/drop --metrics-addr :9090

  # Inspect a knowledge base file
  corrlog kb anomalies_problems.csv`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// newLogger builds the CLI logger: production config, debug level when
// --verbose is set.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
