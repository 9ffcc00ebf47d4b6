// Command pitchctl runs pitch wizard operations from a terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pitchctl",
	Short: "Operate on pitch records",
	Long: `pitchctl validates wizard input and performs maintenance on pitch records.

Firestore and Cloud Storage are reached with the same environment
variables the functions use (PROJECT_ID, PITCH_ASSETS_BUCKET,
PROJECTS_COLLECTION, PITCH_PROFILE).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(validateCmd, submitCmd, deleteDraftCmd, notifyCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
