package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/prayertimes/internal/log"
)

// NewRootCmd creates the root command for prayertimes.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prayertimes",
		Short: "Scrape monthly prayer times of Bangladeshi districts",
		Long: `prayertimes downloads the monthly prayer-time table of each district
from emythmakers.com and writes all of them to a single JSON document.

Districts that cannot be fetched, or whose page has no table, are skipped
and reported; they never stop the run. Every run is recorded in a local
history database so that documents can be compared later.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewDistrictsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewDiffCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a flag from the command or, failing that, from the
// root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger builds the logger shared by every subcommand. Logs go to
// stderr so that stdout only carries progress and results.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	return log.NewLogger(cmd.ErrOrStderr(), getBoolFlag(cmd, "verbose"), getBoolFlag(cmd, "log-json"))
}
