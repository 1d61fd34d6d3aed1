package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/prayertimes/internal/config"
	"github.com/nao1215/prayertimes/internal/database"
	"github.com/nao1215/prayertimes/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past scraping runs",
		Long: `History lists the runs recorded by scrape, newest first. With a run id
(or a unique prefix of one) it prints the outcome of every district of
that run instead.

Examples:
  # List the last 20 runs
  prayertimes history

  # Show one run as JSON
  prayertimes history 3f2a --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Bool("json", false,
		"Print the run summary as JSON (with a run id)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id, err := db.ResolveRunID(ctx, args[0])
		if err != nil {
			return err
		}
		summary, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}

		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		var w report.Writer = report.NewTableWriter(out)
		if asJSON {
			w = report.NewJSONWriter(out, report.WithPrettyPrint())
		}
		_, err = w.WriteSummary(summary)
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		mirror := r.MirrorLocation
		if r.MirrorError != "" {
			mirror += " (failed)"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
			strconv.Itoa(r.Succeeded) + "/" + strconv.Itoa(r.Total),
			r.PrimaryLocation,
			mirror,
		})
	}
	report.NewTableWriter(out).WriteTable("Runs",
		[]string{"ID", "Started", "Duration", "Scraped", "Output", "Mirror"}, rows)
	return nil
}

// openHistory opens the existing history database named by --db-dir, the
// configuration file or the XDG default.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	cfg := config.NewConfig()
	if err := loadConfigFile(cfg, ""); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("db-dir") {
		dir, err := cmd.Flags().GetString("db-dir")
		if err != nil {
			return nil, err
		}
		cfg.DBDir = dir
	}

	return database.Open(cfg.DBDir, database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
}

// shortID returns the first eight characters of a run id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
