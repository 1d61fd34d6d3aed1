package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/prayertimes/internal/compare"
	"github.com/nao1215/prayertimes/internal/database"
	"github.com/nao1215/prayertimes/internal/model"
	"github.com/nao1215/prayertimes/internal/report"
)

// errNotEnoughRuns is returned by diff without arguments when fewer than
// two runs are recorded.
var errNotEnoughRuns = errors.New("need at least two recorded runs to compare")

// NewDiffCmd creates the diff command.
func NewDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [old-id new-id]",
		Short: "Compare the documents of two runs",
		Long: `Diff compares the documents of two recorded runs and lists the districts
that were added, removed or changed, with every changed cell.

Without arguments the two most recent runs are compared. Run ids may be
shortened to any unique prefix. With --files the arguments are document
files instead of run ids.

Examples:
  # Compare the last two runs
  prayertimes diff

  # Compare two specific runs
  prayertimes diff 3f2a 9c41

  # Compare two documents on disk
  prayertimes diff --files march.json april.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: runDiffCmd,
	}

	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Bool("files", false,
		"Treat the arguments as document files")

	return cmd
}

// runDiffCmd executes the diff command.
func runDiffCmd(cmd *cobra.Command, args []string) error {
	files, err := cmd.Flags().GetBool("files")
	if err != nil {
		return err
	}

	var oldDoc, newDoc *model.Document
	var oldName, newName string

	if files {
		if len(args) != 2 {
			return errors.New("--files needs two document paths")
		}
		oldName, newName = args[0], args[1]
		if oldDoc, err = readDocument(oldName); err != nil {
			return err
		}
		if newDoc, err = readDocument(newName); err != nil {
			return err
		}
	} else {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		oldName, newName, err = resolveRunPair(cmd.Context(), db, args)
		if err != nil {
			return err
		}
		if oldDoc, err = loadRunDocument(cmd.Context(), db, oldName); err != nil {
			return err
		}
		if newDoc, err = loadRunDocument(cmd.Context(), db, newName); err != nil {
			return err
		}
		oldName, newName = shortID(oldName), shortID(newName)
	}

	printDiff(cmd.OutOrStdout(), oldName, newName, compare.Documents(oldDoc, newDoc))
	return nil
}

// resolveRunPair returns the full ids of the old and new run.
func resolveRunPair(ctx context.Context, db *database.HistoryDB, args []string) (string, string, error) {
	if len(args) == 0 {
		ids, err := db.LatestRunIDs(ctx, 2)
		if err != nil {
			return "", "", err
		}
		if len(ids) < 2 {
			return "", "", errNotEnoughRuns
		}
		// LatestRunIDs is newest first.
		return ids[1], ids[0], nil
	}

	oldID, err := db.ResolveRunID(ctx, args[0])
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", args[0], err)
	}
	newID, err := db.ResolveRunID(ctx, args[1])
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", args[1], err)
	}
	return oldID, newID, nil
}

func loadRunDocument(ctx context.Context, db *database.HistoryDB, id string) (*model.Document, error) {
	data, err := db.GetRunDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", shortID(id), err)
	}
	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("run %s: stored document is corrupt: %w", shortID(id), err)
	}
	return doc, nil
}

// printDiff writes the comparison in human readable form.
func printDiff(out io.Writer, oldName, newName string, result *compare.Result) {
	fmt.Fprintf(out, "Comparing %s -> %s\n", oldName, newName)
	if !result.HasChanges() {
		fmt.Fprintf(out, "No differences (%d districts identical)\n", result.Unchanged)
		return
	}

	for _, d := range result.Added {
		fmt.Fprintf(out, "+ %s\n", d)
	}
	for _, d := range result.Removed {
		fmt.Fprintf(out, "- %s\n", d)
	}

	for _, d := range result.Changed {
		fmt.Fprintf(out, "~ %s", d.District)
		if d.OldRows != d.NewRows {
			fmt.Fprintf(out, " (rows %d -> %d)", d.OldRows, d.NewRows)
		}
		fmt.Fprintln(out)
		for _, label := range d.AddedLabels {
			fmt.Fprintf(out, "    + column %q\n", label)
		}
		for _, label := range d.RemovedLabels {
			fmt.Fprintf(out, "    - column %q\n", label)
		}
		if len(d.Cells) == 0 {
			continue
		}
		rows := make([][]string, 0, len(d.Cells))
		for _, c := range d.Cells {
			rows = append(rows, []string{strconv.Itoa(c.Row + 1), c.Label, c.Old, c.New})
		}
		report.NewTableWriter(out).WriteTable(report.DisplayName(d.District),
			[]string{"Row", "Column", "Old", "New"}, rows)
	}

	fmt.Fprintf(out, "\n%d added, %d removed, %d changed, %d unchanged\n",
		len(result.Added), len(result.Removed), len(result.Changed), result.Unchanged)
}
