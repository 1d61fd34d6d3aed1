package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/prayertimes/internal/database"
	"github.com/nao1215/prayertimes/internal/model"
	"github.com/nao1215/prayertimes/internal/report"
)

// seedHistory records one run per document, oldest first, and returns
// the database directory and the run ids.
func seedHistory(t *testing.T, docs ...*model.Document) (string, []string) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	ids := []string{
		"11111111-aaaa-4aaa-8aaa-aaaaaaaaaaaa",
		"22222222-bbbb-4bbb-8bbb-bbbbbbbbbbbb",
		"33333333-cccc-4ccc-8ccc-cccccccccccc",
	}
	for i, doc := range docs {
		data, err := report.EncodeDocument(doc)
		if err != nil {
			t.Fatal(err)
		}
		started := base.Add(time.Duration(i) * time.Hour)
		outcomes := make([]model.Outcome, 0, doc.Len())
		for _, d := range doc.Districts() {
			rec, _ := doc.Get(d)
			outcomes = append(outcomes, model.Outcome{
				District:  d,
				URL:       "https://example.com/district/" + string(d),
				Status:    model.StatusOK,
				Rows:      len(rec),
				StartedAt: started,
				Duration:  time.Second,
			})
		}
		outcomes = append(outcomes, model.Outcome{
			District:  "gamma",
			URL:       "https://example.com/district/gamma",
			Status:    model.StatusFetchFailed,
			Error:     "unexpected status code: 404",
			StartedAt: started,
		})
		summary := &model.RunSummary{
			RunID:           ids[i],
			StartedAt:       started,
			FinishedAt:      started.Add(3 * time.Second),
			BaseURL:         "https://example.com/district",
			Outcomes:        outcomes,
			PrimaryLocation: "namaz_schedule.json",
		}
		if err := db.SaveRun(context.Background(), summary, data); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return dir, ids[:len(docs)]
}

// changedDocument is sampleDocument with one cell edited, sylhet removed
// and a new district added.
func changedDocument() *model.Document {
	doc := model.NewDocument()
	doc.Set("alpha", model.DistrictRecord{
		model.NewTableRow(
			model.Field{Label: "Date", Value: "1"},
			model.Field{Label: "Fajr", Value: "4:55"},
		),
		model.NewTableRow(
			model.Field{Label: "Date", Value: "2"},
			model.Field{Label: "Fajr", Value: "4:49"},
		),
	})
	doc.Set("delta", model.DistrictRecord{
		model.NewTableRow(model.Field{Label: "Date", Value: "1"}),
	})
	return doc
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()
		dir, ids := seedHistory(t, sampleDocument(), changedDocument())

		out, _, err := executeCmd(t, "history", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		newest := strings.Index(out, shortID(ids[1]))
		oldest := strings.Index(out, shortID(ids[0]))
		if newest < 0 || oldest < 0 {
			t.Fatalf("expected both runs, got:\n%s", out)
		}
		if newest > oldest {
			t.Error("expected the newest run first")
		}
		if !strings.Contains(out, "2/3") {
			t.Errorf("expected scraped counts, got:\n%s", out)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()
		dir, ids := seedHistory(t, sampleDocument(), changedDocument())

		out, _, err := executeCmd(t, "history", "--db-dir", dir, "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, shortID(ids[0])) || !strings.Contains(out, shortID(ids[1])) {
			t.Errorf("expected only the newest run, got:\n%s", out)
		}
	})

	t.Run("one run by prefix", func(t *testing.T) {
		t.Parallel()
		dir, _ := seedHistory(t, sampleDocument())

		out, _, err := executeCmd(t, "history", "--db-dir", dir, "1111")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Alpha", "Sylhet", "Gamma", "fetch_failed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got:\n%s", want, out)
			}
		}
	})

	t.Run("one run as JSON", func(t *testing.T) {
		t.Parallel()
		dir, ids := seedHistory(t, sampleDocument())

		out, _, err := executeCmd(t, "history", "--db-dir", dir, "1111", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var summary model.RunSummary
		if err := json.Unmarshal([]byte(out), &summary); err != nil {
			t.Fatalf("output is not a run summary: %v\n%s", err, out)
		}
		if summary.RunID != ids[0] || summary.Total() != 3 || summary.Succeeded() != 2 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()
		dir, _ := seedHistory(t, sampleDocument())

		_, _, err := executeCmd(t, "history", "--db-dir", dir, "ffff")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()
		dir, _ := seedHistory(t)

		out, _, err := executeCmd(t, "history", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No runs recorded yet.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("missing database is not created", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "none")

		_, _, err := executeCmd(t, "history", "--db-dir", dir)
		if err == nil || !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected database not found error, got %v", err)
		}
	})
}

func TestDiffCmd(t *testing.T) {
	t.Parallel()

	t.Run("latest two runs", func(t *testing.T) {
		t.Parallel()
		dir, ids := seedHistory(t, sampleDocument(), changedDocument())

		out, _, err := executeCmd(t, "diff", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Comparing " + shortID(ids[0]) + " -> " + shortID(ids[1]),
			"+ delta",
			"- sylhet",
			"~ alpha",
			"4:50",
			"4:55",
			"1 added, 1 removed, 1 changed, 0 unchanged",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got:\n%s", want, out)
			}
		}
	})

	t.Run("explicit ids in reverse", func(t *testing.T) {
		t.Parallel()
		dir, _ := seedHistory(t, sampleDocument(), changedDocument())

		out, _, err := executeCmd(t, "diff", "--db-dir", dir, "2222", "1111")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "+ sylhet") || !strings.Contains(out, "- delta") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("identical runs", func(t *testing.T) {
		t.Parallel()
		dir, _ := seedHistory(t, sampleDocument(), sampleDocument())

		out, _, err := executeCmd(t, "diff", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No differences (2 districts identical)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("needs two runs", func(t *testing.T) {
		t.Parallel()
		dir, _ := seedHistory(t, sampleDocument())

		_, _, err := executeCmd(t, "diff", "--db-dir", dir)
		if !errors.Is(err, errNotEnoughRuns) {
			t.Errorf("expected errNotEnoughRuns, got %v", err)
		}
	})

	t.Run("document files", func(t *testing.T) {
		t.Parallel()
		tmp := t.TempDir()
		oldPath := writeDocument(t, tmp, "old.json", sampleDocument())
		newPath := writeDocument(t, tmp, "new.json", changedDocument())

		out, _, err := executeCmd(t, "diff", "--files", oldPath, newPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Comparing "+oldPath+" -> "+newPath) || !strings.Contains(out, "~ alpha") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("one argument is rejected", func(t *testing.T) {
		t.Parallel()
		if _, _, err := executeCmd(t, "diff", "1111"); err == nil {
			t.Error("expected an argument count error")
		}
	})

	t.Run("consecutive scrapes", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha", "beta")

		for range 2 {
			if _, _, err := executeCmd(t, env.args(srv)...); err != nil {
				t.Fatalf("scrape failed: %v", err)
			}
		}

		out, _, err := executeCmd(t, "diff", "--db-dir", env.dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "~ alpha") || !strings.Contains(out, "৪:৫৫") {
			t.Errorf("expected the changed Fajr cell, got:\n%s", out)
		}
	})
}
