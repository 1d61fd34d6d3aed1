package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/prayertimes/internal/config"
	"github.com/nao1215/prayertimes/internal/database"
	"github.com/nao1215/prayertimes/internal/model"
)

const alphaPage = `<html><body>
<h1>Alpha</h1>
<table>
  <tr><th>Date</th><th>Fajr</th><th>Isha</th></tr>
  <tr><td>১</td><td>%s</td><td>৭:১০</td></tr>
  <tr><td>২</td><td>৪:৪৯</td><td>৭:১১</td></tr>
</table>
</body></html>`

// newDistrictServer serves a table for /alpha, a page without a table for
// /beta and 404 for everything else. The first Fajr cell of alpha changes
// on every request so that consecutive runs differ.
func newDistrictServer(t *testing.T) *httptest.Server {
	t.Helper()

	var alphaHits atomic.Int32
	fajr := []string{"৪:৫০", "৪:৫৫"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alpha":
			n := int(alphaHits.Add(1)-1) % len(fajr)
			fmt.Fprintf(w, alphaPage, fajr[n])
		case "/beta":
			fmt.Fprint(w, "<html><body><p>Coming soon</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// scrapeEnv is a temporary workspace for one scrape test.
type scrapeEnv struct {
	dir     string
	config  string
	catalog string
	output  string
	dbDir   string
}

func newScrapeEnv(t *testing.T, districts ...string) scrapeEnv {
	t.Helper()
	dir := t.TempDir()
	return scrapeEnv{
		dir:     dir,
		config:  writeFile(t, dir, "config.yaml", "# empty\n"),
		catalog: writeFile(t, dir, "districts.txt", "# test catalog\n"+strings.Join(districts, "\n")+"\n"),
		output:  filepath.Join(dir, "out", "namaz_schedule.json"),
		dbDir:   filepath.Join(dir, "db"),
	}
}

// args returns the scrape arguments for srv followed by extra.
func (e scrapeEnv) args(srv *httptest.Server, extra ...string) []string {
	args := []string{
		"scrape",
		"-c", e.config,
		"-u", srv.URL + "/",
		"-D", e.catalog,
		"-o", e.output,
		"-d", "0s",
		"--db-dir", e.dbDir,
	}
	return append(args, extra...)
}

func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"output", "o", config.DefaultOutput},
		{"mirror", "m", ""},
		{"base-url", "u", config.DefaultBaseURL},
		{"delay", "d", "1s"},
		{"districts", "D", ""},
		{"config", "c", ""},
		{"timeout", "t", "30s"},
		{"concurrency", "j", "1"},
		{"user-agent", "", config.DefaultUserAgent},
		{"proxy", "", ""},
		{"tor", "", "false"},
		{"cloudflare-bypass", "", "false"},
		{"report", "", ""},
		{"no-history", "", "false"},
		{"month", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("default = %q, want %q", flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	parse := func(t *testing.T, args ...string) (*config.Config, error) {
		t.Helper()
		cmd := NewScrapeCmd()
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		return buildConfig(cmd)
	}

	t.Run("config file overrides defaults", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", `month: April
delay: 5s
concurrency: 3
mirror: /srv/mirror
headers:
  Cookie: session=1
districts:
  - dhaka
  - sylhet
`)

		cfg, err := parse(t, "-c", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ConfigFilePath != path {
			t.Errorf("ConfigFilePath = %q, want %q", cfg.ConfigFilePath, path)
		}
		if cfg.EffectiveBaseURL() != config.BaseURLForMonth("April") {
			t.Errorf("base URL = %q", cfg.EffectiveBaseURL())
		}
		if cfg.Delay != 5*time.Second || cfg.Concurrency != 3 {
			t.Errorf("delay/concurrency = %v/%d", cfg.Delay, cfg.Concurrency)
		}
		if cfg.Mirror != "/srv/mirror" {
			t.Errorf("mirror = %q", cfg.Mirror)
		}
		if cfg.Headers["Cookie"] != "session=1" {
			t.Errorf("headers = %v", cfg.Headers)
		}
		if len(cfg.Districts) != 2 || cfg.Districts[1] != "sylhet" {
			t.Errorf("districts = %v", cfg.Districts)
		}
		if cfg.Output != config.DefaultOutput {
			t.Errorf("output = %q, want default", cfg.Output)
		}
	})

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", "month: April\ndelay: 5s\noutput: a.json\n")
		catalog := writeFile(t, dir, "list.txt", "rajshahi\n")

		cfg, err := parse(t, "-c", path,
			"-u", "http://localhost:8080/district",
			"-d", "250ms",
			"-o", "b.json",
			"-D", catalog,
			"--header", "Accept-Language=bn",
			"--no-history",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.EffectiveBaseURL() != "http://localhost:8080/district" {
			t.Errorf("explicit base URL should win over the file's month, got %q", cfg.EffectiveBaseURL())
		}
		if cfg.Delay != 250*time.Millisecond {
			t.Errorf("delay = %v", cfg.Delay)
		}
		if cfg.Output != "b.json" {
			t.Errorf("output = %q", cfg.Output)
		}
		if len(cfg.Districts) != 1 || cfg.Districts[0] != "rajshahi" {
			t.Errorf("districts = %v", cfg.Districts)
		}
		if cfg.Headers["Accept-Language"] != "bn" {
			t.Errorf("headers = %v", cfg.Headers)
		}
		if cfg.SaveToDB {
			t.Error("--no-history should disable the history database")
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		t.Parallel()
		_, err := parse(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid catalog file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", "")
		catalog := writeFile(t, dir, "list.txt", "dhaka\nbad/id\n")

		_, err := parse(t, "-c", path, "-D", catalog)
		if !errors.Is(err, config.ErrInvalidDistrict) {
			t.Errorf("expected ErrInvalidDistrict, got %v", err)
		}
	})
}

func TestScrapeCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes primary and mirror and skips failed districts", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha", "beta", "gamma")
		mirrorDir := filepath.Join(env.dir, "mirror")
		if err := os.Mkdir(mirrorDir, 0750); err != nil {
			t.Fatal(err)
		}
		reportPath := filepath.Join(env.dir, "reports", "run.md")

		out, _, err := executeCmd(t, env.args(srv, "-m", mirrorDir, "--report", reportPath)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		base := strings.TrimRight(srv.URL, "/")
		for _, want := range []string{
			"Scraping: alpha -> " + base + "/alpha",
			"Scraping: beta -> " + base + "/beta",
			"No table found for beta",
			"Error fetching data for gamma",
			"JSON file created successfully: " + env.output,
			"JSON file also saved in mirror: " + filepath.Join(mirrorDir, "namaz_schedule.json"),
			"Report written to: " + reportPath,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if strings.Index(out, "Scraping: alpha") > strings.Index(out, "Scraping: beta") {
			t.Error("districts should be processed in catalog order")
		}

		primary, err := os.ReadFile(env.output)
		if err != nil {
			t.Fatalf("failed to read primary: %v", err)
		}
		mirror, err := os.ReadFile(filepath.Join(mirrorDir, "namaz_schedule.json"))
		if err != nil {
			t.Fatalf("failed to read mirror: %v", err)
		}
		if string(primary) != string(mirror) {
			t.Error("mirror must be byte-identical to the primary document")
		}

		want := `{
    "alpha": [
        {
            "Date": "১",
            "Fajr": "৪:৫০",
            "Isha": "৭:১০"
        },
        {
            "Date": "২",
            "Fajr": "৪:৪৯",
            "Isha": "৭:১১"
        }
    ]
}
`
		if string(primary) != want {
			t.Errorf("unexpected document:\n%s\nwant:\n%s", primary, want)
		}

		report, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(report), "# Prayer Times Scrape Report") {
			t.Errorf("unexpected report:\n%s", report)
		}
	})

	t.Run("records the run in history", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha", "beta")

		if _, _, err := executeCmd(t, env.args(srv)...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		db, err := database.Open(env.dbDir, database.Options{})
		if err != nil {
			t.Fatalf("history database not created: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].Total != 2 || runs[0].Succeeded != 1 {
			t.Errorf("run counts = %d/%d, want 1/2", runs[0].Succeeded, runs[0].Total)
		}
		if runs[0].PrimaryLocation != env.output {
			t.Errorf("primary location = %q", runs[0].PrimaryLocation)
		}

		stored, err := db.GetRunDocument(context.Background(), runs[0].ID)
		if err != nil {
			t.Fatal(err)
		}
		written, err := os.ReadFile(env.output)
		if err != nil {
			t.Fatal(err)
		}
		if string(stored) != string(written) {
			t.Error("stored document differs from the written one")
		}
	})

	t.Run("JSON run report", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha", "beta")
		reportPath := filepath.Join(env.dir, "run.json")

		if _, _, err := executeCmd(t, env.args(srv, "--report", reportPath, "--no-history")...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var summary model.RunSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			t.Fatalf("report is not a run summary: %v", err)
		}
		if summary.Total() != 2 || summary.Succeeded() != 1 {
			t.Errorf("unexpected counts %d/%d", summary.Succeeded(), summary.Total())
		}
		if summary.PrimaryLocation != env.output {
			t.Errorf("primary location = %q", summary.PrimaryLocation)
		}
		if summary.Outcomes[1].Status != model.StatusNoTable {
			t.Errorf("beta status = %v", summary.Outcomes[1].Status)
		}
	})

	t.Run("no-history leaves the database alone", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha")

		if _, _, err := executeCmd(t, env.args(srv, "--no-history")...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(env.dbDir); !os.IsNotExist(err) {
			t.Errorf("expected no database directory, got %v", err)
		}
	})

	t.Run("missing mirror directory is not fatal", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha")
		mirrorDir := filepath.Join(env.dir, "not-mounted")

		out, _, err := executeCmd(t, env.args(srv, "-m", mirrorDir, "--no-history")...)
		if err != nil {
			t.Fatalf("mirror failure must not fail the run: %v", err)
		}
		if !strings.Contains(out, "Mirror copy skipped") {
			t.Errorf("expected a mirror warning, got:\n%s", out)
		}
		if _, err := os.Stat(mirrorDir); !os.IsNotExist(err) {
			t.Error("mirror directory must not be created")
		}
		if _, err := os.Stat(env.output); err != nil {
			t.Errorf("primary document missing: %v", err)
		}
	})

	t.Run("mirror to a bucket URL", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha")
		bucketDir := filepath.Join(env.dir, "bucket")
		if err := os.Mkdir(bucketDir, 0750); err != nil {
			t.Fatal(err)
		}

		out, _, err := executeCmd(t, env.args(srv, "-m", "file://"+filepath.ToSlash(bucketDir), "--no-history")...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "JSON file also saved in mirror") {
			t.Errorf("expected mirror confirmation, got:\n%s", out)
		}
		mirrored, err := os.ReadFile(filepath.Join(bucketDir, "namaz_schedule.json"))
		if err != nil {
			t.Fatalf("object not written: %v", err)
		}
		if !json.Valid(mirrored) {
			t.Error("mirrored object is not valid JSON")
		}
	})

	t.Run("every district failing still writes an empty document", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "gamma", "delta")

		if _, _, err := executeCmd(t, env.args(srv, "--no-history")...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(env.output)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "{}\n" {
			t.Errorf("expected empty document, got %q", data)
		}
	})

	t.Run("concurrent scrape keeps catalog order", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "gamma", "alpha", "beta")

		if _, _, err := executeCmd(t, env.args(srv, "-j", "3", "--no-history")...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(env.output)
		if err != nil {
			t.Fatal(err)
		}
		doc := model.NewDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			t.Fatal(err)
		}
		if got := doc.Districts(); len(got) != 1 || got[0] != "alpha" {
			t.Errorf("districts = %v", got)
		}
	})

	t.Run("primary write failure is fatal", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha")
		blocker := writeFile(t, env.dir, "blocker", "not a directory")

		_, _, err := executeCmd(t, "scrape", "-c", env.config, "-u", srv.URL, "-D", env.catalog,
			"-d", "0s", "--no-history", "-o", filepath.Join(blocker, "out.json"))
		if err == nil {
			t.Fatal("expected error when the primary document cannot be written")
		}
	})

	t.Run("empty catalog is fatal", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t)

		_, _, err := executeCmd(t, env.args(srv, "--no-history")...)
		if !errors.Is(err, config.ErrEmptyCatalog) {
			t.Errorf("expected ErrEmptyCatalog, got %v", err)
		}
		if _, statErr := os.Stat(env.output); !os.IsNotExist(statErr) {
			t.Error("no document should be written for an empty catalog")
		}
	})

	t.Run("proxy and tor together are rejected", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha")

		_, _, err := executeCmd(t, env.args(srv, "--proxy", "127.0.0.1:9050", "--tor")...)
		if !errors.Is(err, config.ErrConflictingProxy) {
			t.Errorf("expected ErrConflictingProxy, got %v", err)
		}
	})

	t.Run("unreachable proxy stops the run before fetching", func(t *testing.T) {
		t.Parallel()
		srv := newDistrictServer(t)
		env := newScrapeEnv(t, "alpha")

		// Grab a free port and close it again so nothing listens there.
		l := httptest.NewServer(http.NotFoundHandler())
		addr := l.Listener.Addr().String()
		l.Close()

		out, _, err := executeCmd(t, env.args(srv, "--proxy", addr, "-t", "2s", "--no-history")...)
		if err == nil || !strings.Contains(err.Error(), "proxy check failed") {
			t.Fatalf("expected proxy check failure, got %v", err)
		}
		if strings.Contains(out, "Scraping:") {
			t.Error("no district should be fetched without a working proxy")
		}
	})
}
