package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/prayertimes/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "history.db"

var (
	// ErrRunNotFound is returned when no run matches the given id.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when a run id prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")
)

// HistoryDB stores past runs and their documents.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scrape first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		base_url TEXT NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		primary_location TEXT,
		mirror_location TEXT,
		mirror_error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS outcomes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		district TEXT NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_district ON outcomes(district);

	-- documents keep the exact bytes written to the primary output
	CREATE TABLE IF NOT EXISTS documents (
		run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		districts INTEGER NOT NULL
	);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunInfo is the row of one run without its outcomes.
type RunInfo struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	BaseURL         string
	Total           int
	Succeeded       int
	PrimaryLocation string
	MirrorLocation  string
	MirrorError     string
}

// Skipped returns the number of districts missing from the run's document.
func (r RunInfo) Skipped() int {
	return r.Total - r.Succeeded
}

// SaveRun stores summary and the document bytes in one transaction.
// document may be nil when the run was not published.
func (hdb *HistoryDB) SaveRun(ctx context.Context, summary *model.RunSummary, document []byte) error {
	if summary == nil || summary.RunID == "" {
		return errors.New("run summary without id")
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, finished_at, base_url, total, succeeded,
		primary_location, mirror_location, mirror_error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		formatTimestamp(summary.StartedAt),
		formatTimestamp(summary.FinishedAt),
		summary.BaseURL,
		summary.Total(),
		summary.Succeeded(),
		summary.PrimaryLocation,
		summary.MirrorLocation,
		summary.MirrorError,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO outcomes (run_id, position, district, url, status, row_count, error, started_at, duration_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range summary.Outcomes {
		_, err := stmt.ExecContext(ctx,
			summary.RunID,
			i,
			string(o.District),
			o.URL,
			o.Status.String(),
			o.Rows,
			o.Error,
			formatTimestamp(o.StartedAt),
			int64(o.Duration),
		)
		if err != nil {
			return fmt.Errorf("failed to save outcome of %s: %w", o.District, err)
		}
	}

	if document != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (run_id, content, districts) VALUES (?, ?, ?)`,
			summary.RunID, string(document), summary.Succeeded(),
		)
		if err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `
	SELECT id, started_at, finished_at, base_url, total, succeeded,
		primary_location, mirror_location, mirror_error
	FROM runs
	ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunInfo, 0)
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(row rowScanner) (RunInfo, error) {
	var (
		info                     RunInfo
		started, finished        string
		primary, mirror, mirrErr sql.NullString
	)
	err := row.Scan(&info.ID, &started, &finished, &info.BaseURL,
		&info.Total, &info.Succeeded, &primary, &mirror, &mirrErr)
	if err != nil {
		return RunInfo{}, err
	}
	info.StartedAt = parseTimestamp(started)
	info.FinishedAt = parseTimestamp(finished)
	info.PrimaryLocation = primary.String
	info.MirrorLocation = mirror.String
	info.MirrorError = mirrErr.String
	return info, nil
}

// LatestRunIDs returns the ids of the n most recent runs, newest first.
func (hdb *HistoryDB) LatestRunIDs(ctx context.Context, n int) ([]string, error) {
	runs, err := hdb.ListRuns(ctx, n)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids, nil
}

// ResolveRunID expands a unique id prefix to the full run id.
func (hdb *HistoryDB) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrRunNotFound
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("failed to resolve run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

// GetRun rebuilds the summary of run id, outcomes included.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	row := hdb.db.QueryRowContext(ctx, `
	SELECT id, started_at, finished_at, base_url, total, succeeded,
		primary_location, mirror_location, mirror_error
	FROM runs WHERE id = ?`, id)

	info, err := scanRunInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	summary := &model.RunSummary{
		RunID:           info.ID,
		StartedAt:       info.StartedAt,
		FinishedAt:      info.FinishedAt,
		BaseURL:         info.BaseURL,
		Outcomes:        make([]model.Outcome, 0, info.Total),
		PrimaryLocation: info.PrimaryLocation,
		MirrorLocation:  info.MirrorLocation,
		MirrorError:     info.MirrorError,
	}

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT district, url, status, row_count, error, started_at, duration_ns
	FROM outcomes WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o                model.Outcome
			district, status string
			started          string
			durationNs       int64
			errMsg           sql.NullString
		)
		if err := rows.Scan(&district, &o.URL, &status, &o.Rows, &errMsg, &started, &durationNs); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.District = model.DistrictID(district)
		o.Status, err = model.ParseOutcomeStatus(status)
		if err != nil {
			return nil, err
		}
		o.Error = errMsg.String
		o.StartedAt = parseTimestamp(started)
		o.Duration = time.Duration(durationNs)
		summary.Outcomes = append(summary.Outcomes, o)
	}
	return summary, rows.Err()
}

// GetRunDocument returns the document bytes written by run id.
func (hdb *HistoryDB) GetRunDocument(ctx context.Context, id string) ([]byte, error) {
	var content string
	err := hdb.db.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE run_id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no document stored for %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(content), nil
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
