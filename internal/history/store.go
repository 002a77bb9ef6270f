package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"slidemill/internal/logging"
)

// timeLayout has a fixed-width fraction so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store persists run history in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open creates or opens the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas apply per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "history"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// StartRun inserts run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("start run: empty run id")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, base_dir, status, variations, seed, started_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.BaseDir,
		StatusRunning,
		run.Variations,
		run.Seed,
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.logger.Debug("run started", logging.String(logging.FieldRunID, run.ID))
	return nil
}

// RecordSelection appends one selection to its run.
func (s *Store) RecordSelection(ctx context.Context, sel Selection) error {
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selections (
            run_id, variation, post, slot, content_type, product, image, output_path, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sel.RunID,
		sel.Variation,
		sel.Post,
		sel.Slot,
		sel.ContentType,
		sel.Product,
		sel.Image,
		nullableString(sel.OutputPath),
		sel.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of run id.
func (s *Store) FinishRun(ctx context.Context, id string, out Outcome) error {
	status := StatusCompleted
	var message any
	if out.Err != nil {
		status = StatusFailed
		message = out.Err.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, posts = ?, images = ?, bytes = ?, error_message = ?, finished_at = ?
        WHERE id = ?`,
		status,
		out.Posts,
		out.Images,
		out.Bytes,
		message,
		s.now().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	s.logger.Debug("run finished",
		logging.String(logging.FieldRunID, id),
		logging.String("status", string(status)))
	return nil
}

const runColumns = "id, base_dir, status, variations, posts, images, bytes, seed, error_message, started_at, finished_at"

// Runs returns the most recent runs first. limit <= 0 returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// Selections returns the selections of run id in post order.
func (s *Store) Selections(ctx context.Context, id string) ([]Selection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, variation, post, slot, content_type, product, image, output_path, created_at
        FROM selections WHERE run_id = ? ORDER BY variation, post, slot`, id)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		var (
			sel        Selection
			outputPath sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&sel.RunID, &sel.Variation, &sel.Post, &sel.Slot,
			&sel.ContentType, &sel.Product, &sel.Image, &outputPath, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.OutputPath = outputPath.String
		if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			sel.CreatedAt = created
		}
		out = append(out, sel)
	}
	return out, rows.Err()
}

// Usage aggregates selections per image, most used first.
func (s *Store) Usage(ctx context.Context, contentType string) ([]Usage, error) {
	query := `SELECT image, content_type, COUNT(1), MAX(created_at) FROM selections`
	args := []any{}
	if contentType != "" {
		query += " WHERE content_type = ?"
		args = append(args, contentType)
	}
	query += " GROUP BY image, content_type ORDER BY COUNT(1) DESC, image"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var (
			u       Usage
			lastRaw string
		)
		if err := rows.Scan(&u.Image, &u.ContentType, &u.Count, &lastRaw); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if last, err := time.Parse(time.RFC3339Nano, lastRaw); err == nil {
			u.LastUsed = last
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and their selections.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	if n > 0 {
		s.logger.Info("history pruned", logging.Int64("runs_removed", n), logging.Int("kept", keep))
	}
	return n, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		status      string
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.BaseDir, &status, &run.Variations, &run.Posts,
		&run.Images, &run.Bytes, &run.Seed, &errorMsg, &startedRaw, &finishedRaw); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.ErrorMessage = errorMsg.String
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
