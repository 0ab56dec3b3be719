// Package store keeps a SQLite index of parsed tasks. The markdown files stay
// the source of truth; the index only serves lookups that would otherwise need
// a full reparse, chiefly search autocompletion in the TUI.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"taskdeck/internal/logging"
	"taskdeck/internal/task"
)

// Index is the SQLite task index.
type Index struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Suggestion is one key:value completion.
type Suggestion struct {
	Key   string
	Value string
	Count int
}

// Text renders the suggestion as a query term.
func (s Suggestion) Text() string {
	return s.Key + ":" + s.Value
}

// Open initializes the SQLite database at path. ":memory:" is accepted.
func Open(path string) (*Index, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	idx := &Index{db: db, dbPath: path}
	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("Index opened at %s", path)
	return idx, nil
}

func (i *Index) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		task_id TEXT,
		title TEXT NOT NULL,
		done INTEGER NOT NULL,
		section TEXT,
		meta TEXT,
		PRIMARY KEY(file, line)
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_id ON tasks(task_id);

	CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS meta_values (
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY(key, value)
	);
	`
	if _, err := i.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return RunMigrations(i.db)
}

// Close closes the database.
func (i *Index) Close() error {
	return i.db.Close()
}

// Replace rebuilds the index from tasks in a single transaction.
func (i *Index) Replace(ctx context.Context, tasks []*task.Task) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM tasks", "DELETE FROM meta_values"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}

	insertTask, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO tasks (file, line, task_id, title, done, status, section, meta) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insertTask.Close()

	counts := make(map[task.Pair]int)
	for _, t := range tasks {
		done := 0
		if t.Done {
			done = 1
		}
		if _, err := insertTask.ExecContext(ctx, t.File, t.Line, t.ID, t.Title, done, t.Status(), t.SectionName(), t.Meta.String()); err != nil {
			return fmt.Errorf("failed to index %s:%d: %w", t.File, t.Line, err)
		}
		for _, p := range effectiveMeta(t) {
			counts[p]++
		}
	}

	insertMeta, err := tx.PrepareContext(ctx, `INSERT INTO meta_values (key, value, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insertMeta.Close()

	for p, n := range counts {
		if _, err := insertMeta.ExecContext(ctx, p.Key, p.Value, n); err != nil {
			return fmt.Errorf("failed to index %s: %w", p.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	logging.Store("Indexed %d tasks, %d distinct values", len(tasks), len(counts))
	return nil
}

// effectiveMeta is the task's metadata after section inheritance, plus status.
func effectiveMeta(t *task.Task) []task.Pair {
	seen := make(map[string]bool)
	var out []task.Pair
	add := func(m task.Meta) {
		for _, k := range m.Keys() {
			if seen[k] || k == "id" {
				continue
			}
			seen[k] = true
			v, _ := t.Get(k)
			out = append(out, task.Pair{Key: k, Value: v})
		}
	}
	add(t.Meta)
	if t.Section != nil {
		add(t.Section.Meta)
	}
	if !seen["status"] {
		out = append(out, task.Pair{Key: "status", Value: t.Status()})
	}
	return out
}

// Count returns the number of indexed tasks.
func (i *Index) Count(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var n int
	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of indexed tasks per status.
func (i *Index) CountByStatus(ctx context.Context) (map[string]int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	rows, err := i.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ValueCount returns the number of distinct key:value pairs.
func (i *Index) ValueCount(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var n int
	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meta_values").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count values: %w", err)
	}
	return n, nil
}

// Suggest returns completions for a partial query term. "ar" matches keys
// and values starting with "ar"; "area:h" matches values of area starting with "h".
func (i *Index) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		return nil, nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if key, value, ok := strings.Cut(prefix, ":"); ok {
		rows, err = i.db.QueryContext(ctx,
			`SELECT key, value, count FROM meta_values
			 WHERE key = ? AND value LIKE ? ESCAPE '\'
			 ORDER BY count DESC, key, value LIMIT ?`,
			strings.ToLower(key), likePrefix(value), limit)
	} else {
		rows, err = i.db.QueryContext(ctx,
			`SELECT key, value, count FROM meta_values
			 WHERE key LIKE ? ESCAPE '\' OR value LIKE ? ESCAPE '\'
			 ORDER BY count DESC, key, value LIMIT ?`,
			likePrefix(prefix), likePrefix(prefix), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Key, &s.Value, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s) + "%"
}
