package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"toolforge/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS corpus_items (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT,
    url         TEXT,
    keyword     TEXT,
    published   TEXT,
    ingested_at TEXT NOT NULL,
    embedding   BLOB
);

CREATE INDEX IF NOT EXISTS idx_corpus_source      ON corpus_items(source);
CREATE INDEX IF NOT EXISTS idx_corpus_ingested_at ON corpus_items(ingested_at);

CREATE TABLE IF NOT EXISTS run_log (
    run_id          TEXT PRIMARY KEY,
    run_date        TEXT NOT NULL,
    items_added     INTEGER DEFAULT 0,
    topics_selected INTEGER DEFAULT 0,
    tools_passed    INTEGER DEFAULT 0,
    tools_abandoned INTEGER DEFAULT 0,
    tools_fatal     INTEGER DEFAULT 0,
    committed_ref   TEXT,
    completed_at    TEXT
);
`

// Store provides access to the corpus database. Safe for concurrent readers;
// writes happen only in the ingestion phase upstream of the engine.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (or creates) the corpus database at path and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping corpus database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize corpus schema: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("corpus")
	logger.Info("corpus store ready: %s", path)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close corpus database: %w", err)
	}
	return nil
}

// Append inserts one item, ignoring duplicates by id. Returns true if the
// item was newly inserted.
func (s *Store) Append(ctx context.Context, item Item) (bool, error) {
	n, err := s.AppendBatch(ctx, []Item{item})
	return n == 1, err
}

// AppendBatch inserts items, skipping duplicates by id. Returns the number of
// rows actually inserted.
func (s *Store) AppendBatch(ctx context.Context, items []Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO corpus_items
		    (id, source, title, description, url, keyword, published, ingested_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare append statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	inserted := 0
	for i := range items {
		item := &items[i]
		ingestedAt := item.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = now
		}
		res, err := stmt.ExecContext(ctx,
			item.ID, item.Source, item.Title, item.Description, item.URL, item.Keyword,
			item.Published.UTC().Format(time.RFC3339),
			ingestedAt.Format(time.RFC3339),
			encodeEmbedding(item.Embedding),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit append transaction: %w", err)
	}

	s.logger.Info("appended %d/%d items", inserted, len(items))
	return inserted, nil
}

// RecentItems returns items ingested within the window, newest first.
func (s *Store) RecentItems(ctx context.Context, window time.Duration) ([]Item, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, title, description, url, keyword, published, ingested_at, embedding
		FROM corpus_items
		WHERE ingested_at >= ?
		ORDER BY ingested_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		var published, ingestedAt string
		var description, url, keyword sql.NullString
		var embedding []byte
		if err := rows.Scan(&it.ID, &it.Source, &it.Title, &description, &url, &keyword,
			&published, &ingestedAt, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		it.Description = description.String
		it.URL = url.String
		it.Keyword = keyword.String
		it.Published, _ = time.Parse(time.RFC3339, published)
		it.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
		it.Embedding = decodeEmbedding(embedding)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}
	return items, nil
}

// SetEmbedding stores a computed embedding for an item. The textual fields
// stay immutable; only the optional vector is filled in.
func (s *Store) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE corpus_items SET embedding = ? WHERE id = ?`, encodeEmbedding(vec), id); err != nil {
		return fmt.Errorf("failed to store embedding for %s: %w", id, err)
	}
	return nil
}

// Purge deletes items older than the retention window. Returns rows removed.
func (s *Store) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM corpus_items WHERE ingested_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge corpus: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("purged %d items older than %s", n, retention)
	}
	return n, nil
}

// RunRecord summarizes one completed run for the run_log table.
type RunRecord struct {
	RunID          string
	RunDate        string
	ItemsAdded     int
	TopicsSelected int
	ToolsPassed    int
	ToolsAbandoned int
	ToolsFatal     int
	CommittedRef   string
}

// RecordRun writes the run_log row for a completed run.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_log
		    (run_id, run_date, items_added, topics_selected,
		     tools_passed, tools_abandoned, tools_fatal, committed_ref, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.RunDate, rec.ItemsAdded, rec.TopicsSelected,
		rec.ToolsPassed, rec.ToolsAbandoned, rec.ToolsFatal, rec.CommittedRef,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", rec.RunID, err)
	}
	return nil
}
