package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/jmoralo/newsbrief/internal/report"
)

// Archive keeps a history of delivered report items in PostgreSQL. It is
// optional: runs work fine without a DSN configured.
type Archive struct {
	db       *sql.DB
	ttlHours int
}

// ArchivedItem is one row of report history.
type ArchivedItem struct {
	RunID     string
	DocID     string
	Headline  string
	Source    string
	Category  string
	Priority  string
	CreatedAt time.Time
}

// NewArchive connects to PostgreSQL and ensures the schema exists.
// ttlHours bounds how long archived items are kept; zero disables
// cleanup.
func NewArchive(dsn string, ttlHours int) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &Archive{db: db, ttlHours: ttlHours}
	if err := a.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("report archive connected")
	return a, nil
}

func (a *Archive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_items (
		id SERIAL PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		doc_id VARCHAR(128),
		headline TEXT NOT NULL,
		source VARCHAR(200),
		category VARCHAR(50),
		priority VARCHAR(20),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_report_items_run_id ON report_items(run_id);
	CREATE INDEX IF NOT EXISTS idx_report_items_created_at ON report_items(created_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// SaveReport archives every item of a delivered report under its run ID.
func (a *Archive) SaveReport(runID, docID string, rep *report.Report) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO report_items (run_id, doc_id, headline, source, category, priority)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range rep.Items {
		if _, err := stmt.Exec(runID, docID, item.Headline, item.Source,
			string(item.Category), item.Priority.String()); err != nil {
			return fmt.Errorf("archive item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	slog.Debug("report archived", "run_id", runID, "items", len(rep.Items))
	return nil
}

// RecentItems lists the latest archived items, newest first.
func (a *Archive) RecentItems(limit int) ([]ArchivedItem, error) {
	rows, err := a.db.Query(`
		SELECT run_id, COALESCE(doc_id, ''), headline, COALESCE(source, ''),
		       COALESCE(category, ''), COALESCE(priority, ''), created_at
		FROM report_items
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	var items []ArchivedItem
	for rows.Next() {
		var item ArchivedItem
		if err := rows.Scan(&item.RunID, &item.DocID, &item.Headline,
			&item.Source, &item.Category, &item.Priority, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archived item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Cleanup removes items older than the configured TTL.
func (a *Archive) Cleanup() error {
	if a.ttlHours <= 0 {
		return nil
	}
	result, err := a.db.Exec(
		`DELETE FROM report_items WHERE created_at < NOW() - INTERVAL '1 hour' * $1`,
		a.ttlHours)
	if err != nil {
		return fmt.Errorf("cleanup archive: %w", err)
	}
	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		slog.Info("cleaned up archived items", "removed", removed)
	}
	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
