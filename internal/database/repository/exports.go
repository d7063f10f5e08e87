package repository

import (
	"context"
	"database/sql"
	"time"
)

// ExportRecord logs one export written to disk.
type ExportRecord struct {
	ID           string
	CollectionID string
	Kind         string
	Format       string
	RowCount     int
	Path         string
	CreatedAt    time.Time
}

// ExportRepo handles the export log.
type ExportRepo struct{ db *sql.DB }

func NewExportRepo(db *sql.DB) *ExportRepo { return &ExportRepo{db: db} }

func (r *ExportRepo) Insert(ctx context.Context, e ExportRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO exports(id, collection_id, kind, format, row_count, path, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, e.ID, e.CollectionID, e.Kind, e.Format, e.RowCount, e.Path, e.CreatedAt)
	return err
}

// ListByCollection returns exports newest first.
func (r *ExportRepo) ListByCollection(ctx context.Context, collectionID string) ([]ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, collection_id, kind, format, row_count, path, created_at
	FROM exports WHERE collection_id = ? ORDER BY created_at DESC, id`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var e ExportRecord
		if err := rows.Scan(&e.ID, &e.CollectionID, &e.Kind, &e.Format, &e.RowCount, &e.Path, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
