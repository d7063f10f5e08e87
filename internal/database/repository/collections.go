package repository

import (
	"context"
	"database/sql"
	"time"
)

// Collection is a source file that has been opened at least once.
type Collection struct {
	ID          string
	Path        string
	RecordCount int
	OpenedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CollectionRepo handles collections.
type CollectionRepo struct {
	db *sql.DB
}

func NewCollectionRepo(db *sql.DB) *CollectionRepo { return &CollectionRepo{db: db} }

func (r *CollectionRepo) Upsert(ctx context.Context, c Collection) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO collections(id, path, record_count, opened_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 path=excluded.path,
	 record_count=excluded.record_count,
	 opened_at=COALESCE(excluded.opened_at, collections.opened_at),
	 updated_at=CURRENT_TIMESTAMP;
	`, c.ID, c.Path, c.RecordCount, c.OpenedAt)
	return err
}

// Touch marks a collection as opened now.
func (r *CollectionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE collections SET opened_at = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, at, id)
	return err
}

func (r *CollectionRepo) Get(ctx context.Context, id string) (*Collection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, path, record_count, opened_at, created_at, updated_at FROM collections WHERE id = ?`, id)
	c, err := scanCollection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CollectionRepo) List(ctx context.Context) ([]Collection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, path, record_count, opened_at, created_at, updated_at FROM collections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCollection(row scanner) (Collection, error) {
	var c Collection
	var opened sql.NullTime
	if err := row.Scan(&c.ID, &c.Path, &c.RecordCount, &opened, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Collection{}, err
	}
	if opened.Valid {
		c.OpenedAt = &opened.Time
	}
	return c, nil
}
