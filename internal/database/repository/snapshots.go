package repository

import (
	"context"
	"database/sql"
)

// SnapshotRepo stores one serialized session snapshot per collection.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Get returns the stored body and whether a row existed.
func (r *SnapshotRepo) Get(ctx context.Context, collectionID string) ([]byte, bool, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE collection_id = ?`, collectionID).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(body), true, nil
}

// Put replaces the snapshot for a collection. Last write wins.
func (r *SnapshotRepo) Put(ctx context.Context, collectionID string, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO snapshots(collection_id, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(collection_id) DO UPDATE SET body=excluded.body, updated_at=CURRENT_TIMESTAMP;
	`, collectionID, string(body))
	return err
}

func (r *SnapshotRepo) Delete(ctx context.Context, collectionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE collection_id = ?`, collectionID)
	return err
}

// DeleteAll clears every stored snapshot.
func (r *SnapshotRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`)
	return err
}

// List returns all snapshots keyed by collection id.
func (r *SnapshotRepo) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT collection_id, body FROM snapshots ORDER BY collection_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]byte{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		out[id] = []byte(body)
	}
	return out, rows.Err()
}
