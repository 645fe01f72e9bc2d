package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/efreeman/warfront/api/internal/model"
)

// SnapshotRepo handles durable world snapshot storage.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo creates a SnapshotRepo.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save appends a world snapshot.
func (r *SnapshotRepo) Save(ctx context.Context, state json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (state) VALUES ($1)`, []byte(state))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or nil when none exists.
func (r *SnapshotRepo) Latest(ctx context.Context) (*model.Snapshot, error) {
	var s model.Snapshot
	err := r.db.QueryRowContext(ctx,
		`SELECT id, state, created_at FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&s.ID, &s.State, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &s, nil
}

// Prune deletes all but the newest keep snapshots.
func (r *SnapshotRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots
		 WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT $1)`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
