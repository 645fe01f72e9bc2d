package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/efreeman/warfront/api/internal/model"
)

// PlayerRepo handles player enrollment database operations.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo creates a PlayerRepo.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Enroll registers a user on a faction. Re-enrolling keeps the original
// faction; faction choice is permanent.
func (r *PlayerRepo) Enroll(ctx context.Context, userID, faction string) (*model.PlayerRecord, error) {
	var p model.PlayerRecord
	var lastSeen sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO players (user_id, faction)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET last_seen_at = now()
		 RETURNING user_id, faction, kills, eliminated, joined_at, last_seen_at`,
		userID, faction,
	).Scan(&p.UserID, &p.Faction, &p.Kills, &p.Eliminated, &p.JoinedAt, &lastSeen)
	if err != nil {
		return nil, fmt.Errorf("enroll player: %w", err)
	}
	if lastSeen.Valid {
		p.LastSeenAt = &lastSeen.Time
	}
	return &p, nil
}

// FindByUserID looks up a player enrollment.
func (r *PlayerRepo) FindByUserID(ctx context.Context, userID string) (*model.PlayerRecord, error) {
	var p model.PlayerRecord
	var lastSeen sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, faction, kills, eliminated, joined_at, last_seen_at
		 FROM players WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Faction, &p.Kills, &p.Eliminated, &p.JoinedAt, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	if lastSeen.Valid {
		p.LastSeenAt = &lastSeen.Time
	}
	return &p, nil
}

// List returns every enrolled player.
func (r *PlayerRepo) List(ctx context.Context) ([]model.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, faction, kills, eliminated, joined_at, last_seen_at
		 FROM players ORDER BY joined_at`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.PlayerRecord
	for rows.Next() {
		var p model.PlayerRecord
		var lastSeen sql.NullTime
		if err := rows.Scan(&p.UserID, &p.Faction, &p.Kills, &p.Eliminated, &p.JoinedAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		if lastSeen.Valid {
			p.LastSeenAt = &lastSeen.Time
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// SetEliminated flags a player eliminated.
func (r *PlayerRepo) SetEliminated(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET eliminated = true WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("set eliminated: %w", err)
	}
	return nil
}

// AddKills adds confirmed kills to a player's lifetime total.
func (r *PlayerRepo) AddKills(ctx context.Context, userID string, kills int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET kills = kills + $1 WHERE user_id = $2`, kills, userID)
	if err != nil {
		return fmt.Errorf("add kills: %w", err)
	}
	return nil
}

// TouchLastSeen records player activity.
func (r *PlayerRepo) TouchLastSeen(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET last_seen_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}
