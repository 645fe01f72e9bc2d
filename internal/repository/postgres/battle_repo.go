package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/efreeman/warfront/api/internal/model"
)

// BattleRepo handles battle report storage.
type BattleRepo struct {
	db *sql.DB
}

// NewBattleRepo creates a BattleRepo.
func NewBattleRepo(db *sql.DB) *BattleRepo {
	return &BattleRepo{db: db}
}

// Save inserts a battle report.
func (r *BattleRepo) Save(ctx context.Context, report *model.BattleReport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO battle_reports (region_id, attacker_id, kind, won, rounds)
		 VALUES ($1, $2, $3, $4, $5)`,
		report.RegionID, report.AttackerID, report.Kind, report.Won, []byte(report.Rounds))
	if err != nil {
		return fmt.Errorf("save battle report: %w", err)
	}
	return nil
}

// ListByPlayer returns a player's most recent battle reports.
func (r *BattleRepo) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.BattleReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, region_id, attacker_id, kind, won, rounds, created_at
		 FROM battle_reports WHERE attacker_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list battle reports: %w", err)
	}
	defer rows.Close()

	var reports []model.BattleReport
	for rows.Next() {
		var b model.BattleReport
		if err := rows.Scan(&b.ID, &b.RegionID, &b.AttackerID, &b.Kind, &b.Won, &b.Rounds, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan battle report: %w", err)
		}
		reports = append(reports, b)
	}
	return reports, rows.Err()
}
