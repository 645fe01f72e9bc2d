package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/efreeman/warfront/api/internal/model"
)

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// PlayerRepository defines player enrollment and stats operations.
type PlayerRepository interface {
	Enroll(ctx context.Context, userID, faction string) (*model.PlayerRecord, error)
	FindByUserID(ctx context.Context, userID string) (*model.PlayerRecord, error)
	List(ctx context.Context) ([]model.PlayerRecord, error)
	SetEliminated(ctx context.Context, userID string) error
	AddKills(ctx context.Context, userID string, kills int) error
	TouchLastSeen(ctx context.Context, userID string) error
}

// SnapshotRepository defines durable world snapshot operations.
type SnapshotRepository interface {
	Save(ctx context.Context, state json.RawMessage) error
	Latest(ctx context.Context) (*model.Snapshot, error)
	Prune(ctx context.Context, keep int) error
}

// BattleReportRepository defines battle history operations.
type BattleReportRepository interface {
	Save(ctx context.Context, report *model.BattleReport) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.BattleReport, error)
}

// WorldCache defines live world state operations (Redis): the hot snapshot
// read by HTTP handlers, the kill leaderboard, and the policy clock anchors.
type WorldCache interface {
	SetWorldState(ctx context.Context, state json.RawMessage) error
	GetWorldState(ctx context.Context) (json.RawMessage, error)

	IncrKills(ctx context.Context, playerID string, kills int) error
	TopKillers(ctx context.Context, n int64) ([]model.LeaderboardEntry, error)

	SetClockAnchor(ctx context.Context, name string, at time.Time) error
	GetClockAnchor(ctx context.Context, name string) (time.Time, error)

	SetPhaseTimer(ctx context.Context, name string, deadline time.Time) error

	MarkOnline(ctx context.Context, playerID string) error
	MarkOffline(ctx context.Context, playerID string) error
	OnlinePlayers(ctx context.Context) ([]string, error)
}
