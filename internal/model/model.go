package model

import (
	"encoding/json"
	"time"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlayerRecord links a user to their in-world player: faction choice and
// lifetime stats. The live player state (resources, units) lives in the
// world snapshot, not here.
type PlayerRecord struct {
	UserID     string     `json:"user_id"`
	Faction    string     `json:"faction"`
	Kills      int        `json:"kills"`
	Eliminated bool       `json:"eliminated"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Snapshot is a persisted world state record. Only the latest row matters
// for recovery; older rows are an audit trail.
type Snapshot struct {
	ID        int64           `json:"id"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// BattleReport is the persisted record of one resolved battle, stored for
// the attacking player's history.
type BattleReport struct {
	ID         string          `json:"id"`
	RegionID   int             `json:"region_id"`
	AttackerID string          `json:"attacker_id"`
	Kind       string          `json:"kind"` // assault, collision, ranged
	Won        bool            `json:"won"`
	Rounds     json.RawMessage `json:"rounds"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LeaderboardEntry is one row of the kill leaderboard.
type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Kills    int    `json:"kills"`
}
