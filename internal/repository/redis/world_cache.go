package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efreeman/warfront/api/internal/model"
)

// Key patterns for Redis world state.
const (
	worldStateKey    = "world:state"
	leaderboardKey   = "world:leaderboard"
	onlinePlayersKey = "world:online"
)

func clockAnchorKey(name string) string { return "world:clock:" + name }
func phaseTimerKey(name string) string  { return "world:phase:" + name }

// SetWorldState stores the hot world snapshot JSON read by HTTP handlers.
func (c *Client) SetWorldState(ctx context.Context, state json.RawMessage) error {
	return c.rdb.Set(ctx, worldStateKey, []byte(state), 0).Err()
}

// GetWorldState retrieves the hot world snapshot JSON.
func (c *Client) GetWorldState(ctx context.Context) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, worldStateKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get world state: %w", err)
	}
	return json.RawMessage(data), nil
}

// IncrKills adds to a player's leaderboard score.
func (c *Client) IncrKills(ctx context.Context, playerID string, kills int) error {
	return c.rdb.ZIncrBy(ctx, leaderboardKey, float64(kills), playerID).Err()
}

// TopKillers returns the n highest-scoring players.
func (c *Client) TopKillers(ctx context.Context, n int64) ([]model.LeaderboardEntry, error) {
	scores, err := c.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard range: %w", err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(scores))
	for _, z := range scores {
		id, _ := z.Member.(string)
		entries = append(entries, model.LeaderboardEntry{PlayerID: id, Kills: int(z.Score)})
	}
	return entries, nil
}

// SetClockAnchor stores the epoch a policy clock measures its cycles from,
// so weather and war/peace phases survive restarts.
func (c *Client) SetClockAnchor(ctx context.Context, name string, at time.Time) error {
	return c.rdb.SetNX(ctx, clockAnchorKey(name), at.UnixMilli(), 0).Err()
}

// GetClockAnchor retrieves a clock's anchor, or the zero time when unset.
func (c *Client) GetClockAnchor(ctx context.Context, name string) (time.Time, error) {
	val, err := c.rdb.Get(ctx, clockAnchorKey(name)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get clock anchor: %w", err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock anchor: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// SetPhaseTimer creates a timer key expiring at the deadline. Keyspace
// notifications on the expiry drive phase-change announcements.
func (c *Client) SetPhaseTimer(ctx context.Context, name string, deadline time.Time) error {
	ttl := time.Until(deadline)
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, phaseTimerKey(name), deadline.Unix(), ttl).Err()
}

// MarkOnline adds a player to the online set.
func (c *Client) MarkOnline(ctx context.Context, playerID string) error {
	return c.rdb.SAdd(ctx, onlinePlayersKey, playerID).Err()
}

// MarkOffline removes a player from the online set.
func (c *Client) MarkOffline(ctx context.Context, playerID string) error {
	return c.rdb.SRem(ctx, onlinePlayersKey, playerID).Err()
}

// OnlinePlayers returns the set of currently connected players.
func (c *Client) OnlinePlayers(ctx context.Context) ([]string, error) {
	return c.rdb.SMembers(ctx, onlinePlayersKey).Result()
}
