package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/efreeman/warfront/api/internal/repository"
)

// PolicyWatcher announces weather and war/peace phase changes to clients.
// It arms Redis timer keys expiring at each phase boundary and listens for
// keyspace notifications, with a polling fallback when notifications are
// unavailable.
type PolicyWatcher struct {
	rdb    *redis.Client
	cache  repository.WorldCache
	clocks *PolicyClocks
	hub    Broadcaster

	lastWeather string
	lastAtWar   bool
}

// NewPolicyWatcher creates a PolicyWatcher.
func NewPolicyWatcher(rdb *redis.Client, cache repository.WorldCache, clocks *PolicyClocks, hub Broadcaster) *PolicyWatcher {
	now := time.Now()
	return &PolicyWatcher{
		rdb:         rdb,
		cache:       cache,
		clocks:      clocks,
		hub:         hub,
		lastWeather: clocks.Weather(now).Name,
		lastAtWar:   clocks.AtWar(now),
	}
}

// Start arms the phase timers and listens for expiry events.
func (p *PolicyWatcher) Start(ctx context.Context) {
	p.armTimers(ctx)
	go p.listenKeyspace(ctx)
	p.pollPhases(ctx)
}

func (p *PolicyWatcher) armTimers(ctx context.Context) {
	now := time.Now()
	if err := p.cache.SetPhaseTimer(ctx, "weather", p.clocks.NextWeatherChange(now)); err != nil {
		log.Warn().Err(err).Msg("Failed to arm weather timer")
	}
	if err := p.cache.SetPhaseTimer(ctx, "warpeace", p.clocks.NextWarPeaceChange(now)); err != nil {
		log.Warn().Err(err).Msg("Failed to arm war/peace timer")
	}
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (p *PolicyWatcher) listenKeyspace(ctx context.Context) {
	pubsub := p.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Policy watcher started, listening for phase expiry")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			p.handleExpiry(ctx, msg.Payload)
		}
	}
}

// pollPhases is the fallback that catches phase flips even when keyspace
// notifications are disabled.
func (p *PolicyWatcher) pollPhases(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Policy watcher stopped")
			return
		case <-ticker.C:
			p.announceChanges(ctx)
		}
	}
}

// handleExpiry processes an expired key. Only acts on phase timer keys.
func (p *PolicyWatcher) handleExpiry(ctx context.Context, key string) {
	if !strings.HasPrefix(key, "world:phase:") {
		return
	}
	p.announceChanges(ctx)
}

// announceChanges broadcasts any phase flip since the last announcement
// and re-arms the expired timers.
func (p *PolicyWatcher) announceChanges(ctx context.Context) {
	now := time.Now()
	weather := p.clocks.Weather(now)
	atWar := p.clocks.AtWar(now)

	changed := false
	if weather.Name != p.lastWeather {
		p.lastWeather = weather.Name
		changed = true
	}
	if atWar != p.lastAtWar {
		p.lastAtWar = atWar
		changed = true
		log.Info().Bool("atWar", atWar).Msg("War/peace phase changed")
	}
	if !changed {
		return
	}

	p.hub.BroadcastGlobal("policy_changed", map[string]any{
		"weather":        weather.Name,
		"weatherSpeed":   weather.Speed,
		"atWar":          atWar,
		"nextWeatherAt":  p.clocks.NextWeatherChange(now),
		"nextWarPeaceAt": p.clocks.NextWarPeaceChange(now),
	})
	p.armTimers(ctx)
}
