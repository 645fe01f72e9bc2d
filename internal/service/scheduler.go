package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efreeman/warfront/api/internal/model"
	"github.com/efreeman/warfront/api/internal/repository"
	"github.com/efreeman/warfront/api/pkg/conquest"
)

// persistTimeout bounds the fire-and-forget persistence calls spawned off
// the tick path.
const persistTimeout = 5 * time.Second

// snapshotsKept is how many historical snapshots survive pruning.
const snapshotsKept = 20

// SchedulerConfig carries the scheduler cadences.
type SchedulerConfig struct {
	TickInterval     time.Duration
	SnapshotInterval time.Duration
	IncomeInterval   time.Duration
	HealInterval     time.Duration
}

// Scheduler owns the world. Every intent and every tick runs under its
// lock, so the simulation only ever advances in one goroutine at a time.
// Event delivery and persistence happen outside the lock.
type Scheduler struct {
	mu     sync.Mutex
	world  *conquest.World
	clocks *PolicyClocks
	hub    Broadcaster

	snapshots repository.SnapshotRepository
	battles   repository.BattleReportRepository
	players   repository.PlayerRepository
	cache     repository.WorldCache

	cfg SchedulerConfig

	// lastKills tracks per-player kill totals between ticks so deltas can
	// feed the durable stats and the leaderboard.
	lastKills map[string]int
}

// NewScheduler creates a Scheduler around an already loaded world.
func NewScheduler(
	world *conquest.World,
	clocks *PolicyClocks,
	hub Broadcaster,
	snapshots repository.SnapshotRepository,
	battles repository.BattleReportRepository,
	players repository.PlayerRepository,
	cache repository.WorldCache,
	cfg SchedulerConfig,
) *Scheduler {
	s := &Scheduler{
		world:     world,
		clocks:    clocks,
		hub:       hub,
		snapshots: snapshots,
		battles:   battles,
		players:   players,
		cache:     cache,
		cfg:       cfg,
		lastKills: make(map[string]int),
	}
	for id, p := range world.Players {
		s.lastKills[id] = p.Kills
	}
	return s
}

// LoadWorld restores the world from the latest durable snapshot, or
// generates a fresh map when none exists.
func LoadWorld(ctx context.Context, snapshots repository.SnapshotRepository, seed int64, regions int) (*conquest.World, error) {
	snap, err := snapshots.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		log.Info().Int64("seed", seed).Int("regions", regions).Msg("No snapshot found, generating fresh world")
		return conquest.NewWorld(conquest.GenerateGraph(seed, regions), seed), nil
	}
	w, err := conquest.RestoreWorld(snap.State, time.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	log.Info().Time("savedAt", snap.CreatedAt).Int("players", len(w.Players)).Msg("World restored from snapshot")
	return w, nil
}

// Run drives the tick loop and the slower cadences until the context ends.
// A final snapshot is taken on shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	tick := time.NewTicker(s.cfg.TickInterval)
	income := time.NewTicker(s.cfg.IncomeInterval)
	heal := time.NewTicker(s.cfg.HealInterval)
	snap := time.NewTicker(s.cfg.SnapshotInterval)
	defer tick.Stop()
	defer income.Stop()
	defer heal.Stop()
	defer snap.Stop()

	log.Info().Dur("tick", s.cfg.TickInterval).Msg("Scheduler loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler loop stopping, taking final snapshot")
			s.saveSnapshot(context.Background())
			return
		case now := <-tick.C:
			s.tick(now)
		case <-income.C:
			s.creditIncome()
		case <-heal.C:
			s.heal()
		case <-snap.C:
			s.saveSnapshot(ctx)
		}
	}
}

// tick advances the simulation one step and fans out the results.
func (s *Scheduler) tick(now time.Time) {
	policy := s.clocks.Policy(now)

	s.mu.Lock()
	events := s.world.Tick(now, policy)
	deltas := s.killDeltas()
	s.mu.Unlock()

	s.afterChange(events, deltas)
}

// apply runs one mutation under the world lock and fans out its events.
func (s *Scheduler) apply(fn func(w *conquest.World) ([]conquest.Event, error)) error {
	s.mu.Lock()
	events, err := fn(s.world)
	var deltas map[string]int
	if err == nil {
		deltas = s.killDeltas()
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.afterChange(events, deltas)
	return nil
}

// killDeltas diffs per-player kill totals against the last dispatch.
// Caller holds the lock.
func (s *Scheduler) killDeltas() map[string]int {
	var deltas map[string]int
	for id, p := range s.world.Players {
		if d := p.Kills - s.lastKills[id]; d > 0 {
			if deltas == nil {
				deltas = make(map[string]int)
			}
			deltas[id] = d
			s.lastKills[id] = p.Kills
		}
	}
	return deltas
}

// afterChange delivers events, persists their side effects, and refreshes
// the hot cache. Runs outside the world lock.
func (s *Scheduler) afterChange(events []conquest.Event, killDeltas map[string]int) {
	if len(events) == 0 && len(killDeltas) == 0 {
		return
	}
	for _, e := range events {
		s.route(e)
		s.persistEvent(e)
	}
	if len(killDeltas) > 0 {
		go s.persistKills(killDeltas)
	}
	if len(events) > 0 {
		go s.refreshCache()
	}
}

// route sends one event to the connections its scope allows.
func (s *Scheduler) route(e conquest.Event) {
	switch e.Scope {
	case conquest.ScopeGlobal:
		s.hub.BroadcastGlobal(string(e.Type), e.Data)
	case conquest.ScopeFaction:
		s.hub.BroadcastFaction(string(e.Faction), string(e.Type), e.Data)
	case conquest.ScopeBattle:
		s.hub.BroadcastPlayers(e.Players, string(e.Type), e.Data)
	}
}

// persistEvent spawns the durable side effects of one event.
func (s *Scheduler) persistEvent(e conquest.Event) {
	switch e.Type {
	case conquest.EventBattleStarted:
		data, ok := e.Data.(conquest.BattleData)
		if !ok || len(e.Players) == 0 {
			return
		}
		go s.saveBattleReport(e.Players[0], data)
	case conquest.EventPlayerEliminated:
		data, ok := e.Data.(conquest.EliminationData)
		if !ok {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := s.players.SetEliminated(ctx, data.PlayerID); err != nil {
				log.Error().Err(err).Str("playerId", data.PlayerID).Msg("Failed to persist elimination")
			}
			s.saveSnapshot(ctx)
		}()
	}
}

func (s *Scheduler) saveBattleReport(attackerID string, data conquest.BattleData) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	rounds, err := json.Marshal(data.Rounds)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal battle rounds")
		return
	}
	kind := "assault"
	if data.Collision {
		kind = "collision"
	} else if data.Ranged {
		kind = "ranged"
	}
	report := &model.BattleReport{
		RegionID:   int(data.RegionID),
		AttackerID: attackerID,
		Kind:       kind,
		Won:        data.AttackerWins,
		Rounds:     rounds,
	}
	if err := s.battles.Save(ctx, report); err != nil {
		log.Error().Err(err).Str("attackerId", attackerID).Msg("Failed to save battle report")
	}
}

func (s *Scheduler) persistKills(deltas map[string]int) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for id, kills := range deltas {
		if err := s.players.AddKills(ctx, id, kills); err != nil {
			log.Error().Err(err).Str("playerId", id).Msg("Failed to persist kills")
		}
		if err := s.cache.IncrKills(ctx, id, kills); err != nil {
			log.Error().Err(err).Str("playerId", id).Msg("Failed to update leaderboard")
		}
	}
}

// creditIncome grants every living player their per-cycle resources.
func (s *Scheduler) creditIncome() {
	s.mu.Lock()
	for id, p := range s.world.Players {
		if p.Eliminated {
			continue
		}
		gold, food := s.world.Income(id)
		s.world.CreditResources(id, gold, food)
	}
	s.mu.Unlock()
	go s.refreshCache()
}

// heal applies hospital healing.
func (s *Scheduler) heal() {
	s.mu.Lock()
	events := s.world.HealGarrisons()
	s.mu.Unlock()
	s.afterChange(events, nil)
}

// WorldView marshals the current world snapshot.
func (s *Scheduler) WorldView() ([]byte, error) {
	s.mu.Lock()
	snap := s.world.Snapshot(time.Now())
	data, err := conquest.MarshalSnapshot(snap)
	s.mu.Unlock()
	return data, err
}

// refreshCache pushes the current world view into the hot cache.
func (s *Scheduler) refreshCache() {
	data, err := s.WorldView()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal world for cache")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cache.SetWorldState(ctx, data); err != nil {
		log.Error().Err(err).Msg("Failed to refresh world cache")
	}
}

// saveSnapshot persists the current world durably and prunes old rows.
func (s *Scheduler) saveSnapshot(ctx context.Context) {
	data, err := s.WorldView()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal world snapshot")
		return
	}
	if err := s.snapshots.Save(ctx, data); err != nil {
		log.Error().Err(err).Msg("Failed to save world snapshot")
		return
	}
	if err := s.snapshots.Prune(ctx, snapshotsKept); err != nil {
		log.Error().Err(err).Msg("Failed to prune snapshots")
	}
}

// Join enrolls a user on a faction and establishes their base.
func (s *Scheduler) Join(ctx context.Context, userID, displayName, faction string) error {
	f := conquest.Faction(faction)
	valid := false
	for _, known := range conquest.AllFactions() {
		if f == known {
			valid = true
			break
		}
	}
	if !valid {
		return conquest.ErrUnknownFaction
	}

	if _, err := s.players.Enroll(ctx, userID, faction); err != nil {
		return err
	}
	return s.apply(func(w *conquest.World) ([]conquest.Event, error) {
		return w.EnlistPlayer(userID, displayName, f)
	})
}

// Move issues a march order.
func (s *Scheduler) Move(playerID string, unitIDs []string, from int, path []int) error {
	now := time.Now()
	policy := s.clocks.Policy(now)
	regionPath := make([]conquest.RegionID, len(path))
	for i, id := range path {
		regionPath[i] = conquest.RegionID(id)
	}
	return s.apply(func(w *conquest.World) ([]conquest.Event, error) {
		_, events, err := w.IssueMove(playerID, unitIDs, conquest.RegionID(from), regionPath, now, policy)
		return events, err
	})
}

// Strike issues a ranged artillery strike.
func (s *Scheduler) Strike(playerID string, unitIDs []string, from, target int) error {
	now := time.Now()
	if !s.clocks.AtWar(now) {
		return conquest.ErrPeacetime
	}
	return s.apply(func(w *conquest.World) ([]conquest.Event, error) {
		return w.IssueStrike(playerID, unitIDs, conquest.RegionID(from), conquest.RegionID(target), now)
	})
}

// Build starts a construction.
func (s *Scheduler) Build(playerID, builderID string, region int, building string) error {
	now := time.Now()
	return s.apply(func(w *conquest.World) ([]conquest.Event, error) {
		_, err := w.StartConstruction(playerID, builderID, conquest.RegionID(region), conquest.BuildingKind(building), now)
		return nil, err
	})
}

// Produce starts unit production.
func (s *Scheduler) Produce(playerID, buildingID string, region int, unit string) error {
	now := time.Now()
	return s.apply(func(w *conquest.World) ([]conquest.Event, error) {
		_, err := w.StartProduction(playerID, buildingID, conquest.RegionID(region), conquest.UnitKind(unit), now)
		return nil, err
	})
}

// Faction returns a player's faction, or false when not enlisted.
func (s *Scheduler) Faction(playerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.world.Player(playerID)
	if p == nil {
		return "", false
	}
	return string(p.Faction), true
}

// PlayerConnected records presence.
func (s *Scheduler) PlayerConnected(playerID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.cache.MarkOnline(ctx, playerID); err != nil {
			log.Warn().Err(err).Str("playerId", playerID).Msg("Failed to mark player online")
		}
		if err := s.players.TouchLastSeen(ctx, playerID); err != nil {
			log.Warn().Err(err).Str("playerId", playerID).Msg("Failed to touch last seen")
		}
	}()
}

// PlayerDisconnected records absence.
func (s *Scheduler) PlayerDisconnected(playerID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.cache.MarkOffline(ctx, playerID); err != nil {
			log.Warn().Err(err).Str("playerId", playerID).Msg("Failed to mark player offline")
		}
	}()
}

// Inspect runs a read-only function against the world under the lock.
// Callers must not retain references past the call.
func (s *Scheduler) Inspect(fn func(w *conquest.World)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.world)
}
