package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/efreeman/warfront/api/internal/model"
)

// In-memory fakes for the repository interfaces. All are mutex-guarded
// because the scheduler persists off the tick path in goroutines.

type memPlayers struct {
	mu      sync.Mutex
	records map[string]*model.PlayerRecord
}

func newMemPlayers() *memPlayers {
	return &memPlayers{records: make(map[string]*model.PlayerRecord)}
}

func (m *memPlayers) Enroll(_ context.Context, userID, faction string) (*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[userID]; ok {
		cp := *p
		return &cp, nil
	}
	p := &model.PlayerRecord{UserID: userID, Faction: faction, JoinedAt: time.Now()}
	m.records[userID] = p
	cp := *p
	return &cp, nil
}

func (m *memPlayers) FindByUserID(_ context.Context, userID string) (*model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPlayers) List(context.Context) ([]model.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PlayerRecord
	for _, p := range m.records {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPlayers) SetEliminated(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[userID]; ok {
		p.Eliminated = true
	}
	return nil
}

func (m *memPlayers) AddKills(_ context.Context, userID string, kills int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[userID]; ok {
		p.Kills += kills
	}
	return nil
}

func (m *memPlayers) TouchLastSeen(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[userID]; ok {
		now := time.Now()
		p.LastSeenAt = &now
	}
	return nil
}

type memSnapshots struct {
	mu     sync.Mutex
	states []json.RawMessage
}

func (m *memSnapshots) Save(_ context.Context, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, append(json.RawMessage(nil), state...))
	return nil
}

func (m *memSnapshots) Latest(context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) == 0 {
		return nil, nil
	}
	return &model.Snapshot{
		ID:        int64(len(m.states)),
		State:     m.states[len(m.states)-1],
		CreatedAt: time.Now(),
	}, nil
}

func (m *memSnapshots) Prune(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) > keep {
		m.states = m.states[len(m.states)-keep:]
	}
	return nil
}

type memBattles struct {
	mu      sync.Mutex
	reports []model.BattleReport
}

func (m *memBattles) Save(_ context.Context, report *model.BattleReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *report)
	return nil
}

func (m *memBattles) ListByPlayer(_ context.Context, playerID string, limit int) ([]model.BattleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BattleReport
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if m.reports[i].AttackerID == playerID {
			out = append(out, m.reports[i])
		}
	}
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	state   json.RawMessage
	kills   map[string]int
	anchors map[string]time.Time
	online  map[string]bool
}

func newMemCache() *memCache {
	return &memCache{
		kills:   make(map[string]int),
		anchors: make(map[string]time.Time),
		online:  make(map[string]bool),
	}
}

func (m *memCache) SetWorldState(_ context.Context, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = append(json.RawMessage(nil), state...)
	return nil
}

func (m *memCache) GetWorldState(context.Context) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memCache) IncrKills(_ context.Context, playerID string, kills int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kills[playerID] += kills
	return nil
}

func (m *memCache) TopKillers(_ context.Context, n int64) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LeaderboardEntry
	for id, k := range m.kills {
		out = append(out, model.LeaderboardEntry{PlayerID: id, Kills: k})
	}
	return out, nil
}

func (m *memCache) SetClockAnchor(_ context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.anchors[name]; !ok {
		m.anchors[name] = at
	}
	return nil
}

func (m *memCache) GetClockAnchor(_ context.Context, name string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anchors[name], nil
}

func (m *memCache) SetPhaseTimer(context.Context, string, time.Time) error { return nil }

func (m *memCache) MarkOnline(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[playerID] = true
	return nil
}

func (m *memCache) MarkOffline(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, playerID)
	return nil
}

func (m *memCache) OnlinePlayers(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.online {
		out = append(out, id)
	}
	return out, nil
}

// recordedEvent captures one broadcast for assertions.
type recordedEvent struct {
	scope   string // global, faction, players
	target  string // faction name for faction scope
	players []string
	event   string
}

type recorderHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorderHub) BroadcastGlobal(eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{scope: "global", event: eventType})
}

func (r *recorderHub) BroadcastFaction(faction, eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{scope: "faction", target: faction, event: eventType})
}

func (r *recorderHub) BroadcastPlayers(playerIDs []string, eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{scope: "players", players: playerIDs, event: eventType})
}

func (r *recorderHub) recorded() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recorderHub) has(scope, event string) bool {
	for _, e := range r.recorded() {
		if e.scope == scope && e.event == event {
			return true
		}
	}
	return false
}
