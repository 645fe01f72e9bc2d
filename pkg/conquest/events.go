package conquest

import "time"

// EventType identifies a domain event produced by the tick loop or by an
// accepted intent.
type EventType string

const (
	EventTerritoryChanged      EventType = "territory_changed"
	EventUnitsMarching         EventType = "units_marching"
	EventUnitsProgressed       EventType = "units_progressed"
	EventUnitsArrived          EventType = "units_arrived"
	EventBattleStarted         EventType = "battle_started"
	EventPlayerEliminated      EventType = "player_eliminated"
	EventConstructionCompleted EventType = "construction_completed"
	EventUnitProduced          EventType = "unit_produced"
)

// Scope controls who may observe an event. Fog-of-war over attacker
// composition means battle reports never reach the defending faction at
// large; mid-march progress never leaves the owning faction.
type Scope int

const (
	// ScopeGlobal goes to every connected party.
	ScopeGlobal Scope = iota
	// ScopeFaction goes to the event's faction plus passive observers.
	ScopeFaction
	// ScopeBattle goes exclusively to the listed player IDs (the
	// attacking side's order owners) plus passive observers.
	ScopeBattle
)

// Event is a domain event. The simulation produces a flat list of these per
// tick; delivery and persistence are separate consumers, so the core never
// touches the transport layer.
type Event struct {
	Type    EventType
	Scope   Scope
	Faction Faction  // set for ScopeFaction
	Players []string // set for ScopeBattle
	Data    any
}

// TerritoryView is the client-facing summary of a region's mutable state.
type TerritoryView struct {
	RegionID  RegionID       `json:"regionId"`
	Faction   Faction        `json:"faction,omitempty"`
	OwnerID   string         `json:"ownerId,omitempty"`
	Garrison  []*Unit        `json:"garrison"`
	Fort      *Fortification `json:"fort,omitempty"`
	Buildings []*Building    `json:"buildings"`
}

// MarchingData announces a newly issued movement order to its faction.
type MarchingData struct {
	OrderID   string        `json:"orderId"`
	OwnerID   string        `json:"ownerId"`
	Path      []RegionID    `json:"path"`
	UnitCount int           `json:"unitCount"`
	StepTime  time.Duration `json:"stepTimeMs"`
}

// ProgressData reports a mid-march step to the owning faction.
type ProgressData struct {
	OrderID     string    `json:"orderId"`
	Step        int       `json:"step"`
	RegionID    RegionID  `json:"regionId"`
	NextAdvance time.Time `json:"nextAdvance"`
	Survivors   int       `json:"survivors"`
	WonBattle   bool      `json:"wonBattle,omitempty"`
	Captured    bool      `json:"captured,omitempty"`
}

// ArrivalReason distinguishes how a movement order terminated.
type ArrivalReason string

const (
	ArrivalSettled      ArrivalReason = "settled"
	ArrivalCaptured     ArrivalReason = "captured"
	ArrivalWonBattle    ArrivalReason = "won_battle"
	ArrivalDestroyed    ArrivalReason = "destroyed"
	ArrivalPeaceBlocked ArrivalReason = "blocked_by_peace"
)

// ArrivedData reports a terminated movement order to the owning faction.
type ArrivedData struct {
	OrderID   string        `json:"orderId"`
	RegionID  RegionID      `json:"regionId"`
	Reason    ArrivalReason `json:"reason"`
	Survivors int           `json:"survivors"`
}

// BattleData carries the full round log of a resolved battle for the
// attacking side and observers.
type BattleData struct {
	RegionID      RegionID      `json:"regionId"`
	Collision     bool          `json:"collision,omitempty"`
	Ranged        bool          `json:"ranged,omitempty"`
	Rounds        []BattleRound `json:"rounds"`
	AttackerWins  bool          `json:"attackerWins"`
	Draw          bool          `json:"draw,omitempty"`
	FortDestroyed bool          `json:"fortDestroyed,omitempty"`
	Survivors     []*Unit       `json:"survivors"`
}

// EliminationData announces a player's elimination to everyone.
type EliminationData struct {
	PlayerID string  `json:"playerId"`
	Faction  Faction `json:"faction"`
}

// CompletionData reports a finished construction or production to its owner's faction.
type CompletionData struct {
	RegionID RegionID     `json:"regionId"`
	OwnerID  string       `json:"ownerId"`
	Building BuildingKind `json:"building,omitempty"`
	Unit     UnitKind     `json:"unit,omitempty"`
}

// cloneUnits copies units into fresh values. Event payloads must never
// alias live world state: consumers marshal them after the world lock is
// released, while the originals keep mutating.
func cloneUnits(units []*Unit) []*Unit {
	out := make([]*Unit, len(units))
	for i, u := range units {
		c := *u
		out[i] = &c
	}
	return out
}

func cloneBuildings(buildings []*Building) []*Building {
	out := make([]*Building, len(buildings))
	for i, b := range buildings {
		c := *b
		out[i] = &c
	}
	return out
}

// territoryEvent builds the global territory_changed event for a region.
// The view is a detached copy of the region's mutable state.
func territoryEvent(r *Region) Event {
	var fort *Fortification
	if r.Fort != nil {
		f := *r.Fort
		fort = &f
	}
	return Event{
		Type:  EventTerritoryChanged,
		Scope: ScopeGlobal,
		Data: TerritoryView{
			RegionID:  r.ID,
			Faction:   r.Faction,
			OwnerID:   r.OwnerID,
			Garrison:  cloneUnits(r.Garrison),
			Fort:      fort,
			Buildings: cloneBuildings(r.Buildings),
		},
	}
}
