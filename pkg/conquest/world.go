package conquest

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Player is a participant fielding units for a faction.
type Player struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Faction    Faction `json:"faction"`
	Gold       int     `json:"gold"`
	Food       int     `json:"food"`
	Kills      int     `json:"kills"`
	Eliminated bool    `json:"eliminated"`
	// BaseRegion is the region holding the player's fortification,
	// or -1 when the player has none.
	BaseRegion RegionID `json:"baseRegion"`
}

// FactionStats are derived aggregates, kept incrementally consistent with
// per-region state by the TerritoryController.
type FactionStats struct {
	Regions int `json:"regions"`
	Kills   int `json:"kills"`
}

// PolicyInputs are the per-tick outputs of the excluded clock collaborators.
// The core reads them once per tick and never mutates them.
type PolicyInputs struct {
	// AttacksAllowed is false during peace: marches into hostile
	// non-neutral regions are blocked instead of fighting.
	AttacksAllowed bool
	// WeatherSpeed and WarPeaceSpeed multiply march speed (values < 1
	// slow marches down, > 1 speed them up).
	WeatherSpeed  float64
	WarPeaceSpeed float64
}

// DefaultPolicy is wartime with clear weather.
func DefaultPolicy() PolicyInputs {
	return PolicyInputs{AttacksAllowed: true, WeatherSpeed: 1.0, WarPeaceSpeed: 1.0}
}

// World is the complete simulation state. It is exclusively owned by the
// scheduler loop: all intents and ticks are applied under the scheduler's
// lock, and other components only ever see values passed per call.
type World struct {
	Graph     *Graph                   `json:"graph"`
	Players   map[string]*Player       `json:"players"`
	Factions  map[Faction]*FactionStats `json:"factions"`
	Orders    []*MovementOrder         `json:"orders"`
	Deadlines []*Deadline              `json:"deadlines"`

	rng   *rand.Rand
	tc    *TerritoryController
	idSeq int64
}

// NewWorld builds a world over the given graph. The seed drives all combat
// and targeting randomness, so tests can fix it.
func NewWorld(g *Graph, seed int64) *World {
	w := &World{
		Graph:    g,
		Players:  make(map[string]*Player),
		Factions: make(map[Faction]*FactionStats),
		rng:      rand.New(rand.NewSource(seed)),
	}
	for _, f := range AllFactions() {
		w.Factions[f] = &FactionStats{}
	}
	w.tc = &TerritoryController{w: w}
	return w
}

// Territory returns the controller through which all region mutation flows.
func (w *World) Territory() *TerritoryController { return w.tc }

// Rand exposes the world's RNG for callers that extend the simulation
// (e.g. the dev bootstrap placing starting bases).
func (w *World) Rand() *rand.Rand { return w.rng }

func (w *World) nextID(prefix string) string {
	w.idSeq++
	return fmt.Sprintf("%s%06d", prefix, w.idSeq)
}

// AddPlayer registers a player on a faction with starting resources.
func (w *World) AddPlayer(id, name string, faction Faction) *Player {
	p := &Player{
		ID: id, Name: name, Faction: faction,
		Gold: StartingGold, Food: StartingFood,
		BaseRegion: -1,
	}
	w.Players[id] = p
	return p
}

// Player returns the registered player, or nil.
func (w *World) Player(id string) *Player { return w.Players[id] }

// CreditResources adds income to a player. The resource-income tick is an
// external collaborator; it calls this once per income cycle.
func (w *World) CreditResources(playerID string, gold, food int) {
	if p := w.Players[playerID]; p != nil && !p.Eliminated {
		p.Gold += gold
		p.Food += food
	}
}

// UnitCount returns the player's total fielded units, garrisoned and
// in flight.
func (w *World) UnitCount(playerID string) int {
	n := 0
	for _, r := range w.Graph.Regions {
		for _, u := range r.Garrison {
			if u.OwnerID == playerID {
				n++
			}
		}
	}
	for _, o := range w.Orders {
		if o.OwnerID == playerID {
			n += len(o.Units)
		}
	}
	return n
}

// SpawnUnit places a new unit of the given kind into a region's garrison.
func (w *World) SpawnUnit(kind UnitKind, ownerID string, faction Faction, regionID RegionID) *Unit {
	u := &Unit{
		ID:      w.nextID("u"),
		Kind:    kind,
		OwnerID: ownerID,
		Faction: faction,
		Health:  kind.Spec().MaxHealth,
	}
	r := w.Graph.Region(regionID)
	r.Garrison = append(r.Garrison, u)
	return u
}

// PlaceFort installs a player's fortification on a region and claims it.
func (w *World) PlaceFort(playerID string, regionID RegionID) {
	p := w.Players[playerID]
	r := w.Graph.Region(regionID)
	if p == nil || r == nil {
		return
	}
	r.Fort = &Fortification{OwnerID: playerID, Health: FortHealth, MaxHealth: FortHealth}
	p.BaseRegion = regionID
	w.tc.ApplyCapture(r, p.Faction, playerID, r.Garrison)
}

// EnlistPlayer registers a player and establishes their base: a fort on a
// random unclaimed region plus a small starting garrison. Re-enlisting on
// the same faction is a no-op; faction choice is permanent.
func (w *World) EnlistPlayer(id, name string, faction Faction) ([]Event, error) {
	if p := w.Players[id]; p != nil {
		if p.Faction != faction {
			return nil, ErrFactionTaken
		}
		return nil, nil
	}

	var candidates []*Region
	for _, r := range w.Graph.Regions {
		if r.Neutral() {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		// Fall back to an unfortified region already held by the faction.
		for _, r := range w.Graph.Regions {
			if r.Faction == faction && r.Fort == nil {
				candidates = append(candidates, r)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, ErrWorldFull
	}

	w.AddPlayer(id, name, faction)
	base := candidates[w.rng.Intn(len(candidates))]
	w.PlaceFort(id, base.ID)
	w.SpawnUnit(Infantry, id, faction, base.ID)
	w.SpawnUnit(Infantry, id, faction, base.ID)
	w.SpawnUnit(Builder, id, faction, base.ID)
	return []Event{territoryEvent(base)}, nil
}

// addKills credits confirmed kills to a player and their faction aggregate.
func (w *World) addKills(playerID string, kills int) {
	if kills <= 0 {
		return
	}
	p := w.Players[playerID]
	if p == nil {
		return
	}
	p.Kills += kills
	if fs := w.Factions[p.Faction]; fs != nil {
		fs.Kills += kills
	}
}

// stepDuration computes the base per-region march time for a unit set under
// the current weather and war/peace multipliers: the slowest unit's march
// time divided by the combined speed multiplier, rounded. Terrain is applied
// per step on top of this, never here.
func stepDuration(units []*Unit, policy PolicyInputs) time.Duration {
	var slowest time.Duration
	for _, u := range units {
		if mt := u.Kind.Spec().MarchTime; mt > slowest {
			slowest = mt
		}
	}
	mult := policy.WeatherSpeed * policy.WarPeaceSpeed
	if mult <= 0 {
		mult = 1
	}
	return time.Duration(math.Round(float64(slowest) / mult))
}

// terrainStepTime applies the destination region's terrain speed modifier
// to the order's base step duration.
func terrainStepTime(base time.Duration, dest *Region) time.Duration {
	mod := dest.Terrain.Profile().SpeedMod
	if mod <= 0 {
		mod = 1
	}
	return time.Duration(math.Round(float64(base) / mod))
}

// IssueMove validates a movement intent and, if accepted, deducts the
// upfront food cost, lifts the units out of the origin garrison, and creates
// a marching order. Rejections leave the world untouched.
func (w *World) IssueMove(playerID string, unitIDs []string, from RegionID, path []RegionID, now time.Time, policy PolicyInputs) (*MovementOrder, []Event, error) {
	p := w.Players[playerID]
	if p == nil {
		return nil, nil, ErrUnknownPlayer
	}
	if p.Eliminated {
		return nil, nil, ErrEliminated
	}
	origin := w.Graph.Region(from)
	if origin == nil {
		return nil, nil, ErrUnknownRegion
	}
	if len(path) == 0 || path[0] != from || !w.Graph.ValidPath(path) {
		return nil, nil, ErrInvalidPath
	}

	wanted := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		wanted[id] = true
	}
	var selected []*Unit
	for _, u := range origin.Garrison {
		if wanted[u.ID] && u.OwnerID == playerID && !u.Busy {
			selected = append(selected, u)
		}
	}
	if len(selected) == 0 {
		return nil, nil, ErrUnitsNotOwned
	}

	steps := len(path) - 1
	foodCost := len(selected) * steps * FoodPerMove
	if p.Food < foodCost {
		return nil, nil, ErrInsufficientFood
	}
	p.Food -= foodCost

	ids := make(map[string]bool, len(selected))
	for _, u := range selected {
		ids[u.ID] = true
	}
	units := origin.RemoveUnits(ids)

	base := stepDuration(units, policy)
	order := &MovementOrder{
		ID:           w.nextID("m"),
		OwnerID:      playerID,
		Faction:      p.Faction,
		Path:         path,
		Step:         0,
		Units:        units,
		StepDuration: base,
		NextAdvance:  now.Add(terrainStepTime(base, w.Graph.Region(path[1]))),
	}
	w.Orders = append(w.Orders, order)

	events := []Event{
		{
			Type: EventUnitsMarching, Scope: ScopeFaction, Faction: p.Faction,
			Data: MarchingData{
				OrderID: order.ID, OwnerID: playerID, Path: path,
				UnitCount: len(units), StepTime: base,
			},
		},
		territoryEvent(origin),
	}
	return order, events, nil
}

// IssueStrike validates a ranged artillery intent and, if accepted, fires
// every off-cooldown selected artillery piece at the target region. The
// strike never captures territory.
func (w *World) IssueStrike(playerID string, unitIDs []string, from, target RegionID, now time.Time) ([]Event, error) {
	p := w.Players[playerID]
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if p.Eliminated {
		return nil, ErrEliminated
	}
	origin := w.Graph.Region(from)
	tgt := w.Graph.Region(target)
	if origin == nil || tgt == nil {
		return nil, ErrUnknownRegion
	}

	wanted := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		wanted[id] = true
	}
	var artillery []*Unit
	for _, u := range origin.Garrison {
		if wanted[u.ID] && u.OwnerID == playerID && u.Kind == Artillery {
			artillery = append(artillery, u)
		}
	}
	if len(artillery) == 0 {
		return nil, ErrUnitsNotOwned
	}

	reload := Artillery.Spec().ReloadTime
	var ready []*Unit
	for _, u := range artillery {
		if u.LastFired == 0 || now.Sub(time.UnixMilli(u.LastFired)) >= reload {
			ready = append(ready, u)
		}
	}
	if len(ready) == 0 {
		return nil, ErrOnCooldown
	}

	if !w.Graph.InRange(from, target, Artillery.Spec().Range) {
		return nil, ErrOutOfRange
	}
	if !tgt.HostileTo(p.Faction) {
		return nil, ErrNotHostile
	}
	defenders := tgt.Defenders(p.Faction)
	if len(defenders) == 0 {
		return nil, ErrNoTargets
	}

	for _, u := range ready {
		u.LastFired = now.UnixMilli()
	}

	outcome := ResolveRanged(w.rng, len(ready), defenders)
	tgt.Garrison = pruneDead(tgt.Garrison)
	w.addKills(playerID, outcome.AttackerKills)

	events := []Event{
		{
			Type: EventBattleStarted, Scope: ScopeBattle, Players: []string{playerID},
			Data: BattleData{
				RegionID: target, Ranged: true,
				Rounds:    outcome.Rounds,
				Survivors: cloneUnits(outcome.DefenderSurvivors),
			},
		},
		territoryEvent(tgt),
	}
	return events, nil
}

// pruneDead drops zero-health units from a garrison slice.
func pruneDead(units []*Unit) []*Unit {
	var out []*Unit
	for _, u := range units {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// HealGarrisons applies hospital healing to damaged friendly units sharing
// a region with a hospital. Called by the scheduler on its heal cadence,
// not every tick.
func (w *World) HealGarrisons() []Event {
	var events []Event
	for _, r := range w.Graph.Regions {
		heal := 0.0
		for _, b := range r.Buildings {
			if b.Kind == Hospital {
				heal += b.Kind.Spec().HealPerTick
			}
		}
		if heal == 0 {
			continue
		}
		changed := false
		for _, u := range r.Garrison {
			if u.Faction != r.Faction {
				continue
			}
			max := u.Kind.Spec().MaxHealth
			if u.Health < max {
				u.Health = math.Min(max, u.Health+heal)
				changed = true
			}
		}
		if changed {
			events = append(events, territoryEvent(r))
		}
	}
	return events
}
