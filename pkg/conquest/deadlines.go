package conquest

import "time"

// DeadlineKind distinguishes deferred completions.
type DeadlineKind int

const (
	DeadlineConstruction DeadlineKind = iota
	DeadlineProduction
)

// Deadline is a deferred completion scheduled at intent time and fired by
// the tick loop. Its preconditions are re-validated at fire time: if the
// region changed hands, the builder died, or the building was destroyed in
// the meantime, the deadline is voided silently. The resources spent at
// intent time are not refunded.
type Deadline struct {
	Kind     DeadlineKind `json:"kind"`
	Due      time.Time    `json:"due"`
	RegionID RegionID     `json:"regionId"`
	OwnerID  string       `json:"ownerId"`
	Faction  Faction      `json:"faction"`

	// Construction fields.
	BuilderID string       `json:"builderId,omitempty"`
	Building  BuildingKind `json:"building,omitempty"`

	// Production fields.
	BuildingID string   `json:"buildingId,omitempty"`
	Unit       UnitKind `json:"unit,omitempty"`
}

// StartConstruction validates a construction intent, deducts the gold cost,
// marks the builder busy, and schedules the completion deadline.
func (w *World) StartConstruction(playerID, builderID string, regionID RegionID, kind BuildingKind, now time.Time) (*Deadline, error) {
	p := w.Players[playerID]
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if p.Eliminated {
		return nil, ErrEliminated
	}
	r := w.Graph.Region(regionID)
	if r == nil {
		return nil, ErrUnknownRegion
	}
	if r.Faction != p.Faction {
		return nil, ErrNotFriendly
	}
	if !kind.Valid() {
		return nil, ErrUnknownBuilding
	}
	builder := r.UnitByID(builderID)
	if builder == nil || builder.OwnerID != playerID || !builder.Kind.Spec().CanBuild || builder.Busy {
		return nil, ErrNoBuilder
	}
	spec := kind.Spec()
	if p.Gold < spec.GoldCost {
		return nil, ErrInsufficientGold
	}

	p.Gold -= spec.GoldCost
	builder.Busy = true
	d := &Deadline{
		Kind:      DeadlineConstruction,
		Due:       now.Add(spec.BuildTime),
		RegionID:  regionID,
		OwnerID:   playerID,
		Faction:   p.Faction,
		BuilderID: builderID,
		Building:  kind,
	}
	w.Deadlines = append(w.Deadlines, d)
	return d, nil
}

// StartProduction validates a unit production intent, deducts the costs, and
// schedules the completion deadline.
func (w *World) StartProduction(playerID, buildingID string, regionID RegionID, kind UnitKind, now time.Time) (*Deadline, error) {
	p := w.Players[playerID]
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if p.Eliminated {
		return nil, ErrEliminated
	}
	r := w.Graph.Region(regionID)
	if r == nil {
		return nil, ErrUnknownRegion
	}
	if r.Faction != p.Faction {
		return nil, ErrNotFriendly
	}
	b := r.BuildingByID(buildingID)
	if b == nil || b.Health <= 0 {
		return nil, ErrUnknownBuilding
	}
	if !kind.Valid() || !b.Kind.CanProduce(kind) {
		return nil, ErrCannotProduce
	}
	if w.UnitCount(playerID) >= MaxUnitsPerPlayer {
		return nil, ErrUnitCap
	}
	spec := kind.Spec()
	if p.Gold < spec.GoldCost {
		return nil, ErrInsufficientGold
	}
	if p.Food < spec.FoodCost {
		return nil, ErrInsufficientFood
	}

	p.Gold -= spec.GoldCost
	p.Food -= spec.FoodCost
	d := &Deadline{
		Kind:       DeadlineProduction,
		Due:        now.Add(spec.BuildTime),
		RegionID:   regionID,
		OwnerID:    playerID,
		Faction:    p.Faction,
		BuildingID: buildingID,
		Unit:       kind,
	}
	w.Deadlines = append(w.Deadlines, d)
	return d, nil
}

// fireDeadlines completes every due deadline whose preconditions still hold
// and drops the rest without events.
func (w *World) fireDeadlines(now time.Time) []Event {
	var events []Event
	var pending []*Deadline
	for _, d := range w.Deadlines {
		if now.Before(d.Due) {
			pending = append(pending, d)
			continue
		}
		switch d.Kind {
		case DeadlineConstruction:
			events = append(events, w.completeConstruction(d)...)
		case DeadlineProduction:
			events = append(events, w.completeProduction(d)...)
		}
	}
	w.Deadlines = pending
	return events
}

func (w *World) completeConstruction(d *Deadline) []Event {
	r := w.Graph.Region(d.RegionID)
	if r == nil {
		return nil
	}
	builder := r.UnitByID(d.BuilderID)
	if builder != nil {
		builder.Busy = false
	}
	// Void when the region was lost or the builder is gone.
	if r.Faction != d.Faction || builder == nil || !builder.Alive() {
		return nil
	}
	r.Buildings = append(r.Buildings, &Building{
		ID:      w.nextID("b"),
		Kind:    d.Building,
		OwnerID: d.OwnerID,
		Faction: d.Faction,
		Health:  d.Building.Spec().MaxHealth,
	})
	return []Event{
		{
			Type: EventConstructionCompleted, Scope: ScopeFaction, Faction: d.Faction,
			Data: CompletionData{RegionID: d.RegionID, OwnerID: d.OwnerID, Building: d.Building},
		},
		territoryEvent(r),
	}
}

func (w *World) completeProduction(d *Deadline) []Event {
	r := w.Graph.Region(d.RegionID)
	if r == nil || r.Faction != d.Faction {
		return nil
	}
	b := r.BuildingByID(d.BuildingID)
	if b == nil || b.Health <= 0 {
		return nil
	}
	if w.UnitCount(d.OwnerID) >= MaxUnitsPerPlayer {
		return nil
	}
	w.SpawnUnit(d.Unit, d.OwnerID, d.Faction, d.RegionID)
	return []Event{
		{
			Type: EventUnitProduced, Scope: ScopeFaction, Faction: d.Faction,
			Data: CompletionData{RegionID: d.RegionID, OwnerID: d.OwnerID, Unit: d.Unit},
		},
		territoryEvent(r),
	}
}

// Gold and food granted per owned region per income cycle, before terrain
// and building bonuses.
const (
	goldPerRegion = 2
	foodPerRegion = 1
)

// Income totals a player's per-cycle gold and food from owned regions,
// terrain bonuses, and production buildings. The income cadence lives in the
// scheduler; this only computes the amounts.
func (w *World) Income(playerID string) (gold, food int) {
	for _, r := range w.Graph.Regions {
		if r.OwnerID != playerID {
			continue
		}
		profile := r.Terrain.Profile()
		gold += goldPerRegion + profile.GoldBonus
		food += foodPerRegion + profile.FoodBonus
		for _, b := range r.Buildings {
			if b.Health <= 0 {
				continue
			}
			spec := b.Kind.Spec()
			gold += spec.GoldPerTick
			food += spec.FoodPerTick
		}
	}
	return gold, food
}
