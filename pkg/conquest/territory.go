package conquest

// TerritoryController owns every mutation of region ownership, garrisons,
// and fortifications so the faction aggregates stay consistent with
// per-region state. Counts are adjusted incrementally; the world is never
// rescanned.
type TerritoryController struct {
	w *World
}

// ApplyCapture transfers a region to a new faction and owner and installs
// the surviving units as its garrison. Capturing a region already held by
// the same faction only swaps the owner and garrison; the faction counts
// are untouched so a self-capture can never double-count.
func (tc *TerritoryController) ApplyCapture(r *Region, faction Faction, ownerID string, survivors []*Unit) {
	if r.Faction != faction {
		if r.Faction != "" {
			if fs := tc.w.Factions[r.Faction]; fs != nil {
				fs.Regions--
			}
		}
		if fs := tc.w.Factions[faction]; fs != nil {
			fs.Regions++
		}
	}
	r.Faction = faction
	r.OwnerID = ownerID
	r.Garrison = survivors
}

// ApplyDefense keeps the region with its current owner and replaces the
// garrison with the surviving defenders.
func (tc *TerritoryController) ApplyDefense(r *Region, survivors []*Unit) {
	r.Garrison = survivors
}

// DestroyFort removes a region's fortification after its health reached
// zero and returns the elimination events for its owner.
func (tc *TerritoryController) DestroyFort(r *Region) []Event {
	if r.Fort == nil {
		return nil
	}
	ownerID := r.Fort.OwnerID
	r.Fort = nil
	return tc.ApplyElimination(ownerID)
}

// ApplyElimination removes every unit, building, and fortification the
// player owns across the world and flags the player eliminated. It is
// idempotent: a second call for the same player is a no-op.
func (tc *TerritoryController) ApplyElimination(playerID string) []Event {
	p := tc.w.Players[playerID]
	if p == nil || p.Eliminated {
		return nil
	}
	p.Eliminated = true
	p.BaseRegion = -1

	var events []Event
	for _, r := range tc.w.Graph.Regions {
		touched := false

		var garrison []*Unit
		for _, u := range r.Garrison {
			if u.OwnerID == playerID {
				touched = true
				continue
			}
			garrison = append(garrison, u)
		}
		r.Garrison = garrison

		var buildings []*Building
		for _, b := range r.Buildings {
			if b.OwnerID == playerID {
				touched = true
				continue
			}
			buildings = append(buildings, b)
		}
		r.Buildings = buildings

		if r.Fort != nil && r.Fort.OwnerID == playerID {
			r.Fort = nil
			touched = true
		}

		if touched {
			events = append(events, territoryEvent(r))
		}
	}

	// In-flight orders die with their owner.
	for _, o := range tc.w.Orders {
		if o.OwnerID == playerID && o.State == OrderMarching {
			o.Units = nil
			o.State = OrderDestroyed
		}
	}
	tc.w.removeFinishedOrders()

	events = append(events, Event{
		Type: EventPlayerEliminated, Scope: ScopeGlobal,
		Data: EliminationData{PlayerID: playerID, Faction: p.Faction},
	})
	return events
}
