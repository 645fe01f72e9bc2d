package conquest

import (
	"sort"
	"time"
)

// Tick advances the whole world by one discrete timestep. Within a tick the
// ordering is fixed: order advances first, then collision detection, then
// per-order arrival resolution, then deadline completions. Advances and
// collisions are computed up front so resolution never depends on iteration
// order. The returned events are the only output; delivery and persistence
// are the caller's concern.
func (w *World) Tick(now time.Time, policy PolicyInputs) []Event {
	var events []Event

	// Phase 1: advance every due order one step.
	var advanced []*MovementOrder
	for _, o := range w.Orders {
		if o.Due(now) {
			advanced = append(advanced, o)
		}
	}
	for _, o := range advanced {
		o.Step++
	}

	// Phase 2: collision battles between hostile marches that now share a
	// region. Participants are excluded from arrival resolution this tick.
	collided := make(map[string]bool)
	events = append(events, w.detectCollisions(now, advanced, collided)...)

	// Phase 3: arrival resolution for the remaining advanced orders.
	for _, o := range advanced {
		if o.State != OrderMarching || collided[o.ID] {
			continue
		}
		events = append(events, w.resolveArrival(o, now, policy)...)
	}

	// Phase 4: deadline completions (construction, production), re-validated
	// at fire time.
	events = append(events, w.fireDeadlines(now)...)

	w.removeFinishedOrders()
	return events
}

// detectCollisions groups the advanced orders by their current region and,
// wherever two or more hostile factions are present, resolves one collision
// battle between the two largest factions by combined unit count. Ties
// break by canonical faction order so resolution is deterministic.
func (w *World) detectCollisions(now time.Time, advanced []*MovementOrder, collided map[string]bool) []Event {
	byRegion := make(map[RegionID][]*MovementOrder)
	var regionIDs []RegionID
	for _, o := range advanced {
		id := o.CurrentRegion()
		if len(byRegion[id]) == 0 {
			regionIDs = append(regionIDs, id)
		}
		byRegion[id] = append(byRegion[id], o)
	}
	sort.Slice(regionIDs, func(i, j int) bool { return regionIDs[i] < regionIDs[j] })

	var events []Event
	for _, regionID := range regionIDs {
		orders := byRegion[regionID]
		byFaction := make(map[Faction][]*MovementOrder)
		for _, o := range orders {
			byFaction[o.Faction] = append(byFaction[o.Faction], o)
		}
		if len(byFaction) < 2 {
			continue
		}

		// Pick the two largest hostile groups.
		type group struct {
			faction Faction
			orders  []*MovementOrder
			units   int
		}
		var groups []group
		for _, f := range AllFactions() {
			if os := byFaction[f]; len(os) > 0 {
				n := 0
				for _, o := range os {
					n += len(o.Units)
				}
				groups = append(groups, group{faction: f, orders: os, units: n})
			}
		}
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].units > groups[j].units })
		sideA, sideB := groups[0], groups[1]

		var unitsA, unitsB []*Unit
		for _, o := range sideA.orders {
			unitsA = append(unitsA, o.Units...)
		}
		for _, o := range sideB.orders {
			unitsB = append(unitsB, o.Units...)
		}

		outcome := ResolveCollision(w.rng, unitsA, unitsB)
		w.addKills(sideA.orders[0].OwnerID, outcome.AttackerKills)
		w.addKills(sideB.orders[0].OwnerID, outcome.DefenderKills)

		winner := sideA
		loser := sideB
		if !outcome.AttackerWins && !outcome.Draw {
			winner, loser = sideB, sideA
		}

		var owners []string
		seen := make(map[string]bool)
		for _, o := range orders {
			if !seen[o.OwnerID] {
				seen[o.OwnerID] = true
				owners = append(owners, o.OwnerID)
			}
		}
		events = append(events, Event{
			Type: EventBattleStarted, Scope: ScopeBattle, Players: owners,
			Data: BattleData{
				RegionID:     regionID,
				Collision:    true,
				Rounds:       outcome.Rounds,
				AttackerWins: outcome.AttackerWins,
				Draw:         outcome.Draw,
			},
		})

		for _, o := range sideA.orders {
			collided[o.ID] = true
		}
		for _, o := range sideB.orders {
			collided[o.ID] = true
		}

		// The losing side's orders are destroyed outright.
		losing := loser.orders
		if outcome.Draw {
			losing = append(append([]*MovementOrder{}, sideA.orders...), sideB.orders...)
		}
		for _, o := range losing {
			o.Units = nil
			o.State = OrderDestroyed
			events = append(events, Event{
				Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
				Data: ArrivedData{OrderID: o.ID, RegionID: regionID, Reason: ArrivalDestroyed},
			})
		}
		if outcome.Draw {
			continue
		}

		// Winners continue with their survivors, or settle here on a
		// final step.
		region := w.Graph.Region(regionID)
		for _, o := range winner.orders {
			o.pruneDead()
			if len(o.Units) == 0 {
				o.State = OrderDestroyed
				events = append(events, Event{
					Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
					Data: ArrivedData{OrderID: o.ID, RegionID: regionID, Reason: ArrivalDestroyed},
				})
				continue
			}
			if o.AtFinalStep() {
				o.State = OrderArrived
				w.tc.ApplyCapture(region, o.Faction, o.OwnerID, append(region.Garrison, o.Units...))
				events = append(events, Event{
					Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
					Data: ArrivedData{OrderID: o.ID, RegionID: regionID, Reason: ArrivalWonBattle, Survivors: len(o.Units)},
				}, territoryEvent(region))
				continue
			}
			o.scheduleNext(now, w.Graph)
			events = append(events, Event{
				Type: EventUnitsProgressed, Scope: ScopeFaction, Faction: o.Faction,
				Data: ProgressData{
					OrderID: o.ID, Step: o.Step, RegionID: regionID,
					NextAdvance: o.NextAdvance, Survivors: len(o.Units), WonBattle: true,
				},
			})
		}
	}
	return events
}

// resolveArrival handles one advanced order against its current region:
// assault or peace-block on hostile regions, capture on neutral ones,
// pass-through or settle on friendly ones.
func (w *World) resolveArrival(o *MovementOrder, now time.Time, policy PolicyInputs) []Event {
	region := w.Graph.Region(o.CurrentRegion())

	switch {
	case region.HostileTo(o.Faction):
		if !policy.AttacksAllowed {
			return w.blockByPeace(o)
		}
		return w.resolveAssault(o, region, now)

	case region.Neutral():
		w.tc.ApplyCapture(region, o.Faction, o.OwnerID, region.Garrison)
		events := []Event{territoryEvent(region)}
		if o.AtFinalStep() {
			return append(events, w.settle(o, region, ArrivalCaptured)...)
		}
		o.scheduleNext(now, w.Graph)
		return append(events, Event{
			Type: EventUnitsProgressed, Scope: ScopeFaction, Faction: o.Faction,
			Data: ProgressData{
				OrderID: o.ID, Step: o.Step, RegionID: region.ID,
				NextAdvance: o.NextAdvance, Survivors: len(o.Units), Captured: true,
			},
		})

	default: // friendly
		if o.AtFinalStep() {
			return w.settle(o, region, ArrivalSettled)
		}
		o.scheduleNext(now, w.Graph)
		return []Event{{
			Type: EventUnitsProgressed, Scope: ScopeFaction, Faction: o.Faction,
			Data: ProgressData{
				OrderID: o.ID, Step: o.Step, RegionID: region.ID,
				NextAdvance: o.NextAdvance, Survivors: len(o.Units),
			},
		}}
	}
}

// blockByPeace terminates an order whose next region is hostile while the
// peace policy forbids attacks. Units are deposited on the last traversed
// region, not the origin, with a distinguishable reason.
func (w *World) blockByPeace(o *MovementOrder) []Event {
	lastIdx := o.Step - 1
	last := w.Graph.Region(o.Path[lastIdx])
	last.Garrison = append(last.Garrison, o.Units...)
	deposited := len(o.Units)
	o.Units = nil
	o.State = OrderBlocked
	return []Event{
		{
			Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
			Data: ArrivedData{OrderID: o.ID, RegionID: last.ID, Reason: ArrivalPeaceBlocked, Survivors: deposited},
		},
		territoryEvent(last),
	}
}

// resolveAssault fights an order against a hostile region's garrison and
// fortification. An empty defense (no units, no fort) is a walkover capture
// with zero combat rounds; the resolver is never invoked with empty sides.
func (w *World) resolveAssault(o *MovementOrder, region *Region, now time.Time) []Event {
	defenders := region.Defenders(o.Faction)
	fort := region.Fort

	if len(defenders) == 0 && fort == nil {
		w.tc.ApplyCapture(region, o.Faction, o.OwnerID, region.Garrison)
		events := []Event{territoryEvent(region)}
		if o.AtFinalStep() {
			return append(events, w.settle(o, region, ArrivalCaptured)...)
		}
		o.scheduleNext(now, w.Graph)
		return append(events, Event{
			Type: EventUnitsProgressed, Scope: ScopeFaction, Faction: o.Faction,
			Data: ProgressData{
				OrderID: o.ID, Step: o.Step, RegionID: region.ID,
				NextAdvance: o.NextAdvance, Survivors: len(o.Units), Captured: true,
			},
		})
	}

	defenderOwner := region.OwnerID
	outcome := ResolveAssault(w.rng, o.Units, defenders, fort, region.Terrain.Profile())
	w.addKills(o.OwnerID, outcome.AttackerKills)
	w.addKills(defenderOwner, outcome.DefenderKills)

	events := []Event{{
		Type: EventBattleStarted, Scope: ScopeBattle, Players: []string{o.OwnerID},
		Data: BattleData{
			RegionID:      region.ID,
			Rounds:        outcome.Rounds,
			AttackerWins:  outcome.AttackerWins,
			Draw:          outcome.Draw,
			FortDestroyed: outcome.FortDestroyed,
			Survivors:     cloneUnits(outcome.AttackerSurvivors),
		},
	}}

	o.pruneDead()

	if outcome.AttackerWins {
		// A fort battered to zero behind a held defense stands; its owner
		// only falls when the attack carries the region.
		if outcome.FortDestroyed {
			events = append(events, w.tc.DestroyFort(region)...)
		}
		// Friendly stragglers already on the region stay garrisoned.
		var friendly []*Unit
		for _, u := range region.Garrison {
			if u.Alive() && u.Faction == o.Faction {
				friendly = append(friendly, u)
			}
		}
		if o.AtFinalStep() {
			o.State = OrderArrived
			w.tc.ApplyCapture(region, o.Faction, o.OwnerID, append(friendly, o.Units...))
			return append(events,
				Event{
					Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
					Data: ArrivedData{OrderID: o.ID, RegionID: region.ID, Reason: ArrivalWonBattle, Survivors: len(o.Units)},
				},
				territoryEvent(region))
		}
		// Captured in passing: the region is taken but the column moves on.
		w.tc.ApplyCapture(region, o.Faction, o.OwnerID, friendly)
		o.scheduleNext(now, w.Graph)
		return append(events,
			Event{
				Type: EventUnitsProgressed, Scope: ScopeFaction, Faction: o.Faction,
				Data: ProgressData{
					OrderID: o.ID, Step: o.Step, RegionID: region.ID,
					NextAdvance: o.NextAdvance, Survivors: len(o.Units), WonBattle: true,
				},
			},
			territoryEvent(region))
	}

	// Defense held (or mutual destruction): the order dies here.
	o.Units = nil
	o.State = OrderDestroyed
	w.tc.ApplyDefense(region, pruneDead(region.Garrison))
	return append(events,
		Event{
			Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
			Data: ArrivedData{OrderID: o.ID, RegionID: region.ID, Reason: ArrivalDestroyed},
		},
		territoryEvent(region))
}

// settle terminates an order on its final region, depositing its units into
// the garrison.
func (w *World) settle(o *MovementOrder, region *Region, reason ArrivalReason) []Event {
	region.Garrison = append(region.Garrison, o.Units...)
	survivors := len(o.Units)
	o.Units = nil
	o.State = OrderArrived
	return []Event{
		{
			Type: EventUnitsArrived, Scope: ScopeFaction, Faction: o.Faction,
			Data: ArrivedData{OrderID: o.ID, RegionID: region.ID, Reason: reason, Survivors: survivors},
		},
		territoryEvent(region),
	}
}
