package conquest

import (
	"testing"
	"time"
)

// lineGraph builds a path graph 0-1-2-... with the given terrains.
func lineGraph(terrains ...Terrain) *Graph {
	g := &Graph{Regions: make([]*Region, len(terrains))}
	for i, terr := range terrains {
		g.Regions[i] = &Region{ID: RegionID(i), Terrain: terr}
	}
	for i := 0; i < len(terrains)-1; i++ {
		g.Regions[i].Neighbors = append(g.Regions[i].Neighbors, RegionID(i+1))
		g.Regions[i+1].Neighbors = append(g.Regions[i+1].Neighbors, RegionID(i))
	}
	return g
}

func claim(w *World, regionID RegionID, faction Faction, ownerID string) {
	r := w.Graph.Region(regionID)
	w.Territory().ApplyCapture(r, faction, ownerID, r.Garrison)
}

func hasEvent(events []Event, typ EventType) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestTick_MarchSettlesOnFriendlyRegion(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	claim(w, 1, Red, p.ID)
	u := w.SpawnUnit(Infantry, p.ID, Red, 0)

	now := time.Unix(1000, 0)
	order, _, err := w.IssueMove(p.ID, []string{u.ID}, 0, []RegionID{0, 1}, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("IssueMove: %v", err)
	}
	if order.NextAdvance != now.Add(2*time.Minute) {
		t.Errorf("plains infantry step due at %v, want +2m", order.NextAdvance.Sub(now))
	}

	// Not due yet: nothing moves.
	if events := w.Tick(now.Add(time.Minute), DefaultPolicy()); len(events) != 0 {
		t.Fatalf("early tick produced %d events", len(events))
	}

	events := w.Tick(now.Add(2*time.Minute), DefaultPolicy())
	if order.State != OrderArrived {
		t.Fatalf("order state = %v, want arrived", order.State)
	}
	if got := len(w.Graph.Region(1).Garrison); got != 1 {
		t.Errorf("destination garrison = %d units, want 1", got)
	}
	if !hasEvent(events, EventUnitsArrived) {
		t.Error("missing units_arrived event")
	}
	if len(w.Orders) != 0 {
		t.Errorf("finished order still active, %d orders", len(w.Orders))
	}
}

func TestTick_NeutralRegionCapturedInPassing(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains, Plains), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	u := w.SpawnUnit(Infantry, p.ID, Red, 0)

	now := time.Unix(1000, 0)
	order, _, err := w.IssueMove(p.ID, []string{u.ID}, 0, []RegionID{0, 1, 2}, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("IssueMove: %v", err)
	}

	w.Tick(now.Add(2*time.Minute), DefaultPolicy())
	mid := w.Graph.Region(1)
	if mid.Faction != Red || mid.OwnerID != p.ID {
		t.Fatalf("mid region not captured: faction=%q owner=%q", mid.Faction, mid.OwnerID)
	}
	if order.State != OrderMarching || order.Step != 1 {
		t.Fatalf("order should keep marching past a neutral capture, state=%v step=%d", order.State, order.Step)
	}
	if got := w.Factions[Red].Regions; got != 2 {
		t.Errorf("red faction regions = %d, want 2", got)
	}
	// Empty garrison on the captured region: the column moved on.
	if len(mid.Garrison) != 0 {
		t.Errorf("mid region garrison = %d, want 0", len(mid.Garrison))
	}
}

func TestTick_PeaceBlocksHostileArrival(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	claim(w, 1, Blue, p2.ID)
	u := w.SpawnUnit(Infantry, p1.ID, Red, 0)
	defender := w.SpawnUnit(Infantry, p2.ID, Blue, 1)

	now := time.Unix(1000, 0)
	peace := PolicyInputs{AttacksAllowed: false, WeatherSpeed: 1, WarPeaceSpeed: 1}
	order, _, err := w.IssueMove(p1.ID, []string{u.ID}, 0, []RegionID{0, 1}, now, peace)
	if err != nil {
		t.Fatalf("IssueMove: %v", err)
	}

	events := w.Tick(now.Add(2*time.Minute), peace)
	if order.State != OrderBlocked {
		t.Fatalf("order state = %v, want blocked", order.State)
	}
	if hasEvent(events, EventBattleStarted) {
		t.Error("peace-blocked arrival started a battle")
	}
	if defender.Health != Infantry.Spec().MaxHealth {
		t.Error("defender took damage during peace")
	}
	// Units come to rest on the last traversed region, not the target.
	if got := len(w.Graph.Region(0).Garrison); got != 1 {
		t.Errorf("origin garrison = %d units, want 1", got)
	}
	if got := len(w.Graph.Region(1).Garrison); got != 1 {
		t.Errorf("target garrison = %d units, want the lone defender", got)
	}

	found := false
	for _, e := range events {
		if d, ok := e.Data.(ArrivedData); ok && d.Reason == ArrivalPeaceBlocked {
			found = true
			if d.RegionID != 0 {
				t.Errorf("blocked units deposited on region %d, want 0", d.RegionID)
			}
		}
	}
	if !found {
		t.Error("missing blocked_by_peace arrival event")
	}
}

func TestTick_AssaultCapturesHostileRegion(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	claim(w, 1, Blue, p2.ID)
	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, w.SpawnUnit(Infantry, p1.ID, Red, 0).ID)
	}
	w.SpawnUnit(Infantry, p2.ID, Blue, 1)
	p1.Food = 10 * FoodPerMove

	now := time.Unix(1000, 0)
	order, _, err := w.IssueMove(p1.ID, ids, 0, []RegionID{0, 1}, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("IssueMove: %v", err)
	}

	events := w.Tick(now.Add(2*time.Minute), DefaultPolicy())
	if !hasEvent(events, EventBattleStarted) {
		t.Fatal("missing battle_started event")
	}
	target := w.Graph.Region(1)
	if target.Faction != Red {
		t.Fatalf("10v1 assault failed to capture, faction=%q", target.Faction)
	}
	if order.State != OrderArrived {
		t.Errorf("order state = %v, want arrived", order.State)
	}
	if p1.Kills != 1 {
		t.Errorf("attacker kills = %d, want 1", p1.Kills)
	}
	for _, u := range target.Garrison {
		if u.Faction != Red {
			t.Errorf("hostile unit %s left in captured garrison", u.ID)
		}
	}

	// Battle reports go to the attacking player, never to a faction at large.
	for _, e := range events {
		if e.Type != EventBattleStarted {
			continue
		}
		if e.Scope != ScopeBattle {
			t.Errorf("battle event scope = %v, want ScopeBattle", e.Scope)
		}
		if len(e.Players) != 1 || e.Players[0] != p1.ID {
			t.Errorf("battle event players = %v, want [p1]", e.Players)
		}
	}
}

func TestTick_FortDestructionEliminatesOwner(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	w.PlaceFort(p2.ID, 1)
	w.SpawnUnit(Builder, p2.ID, Blue, 2)
	claim(w, 2, Blue, p2.ID)

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, w.SpawnUnit(Tank, p1.ID, Red, 0).ID)
	}
	p1.Food = 10 * FoodPerMove

	now := time.Unix(1000, 0)
	_, _, err := w.IssueMove(p1.ID, ids, 0, []RegionID{0, 1}, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("IssueMove: %v", err)
	}

	events := w.Tick(now.Add(3*time.Minute), DefaultPolicy())
	if !hasEvent(events, EventPlayerEliminated) {
		t.Fatal("fort destruction should eliminate its owner")
	}
	if !p2.Eliminated {
		t.Error("player not flagged eliminated")
	}
	// Elimination strips the player's assets everywhere, same tick.
	if len(w.Graph.Region(2).Garrison) != 0 {
		t.Error("eliminated player's remote garrison survived")
	}
	if w.Graph.Region(1).Fort != nil {
		t.Error("destroyed fort still present")
	}

	// A second elimination of the same player is a no-op.
	if more := w.Territory().ApplyElimination(p2.ID); more != nil {
		t.Errorf("repeat elimination produced %d events", len(more))
	}
}

func TestTick_HeldDefenseDoesNotEliminateFortOwner(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	w.PlaceFort(p2.ID, 1)
	w.SpawnUnit(Builder, p2.ID, Blue, 2)
	claim(w, 2, Blue, p2.ID)

	// A fort battered to zero in an earlier assault, behind a garrison
	// strong enough to hold.
	w.Graph.Region(1).Fort.Health = 0
	for i := 0; i < 10; i++ {
		w.SpawnUnit(Tank, p2.ID, Blue, 1)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, w.SpawnUnit(Infantry, p1.ID, Red, 0).ID)
	}
	p1.Food = 3 * FoodPerMove

	now := time.Unix(1000, 0)
	if _, _, err := w.IssueMove(p1.ID, ids, 0, []RegionID{0, 1}, now, DefaultPolicy()); err != nil {
		t.Fatalf("IssueMove: %v", err)
	}

	events := w.Tick(now.Add(3*time.Minute), DefaultPolicy())
	if hasEvent(events, EventPlayerEliminated) {
		t.Fatal("held defense eliminated the fort owner")
	}
	if p2.Eliminated {
		t.Error("player flagged eliminated behind a held defense")
	}
	target := w.Graph.Region(1)
	if target.Faction != Blue {
		t.Fatalf("defense held but region flipped to %q", target.Faction)
	}
	if target.Fort == nil {
		t.Error("fort removed without a winning attack")
	}
	if len(w.Graph.Region(2).Garrison) != 1 {
		t.Error("defender's remote garrison stripped")
	}
}

func TestTick_CollisionDestroysSmallerColumn(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	claim(w, 2, Blue, p2.ID)

	var redIDs []string
	for i := 0; i < 3; i++ {
		redIDs = append(redIDs, w.SpawnUnit(Infantry, p1.ID, Red, 0).ID)
	}
	blueID := w.SpawnUnit(Infantry, p2.ID, Blue, 2).ID

	now := time.Unix(1000, 0)
	redOrder, _, err := w.IssueMove(p1.ID, redIDs, 0, []RegionID{0, 1, 2}, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("red IssueMove: %v", err)
	}
	blueOrder, _, err := w.IssueMove(p2.ID, []string{blueID}, 2, []RegionID{2, 1, 0}, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("blue IssueMove: %v", err)
	}

	events := w.Tick(now.Add(2*time.Minute), DefaultPolicy())
	if !hasEvent(events, EventBattleStarted) {
		t.Fatal("missing collision battle event")
	}
	if blueOrder.State != OrderDestroyed {
		t.Errorf("blue order state = %v, want destroyed", blueOrder.State)
	}
	if len(blueOrder.Units) != 0 {
		t.Error("destroyed order kept units")
	}
	if redOrder.State != OrderMarching {
		t.Errorf("red order state = %v, want marching", redOrder.State)
	}
	if redOrder.Step != 1 {
		t.Errorf("red order step = %d, want 1", redOrder.Step)
	}
	// The winner keeps marching; exactly one active order remains.
	if len(w.Orders) != 1 {
		t.Errorf("active orders = %d, want 1", len(w.Orders))
	}
}

func TestTick_ConstructionCompletesAndVoids(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	claim(w, 1, Red, p1.ID)
	b0 := w.SpawnUnit(Builder, p1.ID, Red, 0)
	b1 := w.SpawnUnit(Builder, p1.ID, Red, 1)

	now := time.Unix(1000, 0)
	if _, err := w.StartConstruction(p1.ID, b0.ID, 0, Farm, now); err != nil {
		t.Fatalf("StartConstruction: %v", err)
	}
	if _, err := w.StartConstruction(p1.ID, b1.ID, 1, Farm, now); err != nil {
		t.Fatalf("StartConstruction: %v", err)
	}
	if !b0.Busy {
		t.Error("builder not marked busy")
	}
	// A busy builder cannot start a second project.
	if _, err := w.StartConstruction(p1.ID, b0.ID, 0, Mine, now); err != ErrNoBuilder {
		t.Errorf("busy builder accepted, err = %v", err)
	}

	// Region 1 falls to blue before the deadline: that project is void.
	claim(w, 1, Blue, p2.ID)

	events := w.Tick(now.Add(Farm.Spec().BuildTime), DefaultPolicy())
	if !hasEvent(events, EventConstructionCompleted) {
		t.Fatal("missing construction_completed event")
	}
	if got := len(w.Graph.Region(0).Buildings); got != 1 {
		t.Fatalf("region 0 buildings = %d, want 1", got)
	}
	if got := len(w.Graph.Region(1).Buildings); got != 0 {
		t.Errorf("lost region completed a building, %d present", got)
	}
	if b0.Busy {
		t.Error("builder still busy after completion")
	}
	if len(w.Deadlines) != 0 {
		t.Errorf("deadlines remaining = %d, want 0", len(w.Deadlines))
	}
}

func TestTick_ProductionRespectsUnitCap(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	r := w.Graph.Region(0)
	r.Buildings = append(r.Buildings, &Building{
		ID: "bk1", Kind: Barracks, OwnerID: p.ID, Faction: Red,
		Health: Barracks.Spec().MaxHealth,
	})
	for i := 0; i < MaxUnitsPerPlayer; i++ {
		w.SpawnUnit(Infantry, p.ID, Red, 0)
	}
	p.Gold = 100000
	p.Food = 100000

	now := time.Unix(1000, 0)
	if _, err := w.StartProduction(p.ID, "bk1", 0, Infantry, now); err != ErrUnitCap {
		t.Fatalf("production at cap accepted, err = %v", err)
	}
	if _, err := w.StartProduction(p.ID, "bk1", 0, Tank, now); err != ErrCannotProduce {
		t.Errorf("barracks produced a tank, err = %v", err)
	}

	// Below the cap it goes through and the deadline spawns the unit.
	r.Garrison = r.Garrison[:MaxUnitsPerPlayer-1]
	if _, err := w.StartProduction(p.ID, "bk1", 0, Infantry, now); err != nil {
		t.Fatalf("StartProduction: %v", err)
	}
	events := w.Tick(now.Add(Infantry.Spec().BuildTime), DefaultPolicy())
	if !hasEvent(events, EventUnitProduced) {
		t.Fatal("missing unit_produced event")
	}
	if got := w.UnitCount(p.ID); got != MaxUnitsPerPlayer {
		t.Errorf("unit count = %d, want %d", got, MaxUnitsPerPlayer)
	}
}

func TestWorld_IncomeCountsTerrainAndBuildings(t *testing.T) {
	w := NewWorld(lineGraph(Desert, Forest), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	claim(w, 1, Red, p.ID)
	w.Graph.Region(1).Buildings = []*Building{
		{ID: "m1", Kind: Mine, OwnerID: p.ID, Faction: Red, Health: 1},
	}

	gold, food := w.Income(p.ID)
	wantGold := (2 + 8) + (2 + 0) + 15 // desert, forest, mine
	wantFood := (1 + 0) + (1 + 5)      // desert, forest
	if gold != wantGold || food != wantFood {
		t.Errorf("income = %d gold %d food, want %d and %d", gold, food, wantGold, wantFood)
	}
}
