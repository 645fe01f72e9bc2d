package conquest

import (
	"errors"
	"testing"
	"time"
)

func TestIssueMove_Validation(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains, Plains), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	u := w.SpawnUnit(Infantry, p.ID, Red, 0)
	now := time.Unix(1000, 0)

	tests := []struct {
		name    string
		player  string
		units   []string
		from    RegionID
		path    []RegionID
		wantErr error
	}{
		{"unknown player", "ghost", []string{u.ID}, 0, []RegionID{0, 1}, ErrUnknownPlayer},
		{"missing region", p.ID, []string{u.ID}, 9, []RegionID{9, 1}, ErrUnknownRegion},
		{"single region path", p.ID, []string{u.ID}, 0, []RegionID{0}, ErrInvalidPath},
		{"path skips a hop", p.ID, []string{u.ID}, 0, []RegionID{0, 2}, ErrInvalidPath},
		{"path origin mismatch", p.ID, []string{u.ID}, 0, []RegionID{1, 2}, ErrInvalidPath},
		{"units not present", p.ID, []string{"nope"}, 0, []RegionID{0, 1}, ErrUnitsNotOwned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := w.IssueMove(tt.player, tt.units, tt.from, tt.path, now, DefaultPolicy())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Rejections must not touch state.
	if len(w.Orders) != 0 {
		t.Errorf("rejected intents created %d orders", len(w.Orders))
	}
	if p.Food != StartingFood {
		t.Errorf("rejected intents spent food, %d left", p.Food)
	}

	p.Food = 7 // one short of a single step
	if _, _, err := w.IssueMove(p.ID, []string{u.ID}, 0, []RegionID{0, 1}, now, DefaultPolicy()); !errors.Is(err, ErrInsufficientFood) {
		t.Errorf("err = %v, want ErrInsufficientFood", err)
	}
	if len(w.Graph.Region(0).Garrison) != 1 {
		t.Error("failed move lifted units out of the garrison")
	}
}

func TestStepDuration_ModifiersAndInvariance(t *testing.T) {
	inf := &Unit{Kind: Infantry, Health: 100}
	tank := &Unit{Kind: Tank, Health: 300}
	scout := &Unit{Kind: Scout, Health: 50}

	// The slowest unit sets the pace regardless of selection order.
	a := stepDuration([]*Unit{inf, tank, scout}, DefaultPolicy())
	b := stepDuration([]*Unit{scout, inf, tank}, DefaultPolicy())
	if a != b {
		t.Errorf("unit order changed step duration: %v vs %v", a, b)
	}
	if a != 3*time.Minute {
		t.Errorf("mixed group pace = %v, want the tank's 3m", a)
	}

	// A 0.5 weather multiplier doubles march time.
	storm := PolicyInputs{AttacksAllowed: true, WeatherSpeed: 0.5, WarPeaceSpeed: 1}
	if got := stepDuration([]*Unit{inf}, storm); got != 4*time.Minute {
		t.Errorf("storm infantry pace = %v, want 4m", got)
	}

	// Peacetime multiplier stacks with weather.
	calm := PolicyInputs{AttacksAllowed: false, WeatherSpeed: 1, WarPeaceSpeed: 5}
	if got := stepDuration([]*Unit{inf}, calm); got != 24*time.Second {
		t.Errorf("peacetime infantry pace = %v, want 24s", got)
	}

	// Terrain applies per destination step on top of the base.
	swamp := &Region{Terrain: Swamp}
	if got := terrainStepTime(2*time.Minute, swamp); got != 5*time.Minute {
		t.Errorf("swamp step = %v, want 5m", got)
	}
	plains := &Region{Terrain: Plains}
	if got := terrainStepTime(2*time.Minute, plains); got != 2*time.Minute {
		t.Errorf("plains step = %v, want 2m", got)
	}
}

func TestIssueStrike_CooldownRangeAndNoCapture(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains, Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	claim(w, 1, Blue, p2.ID)
	claim(w, 3, Blue, p2.ID)
	gun := w.SpawnUnit(Artillery, p1.ID, Red, 0)
	target := w.SpawnUnit(Tank, p2.ID, Blue, 1)

	now := time.Unix(1000, 0)

	// Range 2: region 3 is three hops out.
	if _, err := w.IssueStrike(p1.ID, []string{gun.ID}, 0, 3, now); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	// Own region is not a target.
	if _, err := w.IssueStrike(p1.ID, []string{gun.ID}, 0, 0, now); !errors.Is(err, ErrNotHostile) {
		t.Fatalf("err = %v, want ErrNotHostile", err)
	}

	events, err := w.IssueStrike(p1.ID, []string{gun.ID}, 0, 1, now)
	if err != nil {
		t.Fatalf("IssueStrike: %v", err)
	}
	if !hasEvent(events, EventBattleStarted) {
		t.Error("missing battle event")
	}
	if target.Health >= Tank.Spec().MaxHealth {
		t.Error("strike dealt no damage")
	}
	if target.Health < Tank.Spec().MaxHealth-Artillery.Spec().RangedAttack {
		t.Errorf("single gun dealt more than its pool: %v", target.Health)
	}

	// The region never changes hands from a ranged strike.
	if got := w.Graph.Region(1).Faction; got != Blue {
		t.Errorf("strike captured the region for %q", got)
	}

	// Reloading: an immediate second strike is refused, a later one allowed.
	if _, err := w.IssueStrike(p1.ID, []string{gun.ID}, 0, 1, now.Add(10*time.Second)); !errors.Is(err, ErrOnCooldown) {
		t.Errorf("err = %v, want ErrOnCooldown", err)
	}
	if _, err := w.IssueStrike(p1.ID, []string{gun.ID}, 0, 1, now.Add(Artillery.Spec().ReloadTime)); err != nil {
		t.Errorf("strike after reload refused: %v", err)
	}
}

func TestIssueStrike_EmptyGarrisonRefused(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p1 := w.AddPlayer("p1", "Ada", Red)
	p2 := w.AddPlayer("p2", "Bob", Blue)
	claim(w, 0, Red, p1.ID)
	claim(w, 1, Blue, p2.ID)
	gun := w.SpawnUnit(Artillery, p1.ID, Red, 0)

	now := time.Unix(1000, 0)
	if _, err := w.IssueStrike(p1.ID, []string{gun.ID}, 0, 1, now); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("err = %v, want ErrNoTargets", err)
	}
	// The refusal must not burn the reload.
	if gun.LastFired != 0 {
		t.Error("refused strike consumed the artillery cooldown")
	}
}

func TestHealGarrisons_HospitalHealsFriendliesOnly(t *testing.T) {
	w := NewWorld(lineGraph(Plains), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	r := w.Graph.Region(0)
	r.Buildings = []*Building{
		{ID: "h1", Kind: Hospital, OwnerID: p.ID, Faction: Red, Health: 1},
	}
	hurt := w.SpawnUnit(Infantry, p.ID, Red, 0)
	hurt.Health = 50
	nearly := w.SpawnUnit(Infantry, p.ID, Red, 0)
	nearly.Health = 95
	stranger := &Unit{ID: "x", Kind: Infantry, OwnerID: "p2", Faction: Blue, Health: 50}
	r.Garrison = append(r.Garrison, stranger)

	events := w.HealGarrisons()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if hurt.Health != 50+Hospital.Spec().HealPerTick {
		t.Errorf("hurt unit health = %v", hurt.Health)
	}
	if nearly.Health != Infantry.Spec().MaxHealth {
		t.Errorf("healing overshot max: %v", nearly.Health)
	}
	if stranger.Health != 50 {
		t.Errorf("hospital healed a hostile unit to %v", stranger.Health)
	}

	// No hospitals, no work.
	r.Buildings = nil
	if events := w.HealGarrisons(); len(events) != 0 {
		t.Errorf("healing without hospitals produced %d events", len(events))
	}
}

func TestEliminatedPlayerCannotAct(t *testing.T) {
	w := NewWorld(lineGraph(Plains, Plains), 1)
	p := w.AddPlayer("p1", "Ada", Red)
	claim(w, 0, Red, p.ID)
	u := w.SpawnUnit(Infantry, p.ID, Red, 0)
	w.Territory().ApplyElimination(p.ID)

	now := time.Unix(1000, 0)
	if _, _, err := w.IssueMove(p.ID, []string{u.ID}, 0, []RegionID{0, 1}, now, DefaultPolicy()); !errors.Is(err, ErrEliminated) {
		t.Errorf("move err = %v, want ErrEliminated", err)
	}
	if _, err := w.IssueStrike(p.ID, []string{u.ID}, 0, 1, now); !errors.Is(err, ErrEliminated) {
		t.Errorf("strike err = %v, want ErrEliminated", err)
	}
	if _, err := w.StartConstruction(p.ID, u.ID, 0, Farm, now); !errors.Is(err, ErrEliminated) {
		t.Errorf("build err = %v, want ErrEliminated", err)
	}

	// Income keeps flowing to nobody.
	w.CreditResources(p.ID, 100, 100)
	if p.Gold != StartingGold || p.Food != StartingFood {
		t.Error("eliminated player earned income")
	}
}
