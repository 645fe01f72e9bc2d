package conquest

import (
	"math"
	"math/rand"
)

// BattleRound is one damage exchange in the round-by-round log.
type BattleRound struct {
	Round        int      `json:"round"`
	AttackerID   string   `json:"attackerId"`
	AttackerKind UnitKind `json:"attackerKind"`
	DefenderID   string   `json:"defenderId"`
	DefenderKind UnitKind `json:"defenderKind"`
	Damage       float64  `json:"damage"`
	Killed       bool     `json:"killed"`
	Retaliation  bool     `json:"retaliation,omitempty"`
	Ambush       bool     `json:"ambush,omitempty"`
	Fort         bool     `json:"fort,omitempty"`
}

// BattleOutcome is the ephemeral result of one resolution. Only its side
// effects (unit health, deaths, fort damage) persist; the outcome itself is
// formatted into events and discarded.
type BattleOutcome struct {
	Rounds            []BattleRound
	AttackerSurvivors []*Unit
	DefenderSurvivors []*Unit
	AttackerWins      bool
	Draw              bool
	FortDestroyed     bool
	// AttackerKills / DefenderKills count enemy units each side dropped
	// to zero, for cumulative kill accounting.
	AttackerKills int
	DefenderKills int
}

// fortID is the virtual defender ID used for fortifications in round logs.
const fortID = "fort"

// luck returns the uniform damage variance factor in [0.8, 1.2).
func luck(rng *rand.Rand) float64 {
	return 0.8 + rng.Float64()*0.4
}

// clampHealth keeps a unit's health within [0, maxHealth].
func clampHealth(u *Unit) {
	max := u.Kind.Spec().MaxHealth
	if u.Health < 0 {
		u.Health = 0
	}
	if u.Health > max {
		u.Health = max
	}
}

func aliveUnits(units []*Unit) []*Unit {
	var out []*Unit
	for _, u := range units {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// ResolveAssault runs a round-based battle of a marching group against a
// stationary garrison, with an optional fortification fighting as a virtual
// defender. Unit healths are mutated in place (clamped to [0, max]); the
// fort's health is mutated on the passed struct. Callers guarantee both
// sides are nonempty (a fort alone counts as a defender).
func ResolveAssault(rng *rand.Rand, attackers, defenders []*Unit, fort *Fortification, terrain TerrainProfile) *BattleOutcome {
	out := &BattleOutcome{}

	ambush := terrain.AmbushChance > 0 && rng.Float64() < terrain.AmbushChance

	fortAlive := func() bool { return fort != nil && fort.Health > 0 }
	defendersAlive := func() bool { return len(aliveUnits(defenders)) > 0 || fortAlive() }

	for round := 1; round <= MaxBattleRounds; round++ {
		atk := aliveUnits(attackers)
		if len(atk) == 0 || !defendersAlive() {
			break
		}

		// Attackers strike: each living attacker hits one random living
		// defender, the fort included as a target.
		for _, a := range atk {
			if !a.Alive() || a.Kind.Spec().NoCombat {
				continue
			}
			targets := aliveUnits(defenders)
			nTargets := len(targets)
			if fortAlive() {
				nTargets++
			}
			if nTargets == 0 {
				break
			}
			pick := rng.Intn(nTargets)

			spec := a.Kind.Spec()
			base := spec.Attack * terrain.AttackMod * luck(rng)
			if ambush && round == 1 {
				base *= 0.5
			}

			if pick == len(targets) {
				// Fort takes the hit.
				dmg := math.Max(minAssaultDamage, base-FortDefense*terrain.DefenseMod*assaultDefenseFactor)
				fort.Health -= dmg
				killed := fort.Health <= 0
				if killed {
					fort.Health = 0
				}
				out.Rounds = append(out.Rounds, BattleRound{
					Round: round, AttackerID: a.ID, AttackerKind: a.Kind,
					DefenderID: fortID, Damage: math.Round(dmg),
					Killed: killed, Ambush: ambush && round == 1, Fort: true,
				})
				continue
			}

			t := targets[pick]
			defVal := t.Kind.Spec().Defense
			dmg := math.Max(minAssaultDamage, base-defVal*terrain.DefenseMod*assaultDefenseFactor)
			t.Health -= dmg
			killed := !t.Alive()
			clampHealth(t)
			if killed {
				out.AttackerKills++
			}
			out.Rounds = append(out.Rounds, BattleRound{
				Round: round, AttackerID: a.ID, AttackerKind: a.Kind,
				DefenderID: t.ID, DefenderKind: t.Kind,
				Damage: math.Round(dmg), Killed: killed, Ambush: ambush && round == 1,
			})
		}

		// Defenders retaliate with their defense stat as the damage
		// source. The fort never retaliates.
		for _, d := range aliveUnits(defenders) {
			if d.Kind.Spec().NoCombat {
				continue
			}
			targets := aliveUnits(attackers)
			if len(targets) == 0 {
				break
			}
			t := targets[rng.Intn(len(targets))]

			base := d.Kind.Spec().Defense * terrain.DefenseMod * luck(rng)
			reduction := t.Kind.Spec().Defense * retaliationDefenseFactor
			dmg := math.Max(minRetaliationDamage, base-reduction)
			t.Health -= dmg
			killed := !t.Alive()
			clampHealth(t)
			if killed {
				out.DefenderKills++
			}
			out.Rounds = append(out.Rounds, BattleRound{
				Round: round, AttackerID: d.ID, AttackerKind: d.Kind,
				DefenderID: t.ID, DefenderKind: t.Kind,
				Damage: math.Round(dmg), Killed: killed, Retaliation: true,
			})
		}
	}

	out.AttackerSurvivors = aliveUnits(attackers)
	out.DefenderSurvivors = aliveUnits(defenders)
	out.FortDestroyed = fort != nil && fort.Health <= 0
	out.AttackerWins = len(out.AttackerSurvivors) > 0 && len(out.DefenderSurvivors) == 0
	out.Draw = len(out.AttackerSurvivors) == 0 && len(out.DefenderSurvivors) == 0
	return out
}

// ResolveCollision runs the symmetric battle between two moving groups that
// crossed paths in transit. Terrain plays no role mid-march; damage is the
// raw attack stat reduced by a third of the target's defense, floored at 1.
// If both sides still stand at the round cap, the larger group wins; side A
// wins ties (callers order sides deterministically). Both wiped is a draw.
func ResolveCollision(rng *rand.Rand, sideA, sideB []*Unit) *BattleOutcome {
	out := &BattleOutcome{}

	strike := func(round int, from, into []*Unit, retaliation bool) int {
		kills := 0
		for _, u := range from {
			if !u.Alive() || u.Kind.Spec().NoCombat {
				continue
			}
			targets := aliveUnits(into)
			if len(targets) == 0 {
				break
			}
			t := targets[rng.Intn(len(targets))]
			dmg := math.Max(minCollisionDamage, u.Kind.Spec().Attack-math.Floor(t.Kind.Spec().Defense/3))
			t.Health -= dmg
			killed := !t.Alive()
			clampHealth(t)
			if killed {
				kills++
			}
			out.Rounds = append(out.Rounds, BattleRound{
				Round: round, AttackerID: u.ID, AttackerKind: u.Kind,
				DefenderID: t.ID, DefenderKind: t.Kind,
				Damage: dmg, Killed: killed, Retaliation: retaliation,
			})
		}
		return kills
	}

	for round := 1; round <= MaxBattleRounds; round++ {
		if len(aliveUnits(sideA)) == 0 || len(aliveUnits(sideB)) == 0 {
			break
		}
		out.AttackerKills += strike(round, aliveUnits(sideA), sideB, false)
		out.DefenderKills += strike(round, aliveUnits(sideB), sideA, true)
	}

	out.AttackerSurvivors = aliveUnits(sideA)
	out.DefenderSurvivors = aliveUnits(sideB)
	switch {
	case len(out.AttackerSurvivors) > 0 && len(out.DefenderSurvivors) == 0:
		out.AttackerWins = true
	case len(out.DefenderSurvivors) > 0 && len(out.AttackerSurvivors) == 0:
		out.AttackerWins = false
	case len(out.AttackerSurvivors) == 0 && len(out.DefenderSurvivors) == 0:
		out.Draw = true
	default:
		// Round cap with both sides alive: larger group takes it.
		out.AttackerWins = len(out.AttackerSurvivors) >= len(out.DefenderSurvivors)
	}
	return out
}

// ResolveRanged distributes an artillery damage pool across randomly chosen
// living defenders in bounded increments. It never captures and total damage
// dealt never exceeds the pool. Defender healths are mutated in place.
func ResolveRanged(rng *rand.Rand, firingCount int, defenders []*Unit) *BattleOutcome {
	out := &BattleOutcome{}
	pool := Artillery.Spec().RangedAttack * float64(firingCount)

	round := 1
	for pool > 0 {
		targets := aliveUnits(defenders)
		if len(targets) == 0 {
			break
		}
		t := targets[rng.Intn(len(targets))]
		hit := math.Min(pool, float64(rangedHitBase+rng.Intn(rangedHitJitter)))
		t.Health -= hit
		pool -= hit
		killed := !t.Alive()
		clampHealth(t)
		if killed {
			out.AttackerKills++
		}
		out.Rounds = append(out.Rounds, BattleRound{
			Round: round, AttackerKind: Artillery,
			DefenderID: t.ID, DefenderKind: t.Kind,
			Damage: hit, Killed: killed,
		})
		round++
	}

	out.DefenderSurvivors = aliveUnits(defenders)
	return out
}
