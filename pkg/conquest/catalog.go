// Package conquest implements the authoritative simulation engine for the
// warfront territory-conquest game: movement orders marching across the
// region graph, collision and assault battles, territory capture, and the
// tick driver that turns all of it into an explicit event stream.
//
// The package is pure: no I/O, no logging, no clocks of its own. Time and
// policy inputs (weather and war/peace multipliers) are passed in by the
// caller, and randomness comes from an injected rand.Rand so tests can seed
// it.
package conquest

import "time"

// Faction is one of the four fixed teams competing for regions.
type Faction string

const (
	Red    Faction = "red"
	Blue   Faction = "blue"
	Green  Faction = "green"
	Yellow Faction = "yellow"
)

// AllFactions returns the factions in their canonical order. This order is
// the deterministic tie-break everywhere group sizes are equal.
func AllFactions() []Faction {
	return []Faction{Red, Blue, Green, Yellow}
}

// UnitKind identifies an archetype in the unit catalog.
type UnitKind string

const (
	Infantry     UnitKind = "infantry"
	Builder      UnitKind = "builder"
	Scout        UnitKind = "scout"
	Medic        UnitKind = "medic"
	Tank         UnitKind = "tank"
	LightVehicle UnitKind = "lightVehicle"
	Artillery    UnitKind = "artillery"
	Helicopter   UnitKind = "helicopter"
)

// UnitSpec is the static profile of a unit archetype.
type UnitSpec struct {
	Name      string
	GoldCost  int
	FoodCost  int
	Attack    float64
	Defense   float64
	MaxHealth float64
	BuildTime time.Duration
	// MarchTime is the base time to traverse one region, before terrain,
	// weather, and war/peace modifiers.
	MarchTime time.Duration

	// NoCombat units never deal damage but can still be targeted and killed.
	NoCombat bool
	// CanBuild marks the unit as able to start constructions.
	CanBuild bool
	// HealPerRound is the medic's per-combat-round healing capacity.
	HealPerRound float64

	// Ranged units can fire at regions without marching.
	RangedAttack float64
	Range        int
	ReloadTime   time.Duration
}

// unitCatalog holds the fixed archetype stats.
var unitCatalog = map[UnitKind]UnitSpec{
	Infantry: {
		Name: "Infantry", GoldCost: 400, FoodCost: 150,
		Attack: 10, Defense: 8, MaxHealth: 100,
		BuildTime: 30 * time.Second, MarchTime: 2 * time.Minute,
	},
	Builder: {
		Name: "Builder", GoldCost: 750, FoodCost: 250,
		Attack: 2, Defense: 5, MaxHealth: 80,
		BuildTime: time.Minute, MarchTime: 150 * time.Second,
		CanBuild: true,
	},
	Scout: {
		Name: "Scout", GoldCost: 300, FoodCost: 126,
		Attack: 0, Defense: 3, MaxHealth: 50,
		BuildTime: 20 * time.Second, MarchTime: 30 * time.Second,
		NoCombat: true,
	},
	Medic: {
		Name: "Medic", GoldCost: 600, FoodCost: 200,
		Attack: 0, Defense: 5, MaxHealth: 70,
		BuildTime: 40 * time.Second, MarchTime: 2 * time.Minute,
		NoCombat: true, HealPerRound: 15,
	},
	Tank: {
		Name: "Tank", GoldCost: 1250, FoodCost: 400,
		Attack: 30, Defense: 25, MaxHealth: 300,
		BuildTime: 90 * time.Second, MarchTime: 3 * time.Minute,
	},
	LightVehicle: {
		Name: "Light Vehicle", GoldCost: 900, FoodCost: 300,
		Attack: 20, Defense: 35, MaxHealth: 180,
		BuildTime: time.Minute, MarchTime: 90 * time.Second,
	},
	Artillery: {
		Name: "Artillery", GoldCost: 1750, FoodCost: 300,
		Attack: 5, Defense: 5, MaxHealth: 150,
		BuildTime: 40 * time.Second, MarchTime: 4 * time.Minute,
		RangedAttack: 50, Range: 2, ReloadTime: time.Minute,
	},
	Helicopter: {
		Name: "Helicopter", GoldCost: 2500, FoodCost: 400,
		Attack: 40, Defense: 15, MaxHealth: 200,
		BuildTime: 90 * time.Second, MarchTime: time.Minute,
	},
}

// Spec returns the catalog entry for a unit kind.
func (k UnitKind) Spec() UnitSpec {
	return unitCatalog[k]
}

// Valid reports whether the kind exists in the catalog.
func (k UnitKind) Valid() bool {
	_, ok := unitCatalog[k]
	return ok
}

// BuildingKind identifies a constructible structure.
type BuildingKind string

const (
	Barracks BuildingKind = "barracks"
	Factory  BuildingKind = "factory"
	Helipad  BuildingKind = "helipad"
	Tower    BuildingKind = "tower"
	Farm     BuildingKind = "farm"
	Mine     BuildingKind = "mine"
	Hospital BuildingKind = "hospital"
)

// BuildingSpec is the static profile of a building kind.
type BuildingSpec struct {
	Name      string
	GoldCost  int
	BuildTime time.Duration
	MaxHealth float64
	// Produces lists the unit kinds this building can produce.
	Produces []UnitKind
	// HealPerTick is the hospital's per-heal-cycle HP restored to
	// co-located damaged friendly units.
	HealPerTick float64
	GoldPerTick int
	FoodPerTick int
}

var buildingCatalog = map[BuildingKind]BuildingSpec{
	Barracks: {
		Name: "Barracks", GoldCost: 1000, BuildTime: time.Minute, MaxHealth: 500,
		Produces: []UnitKind{Infantry, Builder, Scout, Medic},
	},
	Factory: {
		Name: "Factory", GoldCost: 1500, BuildTime: 90 * time.Second, MaxHealth: 600,
		Produces: []UnitKind{Tank, LightVehicle, Artillery},
	},
	Helipad: {
		Name: "Helipad", GoldCost: 2000, BuildTime: 2 * time.Minute, MaxHealth: 400,
		Produces: []UnitKind{Helicopter},
	},
	Tower: {
		Name: "Defense Tower", GoldCost: 800, BuildTime: 45 * time.Second, MaxHealth: 300,
	},
	Farm: {
		Name: "Farm", GoldCost: 500, BuildTime: 40 * time.Second, MaxHealth: 200,
		FoodPerTick: 8,
	},
	Mine: {
		Name: "Gold Mine", GoldCost: 700, BuildTime: 50 * time.Second, MaxHealth: 250,
		GoldPerTick: 15,
	},
	Hospital: {
		Name: "Hospital", GoldCost: 900, BuildTime: 55 * time.Second, MaxHealth: 300,
		HealPerTick: 10,
	},
}

// Spec returns the catalog entry for a building kind.
func (k BuildingKind) Spec() BuildingSpec {
	return buildingCatalog[k]
}

// Valid reports whether the kind exists in the catalog.
func (k BuildingKind) Valid() bool {
	_, ok := buildingCatalog[k]
	return ok
}

// CanProduce reports whether the building kind produces the given unit kind.
func (k BuildingKind) CanProduce(u UnitKind) bool {
	for _, p := range k.Spec().Produces {
		if p == u {
			return true
		}
	}
	return false
}

// Terrain identifies a region's static terrain tag.
type Terrain string

const (
	Plains   Terrain = "plains"
	Mountain Terrain = "mountain"
	Forest   Terrain = "forest"
	River    Terrain = "river"
	Desert   Terrain = "desert"
	Swamp    Terrain = "swamp"
)

// TerrainProfile holds a terrain's combat and movement modifiers.
type TerrainProfile struct {
	Name         string
	DefenseMod   float64
	AttackMod    float64
	SpeedMod     float64
	AmbushChance float64
	GoldBonus    int
	FoodBonus    int
}

var terrainCatalog = map[Terrain]TerrainProfile{
	Plains:   {Name: "Plains", DefenseMod: 1.0, AttackMod: 1.0, SpeedMod: 1.0},
	Mountain: {Name: "Mountain", DefenseMod: 1.5, AttackMod: 0.8, SpeedMod: 0.6, GoldBonus: 5},
	Forest:   {Name: "Forest", DefenseMod: 1.2, AttackMod: 1.0, SpeedMod: 0.8, AmbushChance: 0.25, FoodBonus: 5},
	River:    {Name: "River", DefenseMod: 1.3, AttackMod: 0.7, SpeedMod: 0.5, FoodBonus: 3},
	Desert:   {Name: "Desert", DefenseMod: 0.9, AttackMod: 0.9, SpeedMod: 0.7, GoldBonus: 8},
	Swamp:    {Name: "Swamp", DefenseMod: 1.1, AttackMod: 0.8, SpeedMod: 0.4, AmbushChance: 0.15},
}

// Profile returns the terrain's modifier profile, defaulting to plains for
// unknown tags so a malformed map never stalls the simulation.
func (t Terrain) Profile() TerrainProfile {
	if p, ok := terrainCatalog[t]; ok {
		return p
	}
	return terrainCatalog[Plains]
}

// Gameplay constants shared across the engine.
const (
	// FoodPerMove is the food cost per unit per path step, deducted at
	// order issuance.
	FoodPerMove = 8

	// MaxUnitsPerPlayer caps total units a player can field.
	MaxUnitsPerPlayer = 20

	// FortHealth and FortDefense are the stats of a freshly placed
	// fortification.
	FortHealth  = 50.0
	FortDefense = 50.0

	// MaxBattleRounds caps round-based combat so it always terminates.
	MaxBattleRounds = 50

	// Damage floors keep combat progressing even against heavy defense.
	minAssaultDamage     = 5.0
	minRetaliationDamage = 3.0
	minCollisionDamage   = 1.0

	// Defense reduction coefficients.
	assaultDefenseFactor     = 0.3
	retaliationDefenseFactor = 0.15

	// Ranged strike per-hit increments.
	rangedHitBase   = 20
	rangedHitJitter = 15

	StartingGold = 1000
	StartingFood = 400
)
