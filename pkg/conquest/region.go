package conquest

import (
	"fmt"
	"math/rand"
)

// RegionID indexes a region in the world graph.
type RegionID int

// Fortification is a per-region defensive structure tied to its owning
// player. Its destruction eliminates that player.
type Fortification struct {
	OwnerID   string  `json:"ownerId"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
}

// Building is a constructed structure on a region.
type Building struct {
	ID      string       `json:"id"`
	Kind    BuildingKind `json:"kind"`
	OwnerID string       `json:"ownerId"`
	Faction Faction      `json:"faction"`
	Health  float64      `json:"health"`
}

// Unit is a single fieldable unit. A unit lives either in a region's
// garrison or inside exactly one in-flight movement order, never both.
type Unit struct {
	ID      string   `json:"id"`
	Kind    UnitKind `json:"kind"`
	OwnerID string   `json:"ownerId"`
	Faction Faction  `json:"faction"`
	Health  float64  `json:"health"`
	// Busy marks a builder occupied by an in-progress construction.
	Busy bool `json:"busy,omitempty"`
	// LastFired is the unix-milli timestamp of the unit's last ranged
	// strike; zero means never fired.
	LastFired int64 `json:"lastFired,omitempty"`
}

// Alive reports whether the unit has positive health.
func (u *Unit) Alive() bool { return u.Health > 0 }

// Region is a node in the world graph and the minimal unit of ownership.
// Faction is empty only before the first capture; once captured it never
// reverts to neutral.
type Region struct {
	ID        RegionID       `json:"id"`
	Name      string         `json:"name"`
	Terrain   Terrain        `json:"terrain"`
	Neighbors []RegionID     `json:"neighbors"`
	Faction   Faction        `json:"faction,omitempty"`
	OwnerID   string         `json:"ownerId,omitempty"`
	Garrison  []*Unit        `json:"garrison,omitempty"`
	Fort      *Fortification `json:"fort,omitempty"`
	Buildings []*Building    `json:"buildings,omitempty"`
}

// Neutral reports whether the region has never been captured.
func (r *Region) Neutral() bool { return r.Faction == "" }

// HostileTo reports whether the region is held by a faction other than f.
func (r *Region) HostileTo(f Faction) bool {
	return r.Faction != "" && r.Faction != f
}

// Defenders returns the garrison units not belonging to the given faction.
func (r *Region) Defenders(attacker Faction) []*Unit {
	var out []*Unit
	for _, u := range r.Garrison {
		if u.Faction != attacker {
			out = append(out, u)
		}
	}
	return out
}

// RemoveUnits drops the given unit IDs from the garrison and returns the
// removed units in garrison order.
func (r *Region) RemoveUnits(ids map[string]bool) []*Unit {
	var kept, removed []*Unit
	for _, u := range r.Garrison {
		if ids[u.ID] {
			removed = append(removed, u)
		} else {
			kept = append(kept, u)
		}
	}
	r.Garrison = kept
	return removed
}

// UnitByID returns the garrison unit with the given ID, or nil.
func (r *Region) UnitByID(id string) *Unit {
	for _, u := range r.Garrison {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// BuildingByID returns the building with the given ID, or nil.
func (r *Region) BuildingByID(id string) *Building {
	for _, b := range r.Buildings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Graph is the immutable-after-generation region adjacency structure.
// The mutable per-region fields (owner, garrison, fort, buildings) are the
// only shared mutable state in the engine and are mutated exclusively
// through the TerritoryController.
type Graph struct {
	Regions []*Region `json:"regions"`
}

// Region returns the region with the given ID, or nil for out-of-range IDs.
func (g *Graph) Region(id RegionID) *Region {
	if id < 0 || int(id) >= len(g.Regions) {
		return nil
	}
	return g.Regions[id]
}

// Adjacent reports whether b is a direct neighbor of a.
func (g *Graph) Adjacent(a, b RegionID) bool {
	ra := g.Region(a)
	if ra == nil {
		return false
	}
	for _, n := range ra.Neighbors {
		if n == b {
			return true
		}
	}
	return false
}

// ValidPath reports whether the path is a contiguous adjacency chain of
// length >= 2 with every region present in the graph.
func (g *Graph) ValidPath(path []RegionID) bool {
	if len(path) < 2 {
		return false
	}
	for i, id := range path {
		if g.Region(id) == nil {
			return false
		}
		if i > 0 && !g.Adjacent(path[i-1], id) {
			return false
		}
	}
	return true
}

// InRange reports whether target is reachable from origin within maxHops
// graph steps. Used for ranged strike range checks.
func (g *Graph) InRange(origin, target RegionID, maxHops int) bool {
	if origin == target {
		return false
	}
	visited := map[RegionID]bool{origin: true}
	frontier := []RegionID{origin}
	for hop := 0; hop < maxHops; hop++ {
		var next []RegionID
		for _, id := range frontier {
			r := g.Region(id)
			if r == nil {
				continue
			}
			for _, n := range r.Neighbors {
				if visited[n] {
					continue
				}
				if n == target {
					return true
				}
				visited[n] = true
				next = append(next, n)
			}
		}
		frontier = next
	}
	return false
}

// terrainWeights drives the dev map generator's terrain distribution.
var terrainWeights = []struct {
	terrain Terrain
	weight  int
}{
	{Plains, 40}, {Forest, 20}, {Mountain, 12}, {River, 10}, {Desert, 10}, {Swamp, 8},
}

// GenerateGraph builds a connected random region graph from a seed. The
// production map comes from the external generator; this one exists for
// development servers and tests. The same seed always yields the same graph.
func GenerateGraph(seed int64, count int) *Graph {
	rng := rand.New(rand.NewSource(seed))
	g := &Graph{Regions: make([]*Region, count)}

	total := 0
	for _, tw := range terrainWeights {
		total += tw.weight
	}

	for i := 0; i < count; i++ {
		roll := rng.Intn(total)
		terrain := Plains
		for _, tw := range terrainWeights {
			if roll < tw.weight {
				terrain = tw.terrain
				break
			}
			roll -= tw.weight
		}
		g.Regions[i] = &Region{
			ID:      RegionID(i),
			Name:    fmt.Sprintf("Region %d", i+1),
			Terrain: terrain,
		}
	}

	// Ring keeps the graph connected; chords add shortcuts.
	link := func(a, b RegionID) {
		if a == b || g.Adjacent(a, b) {
			return
		}
		g.Regions[a].Neighbors = append(g.Regions[a].Neighbors, b)
		g.Regions[b].Neighbors = append(g.Regions[b].Neighbors, a)
	}
	for i := 0; i < count; i++ {
		link(RegionID(i), RegionID((i+1)%count))
	}
	for i := 0; i < count; i++ {
		chords := rng.Intn(3)
		for c := 0; c < chords; c++ {
			link(RegionID(i), RegionID(rng.Intn(count)))
		}
	}
	return g
}
