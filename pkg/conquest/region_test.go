package conquest

import "testing"

func TestGraph_ValidPath(t *testing.T) {
	g := lineGraph(Plains, Forest, Swamp, Plains)

	tests := []struct {
		name string
		path []RegionID
		want bool
	}{
		{"empty", nil, false},
		{"single region", []RegionID{1}, false},
		{"adjacent pair", []RegionID{0, 1}, true},
		{"full walk", []RegionID{0, 1, 2, 3}, true},
		{"backtracking walk", []RegionID{0, 1, 0, 1}, true},
		{"skipped hop", []RegionID{0, 2}, false},
		{"unknown region", []RegionID{0, 1, 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.ValidPath(tt.path); got != tt.want {
				t.Errorf("ValidPath(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGraph_InRange(t *testing.T) {
	g := lineGraph(Plains, Plains, Plains, Plains)

	tests := []struct {
		origin, target RegionID
		hops           int
		want           bool
	}{
		{0, 1, 2, true},
		{0, 2, 2, true},
		{0, 3, 2, false},
		{0, 3, 3, true},
		{0, 0, 2, false}, // own region is never in range
		{3, 1, 2, true},
	}
	for _, tt := range tests {
		if got := g.InRange(tt.origin, tt.target, tt.hops); got != tt.want {
			t.Errorf("InRange(%d, %d, %d) = %v, want %v", tt.origin, tt.target, tt.hops, got, tt.want)
		}
	}
}

func TestGenerateGraph_DeterministicAndConnected(t *testing.T) {
	a := GenerateGraph(42, 30)
	b := GenerateGraph(42, 30)

	if len(a.Regions) != 30 {
		t.Fatalf("regions = %d, want 30", len(a.Regions))
	}
	for i := range a.Regions {
		if a.Regions[i].Terrain != b.Regions[i].Terrain {
			t.Fatalf("region %d terrain differs across runs with the same seed", i)
		}
		if len(a.Regions[i].Neighbors) != len(b.Regions[i].Neighbors) {
			t.Fatalf("region %d neighbor count differs across runs", i)
		}
	}

	// BFS from region 0 must reach everything.
	visited := map[RegionID]bool{0: true}
	frontier := []RegionID{0}
	for len(frontier) > 0 {
		var next []RegionID
		for _, id := range frontier {
			for _, n := range a.Region(id).Neighbors {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	if len(visited) != 30 {
		t.Errorf("graph not connected: reached %d of 30 regions", len(visited))
	}

	// Adjacency is symmetric.
	for _, r := range a.Regions {
		for _, n := range r.Neighbors {
			if !a.Adjacent(n, r.ID) {
				t.Errorf("asymmetric edge %d -> %d", r.ID, n)
			}
		}
	}
}
