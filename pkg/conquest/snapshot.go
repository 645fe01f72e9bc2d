package conquest

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the serializable form of the full world state. It carries
// everything needed to resume a game after a restart except the RNG stream,
// which is re-seeded on restore.
type Snapshot struct {
	SavedAt   time.Time                 `json:"savedAt"`
	Regions   []*Region                 `json:"regions"`
	Players   map[string]*Player        `json:"players"`
	Factions  map[Faction]*FactionStats `json:"factions"`
	Orders    []*MovementOrder          `json:"orders"`
	Deadlines []*Deadline               `json:"deadlines"`
	IDSeq     int64                     `json:"idSeq"`
}

// Snapshot captures the current world state for persistence.
func (w *World) Snapshot(now time.Time) *Snapshot {
	return &Snapshot{
		SavedAt:   now,
		Regions:   w.Graph.Regions,
		Players:   w.Players,
		Factions:  w.Factions,
		Orders:    w.Orders,
		Deadlines: w.Deadlines,
		IDSeq:     w.idSeq,
	}
}

// MarshalSnapshot encodes a snapshot for storage.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// RestoreWorld rebuilds a world from a stored snapshot. The RNG is seeded
// fresh; everything else resumes where the snapshot left off. In-flight
// order deadlines that passed while the server was down fire on the first
// tick.
func RestoreWorld(data []byte, seed int64) (*World, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	w := NewWorld(&Graph{Regions: s.Regions}, seed)
	if s.Players != nil {
		w.Players = s.Players
	}
	for f, fs := range s.Factions {
		if fs != nil {
			w.Factions[f] = fs
		}
	}
	w.Orders = s.Orders
	w.Deadlines = s.Deadlines
	w.idSeq = s.IDSeq
	return w, nil
}
