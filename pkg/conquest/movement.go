package conquest

import "time"

// OrderState is the movement order lifecycle state.
// Queued -> Marching -> {Arrived | Destroyed | Blocked}.
type OrderState int

const (
	OrderMarching OrderState = iota
	OrderArrived
	OrderDestroyed
	OrderBlocked
)

func (s OrderState) String() string {
	switch s {
	case OrderMarching:
		return "marching"
	case OrderArrived:
		return "arrived"
	case OrderDestroyed:
		return "destroyed"
	case OrderBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MovementOrder is an in-flight group of units walking a multi-step path.
// It is created in the marching state (queued orders are rejected or
// accepted synchronously at intent time) and owned by the scheduler loop
// until it terminates.
type MovementOrder struct {
	ID      string     `json:"id"`
	OwnerID string     `json:"ownerId"`
	Faction Faction    `json:"faction"`
	Path    []RegionID `json:"path"`
	// Step indexes the region of Path the group currently occupies.
	Step  int     `json:"step"`
	Units []*Unit `json:"units"`
	// StepDuration is the base per-region time, already including the
	// weather and war/peace multipliers sampled at issuance. The
	// destination region's terrain modifier is applied per step on top
	// of this, exactly once per step.
	StepDuration time.Duration `json:"stepDurationMs"`
	NextAdvance  time.Time     `json:"nextAdvance"`
	State        OrderState    `json:"state"`
}

// CurrentRegion returns the region ID the order currently occupies.
func (o *MovementOrder) CurrentRegion() RegionID {
	return o.Path[o.Step]
}

// AtFinalStep reports whether the order has reached the last path region.
func (o *MovementOrder) AtFinalStep() bool {
	return o.Step >= len(o.Path)-1
}

// Due reports whether the order is scheduled to advance at or before now.
func (o *MovementOrder) Due(now time.Time) bool {
	return o.State == OrderMarching && !now.Before(o.NextAdvance)
}

// scheduleNext sets the next advance deadline from the upcoming region's
// terrain. Callers ensure a next step exists.
func (o *MovementOrder) scheduleNext(now time.Time, g *Graph) {
	next := g.Region(o.Path[o.Step+1])
	o.NextAdvance = now.Add(terrainStepTime(o.StepDuration, next))
}

// pruneDead drops dead units from the order.
func (o *MovementOrder) pruneDead() {
	o.Units = pruneDead(o.Units)
}

// removeFinishedOrders drops terminated orders from the world's active list.
func (w *World) removeFinishedOrders() {
	var active []*MovementOrder
	for _, o := range w.Orders {
		if o.State == OrderMarching {
			active = append(active, o)
		}
	}
	w.Orders = active
}
