package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efreeman/warfront/api/pkg/conquest"
)

// Bot is a heuristic AI player. It goes through the exact same intent
// entry points as a human client, so the scheduler never distinguishes it.
type Bot struct {
	id        string
	name      string
	faction   conquest.Faction
	scheduler *Scheduler
	rng       *rand.Rand
	interval  time.Duration
}

// NewBot creates a bot on the given faction.
func NewBot(n int, faction conquest.Faction, scheduler *Scheduler) *Bot {
	return &Bot{
		id:        fmt.Sprintf("bot-%s-%d", faction, n),
		name:      fmt.Sprintf("General %s %d", faction, n),
		faction:   faction,
		scheduler: scheduler,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano() + int64(n))),
		interval:  20 * time.Second,
	}
}

// Run joins the world and acts on a fixed cadence until the context ends.
func (b *Bot) Run(ctx context.Context) {
	if err := b.scheduler.Join(ctx, b.id, b.name, string(b.faction)); err != nil {
		log.Error().Err(err).Str("bot", b.id).Msg("Bot failed to join")
		return
	}
	log.Info().Str("bot", b.id).Str("faction", string(b.faction)).Msg("Bot joined")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.act()
		}
	}
}

// intent is one planned action, decided under the world lock and executed
// after it is released.
type intent struct {
	kind       string
	units      []string
	from, to   int
	path       []int
	builderID  string
	building   string
	buildingID string
	unit       string
	region     int
}

// act surveys the world and issues at most a handful of intents.
func (b *Bot) act() {
	var plans []intent
	b.scheduler.Inspect(func(w *conquest.World) {
		p := w.Player(b.id)
		if p == nil || p.Eliminated {
			return
		}
		unitCount := w.UnitCount(b.id)

		// Scan from a random offset so bots sharing a faction spread out.
		total := len(w.Graph.Regions)
		start := b.rng.Intn(total)
		for i := 0; i < total; i++ {
			r := w.Graph.Regions[(start+i)%total]
			if r.Faction != b.faction {
				continue
			}

			var combat, artillery []string
			var idleBuilder string
			for _, u := range r.Garrison {
				if u.OwnerID != b.id || u.Busy {
					continue
				}
				switch {
				case u.Kind == conquest.Artillery:
					artillery = append(artillery, u.ID)
				case u.Kind.Spec().CanBuild:
					idleBuilder = u.ID
				case !u.Kind.Spec().NoCombat:
					combat = append(combat, u.ID)
				}
			}

			if plan, ok := b.planConstruction(r, p, idleBuilder); ok {
				plans = append(plans, plan)
			}
			if plan, ok := b.planProduction(r, p, unitCount); ok {
				plans = append(plans, plan)
				unitCount++
			}
			if plan, ok := b.planMarch(w, r, p, combat); ok {
				plans = append(plans, plan)
			}
			if plan, ok := b.planStrike(w, r, artillery); ok {
				plans = append(plans, plan)
			}

			if len(plans) >= 4 {
				break
			}
		}
	})

	for _, plan := range plans {
		var err error
		switch plan.kind {
		case "move":
			err = b.scheduler.Move(b.id, plan.units, plan.from, plan.path)
		case "strike":
			err = b.scheduler.Strike(b.id, plan.units, plan.from, plan.to)
		case "build":
			err = b.scheduler.Build(b.id, plan.builderID, plan.region, plan.building)
		case "produce":
			err = b.scheduler.Produce(b.id, plan.buildingID, plan.region, plan.unit)
		}
		if err != nil {
			log.Debug().Err(err).Str("bot", b.id).Str("kind", plan.kind).Msg("Bot intent rejected")
		}
	}
}

// planConstruction puts an idle builder to work on the cheapest missing
// economy building.
func (b *Bot) planConstruction(r *conquest.Region, p *conquest.Player, builderID string) (intent, bool) {
	if builderID == "" {
		return intent{}, false
	}
	has := make(map[conquest.BuildingKind]bool)
	for _, bld := range r.Buildings {
		has[bld.Kind] = true
	}
	wanted := []conquest.BuildingKind{conquest.Farm, conquest.Mine, conquest.Barracks, conquest.Hospital}
	for _, kind := range wanted {
		if !has[kind] && p.Gold >= kind.Spec().GoldCost {
			return intent{kind: "build", builderID: builderID, region: int(r.ID), building: string(kind)}, true
		}
	}
	return intent{}, false
}

// planProduction queues an infantry batch from a barracks when affordable.
func (b *Bot) planProduction(r *conquest.Region, p *conquest.Player, unitCount int) (intent, bool) {
	if unitCount >= conquest.MaxUnitsPerPlayer {
		return intent{}, false
	}
	spec := conquest.Infantry.Spec()
	if p.Gold < spec.GoldCost || p.Food < spec.FoodCost {
		return intent{}, false
	}
	for _, bld := range r.Buildings {
		if bld.OwnerID == b.id && bld.Kind.CanProduce(conquest.Infantry) {
			return intent{kind: "produce", buildingID: bld.ID, region: int(r.ID), unit: string(conquest.Infantry)}, true
		}
	}
	return intent{}, false
}

// planMarch pushes a garrison of three or more combat units toward the
// weakest neighboring target, preferring free land over a fight.
func (b *Bot) planMarch(w *conquest.World, r *conquest.Region, p *conquest.Player, combat []string) (intent, bool) {
	if len(combat) < 3 {
		return intent{}, false
	}
	cost := len(combat) * conquest.FoodPerMove
	if p.Food < cost {
		return intent{}, false
	}

	var target conquest.RegionID = -1
	bestDefenders := int(^uint(0) >> 1)
	for _, n := range r.Neighbors {
		nb := w.Graph.Region(n)
		if nb.Neutral() {
			target = n
			bestDefenders = 0
			break
		}
		if nb.HostileTo(b.faction) {
			if d := len(nb.Defenders(b.faction)); d < bestDefenders {
				target = n
				bestDefenders = d
			}
		}
	}
	if target < 0 || bestDefenders > len(combat) {
		return intent{}, false
	}
	return intent{
		kind:  "move",
		units: combat,
		from:  int(r.ID),
		path:  []int{int(r.ID), int(target)},
	}, true
}

// planStrike shells the nearest hostile garrison in artillery range.
func (b *Bot) planStrike(w *conquest.World, r *conquest.Region, artillery []string) (intent, bool) {
	if len(artillery) == 0 {
		return intent{}, false
	}
	for _, n := range r.Neighbors {
		nb := w.Graph.Region(n)
		if nb.HostileTo(b.faction) && len(nb.Defenders(b.faction)) > 0 {
			return intent{kind: "strike", units: artillery, from: int(r.ID), to: int(n)}, true
		}
	}
	return intent{}, false
}
