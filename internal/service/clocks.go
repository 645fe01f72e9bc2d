package service

import (
	"time"

	"github.com/efreeman/warfront/api/pkg/conquest"
)

// Weather is one phase of the rotating weather cycle.
type Weather struct {
	Name  string  `json:"name"`
	Speed float64 `json:"speed"`
}

// weatherCycle rotates on a fixed period; the multiplier slows marches in
// bad weather.
var weatherCycle = []Weather{
	{Name: "sunny", Speed: 1.0},
	{Name: "rainy", Speed: 0.7},
	{Name: "stormy", Speed: 0.5},
	{Name: "night", Speed: 0.9},
}

const (
	// weatherPeriod is how long each weather phase lasts.
	weatherPeriod = time.Minute
	// warPeriod and peacePeriod alternate. During peace attacks are
	// blocked and marches run at peaceSpeed.
	warPeriod   = 5 * time.Hour
	peacePeriod = 5 * time.Hour
	peaceSpeed  = 5.0
)

// PolicyClocks derives the per-tick policy inputs from wall time and fixed
// anchors, so every process computes identical phases and a restart never
// shifts the cycle.
type PolicyClocks struct {
	weatherAnchor time.Time
	warAnchor     time.Time
}

// NewPolicyClocks creates clocks measured from the given anchors.
func NewPolicyClocks(weatherAnchor, warAnchor time.Time) *PolicyClocks {
	return &PolicyClocks{weatherAnchor: weatherAnchor, warAnchor: warAnchor}
}

// Weather returns the active weather phase.
func (c *PolicyClocks) Weather(now time.Time) Weather {
	elapsed := now.Sub(c.weatherAnchor)
	if elapsed < 0 {
		elapsed = 0
	}
	idx := int(elapsed/weatherPeriod) % len(weatherCycle)
	return weatherCycle[idx]
}

// AtWar reports whether the war half of the war/peace cycle is active.
func (c *PolicyClocks) AtWar(now time.Time) bool {
	elapsed := now.Sub(c.warAnchor)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed%(warPeriod+peacePeriod) < warPeriod
}

// Policy assembles the engine's per-tick policy inputs.
func (c *PolicyClocks) Policy(now time.Time) conquest.PolicyInputs {
	atWar := c.AtWar(now)
	warSpeed := 1.0
	if !atWar {
		warSpeed = peaceSpeed
	}
	return conquest.PolicyInputs{
		AttacksAllowed: atWar,
		WeatherSpeed:   c.Weather(now).Speed,
		WarPeaceSpeed:  warSpeed,
	}
}

// NextWeatherChange returns when the current weather phase ends.
func (c *PolicyClocks) NextWeatherChange(now time.Time) time.Time {
	elapsed := now.Sub(c.weatherAnchor)
	if elapsed < 0 {
		return c.weatherAnchor
	}
	n := elapsed/weatherPeriod + 1
	return c.weatherAnchor.Add(n * weatherPeriod)
}

// NextWarPeaceChange returns when the current war or peace phase ends.
func (c *PolicyClocks) NextWarPeaceChange(now time.Time) time.Time {
	elapsed := now.Sub(c.warAnchor)
	if elapsed < 0 {
		return c.warAnchor
	}
	cycle := warPeriod + peacePeriod
	into := elapsed % cycle
	base := now.Add(-into)
	if into < warPeriod {
		return base.Add(warPeriod)
	}
	return base.Add(cycle)
}
