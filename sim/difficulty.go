package sim

import (
	"math"

	"github.com/plus3/riverrush/config"
)

// Tier is the number of difficulty thresholds passed at distance.
func Tier(d config.Difficulty, distance float64) int {
	tier := 0
	for _, threshold := range d.Thresholds {
		if distance < threshold {
			break
		}
		tier++
	}
	return tier
}

// SpeedMultiplier grows by SpeedStep every SpeedStepDistance and saturates at
// MaxSpeedMultiplier.
func SpeedMultiplier(d config.Difficulty, distance float64) float64 {
	if distance <= 0 || d.SpeedStepDistance <= 0 {
		return 1
	}
	m := 1 + math.Floor(distance/d.SpeedStepDistance)*d.SpeedStep
	return math.Min(m, d.MaxSpeedMultiplier)
}

// Ramp is the difficulty progress in [0,1] at distance.
func Ramp(d config.Difficulty, distance float64) float64 {
	if d.RampDistance <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, distance/d.RampDistance))
}

// SpacingAt interpolates a spawn spacing from Base toward Min along the ramp.
func SpacingAt(sp config.Spacing, d config.Difficulty, distance float64) float64 {
	return sp.Base - (sp.Base-sp.Min)*Ramp(d, distance)
}
