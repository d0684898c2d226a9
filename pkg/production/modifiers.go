package production

import (
	"math"
)

// DefaultPerModuleBonus is the speed bonus each installed module adds.
const DefaultPerModuleBonus = 0.25

// ModuleMultiplier returns 1 + count*perModuleBonus.
func ModuleMultiplier(count int, perModuleBonus float64) float64 {
	if count < 0 {
		count = 0
	}
	return 1 + float64(count)*perModuleBonus
}

// EffectiveCycleTime returns the seconds one cycle takes after modifiers.
// A zero efficiency (or a non-positive multiplier) yields +Inf: the cycle
// never completes but is not paused.
func EffectiveCycleTime(duration, moduleMultiplier, efficiency float64) float64 {
	speed := moduleMultiplier * efficiency
	if speed <= 0 || math.IsNaN(speed) {
		return math.Inf(1)
	}
	return duration / speed
}

// validEfficiency accepts any finite value >= 0.
func validEfficiency(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
