package core

import (
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Thresholds is an ascending set of positive percentage levels
type Thresholds []float64

// NewThresholds sorts the given levels, drops duplicates and non-positive values
func NewThresholds(levels ...float64) Thresholds {
	positive := lo.Filter(levels, func(level float64, _ int) bool {
		return level > 0
	})

	result := Thresholds(lo.Uniq(positive))
	slices.Sort(result)
	return result
}

// StepThresholds returns step, 2*step, ... up to and including max
func StepThresholds(step, max float64) Thresholds {
	if step <= 0 || max < step {
		return Thresholds{}
	}

	levels := make([]float64, 0, int(max/step))
	for i := 1; float64(i)*step <= max; i++ {
		levels = append(levels, float64(i)*step)
	}

	return NewThresholds(levels...)
}

// DefaultThresholds returns the levels 5, 10, ..., 100
func DefaultThresholds() Thresholds {
	return StepThresholds(5, 100)
}

// Partition splits t into the levels reached by absChange and the ones still pending
func (t Thresholds) Partition(absChange float64) (fired, remaining Thresholds) {
	reached := func(level float64, _ int) bool {
		return absChange >= level
	}

	return lo.Filter(t, reached), lo.Reject(t, reached)
}

// SubsetOf reports whether every level of t is also in other
func (t Thresholds) SubsetOf(other Thresholds) bool {
	return lo.Every(other, t)
}

// Clone returns an independent copy
func (t Thresholds) Clone() Thresholds {
	if t == nil {
		return nil
	}
	return slices.Clone(t)
}

func (t Thresholds) String() string {
	return strings.Join(lo.Map(t, func(level float64, _ int) string {
		return strconv.FormatFloat(level, 'f', -1, 64)
	}), ", ")
}
