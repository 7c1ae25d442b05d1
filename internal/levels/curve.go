// Package levels maps accumulated reputation points to discrete levels.
//
// The curve is quadratic: reaching level n requires
// base * (n*(n-1)/2 + 1) points, so each level costs progressively more
// than the one before it.
package levels

const (
	// DefaultBasePoints is the cost of the first level step.
	DefaultBasePoints = 100

	// MaxLevel bounds the curve so the loop always terminates.
	MaxLevel = 50
)

// Curve is a pure points-to-level function. The zero value is not usable;
// construct with NewCurve.
type Curve struct {
	base int64
}

// NewCurve creates a curve with the given base threshold. Non-positive
// values fall back to DefaultBasePoints.
func NewCurve(base int64) Curve {
	if base <= 0 {
		base = DefaultBasePoints
	}
	return Curve{base: base}
}

// Base returns the configured base threshold.
func (c Curve) Base() int64 {
	return c.base
}

// Level returns the level earned by the given point total. It is total over
// all inputs: negative points map to level 1.
func (c Curve) Level(points int64) int {
	if points < c.base {
		return 1
	}
	level := 1
	required := c.base
	for points >= required {
		level++
		required = c.base * int64(level*(level-1)/2+1)
		if level > MaxLevel {
			break
		}
	}
	return level - 1
}
