// Package report renders a reconstructed profile for the analyst: chart
// series, interactive HTML charts, PNG export, and comparison metrics
// against a ground-truth trace.
package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/units"
)

// StepSeries builds the per-segment average-velocity step curve: for each
// segment, its constant average velocity held from segment start to segment
// end. This is the "what the raw measurements say" overlay next to the
// reconstructed node polyline.
func StepSeries(p profile.Profile, displayUnits string) []profile.Node {
	series := make([]profile.Node, 0, 2*len(p.Dt))
	for i := range p.Dt {
		// m_i/2 is distance/duration, the segment's average velocity.
		avg := units.ConvertSpeed(p.M[i]/2, displayUnits)
		series = append(series,
			profile.Node{Time: p.T[i], Velocity: avg},
			profile.Node{Time: p.T[i+1], Velocity: avg},
		)
	}
	return series
}

// Metrics summarises how far the reconstructed profile sits from a reference
// trace, in the trace's velocity units.
type Metrics struct {
	Points int     `json:"points"`
	RMSE   float64 `json:"rmse"`
	Bias   float64 `json:"bias"`    // mean (profile - truth)
	MaxAbs float64 `json:"max_abs"` // worst single-point deviation
}

// Compare evaluates the node polyline at each ground-truth timestamp by
// linear interpolation and aggregates the deviations. Truth points outside
// the profile's time range are ignored.
func Compare(nodes, truth []profile.Node) Metrics {
	var diffs []float64
	for _, gt := range truth {
		v, ok := interpolate(nodes, gt.Time)
		if !ok {
			continue
		}
		diffs = append(diffs, v-gt.Velocity)
	}

	if len(diffs) == 0 {
		return Metrics{}
	}

	sq := make([]float64, len(diffs))
	maxAbs := 0.0
	for i, d := range diffs {
		sq[i] = d * d
		if a := math.Abs(d); a > maxAbs {
			maxAbs = a
		}
	}

	return Metrics{
		Points: len(diffs),
		RMSE:   math.Sqrt(stat.Mean(sq, nil)),
		Bias:   stat.Mean(diffs, nil),
		MaxAbs: maxAbs,
	}
}

// interpolate evaluates the node polyline at time t. Node times are strictly
// increasing by construction.
func interpolate(nodes []profile.Node, t float64) (float64, bool) {
	if len(nodes) == 0 || t < nodes[0].Time || t > nodes[len(nodes)-1].Time {
		return 0, false
	}
	for i := 0; i < len(nodes)-1; i++ {
		a, b := nodes[i], nodes[i+1]
		if t > b.Time {
			continue
		}
		if b.Time == a.Time {
			return a.Velocity, true
		}
		frac := (t - a.Time) / (b.Time - a.Time)
		return a.Velocity + frac*(b.Velocity-a.Velocity), true
	}
	return nodes[len(nodes)-1].Velocity, true
}
