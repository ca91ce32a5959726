package profile

import (
	"math"

	"github.com/banshee-data/motion.profile/internal/segment"
)

// nodeTimes derives the node-time and duration arrays from validated
// segments. t[0] is zero; each subsequent node time accumulates the segment
// durations.
func nodeTimes(segs []segment.Segment, fps float64) (t, dt []float64) {
	t = make([]float64, 0, len(segs)+1)
	dt = make([]float64, 0, len(segs))

	t = append(t, 0)
	for _, seg := range segs {
		d := seg.Duration(fps)
		dt = append(dt, d)
		t = append(t, t[len(t)-1]+d)
	}
	return t, dt
}

// distanceRates derives the distance-rate constants m_i = 2*s_i/dt_i, the
// required sum of each segment's two boundary velocities under trapezoidal
// integration.
func distanceRates(segs []segment.Segment, dt []float64) []float64 {
	m := make([]float64, len(segs))
	for i, seg := range segs {
		m[i] = 2 * seg.Distance / dt[i]
	}
	return m
}

// propagate computes the affine coefficients of every node velocity relative
// to the anchor: v_i = A_i*w + B_i.
//
// The distance constraint v_i + v_{i+1} = m_i must hold for every value of
// w, which forces A_i + A_{i+1} = 0 and B_i + B_{i+1} = m_i independently.
// Signs alternate away from the anchor; offsets follow two O(N) recurrences,
// one forward and one backward from the anchor.
func propagate(m []float64, anchor int) (a []int, b []float64) {
	n := len(m)

	a = make([]int, n+1)
	for i := range a {
		if (i-anchor)%2 == 0 {
			a[i] = 1
		} else {
			a[i] = -1
		}
	}

	b = make([]float64, n+1)
	for i := anchor; i < n; i++ {
		b[i+1] = m[i] - b[i]
	}
	for i := anchor; i >= 1; i-- {
		b[i-1] = m[i-1] - b[i]
	}
	return a, b
}

// checkOffsets asserts the pairwise offset invariant B_i + B_{i+1} == m_i
// after propagation. A violation means the recurrences were fed inconsistent
// arrays; it cannot arise from valid measurements.
func checkOffsets(b, m []float64, tol float64) error {
	for i := range m {
		if diff := math.Abs(b[i] + b[i+1] - m[i]); diff > tol {
			return &OffsetInvariantError{Segment: i, Diff: diff}
		}
	}
	return nil
}
