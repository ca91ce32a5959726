// Package profile implements the distance-preserving velocity profile engine.
//
// A profile reconstructs a continuous per-node velocity curve from discrete
// segment measurements (distance travelled per frame interval). Under
// trapezoidal integration each segment imposes the constraint
//
//	(v_i + v_{i+1}) * dt_i / 2 = s_i
//
// which fixes the sum of every adjacent node pair to the distance-rate
// constant m_i = 2*s_i/dt_i. That leaves exactly one degree of freedom: the
// velocity w of a chosen anchor node. Every node velocity is an affine
// function of it, v_i = A_i*w + B_i, with A alternating in sign away from the
// anchor and B propagated by two O(N) recurrences. Dragging the anchor
// therefore recomputes the whole profile in O(N) while every measured
// distance is conserved exactly.
package profile

import (
	"github.com/banshee-data/motion.profile/internal/segment"
	"github.com/banshee-data/motion.profile/internal/units"
)

// Node is one time/velocity sample at a segment boundary, in presentation
// units. Velocity is clamped to zero at this boundary only; the profile's
// internal velocities are never clamped.
type Node struct {
	Time     float64 `json:"time"`     // seconds from the first frame
	Velocity float64 `json:"velocity"` // display units
}

// Profile is the immutable result of a build: the precomputed node-time,
// duration, distance-rate, and propagation-coefficient arrays, plus the
// current value of the single free parameter. Updates never mutate a Profile;
// they return a new value sharing the measurement arrays.
type Profile struct {
	FPS float64

	T  []float64 // node times, len N+1
	Dt []float64 // segment durations, len N
	M  []float64 // distance-rate constants 2*s_i/dt_i, len N

	A []int     // propagation signs, len N+1, A[i] in {+1,-1}
	B []float64 // propagation offsets, len N+1, m/s

	Anchor int     // anchor node index
	W      float64 // anchor velocity, m/s, unclamped
}

// Build constructs a profile from validated segments. The anchor index must
// be in [0, N]. An empty segment list yields an empty profile and no error.
//
// The default anchor velocity m[0]/2 assumes the object was at rest when the
// first segment began. That is an assumption, not a measurement; the analyst
// overrides it by dragging.
func Build(segs []segment.Segment, fps float64, anchor int, solverTol float64) (Profile, error) {
	if len(segs) == 0 {
		return Profile{FPS: fps}, nil
	}
	if anchor < 0 || anchor > len(segs) {
		return Profile{}, &AnchorError{Index: anchor, Nodes: len(segs) + 1}
	}

	t, dt := nodeTimes(segs, fps)
	m := distanceRates(segs, dt)
	a, b := propagate(m, anchor)

	if err := checkOffsets(b, m, solverTol); err != nil {
		return Profile{}, err
	}

	return Profile{
		FPS:    fps,
		T:      t,
		Dt:     dt,
		M:      m,
		A:      a,
		B:      b,
		Anchor: anchor,
		W:      m[0] / 2,
	}, nil
}

// NodeCount returns the number of nodes (segment count + 1, or 0 when empty).
func (p Profile) NodeCount() int {
	return len(p.T)
}

// Velocities returns the unclamped node velocities in m/s. This is the
// engine's source of truth; negative values are preserved so that anchor
// inversion stays exact.
func (p Profile) Velocities() []float64 {
	v := make([]float64, len(p.T))
	for i := range p.T {
		v[i] = float64(p.A[i])*p.W + p.B[i]
	}
	return v
}

// Nodes returns the presentation node list: times in seconds and velocities
// converted to the given display units, clamped to be non-negative.
func (p Profile) Nodes(displayUnits string) []Node {
	nodes := make([]Node, len(p.T))
	for i := range p.T {
		v := float64(p.A[i])*p.W + p.B[i]
		if v < 0 {
			v = 0
		}
		nodes[i] = Node{
			Time:     p.T[i],
			Velocity: units.ConvertSpeed(v, displayUnits),
		}
	}
	return nodes
}

// WithAnchorVelocity returns a copy of the profile with the free parameter
// set to w (m/s). The measurement and coefficient arrays are shared; they are
// never written after Build.
func (p Profile) WithAnchorVelocity(w float64) Profile {
	p.W = w
	return p
}

// Reanchor returns a copy of the profile re-solved for a new anchor node.
// The propagation coefficients are rederived and the free parameter is set to
// the current unclamped velocity at the new anchor, so the node velocities
// are unchanged.
func (p Profile) Reanchor(anchor int, solverTol float64) (Profile, error) {
	if anchor < 0 || anchor >= len(p.T) {
		return Profile{}, &AnchorError{Index: anchor, Nodes: len(p.T)}
	}
	if anchor == p.Anchor {
		return p, nil
	}

	w := float64(p.A[anchor])*p.W + p.B[anchor]

	a, b := propagate(p.M, anchor)
	if err := checkOffsets(b, p.M, solverTol); err != nil {
		return Profile{}, err
	}

	p.A = a
	p.B = b
	p.Anchor = anchor
	p.W = w
	return p, nil
}
