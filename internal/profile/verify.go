package profile

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// Mismatch records one segment whose reconstructed distance diverged from
// the measurement.
type Mismatch struct {
	Segment  int     `json:"segment"`
	Computed float64 `json:"computed"` // metres
	Expected float64 `json:"expected"` // metres
}

func (m Mismatch) String() string {
	return fmt.Sprintf("segment %d: computed %.12f m, expected %.12f m", m.Segment, m.Computed, m.Expected)
}

// VerifyResult is the outcome of a distance-conservation check.
type VerifyResult struct {
	OK         bool       `json:"ok"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Verify checks that the profile's unclamped velocities reproduce every
// measured segment distance under trapezoidal integration: for each segment,
// (v_i + v_{i+1}) * dt_i / 2 must equal m_i * dt_i / 2 within tol metres.
//
// The unclamped velocities are the source of truth here. Clamped presentation
// values can legitimately diverge; ClampDrift reports that separately.
func Verify(p Profile, tol float64) VerifyResult {
	v := p.Velocities()
	result := VerifyResult{OK: true}

	for i := range p.Dt {
		computed := (v[i] + v[i+1]) * p.Dt[i] / 2
		expected := p.M[i] * p.Dt[i] / 2
		if !scalar.EqualWithinAbs(computed, expected, tol) {
			result.OK = false
			result.Mismatches = append(result.Mismatches, Mismatch{
				Segment:  i,
				Computed: computed,
				Expected: expected,
			})
		}
	}
	return result
}

// ClampDrift reports the segments whose presented distance no longer matches
// the measurement because the non-negative presentation clamp altered a
// boundary velocity. The internal profile still conserves every distance;
// this is a warning about what the analyst sees, not an engine fault.
func ClampDrift(p Profile, tol float64) []Mismatch {
	v := p.Velocities()
	var drift []Mismatch

	for i := range p.Dt {
		v0, v1 := v[i], v[i+1]
		if v0 >= 0 && v1 >= 0 {
			continue
		}
		if v0 < 0 {
			v0 = 0
		}
		if v1 < 0 {
			v1 = 0
		}
		presented := (v0 + v1) * p.Dt[i] / 2
		expected := p.M[i] * p.Dt[i] / 2
		if !scalar.EqualWithinAbs(presented, expected, tol) {
			drift = append(drift, Mismatch{Segment: i, Computed: presented, Expected: expected})
		}
	}
	return drift
}
