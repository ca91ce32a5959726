// Package classify derives per-segment acceleration figures and validity
// labels from a reconstructed velocity profile. The output is display data
// for the analyst's table; it never feeds back into the solver.
package classify

import (
	"math"

	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/units"
)

// Validity labels shown in the segment table.
const (
	LabelUniform    = "Const (Uniform)"
	LabelAccValid   = "Acc (Valid)"
	LabelAccInvalid = "Acc (Invalid)"
	LabelDecValid   = "Dec (Valid)"
	LabelDecInvalid = "Dec (Invalid)"
)

// SegmentReport is the derived table row for one segment.
type SegmentReport struct {
	Segment      int     `json:"segment"`
	Duration     float64 `json:"duration"`      // seconds, 3 decimals
	AvgVelocity  float64 `json:"avg_velocity"`  // display units, 2 decimals
	Acceleration float64 `json:"acceleration"`  // m/s^2, 2 decimals
	AccTime      float64 `json:"acc_time"`      // seconds, 3 decimals
	EndVelocity  float64 `json:"end_velocity"`  // display units, 2 decimals
	Label        string  `json:"acc_dec_type"`
}

// Classify produces one report row per segment of the profile. Acceleration
// is the unclamped velocity difference across the segment divided by its
// duration; the unclamped values are the engine's source of truth, so a
// clamped display node does not distort the physics figures.
func Classify(p profile.Profile, cfg *config.TuningConfig) []SegmentReport {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	v := p.Velocities()
	displayUnits := cfg.GetUnits()

	reports := make([]SegmentReport, len(p.Dt))
	for i := range p.Dt {
		accel := (v[i+1] - v[i]) / p.Dt[i]
		reports[i] = SegmentReport{
			Segment:      i,
			Duration:     round(p.Dt[i], 3),
			AvgVelocity:  round(units.ConvertSpeed(p.M[i]/2, displayUnits), 2),
			Acceleration: round(accel, 2),
			AccTime:      round(p.Dt[i], 3),
			EndVelocity:  round(units.ConvertSpeed(v[i+1], displayUnits), 2),
			Label:        label(accel, cfg),
		}
	}
	return reports
}

// label applies the validity rules in order: uniform motion first, then the
// acceleration bound, then the deceleration bound.
func label(accel float64, cfg *config.TuningConfig) string {
	uniform := cfg.GetUniformThreshold()

	switch {
	case math.Abs(accel) <= uniform:
		return LabelUniform
	case accel > uniform:
		if accel <= cfg.GetMaxAcceleration() {
			return LabelAccValid
		}
		return LabelAccInvalid
	default: // accel < -uniform
		if accel >= cfg.GetMaxDeceleration() {
			return LabelDecValid
		}
		return LabelDecInvalid
	}
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
