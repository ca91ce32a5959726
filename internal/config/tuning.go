package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/motion.profile/internal/units"
)

// Anchor selection policies. The anchor is the single node whose velocity
// drives the whole profile; which node gets picked on a fresh build is a
// policy decision, not something the measurements determine.
const (
	AnchorFirst  = "first"  // node 0
	AnchorMiddle = "middle" // node N/2
)

// TuningConfig represents the root configuration for reconstruction
// parameters. The schema matches the /api/config endpoint so the same JSON
// can be used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Measurement params
	FPS   *float64 `json:"fps,omitempty"`
	Units *string  `json:"units,omitempty"` // display units: mps, mph, kmph, kph

	// Engine params
	AnchorPolicy *string  `json:"anchor_policy,omitempty"` // "first" or "middle"
	DeltaEpsilon *float64 `json:"delta_epsilon,omitempty"` // m/s; below this a delta update is a no-op

	// Verification params
	VerifyTolerance *float64 `json:"verify_tolerance,omitempty"` // metres
	SolverTolerance *float64 `json:"solver_tolerance,omitempty"` // m/s, offset-pair invariant

	// Classification params (m/s^2)
	MaxAcceleration  *float64 `json:"max_acceleration,omitempty"`
	MaxDeceleration  *float64 `json:"max_deceleration,omitempty"`
	UniformThreshold *float64 `json:"uniform_threshold,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* accessors fall back to defaults for nil fields, so an empty
// config is fully usable.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", *c.FPS)
	}

	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), *c.Units)
	}

	if c.AnchorPolicy != nil {
		switch *c.AnchorPolicy {
		case AnchorFirst, AnchorMiddle:
		default:
			return fmt.Errorf("anchor_policy must be %q or %q, got %q", AnchorFirst, AnchorMiddle, *c.AnchorPolicy)
		}
	}

	if c.DeltaEpsilon != nil && *c.DeltaEpsilon < 0 {
		return fmt.Errorf("delta_epsilon must be non-negative, got %f", *c.DeltaEpsilon)
	}

	if c.VerifyTolerance != nil && *c.VerifyTolerance <= 0 {
		return fmt.Errorf("verify_tolerance must be positive, got %f", *c.VerifyTolerance)
	}

	if c.MaxAcceleration != nil && *c.MaxAcceleration <= 0 {
		return fmt.Errorf("max_acceleration must be positive, got %f", *c.MaxAcceleration)
	}

	if c.MaxDeceleration != nil && *c.MaxDeceleration >= 0 {
		return fmt.Errorf("max_deceleration must be negative, got %f", *c.MaxDeceleration)
	}

	return nil
}

// GetFPS returns the fps value or the default.
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 30.0 // default
	}
	return *c.FPS
}

// GetUnits returns the display units or the default.
func (c *TuningConfig) GetUnits() string {
	if c.Units == nil {
		return units.KMPH // default
	}
	return *c.Units
}

// GetAnchorPolicy returns the anchor_policy value or the default.
func (c *TuningConfig) GetAnchorPolicy() string {
	if c.AnchorPolicy == nil {
		return AnchorFirst // default
	}
	return *c.AnchorPolicy
}

// GetDeltaEpsilon returns the delta_epsilon value or the default.
func (c *TuningConfig) GetDeltaEpsilon() float64 {
	if c.DeltaEpsilon == nil {
		return 1e-6 // m/s
	}
	return *c.DeltaEpsilon
}

// GetVerifyTolerance returns the verify_tolerance value or the default.
func (c *TuningConfig) GetVerifyTolerance() float64 {
	if c.VerifyTolerance == nil {
		return 1e-9 // one nanometre
	}
	return *c.VerifyTolerance
}

// GetSolverTolerance returns the solver_tolerance value or the default.
func (c *TuningConfig) GetSolverTolerance() float64 {
	if c.SolverTolerance == nil {
		return 1e-6
	}
	return *c.SolverTolerance
}

// GetMaxAcceleration returns the max_acceleration value or the default.
func (c *TuningConfig) GetMaxAcceleration() float64 {
	if c.MaxAcceleration == nil {
		return 3.5 // m/s^2
	}
	return *c.MaxAcceleration
}

// GetMaxDeceleration returns the max_deceleration value or the default.
func (c *TuningConfig) GetMaxDeceleration() float64 {
	if c.MaxDeceleration == nil {
		return -7.85 // m/s^2
	}
	return *c.MaxDeceleration
}

// GetUniformThreshold returns the uniform_threshold value or the default.
func (c *TuningConfig) GetUniformThreshold() float64 {
	if c.UniformThreshold == nil {
		return 0.1 // m/s^2
	}
	return *c.UniformThreshold
}
