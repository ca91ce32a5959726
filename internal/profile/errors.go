package profile

import (
	"errors"
	"fmt"
)

// ErrNotPrepared is returned when an update is requested before a successful
// build. A failed rebuild leaves the controller unprepared, so a validation
// failure blocks all further updates until the measurements are fixed.
var ErrNotPrepared = errors.New("profile: no prepared profile; rebuild required")

// ErrNotDragging is returned when Release is called without a drag in
// progress.
var ErrNotDragging = errors.New("profile: no drag in progress")

// AnchorError reports an anchor index outside the node range.
type AnchorError struct {
	Index int
	Nodes int
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("profile: anchor index %d out of range [0, %d]", e.Index, e.Nodes-1)
}

// OffsetInvariantError reports a violated pairwise offset invariant after
// propagation: B_i + B_{i+1} diverged from m_i.
type OffsetInvariantError struct {
	Segment int
	Diff    float64
}

func (e *OffsetInvariantError) Error() string {
	return fmt.Sprintf("profile: offset invariant violated at segment %d (off by %g m/s)", e.Segment, e.Diff)
}

// UnknownMethodError reports an unrecognised update method.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("profile: unknown update method %q", e.Method)
}
