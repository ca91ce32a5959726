package profile

import (
	"math"

	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/monitoring"
	"github.com/banshee-data/motion.profile/internal/segment"
	"github.com/banshee-data/motion.profile/internal/units"
)

// Update methods. Both are O(N) and mathematically equivalent; delta is the
// incremental formulation the interactive drag path historically used, not a
// performance improvement.
const (
	MethodDirect = "direct"
	MethodDelta  = "delta"
)

// State tracks the controller lifecycle.
type State int

const (
	Unprepared State = iota // no successful build yet
	Prepared                // profile built, no drag in progress
	Dragging                // between BeginDrag and Release
)

func (s State) String() string {
	switch s {
	case Unprepared:
		return "unprepared"
	case Prepared:
		return "prepared"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Controller owns the live profile across interactive updates. It is the
// single writer for the profile state: it is not safe for concurrent use, and
// callers with multiple writers must serialize through one owner (the API
// layer guards each session with a mutex). Interaction events are applied in
// arrival order; abandoning a drag without Release leaves the last applied
// anchor velocity committed.
type Controller struct {
	cfg   *config.TuningConfig
	state State
	prof  Profile
}

// NewController creates a controller in the Unprepared state.
func NewController(cfg *config.TuningConfig) *Controller {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Controller{cfg: cfg}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Ready reports whether a profile has been successfully built.
func (c *Controller) Ready() bool {
	return c.state != Unprepared
}

// Profile returns the current immutable profile value. Only meaningful once
// Ready.
func (c *Controller) Profile() Profile {
	return c.prof
}

// anchorFor maps the configured anchor policy onto a node index for a build
// over n segments.
func anchorFor(policy string, n int) int {
	if policy == config.AnchorMiddle {
		return n / 2
	}
	return 0
}

// PrepareInitialProfile validates raw measurement rows and builds a fresh
// profile. Validation is all-or-nothing: any bad row aborts the rebuild and
// the controller stays (or becomes) unprepared, blocking updates until the
// next successful build.
//
// The initial anchor velocity is m[0]/2, the value at which the object
// starts the first segment at rest.
func (c *Controller) PrepareInitialProfile(rows []segment.Raw) ([]Node, error) {
	segs, err := segment.Normalize(rows, c.cfg.GetFPS())
	if err != nil {
		c.state = Unprepared
		c.prof = Profile{}
		return nil, err
	}
	return c.PrepareSegments(segs)
}

// PrepareSegments builds a fresh profile from already-validated segments.
// Used by callers that load typed segments from storage.
func (c *Controller) PrepareSegments(segs []segment.Segment) ([]Node, error) {
	anchor := anchorFor(c.cfg.GetAnchorPolicy(), len(segs))
	prof, err := Build(segs, c.cfg.GetFPS(), anchor, c.cfg.GetSolverTolerance())
	if err != nil {
		c.state = Unprepared
		c.prof = Profile{}
		return nil, err
	}

	c.prof = prof
	c.state = Prepared

	// Distance conservation is checked once per build, against the
	// unclamped profile. A mismatch means a solver bug, not bad input;
	// log it rather than killing the interactive session.
	if result := Verify(prof, c.cfg.GetVerifyTolerance()); !result.OK {
		monitoring.Logf("profile: distance conservation failed on build: %v", result.Mismatches)
	}

	return c.prof.Nodes(c.cfg.GetUnits()), nil
}

// BeginDrag starts an interactive drag on the given node. If the node is not
// the current anchor the profile is re-solved for the new anchor, carrying
// the node's current unclamped velocity over as the free parameter, so the
// visible profile does not jump.
func (c *Controller) BeginDrag(anchorIndex int) error {
	if c.state == Unprepared {
		return ErrNotPrepared
	}

	prof, err := c.prof.Reanchor(anchorIndex, c.cfg.GetSolverTolerance())
	if err != nil {
		return err
	}

	c.prof = prof
	c.state = Dragging
	return nil
}

// Release ends a drag. The last applied anchor velocity stays committed;
// there is no rollback.
func (c *Controller) Release() error {
	if c.state != Dragging {
		return ErrNotDragging
	}
	c.state = Prepared
	return nil
}

// UpdateRealtime applies a new anchor velocity (display units) and returns
// the recomputed node list. Every update touches every node; responsiveness
// relies on N being small, not on incremental computation.
func (c *Controller) UpdateRealtime(velocity float64, method string) ([]Node, error) {
	if c.state == Unprepared {
		return nil, ErrNotPrepared
	}

	w := units.ToMPS(velocity, c.cfg.GetUnits())

	switch method {
	case MethodDirect:
		c.prof = c.prof.WithAnchorVelocity(w)
		return c.prof.Nodes(c.cfg.GetUnits()), nil
	case MethodDelta:
		return c.updateDelta(w), nil
	default:
		return nil, &UnknownMethodError{Method: method}
	}
}

// updateDelta recomputes each node from its previous value plus A_i*dw.
// Algebraically identical to the direct form; kept as the formulation the
// drag path uses so both can be cross-checked.
func (c *Controller) updateDelta(w float64) []Node {
	dw := w - c.prof.W
	if math.Abs(dw) < c.cfg.GetDeltaEpsilon() {
		// No observable change; previous anchor velocity stands.
		return c.prof.Nodes(c.cfg.GetUnits())
	}

	prev := c.prof
	displayUnits := c.cfg.GetUnits()

	nodes := make([]Node, prev.NodeCount())
	for i := range nodes {
		prevV := float64(prev.A[i])*prev.W + prev.B[i]
		v := prevV + float64(prev.A[i])*dw
		if v < 0 {
			v = 0
		}
		nodes[i] = Node{Time: prev.T[i], Velocity: units.ConvertSpeed(v, displayUnits)}
	}

	c.prof = prev.WithAnchorVelocity(w)
	return nodes
}

// ReverseAnchorFromPoint infers the anchor velocity implied by directly
// editing a non-anchor node to the target velocity (display units). The
// returned value, fed to UpdateRealtime, reproduces the target at that node
// as long as the target is non-negative; the presentation clamp breaks exact
// round-tripping for negative raw values.
//
// A segment-end node is first converted to its start-equivalent through the
// pairwise constraint v_start = m_i - v_end.
func (c *Controller) ReverseAnchorFromPoint(pointIndex int, target float64) (float64, error) {
	if c.state == Unprepared {
		return 0, ErrNotPrepared
	}
	if pointIndex < 0 || pointIndex >= c.prof.NodeCount() {
		return 0, &AnchorError{Index: pointIndex, Nodes: c.prof.NodeCount()}
	}

	targetMPS := units.ToMPS(target, c.cfg.GetUnits())

	node := pointIndex
	vEquiv := targetMPS
	if pointIndex > 0 {
		// End of segment pointIndex-1: solve through the pair sum.
		node = pointIndex - 1
		vEquiv = c.prof.M[pointIndex-1] - targetMPS
	}

	a := float64(c.prof.A[node])
	if math.Abs(a) <= 0.001 {
		// Cannot happen while A is {+1,-1}; return the input untouched
		// rather than dividing by a degenerate coefficient.
		return target, nil
	}

	w := (vEquiv - c.prof.B[node]) / a
	return units.ConvertSpeed(w, c.cfg.GetUnits()), nil
}

// Nodes returns the current presentation node list.
func (c *Controller) Nodes() ([]Node, error) {
	if c.state == Unprepared {
		return nil, ErrNotPrepared
	}
	return c.prof.Nodes(c.cfg.GetUnits()), nil
}

// Reset discards all state, returning the controller to Unprepared.
func (c *Controller) Reset() {
	c.state = Unprepared
	c.prof = Profile{}
}
