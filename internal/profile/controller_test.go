package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/segment"
)

func twoSegmentRows() []segment.Raw {
	return []segment.Raw{
		{FrameStart: "0", FrameEnd: "30", Distance: "10"},
		{FrameStart: "30", FrameEnd: "60", Distance: "8"},
	}
}

func preparedController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(config.EmptyTuningConfig())
	_, err := c.PrepareInitialProfile(twoSegmentRows())
	require.NoError(t, err)
	return c
}

func TestControllerLifecycle(t *testing.T) {
	c := NewController(nil)
	assert.Equal(t, Unprepared, c.State())
	assert.False(t, c.Ready())

	t.Run("updates before prepare fail", func(t *testing.T) {
		_, err := c.UpdateRealtime(40, MethodDirect)
		assert.ErrorIs(t, err, ErrNotPrepared)

		_, err = c.Nodes()
		assert.ErrorIs(t, err, ErrNotPrepared)

		_, err = c.ReverseAnchorFromPoint(0, 40)
		assert.ErrorIs(t, err, ErrNotPrepared)

		assert.ErrorIs(t, c.BeginDrag(0), ErrNotPrepared)
	})

	t.Run("prepare transitions to Prepared", func(t *testing.T) {
		nodes, err := c.PrepareInitialProfile(twoSegmentRows())
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Equal(t, Prepared, c.State())
		assert.True(t, c.Ready())
	})

	t.Run("drag and release", func(t *testing.T) {
		require.NoError(t, c.BeginDrag(0))
		assert.Equal(t, Dragging, c.State())
		require.NoError(t, c.Release())
		assert.Equal(t, Prepared, c.State())
		assert.ErrorIs(t, c.Release(), ErrNotDragging)
	})

	t.Run("reset discards everything", func(t *testing.T) {
		c.Reset()
		assert.Equal(t, Unprepared, c.State())
		_, err := c.Nodes()
		assert.ErrorIs(t, err, ErrNotPrepared)
	})
}

func TestPrepareInitialProfile(t *testing.T) {
	t.Run("initial nodes in km/h", func(t *testing.T) {
		c := NewController(config.EmptyTuningConfig())
		nodes, err := c.PrepareInitialProfile(twoSegmentRows())
		require.NoError(t, err)

		assert.InDelta(t, 0.0, nodes[0].Time, 1e-12)
		assert.InDelta(t, 1.0, nodes[1].Time, 1e-12)
		assert.InDelta(t, 2.0, nodes[2].Time, 1e-12)
		assert.InDelta(t, 36.0, nodes[0].Velocity, 1e-9)
		assert.InDelta(t, 36.0, nodes[1].Velocity, 1e-9)
		assert.InDelta(t, 21.6, nodes[2].Velocity, 1e-9)
	})

	t.Run("validation failure blocks updates", func(t *testing.T) {
		c := preparedController(t)

		bad := []segment.Raw{{FrameStart: "30", FrameEnd: "0", Distance: "10"}}
		_, err := c.PrepareInitialProfile(bad)
		require.Error(t, err)
		assert.Equal(t, Unprepared, c.State())

		_, err = c.UpdateRealtime(40, MethodDirect)
		assert.ErrorIs(t, err, ErrNotPrepared)
	})

	t.Run("middle anchor policy", func(t *testing.T) {
		policy := config.AnchorMiddle
		c := NewController(&config.TuningConfig{AnchorPolicy: &policy})
		_, err := c.PrepareInitialProfile(twoSegmentRows())
		require.NoError(t, err)
		assert.Equal(t, 1, c.Profile().Anchor)

		// Anchor choice never changes the distances the profile conserves.
		assert.True(t, Verify(c.Profile(), 1e-9).OK)
	})
}

func TestUpdateRealtimeDirect(t *testing.T) {
	c := preparedController(t)

	// Drag the anchor to 15 m/s (54 km/h): v = [15, 5, 11].
	nodes, err := c.UpdateRealtime(54, MethodDirect)
	require.NoError(t, err)
	assert.InDelta(t, 54.0, nodes[0].Velocity, 1e-9)
	assert.InDelta(t, 18.0, nodes[1].Velocity, 1e-9)
	assert.InDelta(t, 39.6, nodes[2].Velocity, 1e-9)

	// Segment distances still conserved after the drag.
	assert.True(t, Verify(c.Profile(), 1e-9).OK)
}

func TestUpdateRealtimeUnknownMethod(t *testing.T) {
	c := preparedController(t)
	_, err := c.UpdateRealtime(54, "bisect")
	var merr *UnknownMethodError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "bisect", merr.Method)
}

// Direct and delta updates to the same target from the same starting state
// must produce identical node velocities.
func TestMethodEquivalence(t *testing.T) {
	targets := []float64{54, 36.5, 12.0, 0, 88.2}

	direct := preparedController(t)
	delta := preparedController(t)

	for _, target := range targets {
		nd, err := direct.UpdateRealtime(target, MethodDirect)
		require.NoError(t, err)
		nl, err := delta.UpdateRealtime(target, MethodDelta)
		require.NoError(t, err)

		require.Len(t, nl, len(nd))
		for i := range nd {
			assert.InDelta(t, nd[i].Velocity, nl[i].Velocity, 1e-9, "target %v node %d", target, i)
		}
		assert.InDelta(t, direct.Profile().W, delta.Profile().W, 1e-12)
	}
}

func TestDeltaUpdateBelowEpsilonIsNoop(t *testing.T) {
	c := preparedController(t)
	before, err := c.Nodes()
	require.NoError(t, err)
	w := c.Profile().W

	// Nudge by less than 1e-6 m/s: no observable change, w stays put.
	nodes, err := c.UpdateRealtime(w*3.6+1e-9, MethodDelta)
	require.NoError(t, err)
	assert.Equal(t, before, nodes)
	assert.InDelta(t, w, c.Profile().W, 1e-12)
}

func TestUpdateIdempotence(t *testing.T) {
	for _, method := range []string{MethodDirect, MethodDelta} {
		t.Run(method, func(t *testing.T) {
			c := preparedController(t)

			first, err := c.UpdateRealtime(47.3, method)
			require.NoError(t, err)
			second, err := c.UpdateRealtime(47.3, method)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestUpdateDuringDrag(t *testing.T) {
	c := preparedController(t)
	require.NoError(t, c.BeginDrag(0))

	// A stream of drag events applied in order; last write wins.
	for _, v := range []float64{37, 39.5, 44, 51.2} {
		_, err := c.UpdateRealtime(v, MethodDelta)
		require.NoError(t, err)
	}
	assert.InDelta(t, 51.2/3.6, c.Profile().W, 1e-9)

	require.NoError(t, c.Release())
	// Release keeps the last applied velocity committed.
	assert.InDelta(t, 51.2/3.6, c.Profile().W, 1e-9)
}

func TestBeginDragReanchors(t *testing.T) {
	c := preparedController(t)
	before, err := c.Nodes()
	require.NoError(t, err)

	require.NoError(t, c.BeginDrag(2))
	assert.Equal(t, 2, c.Profile().Anchor)

	after, err := c.Nodes()
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.InDelta(t, before[i].Velocity, after[i].Velocity, 1e-9, "re-anchoring must not move node %d", i)
	}

	// Dragging node 2 now moves node 2 in the drag direction.
	nodes, err := c.UpdateRealtime(50, MethodDirect)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, nodes[2].Velocity, 1e-9)
}

func TestBeginDragBadIndex(t *testing.T) {
	c := preparedController(t)
	var aerr *AnchorError
	require.ErrorAs(t, c.BeginDrag(3), &aerr)
	require.ErrorAs(t, c.BeginDrag(-1), &aerr)
	assert.Equal(t, Prepared, c.State())
}

// Editing a non-anchor node's velocity implies an anchor velocity; applying
// it must reproduce the edited value at that node.
func TestReverseAnchorRoundTrip(t *testing.T) {
	c := preparedController(t)

	for _, tc := range []struct {
		point  int
		target float64 // km/h, unclamped at every node for this profile
	}{
		{0, 40},
		{1, 30},
		{2, 25},
	} {
		w, err := c.ReverseAnchorFromPoint(tc.point, tc.target)
		require.NoError(t, err)

		nodes, err := c.UpdateRealtime(w, MethodDirect)
		require.NoError(t, err)
		assert.InDelta(t, tc.target, nodes[tc.point].Velocity, 1e-6, "point %d", tc.point)
	}
}

func TestReverseAnchorBadIndex(t *testing.T) {
	c := preparedController(t)
	_, err := c.ReverseAnchorFromPoint(3, 40)
	require.Error(t, err)
	_, err = c.ReverseAnchorFromPoint(-1, 40)
	require.Error(t, err)
}

// After a clamp, the stored coefficients keep the true affine value, so
// recomputing from the same w reproduces the clamped presentation value,
// not the raw one — and round-tripping through the clamped value no longer
// recovers the original w.
func TestClampBreaksRoundTrip(t *testing.T) {
	c := preparedController(t)

	// w=25 m/s drives node 1 to -5 m/s internally, presented as 0.
	nodes, err := c.UpdateRealtime(90, MethodDirect)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, nodes[1].Velocity, 1e-12)
	assert.InDelta(t, -5.0, c.Profile().Velocities()[1], 1e-9)

	// Idempotent: same w keeps presenting the clamped value.
	again, err := c.UpdateRealtime(90, MethodDirect)
	require.NoError(t, err)
	assert.Equal(t, nodes, again)

	// Inverting from the clamped 0 yields 20 m/s (72 km/h), not the
	// committed 25 m/s: the clamp broke exact invertibility.
	w, err := c.ReverseAnchorFromPoint(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 72.0, w, 1e-6)
}
