package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/segment"
)

func testProfile(t *testing.T) profile.Profile {
	t.Helper()
	segs := []segment.Segment{
		{FrameStart: 0, FrameEnd: 30, Distance: 10},
		{FrameStart: 30, FrameEnd: 60, Distance: 8},
	}
	p, err := profile.Build(segs, 30, 0, 1e-6)
	require.NoError(t, err)
	return p
}

func TestStepSeries(t *testing.T) {
	series := StepSeries(testProfile(t), "kmph")
	require.Len(t, series, 4)

	// Segment 0 averages 10 m/s (36 km/h) from t=0 to t=1.
	assert.Equal(t, profile.Node{Time: 0, Velocity: 36}, series[0])
	assert.Equal(t, profile.Node{Time: 1, Velocity: 36}, series[1])
	// Segment 1 averages 8 m/s (28.8 km/h).
	assert.InDelta(t, 28.8, series[2].Velocity, 1e-9)
	assert.InDelta(t, 28.8, series[3].Velocity, 1e-9)

	assert.Empty(t, StepSeries(profile.Profile{}, "kmph"))
}

func TestCompare(t *testing.T) {
	nodes := []profile.Node{{Time: 0, Velocity: 36}, {Time: 1, Velocity: 36}, {Time: 2, Velocity: 21.6}}

	t.Run("perfect match", func(t *testing.T) {
		m := Compare(nodes, nodes)
		assert.Equal(t, 3, m.Points)
		assert.InDelta(t, 0.0, m.RMSE, 1e-12)
		assert.InDelta(t, 0.0, m.Bias, 1e-12)
	})

	t.Run("interpolated midpoints", func(t *testing.T) {
		truth := []profile.Node{{Time: 0.5, Velocity: 36}, {Time: 1.5, Velocity: 28.8}}
		m := Compare(nodes, truth)
		assert.Equal(t, 2, m.Points)
		assert.InDelta(t, 0.0, m.RMSE, 1e-9)
	})

	t.Run("constant offset", func(t *testing.T) {
		truth := []profile.Node{{Time: 0, Velocity: 34}, {Time: 1, Velocity: 34}}
		m := Compare(nodes, truth)
		assert.InDelta(t, 2.0, m.RMSE, 1e-9)
		assert.InDelta(t, 2.0, m.Bias, 1e-9)
		assert.InDelta(t, 2.0, m.MaxAbs, 1e-9)
	})

	t.Run("out of range points ignored", func(t *testing.T) {
		truth := []profile.Node{{Time: -1, Velocity: 0}, {Time: 5, Velocity: 0}, {Time: 1, Velocity: 36}}
		m := Compare(nodes, truth)
		assert.Equal(t, 1, m.Points)
	})

	t.Run("no overlap", func(t *testing.T) {
		m := Compare(nodes, []profile.Node{{Time: 99, Velocity: 1}})
		assert.Equal(t, Metrics{}, m)
	})
}

func TestRenderChart(t *testing.T) {
	p := testProfile(t)
	var buf bytes.Buffer
	err := RenderChart(&buf, ChartData{
		Title:       "case 42-A",
		Units:       "kmph",
		Nodes:       p.Nodes("kmph"),
		Steps:       StepSeries(p, "kmph"),
		GroundTruth: []profile.Node{{Time: 0, Velocity: 35}, {Time: 2, Velocity: 22}},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "case 42-A")
	assert.Contains(t, html, "Optimization Velocity")
	assert.Contains(t, html, "Ground Truth Velocity")
}

func TestSavePNG(t *testing.T) {
	p := testProfile(t)
	path := filepath.Join(t.TempDir(), "profile.png")

	err := SavePNG(path, ChartData{
		Title: "case 42-A",
		Units: "kmph",
		Nodes: p.Nodes("kmph"),
		Steps: StepSeries(p, "kmph"),
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestParseGroundTruthCSV(t *testing.T) {
	t.Run("plain numeric rows", func(t *testing.T) {
		points, err := ParseGroundTruthCSV(strings.NewReader("0,35.2\n0.5,36.1\n1.0,36.4\n"))
		require.NoError(t, err)
		require.Len(t, points, 3)
		assert.Equal(t, profile.Node{Time: 0.5, Velocity: 36.1}, points[1])
	})

	t.Run("header row tolerated", func(t *testing.T) {
		points, err := ParseGroundTruthCSV(strings.NewReader("time,velocity\n0,35.2\n0.5,36.1\n"))
		require.NoError(t, err)
		assert.Len(t, points, 2)
	})

	t.Run("extra columns ignored", func(t *testing.T) {
		points, err := ParseGroundTruthCSV(strings.NewReader("0,35.2,gps\n0.5,36.1,gps\n"))
		require.NoError(t, err)
		assert.Len(t, points, 2)
	})

	t.Run("single column rejected", func(t *testing.T) {
		_, err := ParseGroundTruthCSV(strings.NewReader("35.2\n36.1\n"))
		require.Error(t, err)
	})

	t.Run("non-numeric data row rejected", func(t *testing.T) {
		_, err := ParseGroundTruthCSV(strings.NewReader("0,35.2\nabc,36.1\n"))
		require.Error(t, err)
	})

	t.Run("header only rejected", func(t *testing.T) {
		_, err := ParseGroundTruthCSV(strings.NewReader("time,velocity\n"))
		require.Error(t, err)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := ParseGroundTruthCSV(strings.NewReader(""))
		require.Error(t, err)
	})
}
