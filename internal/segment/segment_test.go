package segment

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("valid rows", func(t *testing.T) {
		rows := []Raw{
			{FrameStart: "0", FrameEnd: "30", Distance: "10"},
			{FrameStart: "30", FrameEnd: "60", Distance: "8"},
		}
		segs, err := Normalize(rows, 30)
		require.NoError(t, err)
		require.Len(t, segs, 2)
		assert.Equal(t, 0, segs[0].Index)
		assert.Equal(t, 1, segs[1].Index)
		assert.Equal(t, 10.0, segs[0].Distance)
		assert.InDelta(t, 1.0, segs[0].Duration(30), 1e-12)
	})

	t.Run("blank rows are skipped", func(t *testing.T) {
		rows := []Raw{
			{FrameStart: "0", FrameEnd: "30", Distance: "10"},
			{},
			{FrameStart: "  ", FrameEnd: "", Distance: ""},
			{FrameStart: "30", FrameEnd: "60", Distance: "8"},
		}
		segs, err := Normalize(rows, 30)
		require.NoError(t, err)
		require.Len(t, segs, 2)
		assert.Equal(t, 8.0, segs[1].Distance)
	})

	t.Run("empty list rejected", func(t *testing.T) {
		_, err := Normalize(nil, 30)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 0, verr.Segment)
	})

	t.Run("all-blank list rejected", func(t *testing.T) {
		_, err := Normalize([]Raw{{}, {}}, 30)
		require.Error(t, err)
	})

	t.Run("partially filled row rejected", func(t *testing.T) {
		rows := []Raw{{FrameStart: "0", FrameEnd: "30"}}
		_, err := Normalize(rows, 30)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 1, verr.Segment)
		assert.Equal(t, "distance", verr.Field)
	})

	t.Run("non-numeric field rejected", func(t *testing.T) {
		rows := []Raw{{FrameStart: "abc", FrameEnd: "30", Distance: "10"}}
		_, err := Normalize(rows, 30)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "frame_start", verr.Field)
	})

	t.Run("frame order enforced", func(t *testing.T) {
		rows := []Raw{{FrameStart: "30", FrameEnd: "30", Distance: "10"}}
		_, err := Normalize(rows, 30)
		require.Error(t, err)

		rows = []Raw{{FrameStart: "60", FrameEnd: "30", Distance: "10"}}
		_, err = Normalize(rows, 30)
		require.Error(t, err)
	})

	t.Run("distance must be positive", func(t *testing.T) {
		rows := []Raw{{FrameStart: "0", FrameEnd: "30", Distance: "-1"}}
		_, err := Normalize(rows, 30)
		require.Error(t, err)

		rows = []Raw{{FrameStart: "0", FrameEnd: "30", Distance: "0"}}
		_, err = Normalize(rows, 30)
		require.Error(t, err)
	})

	t.Run("fps must be positive", func(t *testing.T) {
		rows := []Raw{{FrameStart: "0", FrameEnd: "30", Distance: "10"}}
		_, err := Normalize(rows, 0)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "fps", verr.Field)

		_, err = Normalize(rows, -30)
		require.Error(t, err)
	})

	t.Run("error row number counts blank rows", func(t *testing.T) {
		rows := []Raw{
			{},
			{FrameStart: "0", FrameEnd: "30", Distance: "bad"},
		}
		_, err := Normalize(rows, 30)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 2, verr.Segment)
	})
}

func TestFieldJSON(t *testing.T) {
	t.Run("accepts numbers and strings", func(t *testing.T) {
		var row Raw
		err := json.Unmarshal([]byte(`{"frame_start": 0, "frame_end": "30", "distance": 10.5}`), &row)
		require.NoError(t, err)

		segs, err := Normalize([]Raw{row}, 30)
		require.NoError(t, err)
		assert.Equal(t, 10.5, segs[0].Distance)
	})

	t.Run("null becomes blank", func(t *testing.T) {
		var row Raw
		err := json.Unmarshal([]byte(`{"frame_start": null, "frame_end": null, "distance": null}`), &row)
		require.NoError(t, err)
		assert.True(t, row.isBlank())
	})

	t.Run("string values are trimmed", func(t *testing.T) {
		var row Raw
		err := json.Unmarshal([]byte(`{"frame_start": " 0 ", "frame_end": "30", "distance": " 10 "}`), &row)
		require.NoError(t, err)
		_, err = Normalize([]Raw{row}, 30)
		assert.NoError(t, err)
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Segment: 3, Field: "distance", Reason: "distance must be positive, got -2"}
	assert.Equal(t, "segment 3: distance must be positive, got -2", err.Error())

	global := &ValidationError{Reason: "no segments supplied"}
	assert.Equal(t, "no segments supplied", global.Error())

	// ValidationError is usable with errors.As through wrapping.
	var target *ValidationError
	assert.True(t, errors.As(err, &target))
}
