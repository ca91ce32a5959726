// Package segment normalises raw measurement rows into validated segments.
//
// Measurement rows arrive loosely typed: a table cell or project document may
// carry frame numbers and distances as strings or as numbers. Normalisation
// happens exactly once, here, so every downstream consumer works with
// strongly-typed values.
package segment

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field is a measurement cell that accepts either a JSON number or a JSON
// string. Empty strings mark blank table cells.
type Field string

// UnmarshalJSON accepts numbers, strings, and null.
func (f *Field) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = Field(strings.TrimSpace(v))
		return nil
	}
	*f = Field(s)
	return nil
}

// MarshalJSON writes the field back out as a string, preserving blanks.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// IsBlank reports whether the cell holds no value.
func (f Field) IsBlank() bool {
	return strings.TrimSpace(string(f)) == ""
}

// Float parses the cell as a float64.
func (f Field) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
}

// Raw is one measurement row as supplied by the analyst or loaded from a
// project document.
type Raw struct {
	FrameStart Field `json:"frame_start"`
	FrameEnd   Field `json:"frame_end"`
	Distance   Field `json:"distance"`
}

// isBlank reports whether every measurement cell in the row is empty. Blank
// rows are legal in the table and are dropped before validation.
func (r Raw) isBlank() bool {
	return r.FrameStart.IsBlank() && r.FrameEnd.IsBlank() && r.Distance.IsBlank()
}

// Segment is a validated measurement: the object travelled Distance metres
// between the two video frames.
type Segment struct {
	Index      int     `json:"index"`
	FrameStart float64 `json:"frame_start"`
	FrameEnd   float64 `json:"frame_end"`
	Distance   float64 `json:"distance"` // metres
}

// Duration returns the segment's time span in seconds at the given frame rate.
func (s Segment) Duration(fps float64) float64 {
	return (s.FrameEnd - s.FrameStart) / fps
}

// Normalize validates an ordered list of raw rows against the frame rate and
// returns typed segments. Validation is all-or-nothing: the first failing row
// aborts the whole rebuild and no partial result is returned.
//
// Rows with every cell blank are skipped; a row with some but not all cells
// filled is an error.
func Normalize(rows []Raw, fps float64) ([]Segment, error) {
	if fps <= 0 {
		return nil, &ValidationError{Field: "fps", Reason: "fps must be positive, got " + strconv.FormatFloat(fps, 'g', -1, 64)}
	}

	segments := make([]Segment, 0, len(rows))
	for i, row := range rows {
		if row.isBlank() {
			continue
		}
		seg, err := normalizeRow(i+1, row, fps)
		if err != nil {
			return nil, err
		}
		seg.Index = len(segments)
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, &ValidationError{Reason: "no segments supplied"}
	}
	return segments, nil
}

func normalizeRow(num int, row Raw, fps float64) (Segment, error) {
	fields := []struct {
		name  string
		field Field
	}{
		{"frame_start", row.FrameStart},
		{"frame_end", row.FrameEnd},
		{"distance", row.Distance},
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		if f.field.IsBlank() {
			return Segment{}, &ValidationError{Segment: num, Field: f.name, Reason: "field missing"}
		}
		v, err := f.field.Float()
		if err != nil {
			return Segment{}, &ValidationError{Segment: num, Field: f.name, Reason: "not numeric: " + string(f.field)}
		}
		values[i] = v
	}

	seg := Segment{FrameStart: values[0], FrameEnd: values[1], Distance: values[2]}
	if seg.FrameEnd <= seg.FrameStart {
		return Segment{}, &ValidationError{Segment: num, Field: "frame_end", Reason: "frame_end must be greater than frame_start"}
	}
	if seg.Distance <= 0 {
		return Segment{}, &ValidationError{Segment: num, Field: "distance", Reason: "distance must be positive, got " + strconv.FormatFloat(seg.Distance, 'g', -1, 64)}
	}
	if seg.Duration(fps) <= 0 {
		return Segment{}, &ValidationError{Segment: num, Field: "duration", Reason: "segment duration must be positive"}
	}
	return seg, nil
}
