package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/motion.profile/internal/profile"
)

// ParseGroundTruthCSV reads a reference velocity trace: at least two columns,
// time in seconds then velocity. A single non-numeric header row is
// tolerated; anything else non-numeric is an error.
func ParseGroundTruthCSV(r io.Reader) ([]profile.Node, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // column count checked per row
	reader.TrimLeadingSpace = true

	var points []profile.Node
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ground truth CSV: %w", err)
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("ground truth CSV line %d: need at least 2 columns (time, velocity), got %d", line, len(record))
		}

		t, errT := strconv.ParseFloat(record[0], 64)
		v, errV := strconv.ParseFloat(record[1], 64)
		if errT != nil || errV != nil {
			if line == 1 {
				// Header row
				continue
			}
			return nil, fmt.Errorf("ground truth CSV line %d: time and velocity must be numeric", line)
		}

		points = append(points, profile.Node{Time: t, Velocity: v})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("ground truth CSV contains no data points")
	}
	return points, nil
}
