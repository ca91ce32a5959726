package segment

import "fmt"

// ValidationError reports a rejected rebuild. Segment is the 1-based row
// number, or 0 when the failure is not tied to a single row.
type ValidationError struct {
	Segment int
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Segment > 0 {
		return fmt.Sprintf("segment %d: %s", e.Segment, e.Reason)
	}
	return e.Reason
}
