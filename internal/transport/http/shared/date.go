package shared

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts a plain calendar date or a full RFC3339 timestamp.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(dateLayout, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
