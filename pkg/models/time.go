package models

import (
	"fmt"
	"strings"
	"time"
)

// FlexTime is a time.Time that additionally accepts naive ISO-8601 strings
// (no timezone designator) on input, interpreting them as UTC. Browser clients
// send RFC 3339; backend integrations occasionally post naive timestamps.
type FlexTime struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewFlexTime wraps t.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{Time: t}
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp: %q", s)
}
