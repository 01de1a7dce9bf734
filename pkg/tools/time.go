package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TimeTool reports the current time in RFC3339 format. An IANA zone name
// as input selects the zone; empty input means UTC.
type TimeTool struct {
	now func() time.Time
}

func (t *TimeTool) Name() string { return "time" }
func (t *TimeTool) Description() string {
	return "Returns the current time. Input is an optional IANA zone such as 'Asia/Ho_Chi_Minh'."
}

func (t *TimeTool) Run(_ context.Context, input string) (string, error) {
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	zone := strings.TrimSpace(input)
	if zone == "" {
		return now().UTC().Format(time.RFC3339), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("unknown time zone %q", zone)
	}
	return now().In(loc).Format(time.RFC3339), nil
}
