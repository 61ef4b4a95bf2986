// Package invalidation defines the boundary-update event that evicts cached
// administrative boundaries.
package invalidation

import (
	"fmt"
	"strings"
	"time"

	"github.com/udmkit/fishnet/internal/model"
)

// Event announces that the upstream boundary dataset changed for a set of
// area codes. Consumers drop any cached boundary for those codes so the
// next run refetches them.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Codes   []string  `json:"codes"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "update", "delete":
	default:
		return fmt.Errorf("op must be update|delete")
	}
	if len(e.Codes) == 0 {
		return fmt.Errorf("at least one area code is required")
	}
	for _, c := range e.Codes {
		if !model.ValidAreaCode(strings.TrimSpace(c)) {
			return fmt.Errorf("malformed area code %q", c)
		}
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
