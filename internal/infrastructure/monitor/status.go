package monitor

import "time"

// Status is the last observed state of every probed dependency.
type Status struct {
	Components map[string]bool `json:"components"`
	OutboxSize int             `json:"outbox_size"`
	LastCheck  time.Time       `json:"last_check"`
}

// Healthy reports whether every probed component answered.
func (s Status) Healthy() bool {
	for _, up := range s.Components {
		if !up {
			return false
		}
	}
	return true
}
