package scheduler

import "time"

// PassResult summarizes one refresh pass
type PassResult struct {
	Keys      int           `json:"keys"`
	Failures  int           `json:"failures"`
	Seeded    int           `json:"seeded"`
	Skipped   bool          `json:"skipped"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ActiveHours is a local-time window [Start, End) in whole hours. Start == End
// means always active; Start > End wraps past midnight.
type ActiveHours struct {
	Start int
	End   int
}

func (w ActiveHours) Contains(t time.Time) bool {
	if w.Start == w.End {
		return true
	}
	h := t.Hour()
	if w.Start < w.End {
		return h >= w.Start && h < w.End
	}
	return h >= w.Start || h < w.End
}
