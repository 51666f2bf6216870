package service

import (
	"sort"
	"time"
)

// ToggleSample is one power toggle drawn from the event log
type ToggleSample struct {
	At time.Time
	On bool
}

// TotalOnTime reconstructs on-intervals from toggle samples and returns the
// total powered-on duration within the window ending at windowEnd.
//
// The samples are sorted by timestamp before reconstruction, so the result
// is independent of input order. A repeated "on" keeps the later timestamp;
// an "off" with no pending "on" is ignored; an interval still open at the
// end of the window is censored there rather than dropped.
func TotalOnTime(samples []ToggleSample, windowEnd time.Time) time.Duration {
	sorted := make([]ToggleSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	var total time.Duration
	var pendingOn *time.Time

	for i := range sorted {
		s := sorted[i]
		if s.On {
			at := s.At
			pendingOn = &at
			continue
		}
		if pendingOn != nil {
			if s.At.After(*pendingOn) {
				total += s.At.Sub(*pendingOn)
			}
			pendingOn = nil
		}
	}

	if pendingOn != nil && windowEnd.After(*pendingOn) {
		total += windowEnd.Sub(*pendingOn)
	}

	return total
}
