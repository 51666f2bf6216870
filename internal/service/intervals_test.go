package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestTotalOnTimeClosedAndCensoredIntervals(t *testing.T) {
	windowEnd := ts(t, "2025-03-10T10:00:00Z")
	samples := []ToggleSample{
		{At: ts(t, "2025-03-10T08:00:00Z"), On: true},
		{At: ts(t, "2025-03-10T08:30:00Z"), On: false},
		{At: ts(t, "2025-03-10T09:00:00Z"), On: true},
	}

	// 30 minutes closed plus one hour censored at the window end
	total := TotalOnTime(samples, windowEnd)
	require.Equal(t, 90*time.Minute, total)
}

func TestTotalOnTimeOrderIndependent(t *testing.T) {
	windowEnd := ts(t, "2025-03-10T23:59:59Z")
	ordered := []ToggleSample{
		{At: ts(t, "2025-03-10T06:00:00Z"), On: true},
		{At: ts(t, "2025-03-10T07:15:00Z"), On: false},
		{At: ts(t, "2025-03-10T20:00:00Z"), On: true},
		{At: ts(t, "2025-03-10T21:00:00Z"), On: false},
	}
	shuffled := []ToggleSample{ordered[2], ordered[0], ordered[3], ordered[1]}

	require.Equal(t, TotalOnTime(ordered, windowEnd), TotalOnTime(shuffled, windowEnd))
	require.Equal(t, 2*time.Hour+15*time.Minute, TotalOnTime(shuffled, windowEnd))
}

func TestTotalOnTimeRepeatedOnKeepsLaterTimestamp(t *testing.T) {
	windowEnd := ts(t, "2025-03-10T12:00:00Z")
	samples := []ToggleSample{
		{At: ts(t, "2025-03-10T08:00:00Z"), On: true},
		{At: ts(t, "2025-03-10T09:00:00Z"), On: true},
		{At: ts(t, "2025-03-10T10:00:00Z"), On: false},
	}

	// The second "on" restarts the interval, so only 09:00-10:00 counts.
	require.Equal(t, time.Hour, TotalOnTime(samples, windowEnd))
}

func TestTotalOnTimeOffWithoutPendingOnIsIgnored(t *testing.T) {
	windowEnd := ts(t, "2025-03-10T12:00:00Z")
	samples := []ToggleSample{
		{At: ts(t, "2025-03-10T08:00:00Z"), On: false},
		{At: ts(t, "2025-03-10T09:00:00Z"), On: true},
		{At: ts(t, "2025-03-10T09:30:00Z"), On: false},
	}

	require.Equal(t, 30*time.Minute, TotalOnTime(samples, windowEnd))
}

func TestTotalOnTimeNoSamples(t *testing.T) {
	require.Equal(t, time.Duration(0), TotalOnTime(nil, ts(t, "2025-03-10T23:59:59Z")))
}

func TestTotalOnTimeOnlyCensoredInterval(t *testing.T) {
	windowEnd := ts(t, "2025-03-10T23:59:59Z")
	samples := []ToggleSample{
		{At: ts(t, "2025-03-10T22:59:59Z"), On: true},
	}

	require.Equal(t, time.Hour, TotalOnTime(samples, windowEnd))
}
