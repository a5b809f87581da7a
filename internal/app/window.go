package app

import (
	"fmt"
	"sort"
	"time"
)

// ComputeWindow derives the fetch window from the schedule slots: the
// window ends at the latest slot not after now and starts at the slot
// before it. When now precedes every slot of the day, both bounds roll
// back to the previous day's last slot.
func ComputeWindow(now time.Time, slots []string) (time.Time, time.Time, error) {
	if len(slots) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("no schedule slots configured")
	}

	parsed := make([]time.Duration, 0, len(slots))
	for _, slot := range slots {
		t, err := time.Parse("15:04", slot)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid schedule time %q: %w", slot, err)
		}
		parsed = append(parsed, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i] < parsed[j] })

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayLast := midnight.AddDate(0, 0, -1).Add(parsed[len(parsed)-1])

	var latest time.Time
	for _, offset := range parsed {
		if scheduled := midnight.Add(offset); !scheduled.After(now) {
			latest = scheduled
		}
	}
	if latest.IsZero() {
		latest = yesterdayLast
	}

	var previous time.Time
	for _, offset := range parsed {
		if scheduled := midnight.Add(offset); scheduled.Before(latest) {
			previous = scheduled
		}
	}
	if previous.IsZero() {
		previous = yesterdayLast
	}

	return previous, latest, nil
}
