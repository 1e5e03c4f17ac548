package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"carwash/internal/model"
)

type interval struct {
	start, end time.Time
}

func (iv interval) contains(t time.Time) bool {
	return !t.Before(iv.start) && t.Before(iv.end)
}

// weekday maps Go weekdays onto the stored 0=Monday..6=Sunday convention.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// parseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	var units [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		units[i] = n
	}
	if units[0] > 24 || units[1] > 59 || units[2] > 59 || (units[0] == 24 && units[1]+units[2] > 0) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(units[0])*time.Hour + time.Duration(units[1])*time.Minute + time.Duration(units[2])*time.Second, nil
}

// lastSecond closes a row that has no end time.
const lastSecond = 24*time.Hour - time.Second

func rowBounds(r model.WorkingHour) (start, end time.Duration, err error) {
	start, end = 0, lastSecond
	if r.StartTime != "" {
		if start, err = parseClock(r.StartTime); err != nil {
			return
		}
	}
	if r.EndTime != "" {
		if end, err = parseClock(r.EndTime); err != nil {
			return
		}
	}
	return
}

// at builds the wall-clock instant offset from the midnight of day.
func at(dayStart time.Time, offset time.Duration) time.Time {
	y, m, d := dayStart.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, dayStart.Location()).Add(offset)
}

// workingIntervals returns the merged working intervals of the day starting at
// dayStart. No rows at all means the car wash never closes.
func workingIntervals(rows []model.WorkingHour, dayStart, dayEnd time.Time) ([]interval, error) {
	if len(rows) == 0 {
		return []interval{{dayStart, dayEnd}}, nil
	}

	today := weekday(dayStart)
	yesterday := (today + 6) % 7

	var out []interval
	for _, r := range rows {
		if r.NonWorking {
			continue
		}
		st, et, err := rowBounds(r)
		if err != nil {
			return nil, err
		}
		switch {
		case r.DayOfWeek == today && st <= et:
			out = append(out, interval{at(dayStart, st), at(dayStart, et)})
		case r.DayOfWeek == today:
			out = append(out, interval{at(dayStart, st), dayEnd})
		}
		if r.DayOfWeek == yesterday && st > et {
			out = append(out, interval{dayStart, at(dayStart, et)})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	merged := make([]interval, 0, len(out))
	for _, iv := range out {
		if !iv.end.After(iv.start) {
			continue
		}
		if n := len(merged); n > 0 && !iv.start.After(merged[n-1].end) {
			if iv.end.After(merged[n-1].end) {
				merged[n-1].end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged, nil
}
