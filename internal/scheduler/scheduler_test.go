package scheduler

import (
	"context"
	"testing"
	"time"

	"carwash/internal/model"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	before = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
)

func hm(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func mondayHours(start, end string) []model.WorkingHour {
	return []model.WorkingHour{{DayOfWeek: 0, StartTime: start, EndTime: end}}
}

func capacities(slots []Slot) map[string]int {
	out := make(map[string]int, len(slots))
	for _, s := range slots {
		out[s.Start.Format("15:04")] = s.Capacity
	}
	return out
}

func TestCompute_WorkingDayTwoBoxes(t *testing.T) {
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   mondayHours("08:00", "18:00"),
		Boxes:   2,
		Options: Options{StepMinutes: 60, IncludeCapacity: true, RespectQueue: true},
	})
	require.NoError(t, err)
	require.Len(t, slots, 10)
	assert.Equal(t, hm(8, 0), slots[0].Start)
	assert.Equal(t, hm(18, 0), slots[9].End)
	for _, s := range slots {
		assert.Equal(t, 2, s.Capacity)
	}
}

func TestCompute_AppointmentTakesOneBox(t *testing.T) {
	slots, err := Compute(Input{
		Date:         monday,
		Now:          before,
		Hours:        mondayHours("08:00", "18:00"),
		Boxes:        2,
		Appointments: []Occupancy{{Start: hm(10, 0), End: hm(11, 0)}},
		Options:      Options{StepMinutes: 60, IncludeCapacity: true},
	})
	require.NoError(t, err)
	require.Len(t, slots, 10)
	caps := capacities(slots)
	assert.Equal(t, 1, caps["10:00"])
	for k, v := range caps {
		if k != "10:00" {
			assert.Equal(t, 2, v, k)
		}
	}
}

func TestCompute_TouchingEndpointsDoNotOverlap(t *testing.T) {
	slots, err := Compute(Input{
		Date:         monday,
		Now:          before,
		Hours:        mondayHours("08:00", "12:00"),
		Boxes:        1,
		Appointments: []Occupancy{{Start: hm(9, 0), End: hm(10, 0)}},
		Options:      Options{StepMinutes: 60, IncludeCapacity: true},
	})
	require.NoError(t, err)
	caps := capacities(slots)
	assert.NotContains(t, caps, "09:00")
	assert.Equal(t, 1, caps["08:00"])
	assert.Equal(t, 1, caps["10:00"])
}

func TestCompute_AppointmentWithoutEndUsesDefaultDuration(t *testing.T) {
	slots, err := Compute(Input{
		Date:         monday,
		Now:          before,
		Hours:        mondayHours("10:00", "11:00"),
		Boxes:        1,
		Appointments: []Occupancy{{Start: hm(10, 0), End: hm(10, 0)}},
		Options:      Options{StepMinutes: 15, IncludeCapacity: true},
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, hm(10, 45), slots[0].Start)
}

func TestCompute_QueueFIFO(t *testing.T) {
	created := before
	queue := []QueueEntry{
		{CreatedAt: created.Add(2 * time.Minute)},
		{CreatedAt: created},
		{CreatedAt: created.Add(time.Minute)},
	}
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   mondayHours("09:00", "13:00"),
		Boxes:   1,
		Queue:   queue,
		Options: Options{StepMinutes: 60, IncludeCapacity: true, RespectQueue: true},
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, hm(12, 0), slots[0].Start)
}

func TestCompute_QueueOverflowIsSilent(t *testing.T) {
	queue := make([]QueueEntry, 5)
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   mondayHours("09:00", "10:00"),
		Boxes:   1,
		Queue:   queue,
		Options: Options{StepMinutes: 60, RespectQueue: true},
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCompute_QueueDesiredTime(t *testing.T) {
	desired := hm(11, 0)
	queue := []QueueEntry{
		{DesiredTime: &desired, CreatedAt: before},
		{CreatedAt: before.Add(time.Minute)},
	}
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   mondayHours("09:00", "13:00"),
		Boxes:   1,
		Queue:   queue,
		Options: Options{StepMinutes: 60, IncludeCapacity: true, RespectQueue: true},
	})
	require.NoError(t, err)
	caps := capacities(slots)
	assert.Len(t, caps, 2)
	assert.Contains(t, caps, "10:00")
	assert.Contains(t, caps, "12:00")
}

func TestCompute_QueueIgnoredWhenNotRespected(t *testing.T) {
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   mondayHours("09:00", "10:00"),
		Boxes:   1,
		Queue:   make([]QueueEntry, 3),
		Options: Options{StepMinutes: 60},
	})
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestCompute_NoHoursMeansAllDayAndNoBoxesMeansOne(t *testing.T) {
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Options: Options{StepMinutes: 60, IncludeCapacity: true},
	})
	require.NoError(t, err)
	require.Len(t, slots, 24)
	for _, s := range slots {
		assert.Equal(t, 1, s.Capacity)
	}
}

func TestCompute_NonWorkingDay(t *testing.T) {
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   []model.WorkingHour{{DayOfWeek: 0, NonWorking: true}, {DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00"}},
		Boxes:   3,
		Options: Options{StepMinutes: 60},
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCompute_OvernightRowCarriesIntoNextDay(t *testing.T) {
	hours := []model.WorkingHour{
		{DayOfWeek: 6, StartTime: "20:00", EndTime: "02:00"},
		{DayOfWeek: 0, StartTime: "08:00", EndTime: "10:00"},
	}
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   hours,
		Boxes:   1,
		Options: Options{StepMinutes: 60},
	})
	require.NoError(t, err)
	var starts []string
	for _, s := range slots {
		starts = append(starts, s.Start.Format("15:04"))
	}
	assert.Equal(t, []string{"00:00", "01:00", "08:00", "09:00"}, starts)
}

func TestCompute_OverlappingRowsMerge(t *testing.T) {
	hours := []model.WorkingHour{
		{DayOfWeek: 0, StartTime: "08:00", EndTime: "12:00"},
		{DayOfWeek: 0, StartTime: "11:00", EndTime: "13:00"},
	}
	slots, err := Compute(Input{Date: monday, Now: before, Hours: hours, Boxes: 2, Options: Options{StepMinutes: 60, IncludeCapacity: true}})
	require.NoError(t, err)
	require.Len(t, slots, 5)
	for _, s := range slots {
		assert.Equal(t, 2, s.Capacity)
	}
}

func TestCompute_PastDateAndToday(t *testing.T) {
	slots, err := Compute(Input{Date: monday, Now: hm(24+1, 0), Options: Options{StepMinutes: 60}})
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = Compute(Input{
		Date:    monday,
		Now:     hm(10, 20),
		Hours:   mondayHours("08:00", "12:00"),
		Boxes:   1,
		Options: Options{StepMinutes: 15},
	})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, hm(10, 30), slots[0].Start)
	assert.Len(t, slots, 6)
}

func TestCompute_MaxResults(t *testing.T) {
	slots, err := Compute(Input{
		Date:    monday,
		Now:     before,
		Hours:   mondayHours("08:00", "18:00"),
		Boxes:   2,
		Options: Options{StepMinutes: 15, MaxResults: 3},
	})
	require.NoError(t, err)
	assert.Len(t, slots, 3)
	assert.Zero(t, slots[0].Capacity)
}

func TestCompute_InvalidHours(t *testing.T) {
	_, err := Compute(Input{Date: monday, Now: before, Hours: mondayHours("8am", "18:00")})
	assert.True(t, apperror.IsValidation(err))
}

func TestTimeline_CapacityNeverNegative(t *testing.T) {
	step := 30 * time.Minute
	var timeline []bucket
	for cur := hm(8, 0); cur.Before(hm(12, 0)); cur = cur.Add(step) {
		timeline = append(timeline, bucket{start: cur, capacity: 2})
	}
	var appts []Occupancy
	for i := 0; i < 5; i++ {
		appts = append(appts, Occupancy{Start: hm(8, 0), End: hm(11, 0)})
	}
	applyAppointments(timeline, appts, step)
	applyQueue(timeline, make([]QueueEntry, 10), hm(8, 0), hm(24, 0), monday, step)

	used := 0
	for _, b := range timeline {
		assert.GreaterOrEqual(t, b.capacity, 0)
		assert.LessOrEqual(t, 2-b.capacity, 2)
		used += 2 - b.capacity
	}
	assert.Equal(t, 2*len(timeline), used)
}

type fakeSource struct {
	hours       []model.WorkingHour
	boxes       []uuid.UUID
	appts       []Occupancy
	queue       []QueueEntry
	queueCalled bool
}

func (f *fakeSource) WorkingHours(context.Context, uuid.UUID) ([]model.WorkingHour, error) {
	return f.hours, nil
}

func (f *fakeSource) EnabledBoxes(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.boxes, nil
}

func (f *fakeSource) AppointmentsOverlapping(context.Context, uuid.UUID, time.Time, time.Time) ([]Occupancy, error) {
	return f.appts, nil
}

func (f *fakeSource) QueuedBookings(context.Context, uuid.UUID) ([]QueueEntry, error) {
	f.queueCalled = true
	return f.queue, nil
}

func TestScheduler_FreeSlots(t *testing.T) {
	src := &fakeSource{
		hours: mondayHours("08:00", "18:00"),
		boxes: []uuid.UUID{uuid.New(), uuid.New()},
		appts: []Occupancy{{Start: hm(10, 0), End: hm(11, 0)}},
	}
	s := New(src, func() time.Time { return before })

	slots, err := s.FreeSlots(context.Background(), uuid.New(), monday, Options{StepMinutes: 60, IncludeCapacity: true})
	require.NoError(t, err)
	assert.Len(t, slots, 10)
	assert.Equal(t, 1, capacities(slots)["10:00"])
	assert.False(t, src.queueCalled)

	_, err = s.FreeSlots(context.Background(), uuid.New(), monday, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, src.queueCalled)
}

func TestScheduler_RequiresCarWash(t *testing.T) {
	s := New(&fakeSource{}, nil)
	_, err := s.FreeSlots(context.Background(), uuid.Nil, monday, DefaultOptions())
	assert.True(t, apperror.IsValidation(err))
}

func TestParseClock(t *testing.T) {
	d, err := parseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+30*time.Minute, d)

	d, err = parseClock("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Second, d)

	d, err = parseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	for _, bad := range []string{"", "8", "aa:bb", "25:00", "10:75", "24:30", "24:00:01"} {
		_, err := parseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestRowBounds_MissingTimes(t *testing.T) {
	start, end, err := rowBounds(model.WorkingHour{DayOfWeek: 0})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), start)
	assert.Equal(t, 24*time.Hour-time.Second, end)

	start, end, err = rowBounds(model.WorkingHour{StartTime: "09:00", EndTime: "24:00"})
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour, start)
	assert.Equal(t, 24*time.Hour, end)
}
