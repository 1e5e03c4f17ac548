// Package scheduler computes free time slots of a car wash for one day from
// its working hours, box capacity, appointments and the unscheduled queue.
// Results are advisory: nothing is reserved.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"carwash/internal/model"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
)

const (
	DefaultStep      = 15
	boxCountFallback = 1
)

// Occupancy is an appointment span holding one box.
type Occupancy struct {
	Start time.Time
	End   time.Time
	BoxID *uuid.UUID
}

// QueueEntry is a booking waiting without a fixed time.
type QueueEntry struct {
	DesiredTime *time.Time
	CreatedAt   time.Time
}

// Source provides the data the scheduler reads.
type Source interface {
	WorkingHours(ctx context.Context, carWashID uuid.UUID) ([]model.WorkingHour, error)
	EnabledBoxes(ctx context.Context, carWashID uuid.UUID) ([]uuid.UUID, error)
	AppointmentsOverlapping(ctx context.Context, carWashID uuid.UUID, start, end time.Time) ([]Occupancy, error)
	QueuedBookings(ctx context.Context, carWashID uuid.UUID) ([]QueueEntry, error)
}

type Options struct {
	StepMinutes     int
	MaxResults      int
	IncludeCapacity bool
	RespectQueue    bool
}

// DefaultOptions returns 15 minute steps honouring the queue.
func DefaultOptions() Options {
	return Options{StepMinutes: DefaultStep, RespectQueue: true}
}

type Slot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Capacity int       `json:"capacity,omitempty"`
}

// Input is everything Compute needs, already fetched.
type Input struct {
	Date         time.Time
	Now          time.Time
	Hours        []model.WorkingHour
	Boxes        int
	Appointments []Occupancy
	Queue        []QueueEntry
	Options      Options
}

type Scheduler struct {
	source Source
	now    func() time.Time
}

func New(source Source, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{source: source, now: now}
}

// FreeSlots returns the free slots of carWashID on the calendar day of date,
// interpreted in date's location.
func (s *Scheduler) FreeSlots(ctx context.Context, carWashID uuid.UUID, date time.Time, opts Options) ([]Slot, error) {
	if carWashID == uuid.Nil {
		return nil, apperror.Validation("car wash is required")
	}

	now := s.now().In(date.Location())
	dayStart, dayEnd := dayBounds(date)
	if !dayEnd.After(now) {
		return []Slot{}, nil
	}

	hours, err := s.source.WorkingHours(ctx, carWashID)
	if err != nil {
		return nil, fmt.Errorf("failed to load working hours: %w", err)
	}
	boxes, err := s.source.EnabledBoxes(ctx, carWashID)
	if err != nil {
		return nil, fmt.Errorf("failed to load boxes: %w", err)
	}
	appts, err := s.source.AppointmentsOverlapping(ctx, carWashID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	var queue []QueueEntry
	if opts.RespectQueue {
		if queue, err = s.source.QueuedBookings(ctx, carWashID); err != nil {
			return nil, fmt.Errorf("failed to load queue: %w", err)
		}
	}

	return Compute(Input{
		Date:         date,
		Now:          now,
		Hours:        hours,
		Boxes:        len(boxes),
		Appointments: appts,
		Queue:        queue,
		Options:      opts,
	})
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// ceil rounds t up to the step grid anchored at midnight of dayStart.
func ceil(t, dayStart time.Time, step time.Duration) time.Time {
	off := t.Sub(dayStart)
	if off <= 0 {
		return dayStart
	}
	k := (off + step - 1) / step
	return dayStart.Add(k * step)
}

type bucket struct {
	start    time.Time
	capacity int
}

// Compute runs the slot algorithm on pre-fetched data.
func Compute(in Input) ([]Slot, error) {
	stepMin := in.Options.StepMinutes
	if stepMin <= 0 {
		stepMin = DefaultStep
	}
	step := time.Duration(stepMin) * time.Minute

	dayStart, dayEnd := dayBounds(in.Date)
	now := in.Now
	if now.IsZero() {
		now = dayStart
	}
	now = now.In(dayStart.Location())
	if !dayEnd.After(now) {
		return []Slot{}, nil
	}

	first := dayStart
	if now.After(dayStart) {
		first = ceil(now, dayStart, step)
	}
	if !first.Before(dayEnd) {
		return []Slot{}, nil
	}

	intervals, err := workingIntervals(in.Hours, dayStart, dayEnd)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}

	boxes := in.Boxes
	if boxes <= 0 {
		boxes = boxCountFallback
	}

	var timeline []bucket
	for cur := first; cur.Before(dayEnd); cur = cur.Add(step) {
		c := 0
		for _, iv := range intervals {
			if iv.contains(cur) {
				c = boxes
				break
			}
		}
		timeline = append(timeline, bucket{start: cur, capacity: c})
	}

	applyAppointments(timeline, in.Appointments, step)
	if in.Options.RespectQueue {
		applyQueue(timeline, in.Queue, first, dayEnd, dayStart, step)
	}

	slots := make([]Slot, 0, len(timeline))
	for _, b := range timeline {
		if b.capacity <= 0 {
			continue
		}
		slot := Slot{Start: b.start, End: b.start.Add(step)}
		if in.Options.IncludeCapacity {
			slot.Capacity = b.capacity
		}
		slots = append(slots, slot)
		if in.Options.MaxResults > 0 && len(slots) >= in.Options.MaxResults {
			break
		}
	}
	return slots, nil
}

// applyAppointments takes one box from every bucket whose [s, s+step)
// overlaps the appointment span. Touching endpoints do not overlap.
func applyAppointments(timeline []bucket, appts []Occupancy, step time.Duration) {
	for _, a := range appts {
		start, end := a.Start, a.End
		if !end.After(start) {
			end = start.Add(model.DefaultWashDuration)
		}
		for i := range timeline {
			s := timeline[i].start
			if s.Before(end) && start.Before(s.Add(step)) && timeline[i].capacity > 0 {
				timeline[i].capacity--
			}
		}
	}
}

// applyQueue gives each queued booking, earliest first then FIFO, the first
// bucket at or after its earliest time that still has capacity.
func applyQueue(timeline []bucket, queue []QueueEntry, first, dayEnd, dayStart time.Time, step time.Duration) {
	type item struct {
		earliest time.Time
		created  time.Time
	}
	items := make([]item, 0, len(queue))
	for _, q := range queue {
		earliest := first
		if q.DesiredTime != nil && q.DesiredTime.After(first) {
			earliest = ceil(q.DesiredTime.In(dayStart.Location()), dayStart, step)
		}
		if !earliest.Before(dayEnd) {
			continue
		}
		items = append(items, item{earliest: earliest, created: q.CreatedAt})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].earliest.Equal(items[j].earliest) {
			return items[i].earliest.Before(items[j].earliest)
		}
		return items[i].created.Before(items[j].created)
	})

	for _, it := range items {
		for i := range timeline {
			if timeline[i].start.Before(it.earliest) || timeline[i].capacity <= 0 {
				continue
			}
			timeline[i].capacity--
			break
		}
	}
}
