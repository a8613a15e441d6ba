// Package schedule spreads a batch of publish timestamps across a daily window.
package schedule

import "time"

// MinSpan is used when the window is empty or inverted.
const MinSpan = time.Hour

// Spread returns start + i × span/max(total,1). span is end-start, or MinSpan
// when end is not after start.
func Spread(i, total int, start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		span = MinSpan
	}
	if total < 1 {
		total = 1
	}
	step := span / time.Duration(total)
	return start.Add(step * time.Duration(i))
}

// Window is a daily publishing window in hours, [StartHour, EndHour).
type Window struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Bounds anchors the window on now's calendar day.
func (w Window) Bounds(now time.Time) (start, end time.Time) {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()
	start = time.Date(y, m, d, w.StartHour, 0, 0, 0, loc)
	end = time.Date(y, m, d, w.EndHour, 0, 0, 0, loc)
	return start, end
}

// At schedules item i of total within today's window.
func (w Window) At(now time.Time, i, total int) time.Time {
	start, end := w.Bounds(now)
	return Spread(i, total, start, end)
}

// Scheduler hands out consecutive slots for one batch.
type Scheduler struct {
	window Window
	now    time.Time
	total  int
}

func (w Window) Batch(now time.Time, total int) *Scheduler {
	return &Scheduler{window: w, now: now, total: total}
}

func (s *Scheduler) Slot(i int) time.Time {
	return s.window.At(s.now, i, s.total)
}
