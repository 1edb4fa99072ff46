// Package schedule computes appointment availability on a fixed 30-minute
// grid inside a business-hours template, and answers booking-time conflict
// queries.
//
// All arithmetic runs in a single fixed time reference (UTC). Locations
// whose local hours differ from that reference are a known limitation
// pending a per-location time-zone attribute.
package schedule

import "time"

// GridUnit is the slot granularity for candidate appointment starts.
const GridUnit = 30 * time.Minute

// Booking is an appointment interval. The interval is half-open:
// [Start, Start+Duration).
type Booking struct {
	Start    time.Time
	Duration time.Duration
}

// End returns the exclusive end of the booking interval.
func (b Booking) End() time.Time { return b.Start.Add(b.Duration) }

// span is a daily open interval in minutes from midnight.
type span struct {
	open  int
	close int
}

// Hours is the daily business-hours template: a morning block and an
// afternoon block with a midday gap that candidate runs must never bridge.
type Hours struct {
	blocks []span
}

// DefaultHours is 09:00–12:00 and 13:00–17:00.
func DefaultHours() Hours {
	return Hours{blocks: []span{
		{open: 9 * 60, close: 12 * 60},
		{open: 13 * 60, close: 17 * 60},
	}}
}

// gridStarts enumerates every grid slot start within business hours on the
// given day, in order.
func (h Hours) gridStarts(day time.Time) []time.Time {
	y, m, d := day.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	unit := int(GridUnit / time.Minute)
	var starts []time.Time
	for _, b := range h.blocks {
		for min := b.open; min+unit <= b.close; min += unit {
			starts = append(starts, midnight.Add(time.Duration(min)*time.Minute))
		}
	}
	return starts
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasConflict reports whether the candidate overlaps any existing booking,
// short-circuiting on the first overlap. Callers must re-run this at write
// time: the listing and booking calls are not transactionally linked, and
// the authoritative guarantee is the store's exclusion constraint.
func HasConflict(candidate Booking, existing []Booking) bool {
	for _, b := range existing {
		if Overlaps(candidate.Start, candidate.End(), b.Start, b.End()) {
			return true
		}
	}
	return false
}

// FreeSlots returns the ordered start times on day at which a booking of
// the requested duration fits entirely inside free, contiguous,
// business-hours grid slots. Runs that would jump the midday gap are never
// offered.
func FreeSlots(day time.Time, duration time.Duration, existing []Booking, hours Hours) []time.Time {
	starts := hours.gridStarts(day)
	if len(starts) == 0 || duration <= 0 {
		return nil
	}

	// Mark every grid slot touched by an existing booking. A booking longer
	// than one grid unit occupies multiple consecutive slots.
	occupied := make(map[int64]bool)
	for _, b := range existing {
		for _, s := range starts {
			if Overlaps(s, s.Add(GridUnit), b.Start, b.End()) {
				occupied[s.Unix()] = true
			}
		}
	}

	// ceil(duration / GridUnit)
	need := int((duration + GridUnit - 1) / GridUnit)

	var free []time.Time
	for i := range starts {
		if i+need > len(starts) {
			break
		}
		ok := true
		for j := 0; j < need; j++ {
			s := starts[i+j]
			if occupied[s.Unix()] {
				ok = false
				break
			}
			// Consecutive slots must be exactly one grid unit apart, which
			// rules out runs spanning the gap between blocks.
			if j > 0 && !starts[i+j-1].Add(GridUnit).Equal(s) {
				ok = false
				break
			}
		}
		if ok {
			free = append(free, starts[i])
		}
	}
	return free
}
