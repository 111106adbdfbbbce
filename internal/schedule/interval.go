package schedule

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval normalizes both endpoints to UTC. Inputs may arrive with
// arbitrary zone offsets; every comparison in this package happens in UTC.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// Overlaps reports whether two half-open intervals share any instant.
// Strict inequalities keep back-to-back intervals (i.End == other.Start)
// from counting as a collision.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Valid reports whether the interval has positive length.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Duration returns End minus Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
