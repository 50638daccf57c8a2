package model

import (
	"time"
)

// TimeSlot is a half-open interval [Start, End). Candidate slots are derived
// transiently by the availability service and never persisted.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect. Exact abutment
// (one ends where the other starts) does not overlap, so back-to-back
// bookings are allowed.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && s.End.After(other.Start)
}

// WorkingWindow is a configured interval of one weekday during which a
// practitioner accepts bookings. Start and End are minutes from midnight,
// local to the clinic's timezone.
type WorkingWindow struct {
	Weekday time.Weekday
	Start   int
	End     int
}

// AvailableSlots is the result of a free-slot query. UsedDefault is set when
// the practitioner's configured schedule could not be parsed and the default
// working window was applied; callers must surface it.
type AvailableSlots struct {
	PractitionerID string     `json:"practitioner_id"`
	Date           string     `json:"date"`
	Slots          []TimeSlot `json:"slots"`
	UsedDefault    bool       `json:"used_default_schedule"`
}
