package schedule

import (
	"github.com/jwalitptl/scheduler-api/internal/model"
)

// counts reports whether an appointment participates in conflict detection.
// Cancelled appointments release their interval; completed ones are history
// and excluded for uniformity even when their start time is in the past.
func counts(apt *model.Appointment) bool {
	return apt.Status == model.AppointmentStatusPending ||
		apt.Status == model.AppointmentStatusConfirmed
}

// HasConflict reports whether the candidate interval overlaps any active
// appointment. Exact abutment is not a conflict. This advisory check is
// re-run inside the transactional create path; see the postgres repository.
func HasConflict(candidate model.TimeSlot, existing []*model.Appointment) bool {
	for _, apt := range existing {
		if !counts(apt) {
			continue
		}
		if candidate.Overlaps(apt.Interval()) {
			return true
		}
	}
	return false
}

// FilterFree returns the slots with no overlap against active appointments,
// preserving order.
func FilterFree(slots []model.TimeSlot, existing []*model.Appointment) []model.TimeSlot {
	free := slots[:0:0]
	for _, slot := range slots {
		if !HasConflict(slot, existing) {
			free = append(free, slot)
		}
	}
	return free
}
