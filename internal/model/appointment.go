package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from the status.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Cancellable reports whether the appointment may still be cancelled.
func (s AppointmentStatus) Cancellable() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

type Appointment struct {
	Base
	PractitionerID uuid.UUID         `db:"practitioner_id" json:"practitioner_id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	StartTime      time.Time         `db:"start_time" json:"start_time"`
	EndTime        time.Time         `db:"end_time" json:"end_time"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Reason         string            `db:"reason" json:"reason,omitempty"`
	CancelledAt    *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Interval returns the half-open booking interval [start, end).
func (a *Appointment) Interval() TimeSlot {
	return TimeSlot{Start: a.StartTime, End: a.EndTime}
}

type CreateAppointmentRequest struct {
	PractitionerID  uuid.UUID `json:"practitioner_id" binding:"required"`
	PatientID       uuid.UUID `json:"patient_id" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	Reason          string    `json:"reason" binding:"max=1000"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=5,max=240"`
}

type UpdateAppointmentRequest struct {
	StartTime      *time.Time `json:"start_time"`
	PractitionerID *uuid.UUID `json:"practitioner_id"`
	Reason         *string    `json:"reason" binding:"omitempty,max=1000"`
}

type AppointmentFilters struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Status         AppointmentStatus
	From           time.Time
	To             time.Time
}
