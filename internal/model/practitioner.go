package model

type PractitionerStatus string

const (
	PractitionerStatusActive   PractitionerStatus = "active"
	PractitionerStatusInactive PractitionerStatus = "inactive"
)

// Practitioner is a clinician accepting bookings. Schedule holds the
// configured working hours in the legacy string format, e.g.
// "Mon-Fri 08:00-16:00" or "Mon-Wed 08:00-12:00; Mon-Wed 14:00-18:00".
type Practitioner struct {
	Base
	Email     string             `db:"email" json:"email"`
	Name      string             `db:"name" json:"name"`
	Specialty string             `db:"specialty" json:"specialty,omitempty"`
	Schedule  string             `db:"schedule" json:"schedule,omitempty"`
	Status    PractitionerStatus `db:"status" json:"status"`
}

func (p *Practitioner) Active() bool {
	return p.Status == PractitionerStatusActive
}

type CreatePractitionerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required"`
	Specialty string `json:"specialty"`
	Schedule  string `json:"schedule"`
}

type UpdatePractitionerRequest struct {
	Email     *string             `json:"email" binding:"omitempty,email"`
	Name      *string             `json:"name"`
	Specialty *string             `json:"specialty"`
	Status    *PractitionerStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

type UpdateScheduleRequest struct {
	Schedule string `json:"schedule" binding:"required"`
}
