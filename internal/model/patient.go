package model

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

type Patient struct {
	Base
	Email  string        `db:"email" json:"email"`
	Name   string        `db:"name" json:"name"`
	Phone  string        `db:"phone" json:"phone,omitempty"`
	Status PatientStatus `db:"status" json:"status"`
}

func (p *Patient) Active() bool {
	return p.Status == PatientStatusActive
}

type CreatePatientRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type UpdatePatientRequest struct {
	Email  *string        `json:"email" binding:"omitempty,email"`
	Name   *string        `json:"name"`
	Phone  *string        `json:"phone"`
	Status *PatientStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

type PatientFilters struct {
	Status PatientStatus
	Search string
}
