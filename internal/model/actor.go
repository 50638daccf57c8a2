package model

import "github.com/google/uuid"

type ActorRole string

const (
	RoleAdmin        ActorRole = "admin"
	RolePractitioner ActorRole = "practitioner"
	RolePatient      ActorRole = "patient"
	RoleSystem       ActorRole = "system"
)

// Actor is the authenticated caller of a scheduling operation. It is passed
// explicitly into the services so the core never reads ambient session state.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Role  ActorRole `json:"role"`
	Email string    `json:"email,omitempty"`
}

// SystemActor is used by workers for system-driven transitions.
func SystemActor() *Actor {
	return &Actor{ID: uuid.Nil, Role: RoleSystem}
}
