package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels carrying appointment lifecycle events.
const (
	ChannelAppointmentBooked      = "appointment.booked"
	ChannelAppointmentCancelled   = "appointment.cancelled"
	ChannelAppointmentRescheduled = "appointment.rescheduled"
	ChannelAppointmentCompleted   = "appointment.completed"
)
