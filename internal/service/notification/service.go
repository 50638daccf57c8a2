package notification

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

// Config holds SMTP settings. A zero Host disables delivery entirely, which
// keeps local development and tests quiet.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Service struct {
	cfg      Config
	patients repository.PatientRepository
	logger   *logger.Logger
	dialer   *gomail.Dialer
}

func NewService(cfg Config, patients repository.PatientRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewLogger(nil)
	}
	s := &Service{cfg: cfg, patients: patients, logger: log}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return s
}

func (s *Service) send(ctx context.Context, apt *model.Appointment, subject, bodyFmt string) error {
	if s.dialer == nil {
		return nil
	}

	patient, err := s.patients.Get(ctx, apt.PatientID)
	if err != nil {
		return fmt.Errorf("failed to resolve patient for notification: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.From)
	msg.SetHeader("To", patient.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", fmt.Sprintf(bodyFmt,
		patient.Name, apt.StartTime.UTC().Format(time.RFC1123)))

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) AppointmentBooked(ctx context.Context, apt *model.Appointment) error {
	return s.send(ctx, apt, "Appointment confirmed",
		"Hello %s,\n\nYour appointment is confirmed for %s.\n")
}

func (s *Service) AppointmentCancelled(ctx context.Context, apt *model.Appointment) error {
	return s.send(ctx, apt, "Appointment cancelled",
		"Hello %s,\n\nYour appointment scheduled for %s has been cancelled.\n")
}
