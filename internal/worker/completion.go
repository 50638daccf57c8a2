package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/service/booking"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

type CompletionSweeperConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// CompletionSweeper marks confirmed appointments as completed once their end
// time has passed. The transition is idempotent, so overlapping sweeps (or a
// manual completion racing the sweep) are harmless.
type CompletionSweeper struct {
	booking *booking.Service
	config  CompletionSweeperConfig
	logger  *logger.Logger
}

func NewCompletionSweeper(bookingSvc *booking.Service, config CompletionSweeperConfig, log *logger.Logger) *CompletionSweeper {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if log == nil {
		log = logger.NewLogger(nil)
	}
	return &CompletionSweeper{booking: bookingSvc, config: config, logger: log}
}

func (s *CompletionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("Starting completion sweeper")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down completion sweeper")
			return
		case <-ticker.C:
			completed, err := s.booking.CompleteDue(ctx, time.Now().UTC(), s.config.BatchSize)
			if err != nil {
				s.logger.Error(err, "Completion sweep failed")
				continue
			}
			if completed > 0 {
				s.logger.Info("Completed past appointments", "count", completed)
			}
		}
	}
}
