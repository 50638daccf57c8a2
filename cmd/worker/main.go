package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduler-api/internal/config"
	"github.com/jwalitptl/scheduler-api/internal/repository/postgres"
	bookingService "github.com/jwalitptl/scheduler-api/internal/service/booking"
	completionWorker "github.com/jwalitptl/scheduler-api/internal/worker"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
	"github.com/jwalitptl/scheduler-api/pkg/worker"
)

// workerEnv overrides the shared config with worker-specific settings that
// only make sense in a deployment manifest.
type workerEnv struct {
	HealthPort    int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	SweepInterval time.Duration `envconfig:"WORKER_SWEEP_INTERVAL" default:"1m"`
	SweepBatch    int           `envconfig:"WORKER_SWEEP_BATCH" default:"100"`
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		addr := ":" + strconv.Itoa(port)
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var env workerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("Failed to load worker environment")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}
	appMetrics := metrics.NewMetrics("scheduler", "worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.ZL.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	practitionerRepo := postgres.NewPractitionerRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		cfg.Outbox.ToWorkerConfig(),
		appLogger,
		appMetrics,
	)

	// The sweeper shares the booking service so status transitions stay in
	// one place; it needs no notifier.
	bookingSvc := bookingService.NewService(
		appointmentRepo, practitionerRepo, patientRepo, nil,
		bookingService.Policy{
			ConsultationDuration: cfg.Scheduling.ConsultationDuration,
			CancellationCutoff:   cfg.Scheduling.CancellationCutoff,
			DefaultWindow:        cfg.Scheduling.DefaultWindow,
			Location:             cfg.Scheduling.Location(),
		},
		appLogger, appMetrics,
	)
	sweeper := completionWorker.NewCompletionSweeper(bookingSvc, completionWorker.CompletionSweeperConfig{
		PollInterval: env.SweepInterval,
		BatchSize:    env.SweepBatch,
	}, appLogger)

	setupHealthCheck(env.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.ZL.Info().Msg("Shutting down...")
		cancel()
	}()

	go sweeper.Start(ctx)
	processor.Start(ctx)
}
