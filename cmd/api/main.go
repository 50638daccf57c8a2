package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduler-api/internal/config"
	"github.com/jwalitptl/scheduler-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/scheduler-api/internal/handler/appointment"
	availabilityHandler "github.com/jwalitptl/scheduler-api/internal/handler/availability"
	patientHandler "github.com/jwalitptl/scheduler-api/internal/handler/patient"
	practitionerHandler "github.com/jwalitptl/scheduler-api/internal/handler/practitioner"
	"github.com/jwalitptl/scheduler-api/internal/middleware"
	"github.com/jwalitptl/scheduler-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduler-api/internal/router"
	availabilityService "github.com/jwalitptl/scheduler-api/internal/service/availability"
	bookingService "github.com/jwalitptl/scheduler-api/internal/service/booking"
	notificationService "github.com/jwalitptl/scheduler-api/internal/service/notification"
	"github.com/jwalitptl/scheduler-api/pkg/auth"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
	"github.com/jwalitptl/scheduler-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("scheduler", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	practitionerRepo := postgres.NewPractitionerRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	notifier := notificationService.NewService(notificationService.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, patientRepo, appLogger)

	bookingSvc := bookingService.NewService(
		appointmentRepo, practitionerRepo, patientRepo, notifier,
		bookingService.Policy{
			ConsultationDuration: cfg.Scheduling.ConsultationDuration,
			CancellationCutoff:   cfg.Scheduling.CancellationCutoff,
			DefaultWindow:        cfg.Scheduling.DefaultWindow,
			Location:             cfg.Scheduling.Location(),
		},
		appLogger, appMetrics,
	)

	availabilitySvc := availabilityService.NewService(
		appointmentRepo, practitionerRepo, bookingSvc,
		availabilityService.Config{
			ConsultationDuration: cfg.Scheduling.ConsultationDuration,
			SlotGranularity:      cfg.Scheduling.SlotGranularity,
			DefaultWindow:        cfg.Scheduling.DefaultWindow,
			Location:             cfg.Scheduling.Location(),
		},
		appLogger, appMetrics,
	)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	h := handler.NewHandler(db)

	routerConfig := router.RouterConfig{
		Timeout:    cfg.Server.RequestTimeout,
		CORSConfig: middleware.DefaultCORSConfig(),
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(
		authMiddleware,
		availabilityHandler.NewHandler(availabilitySvc),
		appointmentHandler.NewHandler(bookingSvc),
		practitionerHandler.NewHandler(practitionerRepo, availabilitySvc),
		patientHandler.NewHandler(patientRepo),
		h,
		routerConfig,
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// The API binary also drains the outbox so single-node deployments work
	// without the dedicated worker.
	ctx, stop := context.WithCancel(context.Background())
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &appLogger.ZL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, outbox events will stay pending")
	} else {
		defer broker.Close()
		outboxProcessor := worker.NewOutboxProcessor(
			outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), appLogger, appMetrics)
		go outboxProcessor.Start(ctx)
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
