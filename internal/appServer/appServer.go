package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/hotel-booking/config"
	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/ds124wfegd/hotel-booking/internal/transport"
	"github.com/ds124wfegd/hotel-booking/internal/worker"
	"github.com/ds124wfegd/hotel-booking/pkg/scheduler"
	"github.com/ds124wfegd/hotel-booking/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {
	setupLogger(cfg)

	store, err := openStorage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc := cfg.Booking.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	userService := service.NewUserService(store.users, tokens, clock)
	roomService := service.NewRoomService(store.tx, store.rooms, store.bookings)

	if cfg.Admin.Email != "" {
		if _, err := userService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logrus.Fatalf("Failed to bootstrap admin account: %v", err)
		}
	}

	notifications, err := newNotifications(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize notifications: %v", err)
	}
	defer notifications.Close()

	bookingService := service.NewBookingService(service.BookingServiceDeps{
		Tx:            store.tx,
		Bookings:      store.bookings,
		Rooms:         store.rooms,
		Users:         store.users,
		Identities:    userService,
		Notifier:      notifications.notifier,
		Clock:         clock,
		Codes:         service.GenerateBookingCode,
		Refunds:       service.NewRefundPolicy(cfg.Booking.Refund.FullDays, cfg.Booking.Refund.HalfDays, cfg.Booking.Refund.HalfRatio),
		NotifyTimeout: cfg.Booking.NotifyTimeout,
	})

	// Background jobs
	cleanupWorker := worker.NewBookingCleanupWorker(bookingService, cfg.Scheduler.SweepInterval)
	sched := scheduler.NewScheduler(loc)
	if cfg.Scheduler.Enabled {
		if err := cleanupWorker.Schedule(sched, cfg.Scheduler.SweepAt); err != nil {
			logrus.Fatalf("Invalid scheduler config: %v", err)
		}
		if err := sched.AddDaily("daily_reminders", cfg.Scheduler.ReminderAt, func(ctx context.Context) error {
			_, err := bookingService.SendDailyReminders(ctx)
			return err
		}); err != nil {
			logrus.Fatalf("Invalid scheduler config: %v", err)
		}
		sched.Start(ctx)
	}

	// Initialize handlers
	handlers := transport.Handlers{
		Rooms:    transport.NewRoomHandler(roomService),
		Bookings: transport.NewBookingHandler(bookingService, cfg.Booking.UpcomingDays),
		Users:    transport.NewUserHandler(userService),
		Health:   transport.NewHealthHandler(notifications.monitor),
	}

	if cfg.IsProduction() || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(handlers, tokens, cfg.Server.RequestTimeout)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"addr":    cfg.GetServerAddress(),
		"version": cfg.Server.AppVersion,
		"driver":  cfg.Database.Driver,
	}).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	cancel()
	sched.Stop()
	// let in-flight notifications reach the queue or broker before closing them
	bookingService.Wait()
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
