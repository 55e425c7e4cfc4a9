package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vitalcare/clinic-server/internal/config"
	"github.com/vitalcare/clinic-server/internal/service/availability"
	"github.com/vitalcare/clinic-server/internal/service/booking"
	"github.com/vitalcare/clinic-server/internal/service/schedule"
	"github.com/vitalcare/clinic-server/internal/store/postgres"
	"github.com/vitalcare/clinic-server/internal/transport/rest"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic scheduling API server",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.DatabaseURL, poolConfig(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = postgres.Close(db) }()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.DatabaseURL, poolConfig(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = postgres.Close(db) }()

			version, err := postgres.MigrationVersion(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Printf("migration version: %d\n", version)
			return nil
		},
	})

	return cmd
}

func runServer() error {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "clinic-server").Logger()
	if os.Getenv("ENV") == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("service", "clinic-server").Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		return err
	}
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	location, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		log.Error().Err(err).Str("timezone", cfg.ClinicTimezone).Msg("invalid clinic timezone")
		return err
	}

	log.Info().Str("http_addr", cfg.HTTPAddr()).Str("clinic_id", cfg.ClinicID).Str("timezone", cfg.ClinicTimezone).Msg("starting")

	log.Info().Fields(databaseLogFields(cfg.DatabaseURL)).Msg("connecting to database")
	db, err := postgres.Open(cfg.DatabaseURL, poolConfig(cfg))
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Error().Err(err).Msg("migrations failed")
		return err
	}

	apptRepo := postgres.NewAppointmentRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	patientRepo := postgres.NewPatientRepo(db)
	clock := systemClock{}

	scheduleSvc := schedule.NewService(scheduleRepo, cfg.ClinicID)
	availabilitySvc := availability.NewService(scheduleRepo, apptRepo, clock, cfg.ClinicID, location, cfg.SlotMinutes)
	bookingSvc := booking.NewService(apptRepo, scheduleRepo, patientRepo, clock, cfg.ClinicID, location, cfg.SlotMinutes)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestTimeoutMiddleware(cfg.HTTPRequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	rest.NewAvailabilityHandler(availabilitySvc, log, location).RegisterRoutes(api)
	rest.NewAppointmentsHandler(bookingSvc, log, location).RegisterRoutes(api)
	rest.NewScheduleHandler(scheduleSvc, log, location).RegisterRoutes(api)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(cfg.HTTPAddr())
	}()

	log.Info().Str("http_addr", cfg.HTTPAddr()).Msg("http server started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdown(log, e, cfg.ShutdownTimeout)
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped with error")
			return err
		}
		return nil
	}
}

// requestTimeoutMiddleware bounds every request that arrived without its own
// deadline.
func requestTimeoutMiddleware(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := ctx.Deadline(); ok {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func shutdown(log zerolog.Logger, e *echo.Echo, timeout time.Duration) {
	log.Info().Dur("timeout", timeout).Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed; forcing close")
		_ = e.Close()
		return
	}
	log.Info().Msg("http server stopped")
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func poolConfig(cfg config.Config) postgres.PoolConfig {
	return postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

func databaseLogFields(databaseURL string) map[string]any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return map[string]any{"db_url": "invalid"}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return map[string]any{
		"db_host": host,
		"db_port": port,
		"db_name": name,
	}
}
