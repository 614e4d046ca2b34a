package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/elderease/elderease/internal/config"
	"github.com/elderease/elderease/internal/domain/calendar"
	"github.com/elderease/elderease/internal/domain/dailyrecord"
	"github.com/elderease/elderease/internal/domain/dashboard"
	"github.com/elderease/elderease/internal/domain/medication"
	"github.com/elderease/elderease/internal/domain/patient"
	"github.com/elderease/elderease/internal/domain/reporting"
	"github.com/elderease/elderease/internal/platform/apierr"
	"github.com/elderease/elderease/internal/platform/clock"
	"github.com/elderease/elderease/internal/platform/db"
	"github.com/elderease/elderease/internal/platform/logging"
	"github.com/elderease/elderease/internal/platform/middleware"
	"github.com/elderease/elderease/internal/platform/websocket"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "elderease-server",
		Short:        "ElderEase care tracking API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(medicationsCmd())
	return root
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

// connect loads the configuration and opens the database pool.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:               cfg.DatabaseURL,
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBConnLifetime,
		MaxConnIdleTime:   cfg.DBConnIdleTime,
		HealthCheckPeriod: cfg.DBHealthCheck,
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func medicationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medications",
		Short: "Medication maintenance",
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear given flags recorded before the start of a day",
		Long: "Clears is_given_today on every medication given before midnight of --date " +
			"(default today in TIMEZONE). Run once a day, shortly after midnight.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			day, err := resetDay(date, clock.System{Location: loc})
			if err != nil {
				return err
			}

			svc := medication.NewService(medication.NewRepoPG(pool), patient.NewService(patient.NewRepoPG(pool)))
			n, err := svc.ResetDaily(ctx, day)
			if err != nil {
				return fmt.Errorf("reset medications: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d medication(s) for %s.\n", n, day.Format(clock.DateLayout))
			return nil
		},
	}
	resetCmd.Flags().String("date", "", "Day to reset for, YYYY-MM-DD")
	cmd.AddCommand(resetCmd)

	return cmd
}

// resetDay is the day named by date, or today on clk when date is empty.
func resetDay(date string, clk clock.Clock) (time.Time, error) {
	now := clk.Now()
	if date == "" {
		return clock.Day(now), nil
	}
	day, err := clock.ParseDate(date, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, use YYYY-MM-DD", date)
	}
	return day, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.IsDev(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := newServer(cfg, logger, pool, clock.System{Location: loc})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with middleware and every route. The
// care API is served both at the root and under /api.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, clk clock.Clock) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierr.Handler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	hub := websocket.NewHub(logger)

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	patientSvc.SetPublisher(hub)
	medicationSvc := medication.NewService(medication.NewRepoPG(pool), patientSvc)
	medicationSvc.SetPublisher(hub)
	recordSvc := dailyrecord.NewService(dailyrecord.NewRepoPG(pool), db.NewTransactor(pool))
	recordSvc.SetPublisher(hub)
	dashboardSvc := dashboard.NewService(patientSvc, medicationSvc)
	reportSvc := reporting.NewService(patientSvc, medicationSvc, recordSvc)

	routes := []interface{ RegisterRoutes(*echo.Group) }{
		patient.NewHandler(patientSvc, clk),
		medication.NewHandler(medicationSvc, clk),
		dailyrecord.NewHandler(recordSvc, clk),
		dashboard.NewHandler(dashboardSvc, clk),
		reporting.NewHandler(reportSvc, clk),
		calendar.NewHandler(calendar.NopSource{}),
	}
	for _, g := range []*echo.Group{e.Group(""), e.Group("/api")} {
		for _, h := range routes {
			h.RegisterRoutes(g)
		}
	}

	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e)

	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	return e
}
