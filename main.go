package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/config"
	"github.com/kelydev/apiProyectos/database"
	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/repository"
	"github.com/kelydev/apiProyectos/routes"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/storage"
	"github.com/kelydev/apiProyectos/utils"
	"github.com/rs/cors"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "file with environment variables to load")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	sweepOrphans := pflag.Bool("sweep-orphans", false, "retry removal of recorded orphaned blobs and exit")
	pflag.Parse()

	// Cargar variables de entorno desde .env
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: error loading %s: %v\n", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := utils.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *migrateOnly, *sweepOrphans); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, migrateOnly, sweepOrphans bool) error {
	logger.Info("starting server...")

	if err := database.RunMigrations(cfg.Database.URL(), cfg.MigrationsPath); err != nil {
		return err
	}
	if migrateOnly {
		return nil
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := openBlobs(ctx, cfg, logger)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	svc := services.New(repository.NewSQLStore(db), blobs, tokens, services.Options{
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        logger,
	})

	if sweepOrphans {
		removed, err := svc.Archivos.SweepOrphans(ctx)
		if err != nil {
			return err
		}
		logger.Info("orphaned blobs removed", "count", removed)
		return nil
	}

	r := routes.SetupRoutes(svc, tokens)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.Logging(logger)(c.Handler(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "blob_backend", cfg.BlobBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBlobs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Blobs, error) {
	switch cfg.BlobBackend {
	case "minio":
		m, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("using minio blob storage", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
		return m, nil
	default:
		d, err := storage.NewDisk(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using disk blob storage", "root", d.Root())
		return d, nil
	}
}
