package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a3ro-dev/aAlem/internal/config"
	"github.com/a3ro-dev/aAlem/internal/domain/sqlite"
	"github.com/a3ro-dev/aAlem/internal/domain/sqlite/repository"
	"github.com/a3ro-dev/aAlem/internal/http/handler"
	"github.com/a3ro-dev/aAlem/internal/infrastructure/rediscache"
	"github.com/a3ro-dev/aAlem/internal/service"
	"github.com/a3ro-dev/aAlem/internal/service/jobs"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	// Loads from .env when present; the environment wins otherwise
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	validate := validator.New()

	// Init SQLite
	db, err := sqlite.Init(cfg.DBPath)
	if err != nil {
		panic(err)
	}

	// Init the write-behind cache (fail-open: a dead Redis just
	// disables it)
	cache := rediscache.New(cfg.Cache)

	noteRepo := repository.NewNoteRepository(db, cfg.DBPath)
	noteService := service.NewNoteService(noteRepo, cache, validate, cfg.KDFIterations)
	noteRoutes := handler.NewNoteDefault(noteService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background jobs
	go jobs.NewCacheFlusher(noteService, cfg.FlushInterval).Start(ctx)
	if cfg.BackupEnabled {
		go jobs.NewDatabaseBackup(cfg.DBPath, cfg.BackupDir, cfg.BackupInterval).Start(ctx)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))

	// Notes
	e.GET("/api/notes", noteRoutes.GetNotes)
	e.GET("/api/notes/search", noteRoutes.SearchNotes)
	e.GET("/api/notes/:id", noteRoutes.GetNote)
	e.POST("/api/notes", noteRoutes.CreateNote)
	e.PATCH("/api/notes/:id", noteRoutes.UpdateNote)
	e.DELETE("/api/notes/:id", noteRoutes.DeleteNote)

	// Locking
	e.POST("/api/notes/:id/lock", noteRoutes.LockNote)
	e.POST("/api/notes/:id/unlock", noteRoutes.UnlockNote)

	// Cache and stats
	e.POST("/api/cache/flush", noteRoutes.FlushCache)
	e.GET("/api/stats", noteRoutes.GetStats)

	// Docker Compose healthcheck
	e.GET("/health", healthCheckRoute)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil {
			log.Infof("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	// Orderly shutdown: stop accepting requests, then flush the cache
	// one last time before releasing it.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
	noteService.Shutdown(shutdownCtx)
}

func healthCheckRoute(c echo.Context) error {
	return c.String(200, "OK")
}
