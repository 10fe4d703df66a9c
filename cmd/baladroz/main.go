// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/baladroz/news/internal/authz"
	"github.com/baladroz/news/internal/config"
	"github.com/baladroz/news/internal/handler"
	"github.com/baladroz/news/internal/logging"
	"github.com/baladroz/news/internal/maintenance"
	"github.com/baladroz/news/internal/media"
	"github.com/baladroz/news/internal/middleware"
	"github.com/baladroz/news/internal/render"
	"github.com/baladroz/news/internal/session"
	"github.com/baladroz/news/internal/store"
	"github.com/baladroz/news/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Baladroz - Municipal News Site\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWS_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWS_ADMIN_EMAILS      Admin allow-list, comma-separated (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWS_DB_PATH           SQLite database path (default: ./data/news.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWS_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWS_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWS_UPLOADS_DIR       Uploaded image directory (default: ./uploads)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("baladroz %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(textHandler))

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the audit log
	logger := slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Build the admin allow-list and make sure every entry can sign in
	adminTable, err := cfg.AdminTable()
	if err != nil {
		return fmt.Errorf("building admin table: %w", err)
	}
	resolver := authz.NewResolver(adminTable)

	ctx := context.Background()
	if err := store.Seed(ctx, db, adminTable); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	slog.Info("admin allow-list loaded", "entries", len(adminTable))

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Initialize blob storage for uploaded images
	blobs, err := media.NewDiskStore(cfg.UploadsDir)
	if err != nil {
		return fmt.Errorf("initializing upload storage: %w", err)
	}
	mediaService := media.NewService(blobs)

	// Start scheduled housekeeping (orphaned uploads, audit log retention)
	maint := maintenance.New(db, blobs, logger)
	if err := maint.Start(); err != nil {
		return fmt.Errorf("starting maintenance scheduler: %w", err)
	}
	defer maint.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))

	// Security headers middleware (CSP, HSTS, X-Frame-Options, etc.)
	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))
	slog.Info("security headers middleware initialized",
		"hsts", !cfg.IsDevelopment(),
		"x_frame_options", "SAMEORIGIN",
	)

	r.Use(sessionManager.LoadAndSave)

	// CSRF protection for all HTML form routes
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(csrfConfig)
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	// Login protection: per-IP rate limit plus account lockout
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection)
	newsHandler := handler.NewNewsHandler(db, renderer, mediaService, resolver, int64(cfg.ListLimit))
	adminHandler := handler.NewAdminHandler(db, renderer, resolver)
	healthHandler := handler.NewHealthHandler(db, sessionManager, cfg.UploadsDir)

	// Health check (public, returns additional details for authenticated callers)
	r.Get("/healthz", healthHandler.Health)

	// Public site
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Get(handler.RouteRoot, newsHandler.List)
		r.Get(handler.RouteNews+handler.RouteParamSlug, newsHandler.Detail)
	})

	// Auth routes (public, with CSRF and rate limiting)
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	// Admin routes (signed-in allow-listed users only, per-route grants)
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Use(middleware.RequireAdmin(resolver))

		r.Get(handler.RouteRoot, adminHandler.Dashboard)
		r.Get(handler.RouteAdminNews, newsHandler.AdminList)
		r.Get(handler.RoutePassword, authHandler.PasswordForm)
		r.Post(handler.RoutePassword, authHandler.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(resolver, authz.PermAddNews))
			r.Get(handler.RouteAdminNews+handler.RouteSuffixNew, newsHandler.NewForm)
			r.Post(handler.RouteAdminNews+handler.RouteSuffixNew, newsHandler.Create)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(resolver, authz.PermEditNews))
			r.Get(handler.RouteAdminNews+handler.RouteParamID+handler.RouteSuffixEdit, newsHandler.EditForm)
			r.Put(handler.RouteAdminNews+handler.RouteParamID+handler.RouteSuffixEdit, newsHandler.Update)
			r.Post(handler.RouteAdminNews+handler.RouteParamID+handler.RouteSuffixEdit, newsHandler.Update) // HTML forms can't send PUT
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(resolver, authz.PermDeleteNews))
			r.Delete(handler.RouteAdminNews+handler.RouteParamID, newsHandler.Delete)
			r.Post(handler.RouteAdminNews+handler.RouteParamID+handler.RouteSuffixDelete, newsHandler.Delete) // HTML forms can't send DELETE
		})
	})

	// Serve uploaded images, cached for 1 week
	uploadsHandler := http.StripPrefix(media.PublicPrefix, http.FileServer(http.Dir(cfg.UploadsDir)))
	r.Handle(media.PublicPrefix+"*", cacheControl(604800)(uploadsHandler))

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads and slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// cacheControl sets a public Cache-Control header on static file responses.
func cacheControl(maxAgeSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
			next.ServeHTTP(w, r)
		})
	}
}
