package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"avatarstudio/internal/auth"
	"avatarstudio/internal/avatar"
	"avatarstudio/internal/blob"
	"avatarstudio/internal/config"
	"avatarstudio/internal/dbopen"
	"avatarstudio/internal/display"
	"avatarstudio/internal/export"
	"avatarstudio/internal/pipeline"
	"avatarstudio/internal/session"
	"avatarstudio/internal/store"
	"avatarstudio/internal/web"
)

func main() {
	configPath := flag.String("config", os.Getenv("AVATAR_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	catalog := avatar.DefaultCatalog()
	if cfg.Presets != "" {
		c, err := avatar.LoadCatalog(cfg.Presets)
		if err != nil {
			return err
		}
		catalog = c
	}

	db, err := dbopen.Open(cfg.DB, dbopen.WithMkdirAll())
	if err != nil {
		return err
	}
	defer db.Close()
	avatars, err := store.New(ctx, db)
	if err != nil {
		return err
	}

	blobs, err := blob.NewStore(filepath.Join(cfg.DataDir, "blobs"), "/files")
	if err != nil {
		return err
	}

	authn, err := auth.NewService(signingSecret(cfg.Auth.Secret, logger), cfg.Auth.Users, cfg.Auth.Expiry)
	if err != nil {
		return err
	}
	authn.Secure = cfg.Auth.Secure
	if len(cfg.Auth.Users) == 0 {
		logger.Warn("no users configured; saving avatars is disabled")
	}

	runner := pipeline.NewRunner(cfg.Pipeline.PhaseDelay, logger.With("component", "pipeline"))
	defer runner.Close()

	sessions := session.NewMemoryStore[session.Editor]()
	go evictSessions(ctx, sessions, runner, cfg.Session.IdleTimeout, logger)

	srv := &web.Server{
		Catalog:  catalog,
		Sessions: sessions,
		Prober:   display.Prober{ForceFallback: cfg.Display.ForceFallback},
		Runner:   runner,
		Exporter: &export.Exporter{
			Blobs:       blobs,
			RenderScale: cfg.Pipeline.RenderScale,
			Logger:      logger.With("component", "export"),
		},
		Blobs:         blobs,
		Avatars:       avatars,
		Auth:          authn,
		Logger:        logger,
		SecureCookies: cfg.Auth.Secure,
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// signingSecret stretches the configured secret to 32 bytes. Without one a
// random secret is used and logins do not survive a restart.
func signingSecret(s string, logger *slog.Logger) []byte {
	if s == "" {
		logger.Warn("AVATAR_SECRET not set; using an ephemeral signing secret")
		s = rand.Text()
	}
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

// evictSessions drops idle editors and their jobs.
func evictSessions(ctx context.Context, sessions *session.MemoryStore[session.Editor], runner *pipeline.Runner, idle time.Duration, logger *slog.Logger) {
	if idle <= 0 {
		return
	}
	t := time.NewTicker(idle / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, id := range sessions.Evict(now.Add(-idle)) {
				runner.Forget(id)
			}
			logger.Debug("sessions evicted", "live", sessions.Len())
		}
	}
}
