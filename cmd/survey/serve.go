package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "github.com/mind-engage/realfake-survey/internal/api/http"
	"github.com/mind-engage/realfake-survey/internal/config"
	"github.com/mind-engage/realfake-survey/internal/db"
	"github.com/mind-engage/realfake-survey/internal/labels"
	"github.com/mind-engage/realfake-survey/internal/logging"
	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/report"
	"github.com/mind-engage/realfake-survey/internal/session"
	"github.com/mind-engage/realfake-survey/internal/storage"
	syncx "github.com/mind-engage/realfake-survey/internal/sync"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the labels, build the quiz and serve it over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides HTTP_ADDR)")
}

// buildDeck loads the label mapping and samples the quiz. Any error here is
// a data problem and aborts startup.
func buildDeck(ctx context.Context, c config.Config, log *zap.Logger) (*labels.Deck, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	m, err := labels.Load(loadCtx, c.LabelsURL, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	deck, err := labels.Build(m, labels.Options{
		Examples:        c.ExamplesPerClass,
		SamplesPerClass: c.SamplesPerClass,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("build quiz from %s: %w", c.LabelsURL, err)
	}
	log.Info("quiz built",
		zap.String("labels", c.LabelsURL),
		zap.Int("mapping", len(m)),
		zap.Int("images", deck.Len()),
		zap.Int("examples_per_class", len(deck.ExamplesReal)),
		zap.Int64("seed", seed))
	return deck, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if addrFlag != "" {
		cfg.HTTPAddr = addrFlag
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deck, err := buildDeck(ctx, cfg, logger)
	if err != nil {
		logger.Error("cannot build quiz", zap.Error(err))
		return err
	}

	// --- Session store / event log ---
	var (
		store  quiz.Store     = quiz.NewMemoryStore()
		events syncx.Recorder = syncx.Discard{}
	)
	if cfg.DBDriver != config.DBMemory {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			logger.Error("db open failed", zap.String("driver", string(cfg.DBDriver)), zap.Error(err))
			return err
		}
		defer dbh.Close()
		store = quiz.NewSQLStore(dbh)
		events = syncx.NewEventRepo(dbh, "")
	}
	go quiz.RunJanitor(ctx, store, cfg.SessionPurgeEvery, logger)

	// --- Blobs ---
	images, err := storage.NewFSStore(cfg.ImageDir)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}
	scratch, err := storage.NewFSStore(cfg.TempDir)
	if err != nil {
		return fmt.Errorf("temp store: %w", err)
	}
	reports := report.NewExporter(scratch)
	if n, err := reports.SweepOlderThan(time.Hour); err != nil {
		logger.Warn("sweep old reports", zap.Error(err))
	} else if n > 0 {
		logger.Info("swept old reports", zap.Int("count", n))
	}

	warnInsecureDefaults(cfg, logger)
	sessions, err := session.NewManager(cfg.SecretKey, cfg.SessionTTL, strings.HasPrefix(cfg.PublicURL, "https://"))
	if err != nil {
		return err
	}

	app := &api.App{
		Deck:         deck,
		Store:        store,
		Sessions:     sessions,
		Reports:      reports,
		Images:       images,
		Events:       events,
		Log:          logger,
		StaticMaxAge: cfg.StaticMaxAge,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(logger), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	api.StaticRoutes(r, app)
	r.Group(func(sr chi.Router) {
		sr.Use(sessions.Middleware(logger))
		api.Routes(sr, app)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("db", string(cfg.DBDriver)),
			zap.Int("images", deck.Len()))
		errc <- srv.ListenAndServe()
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
	return srv.Shutdown(shutdownCtx)
}

// warnInsecureDefaults flags settings that are fine locally but not on a
// public https deployment.
func warnInsecureDefaults(c config.Config, log *zap.Logger) {
	if c.UsesDefaultSecret() && strings.HasPrefix(c.PublicURL, "https://") {
		log.Warn("session cookies are signed with the default secret key; set SECRET_KEY",
			zap.String("public_url", c.PublicURL))
	}
}
