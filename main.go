package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pengaduan/internal/api"
	"pengaduan/internal/browser"
	"pengaduan/internal/config"
	"pengaduan/internal/geo"
	"pengaduan/internal/health"
	"pengaduan/internal/identity"
	"pengaduan/internal/metrics"
	"pengaduan/internal/notify"
	"pengaduan/internal/ratelimit"
	"pengaduan/internal/report"
	"pengaduan/internal/server"
	"pengaduan/internal/storage"
	"pengaduan/internal/summary"
	"pengaduan/internal/telegram"
	"pengaduan/internal/workflow"
)

func main() {
	log.Println("🚀 Starting pengaduan dashboard service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Invalid configuration: ", err)
	}
	log.Println("✓ Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("📋 Initializing rate limiters...")
	gate, modeGate, closeGates := newGates(cfg)
	defer closeGates()

	client := api.New(cfg.APIBaseURL,
		api.WithHTTPClient(api.NewHTTPClient(cfg.HTTPTimeout)),
		api.WithGate(gate),
		api.WithModeGate(modeGate),
		api.WithToken(cfg.APIToken),
	)

	log.Println("📋 Initializing admin identity sources...")
	sources := []identity.Source{
		identity.StaticSource(cfg.AdminID),
		identity.SessionFileSource{Path: cfg.SessionFile},
	}
	if cfg.BrowserIdentity {
		holder := browser.NewContextHolder()
		defer holder.Cancel()
		sources = append(sources, identity.BrowserSource{Reader: browser.NewSession(holder, cfg.DashboardURL)})
		log.Println("✓ Browser identity source enabled")
	}
	resolver := identity.NewResolver(sources...)

	log.Println("📋 Initializing Telegram...")
	tg := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.DebugMode)
	boardOpts := []notify.Option{notify.WithTTL(cfg.NoticeTTL)}
	if tg != nil {
		boardOpts = append(boardOpts, notify.WithForwarder(tg))
	}
	board := notify.NewBoard(boardOpts...)

	observer := workflow.ObserverFunc(func(tr workflow.Transition) {
		metrics.RecordTransition(string(tr.From), string(tr.To))
		if tg == nil || !workflow.IsTerminal(tr.To) {
			return
		}
		go func() {
			sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tg.SendTransition(sendCtx, tr.ReportID, tr.From, tr.To, tr.Actor); err != nil {
				log.Println("⚠️  Failed to send transition to Telegram:", err)
			}
		}()
	})
	registry := workflow.NewRegistry(client, resolver,
		workflow.WithNotifier(board),
		workflow.WithObserver(observer),
	)

	log.Println("📋 Initializing report storage...")
	store := storage.New(cfg.StorageFile)
	monitor := health.NewMonitor()

	pollerOpts := []report.Option{
		report.WithHealth(monitor),
		report.WithSummary(func(ctx context.Context, counts summary.Counts) {
			sendSummary(ctx, tg, cfg.SummaryFile, counts)
		}),
	}
	if tg != nil {
		pollerOpts = append(pollerOpts, report.WithAnnouncer(tg), report.WithAlerter(tg))
	}
	poller := report.NewPoller(client, store, report.Config{
		Interval:    cfg.PollInterval,
		PageSize:    cfg.PollPageSize,
		MaxPages:    cfg.MaxPages,
		SendPause:   time.Second,
		SummaryEach: cfg.SummaryEvery,
	}, pollerOpts...)
	go poller.Run(ctx)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Deps{
		Engines:  registry,
		Modes:    client,
		Geocoder: geo.NewGeocoder(cfg.GeocoderURL, cfg.GeocodeTimeout),
		Notices:  board,
		Health:   monitor.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🌐 HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ HTTP server failed: ", err)
		}
	}()

	log.Println("✅ Service started")
	log.Println("═══════════════════════════════════════════════════════════")

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("⚠️  HTTP shutdown error:", err)
	}
	log.Println("✓ Stopped")
}

// newGates builds the general and mode limiters, shared through Redis when
// REDIS_URL is set and in memory otherwise. A Redis connection failure falls
// back to the in-memory limiters.
func newGates(cfg *config.Config) (ratelimit.Gate, ratelimit.Gate, func()) {
	memory := func() (ratelimit.Gate, ratelimit.Gate, func()) {
		return ratelimit.NewLimiter(cfg.RateLimitWindow, cfg.RateLimitMax, ratelimit.WithName("api")),
			ratelimit.NewLimiter(cfg.ModeRateLimitWindow, cfg.ModeRateLimitMax, ratelimit.WithName("mode")),
			func() {}
	}

	if cfg.RedisURL == "" {
		log.Println("✓ Using in-memory rate limiters")
		return memory()
	}

	general, err := ratelimit.NewRedisLimiter(cfg.RedisURL, "api", cfg.RateLimitWindow, cfg.RateLimitMax)
	if err != nil {
		log.Println("⚠️  Redis unavailable, using in-memory rate limiters:", err)
		return memory()
	}
	mode, err := ratelimit.NewRedisLimiter(cfg.RedisURL, "mode", cfg.ModeRateLimitWindow, cfg.ModeRateLimitMax)
	if err != nil {
		general.Close()
		log.Println("⚠️  Redis unavailable, using in-memory rate limiters:", err)
		return memory()
	}

	log.Println("✓ Using Redis rate limiters")
	return general, mode, func() {
		general.Close()
		mode.Close()
	}
}

// sendSummary renders the status chart to disk and posts it to Telegram.
func sendSummary(ctx context.Context, tg *telegram.Client, path string, counts summary.Counts) {
	title := "Rekap Pengaduan"
	png, err := summary.WriteFile(path, counts, title)
	if err != nil {
		log.Println("⚠️  Failed to render summary chart:", err)
		return
	}
	log.Printf("📊 Summary chart written to %s (%d reports)", path, counts.Total())

	caption := fmt.Sprintf("📊 %s %s\nTotal: %d laporan", title, time.Now().Format("02 Jan 2006 15:04"), counts.Total())
	if err := tg.SendPhoto(ctx, png, caption); err != nil {
		log.Println("⚠️  Failed to send summary chart:", err)
	}
}
