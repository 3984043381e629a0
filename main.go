package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"

	"phonetic-name-match/internal/admin"
	"phonetic-name-match/internal/auth"
	"phonetic-name-match/internal/batch"
	"phonetic-name-match/internal/matcher"
	"phonetic-name-match/internal/report"
	"phonetic-name-match/internal/server"
	"phonetic-name-match/pkg/config"
	"phonetic-name-match/pkg/container"
	"phonetic-name-match/pkg/events"
	"phonetic-name-match/pkg/health"
	"phonetic-name-match/pkg/logging"
	metricsPkg "phonetic-name-match/pkg/metrics"
	"phonetic-name-match/pkg/monitoring"
)

func main() {
	demo := flag.Bool("demo", false, "score a few sample pairs, print the breakdowns, and exit")
	flag.Parse()

	// Build container and register providers
	c := container.New()

	// Config (singleton)
	_ = c.Provide(func() *config.Config { return config.Load() }, true)

	// Structured logger (singleton)
	_ = c.Provide(func(cfg *config.Config) (*logging.Logger, error) {
		lc := logging.DefaultLogConfig()
		lc.Level = logging.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
		lc.EnableFile = cfg.EnableFileLogging
		lc.FilePath = cfg.LogFile
		return logging.NewLogger(lc)
	}, true)

	// Matching engine (singleton)
	_ = c.Provide(func(cfg *config.Config) (*matcher.Matcher, error) {
		mc, err := matcher.LoadConfig(cfg.MatchConfigPath)
		if err != nil {
			return nil, err
		}
		if cfg.MaxInputLength > 0 {
			mc.MaxInputLength = cfg.MaxInputLength
		}
		return matcher.New(mc)
	}, true)

	// Report renderer (singleton)
	_ = c.Provide(func() (*report.Manager, error) { return report.NewManager() }, true)

	// Batch engine (singleton)
	_ = c.Provide(func(cfg *config.Config, m *matcher.Matcher, logger *logging.Logger) *batch.Engine {
		bc := batch.DefaultConfig()
		if cfg.WorkerCount > 0 {
			bc.WorkerCount = cfg.WorkerCount
		}
		bc.RatePerSec = cfg.BatchRatePerSec
		bc.Burst = cfg.BatchBurst
		bc.QueueSize = cfg.BatchQueueSize
		return batch.New(m, bc, logger)
	}, true)

	// Editor access keys (singleton)
	_ = c.Provide(func(cfg *config.Config) *auth.EditorResolver {
		return auth.NewEditorResolver(cfg.AccessKeysPath)
	}, true)

	// Resolve config early for monitoring setup
	var cfg *config.Config
	if err := c.Resolve(&cfg); err != nil {
		log.Fatal("config resolve:", err)
	}
	monitoring.EnableProfiling(cfg.ProfilingEnabled)
	log.Println("Starting name match service")

	// Resolve runtime dependencies
	var (
		logger   *logging.Logger
		m        *matcher.Matcher
		reports  *report.Manager
		eng      *batch.Engine
		resolver *auth.EditorResolver
	)
	if err := c.Resolve(&logger); err != nil {
		log.Fatal("logger resolve:", err)
	}
	if err := c.Resolve(&m); err != nil {
		log.Fatal("matcher resolve:", err)
	}
	if err := c.Resolve(&reports); err != nil {
		log.Fatal("report resolve:", err)
	}
	if err := c.Resolve(&eng); err != nil {
		log.Fatal("batch engine resolve:", err)
	}
	if err := c.Resolve(&resolver); err != nil {
		log.Fatal("access keys resolve:", err)
	}
	defer logger.Close()

	if *demo {
		runDemo(m, reports)
		return
	}

	// Load templates
	if err := admin.LoadTemplates(Templates()); err != nil {
		log.Fatal("Failed to load templates:", err)
	}

	// Set base path for templates
	admin.SetBasePath(cfg.BasePath)

	// Wire the match activity log into the API, batch engine and dashboard
	es := events.NewMemoryStore(256)
	server.SetEventStore(es)
	admin.SetEventStore(es)
	eng.SetEventStore(es)

	startedAt := time.Now()
	eng.Start()

	// Graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Received shutdown signal, initiating graceful shutdown...")
		if err := eng.Stop(30 * time.Second); err != nil {
			log.Printf("Batch engine shutdown error: %v", err)
		}
		cancel()
	}()

	// Start config watcher for hot-reload (applies batch worker count)
	cw := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	cw.Start()
	chgCh := cw.Subscribe()
	go func() {
		for chg := range chgCh {
			if chg.Err != nil {
				log.Printf("Config reload failed: %v", chg.Err)
				continue
			}
			if chg.New.WorkerCount > 0 {
				eng.ApplyWorkerCount(chg.New.WorkerCount)
			}
			cfg = chg.New
			log.Printf("Config applied. Changed fields: %v", chg.Fields)
		}
	}()

	// Reload access keys periodically so editors can be added without a restart
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := resolver.Reload(); err != nil {
					log.Printf("Access keys reload failed: %v", err)
				}
			}
		}
	}()

	// Editor authentication: HTML routes redirect to the login form, API
	// routes answer with JSON.
	uiAuth := auth.NewEditorAuthMiddleware(resolver, admin.RejectBrowser())
	apiAuth := auth.NewEditorAuthMiddleware(resolver, server.UnauthorizedJSON)

	// HTTP routing
	router := mux.NewRouter()

	var metrics *monitoring.Metrics
	if cfg.MetricsEnabled {
		metrics = monitoring.NewMetrics(512)
		router.Use(monitoring.Middleware(metrics))
	}
	router.Use(server.RequestID)
	router.Use(server.AccessLog(logger))
	router.Use(server.CORS)
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Public routes
	router.HandleFunc("/login", admin.LoginPageHandler()).Methods("GET")
	router.HandleFunc("/login", admin.LoginSubmitHandler(resolver)).Methods("POST")
	router.HandleFunc("/logout", admin.LogoutHandler()).Methods("GET")
	router.HandleFunc("/api/ping", server.PingHandler()).Methods("GET")

	staticPath := cfg.BasePath + "static/"
	router.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(http.FS(Static()))))

	// JSON API
	api := router.PathPrefix("/api").Subrouter()
	api.Use(apiAuth.Handler)
	api.HandleFunc("/match", server.MatchHandler(m)).Methods("POST")
	api.HandleFunc("/match/report", server.ReportHandler(m, reports)).Methods("POST")
	api.HandleFunc("/match/batch", server.BatchSubmitHandler(eng, cfg.BatchMaxPairs, cfg.MaxInputLength)).Methods("POST")
	api.HandleFunc("/match/batch/{id}", server.BatchStatusHandler(eng)).Methods("GET")
	api.HandleFunc("/stats", server.StatsHandler(m, eng, resolver, cfg)).Methods("GET")

	// Editor UI
	ui := router.NewRoute().Subrouter()
	ui.Use(uiAuth.Handler)
	ui.HandleFunc("/", admin.MatchPageHandler()).Methods("GET")
	ui.HandleFunc("/dashboard", admin.DashboardHandler(m, eng, resolver, startedAt)).Methods("GET")

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	// Health endpoints on their own port
	healthManager := health.NewHealthManager(health.DefaultHealthConfig(), logger)
	healthManager.RegisterChecker(health.NewEngineHealthChecker("match_engine", func(target, reference string) (int, string, error) {
		res, err := m.Match(target, reference)
		if err != nil {
			return 0, "", err
		}
		return res.Percentage, res.Label, nil
	}))
	healthManager.RegisterChecker(health.NewWorkerPoolHealthChecker("batch_pool",
		func() interface{} { return eng.Stats() }, eng.QueueLoad))
	healthManager.RegisterChecker(health.NewHTTPHealthChecker(
		"http://localhost:"+cfg.Port+"/api/ping", "api", 5*time.Second))

	healthServer := health.NewHealthServer(healthManager, ":"+cfg.HealthCheckPort, logger)
	if err := healthServer.Start(); err != nil {
		log.Printf("Health server failed to start: %v", err)
	}

	var adminServer *http.Server
	if cfg.ProfilingEnabled || cfg.MetricsEnabled {
		adminMux := http.NewServeMux()
		if cfg.ProfilingEnabled {
			monitoring.RegisterPprof(adminMux)
		}
		if cfg.MetricsEnabled {
			// Expose Prometheus-compatible metrics at configurable path (default: /metrics)
			adminMux.Handle(cfg.MetricsPath, metricsPkg.Handler())
		}
		// Keep lightweight JSON metrics for humans at /metrics.json (non-Prometheus)
		if cfg.MetricsEnabled && metrics != nil && cfg.MetricsPath != "/metrics.json" {
			adminMux.Handle("/metrics.json", monitoring.MetricsHandlerWithPool(metrics, func() (monitoring.PoolMetrics, error) {
				st := eng.Stats()
				return monitoring.PoolMetrics{
					SubmittedJobs: st.TotalJobs,
					CompletedJobs: st.CompletedJobs,
					FailedJobs:    st.FailedJobs,
					PendingJobs:   int(st.QueueSize),
					Workers:       st.WorkerCount,
					AvgPercentage: st.AvgPercentage,
				}, nil
			}))
		}
		adminServer = &http.Server{Addr: ":" + cfg.ProfilingPort, Handler: adminMux}
		go func() {
			fmt.Printf("Admin server (pprof/metrics) starting on port %s\n", cfg.ProfilingPort)
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Admin HTTP server error: %v", err)
			}
		}()
	}

	// Start runtime performance monitor (alerts)
	if cfg.AlertsEnabled && cfg.MetricsEnabled && metrics != nil {
		go monitoring.StartRuntimeMonitor(ctx, cfg, metrics, func(format string, a ...any) { log.Printf(format, a...) })
	}

	go func() {
		fmt.Printf("Server starting on port %s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error:", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Admin HTTP server shutdown error: %v", err)
		}
	}
	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Printf("Health server shutdown error: %v", err)
	}
	cw.Close()
	log.Println("Application shutdown complete")
}

// runDemo scores a handful of representative pairs and prints the full
// breakdown for each to stdout.
func runDemo(m *matcher.Matcher, reports *report.Manager) {
	pairs := [][2]string{
		{"Muhammad", "Mohd"},
		{"John Doe", "J Doe"},
		{"JK Rowling", "Joanne Kathleen Rowling"},
		{"Abu Bakar", "Abubakar"},
	}
	for _, p := range pairs {
		result, err := m.Match(p[0], p[1])
		if err != nil {
			log.Fatalf("match %q vs %q: %v", p[0], p[1], err)
		}
		out, err := reports.Report(result)
		if err != nil {
			log.Fatalf("report %q vs %q: %v", p[0], p[1], err)
		}
		fmt.Println(out)
	}
}
