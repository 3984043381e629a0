package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	WorkerCount int

	// Matching engine settings
	MatchConfigPath string // path to a YAML engine override; empty = built-in defaults
	MaxInputLength  int

	// Batch processing settings
	BatchRatePerSec int
	BatchBurst      int
	BatchQueueSize  int
	BatchMaxPairs   int

	// Access control settings
	AccessKeysPath string

	// Monitoring and logging settings
	LogLevel          string
	LogFormat         string // "json" or "text"
	LogFile           string
	EnableFileLogging bool

	// Health check settings
	HealthCheckPort string
	HealthCheckPath string

	// Web interface settings
	BasePath string

	// Environment & profiling/metrics
	Env              string // development, staging, production
	ProfilingEnabled bool
	ProfilingPort    string // also used as admin port
	MetricsEnabled   bool
	MetricsPath      string

	// Performance alerts
	AlertsEnabled    bool
	AlertP95Ms       float64       // trigger when p95 request duration exceeds this (ms)
	AlertGoroutines  int           // trigger when goroutine count exceeds this
	AlertMemAllocMB  float64       // trigger when Alloc exceeds this (MB)
	AlertGCPauseMs   float64       // trigger when last GC pause exceeds this (ms)
	AlertSampleEvery time.Duration // sampling interval

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	workerCount, _ := strconv.Atoi(getEnv("WORKER_COUNT", "0")) // 0 = use default

	maxInputLength, _ := strconv.Atoi(getEnv("MAX_INPUT_LENGTH", "512"))

	// Batch settings with defaults
	batchRate, _ := strconv.Atoi(getEnv("BATCH_RATE_PER_SEC", "50"))
	batchBurst, _ := strconv.Atoi(getEnv("BATCH_BURST", "10"))
	batchQueueSize, _ := strconv.Atoi(getEnv("BATCH_QUEUE_SIZE", "256"))
	batchMaxPairs, _ := strconv.Atoi(getEnv("BATCH_MAX_PAIRS", "500"))

	// Parse boolean environment variables
	enableFileLogging, _ := strconv.ParseBool(getEnv("ENABLE_FILE_LOGGING", "false"))

	// Environment and profiling defaults
	env := strings.ToLower(getEnv("ENV", "development"))
	profPort := getEnv("PROFILING_PORT", "6060")
	metricsPath := getEnv("METRICS_PATH", "/metrics")

	// Default toggles based on env
	profilingDefault := env == "development" || env == "staging"
	profilingEnabled, _ := strconv.ParseBool(getEnv("PROFILING_ENABLED", strconv.FormatBool(profilingDefault)))
	metricsDefault := profilingDefault
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", strconv.FormatBool(metricsDefault)))

	// Alerts defaults
	alertsDefault := profilingDefault
	alertsEnabled, _ := strconv.ParseBool(getEnv("ALERTS_ENABLED", strconv.FormatBool(alertsDefault)))
	alertP95Ms, _ := strconv.ParseFloat(getEnv("ALERT_P95_MS", "500"), 64)
	alertGoroutines, _ := strconv.Atoi(getEnv("ALERT_GOROUTINES", "500"))
	alertMemAllocMB, _ := strconv.ParseFloat(getEnv("ALERT_MEM_ALLOC_MB", "512"), 64)
	alertGCPauseMs, _ := strconv.ParseFloat(getEnv("ALERT_GC_PAUSE_MS", "200"), 64)
	alertSampleEverySec, _ := strconv.Atoi(getEnv("ALERT_SAMPLE_EVERY_SEC", "5"))

	// Config reload
	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "2"))

	if maxInputLength < 0 {
		log.Printf("[Warning] MAX_INPUT_LENGTH is negative (%d), using 0 to disable the cap", maxInputLength)
		maxInputLength = 0
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		WorkerCount: workerCount,

		MatchConfigPath: getEnv("MATCH_CONFIG_PATH", ""),
		MaxInputLength:  maxInputLength,

		BatchRatePerSec: batchRate,
		BatchBurst:      batchBurst,
		BatchQueueSize:  batchQueueSize,
		BatchMaxPairs:   batchMaxPairs,

		AccessKeysPath: getEnv("ACCESS_KEYS_PATH", "config/access.yaml"),

		// Monitoring and logging settings
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", "/var/log/name-match/app.log"),
		EnableFileLogging: enableFileLogging,

		// Health check settings
		HealthCheckPort: getEnv("HEALTH_CHECK_PORT", "8081"),
		HealthCheckPath: getEnv("HEALTH_CHECK_PATH", "/health"),

		// Web interface settings
		BasePath: getEnv("BASE_PATH", "/"),

		// Environment & profiling/metrics
		Env:              env,
		ProfilingEnabled: profilingEnabled,
		ProfilingPort:    profPort,
		MetricsEnabled:   metricsEnabled,
		MetricsPath:      metricsPath,

		// Alerts
		AlertsEnabled:    alertsEnabled,
		AlertP95Ms:       alertP95Ms,
		AlertGoroutines:  alertGoroutines,
		AlertMemAllocMB:  alertMemAllocMB,
		AlertGCPauseMs:   alertGCPauseMs,
		AlertSampleEvery: time.Duration(alertSampleEverySec) * time.Second,

		ConfigReloadIntervalSeconds: reloadIntSec,
	}

	log.Printf("Config: Env=%s, Workers=%d, MaxInputLength=%d",
		cfg.Env, cfg.WorkerCount, cfg.MaxInputLength)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
