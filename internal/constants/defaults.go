package constants

import "time"

// Centralized default values for timeouts, intervals, and related settings.
// These provide sane defaults; environment/config may override where supported.

const (
	// Batch engine
	BatchJobTimeoutDefault  = 5 * time.Second
	BatchWorkerCountDefault = 8
	BatchQueueSizeDefault   = 256
	BatchMaxPairsPerRequest = 500
	BatchStoredJobsDefault  = 1000

	// Health
	HealthTimeoutDefault = 30 * time.Second

	// Config watcher
	ConfigWatcherIntervalDefault = 2 * time.Second

	// App shutdown
	GracefulShutdownTimeoutDefault = 10 * time.Second

	// HTTP server
	ReadHeaderTimeoutDefault = 5 * time.Second

	// Monitoring
	MonitoringIntervalDefault = 5 * time.Second
)
