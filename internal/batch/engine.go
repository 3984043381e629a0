// Package batch runs name comparison jobs on a worker pool. A job is a list
// of name pairs; workers score every pair through the matcher and results are
// kept in memory for later pickup by job ID.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"phonetic-name-match/internal/constants"
	"phonetic-name-match/internal/matcher"
	"phonetic-name-match/internal/models"
	"phonetic-name-match/pkg/events"
	"phonetic-name-match/pkg/logging"
	"phonetic-name-match/pkg/metrics"
)

var (
	mJobsSubmitted = metrics.Default.Counter("batch_jobs_submitted_total", "Batch jobs accepted into the queue")
	mJobsRejected  = metrics.Default.Counter("batch_jobs_rejected_total", "Batch submissions rejected by rate limit or full queue")
	mJobsCompleted = metrics.Default.Counter("batch_jobs_completed_total", "Batch jobs completed with at least one scored pair")
	mJobsFailed    = metrics.Default.Counter("batch_jobs_failed_total", "Batch jobs where no pair produced a score")
	mPairsScored   = metrics.Default.Counter("batch_pairs_scored_total", "Name pairs scored by batch workers")
)

// Submit errors. The HTTP layer maps these to status codes.
var (
	ErrQueueFull    = errors.New("batch queue is full")
	ErrRateLimited  = errors.New("batch rate limit exceeded")
	ErrShuttingDown = errors.New("batch engine is shutting down")
	ErrEmptyBatch   = errors.New("batch contains no pairs")
)

// JobState tracks where a job is in its lifecycle.
type JobState string

const (
	StateQueued  JobState = "queued"
	StateRunning JobState = "running"
	StateDone    JobState = "done"
	StateUnknown JobState = "unknown"
)

// Job is a queued unit of batch work.
type Job struct {
	ID          string
	Pairs       []models.MatchRequest
	SubmittedBy string
	SubmittedAt time.Time
}

// JobResult is the completed outcome of a job. Failed means no pair in the
// job produced a score.
type JobResult struct {
	JobID         string               `json:"job_id"`
	SubmittedBy   string               `json:"submitted_by,omitempty"`
	SubmittedAt   time.Time            `json:"submitted_at"`
	CompletedAt   time.Time            `json:"completed_at"`
	DurationMs    int64                `json:"duration_ms"`
	Pairs         int                  `json:"pairs"`
	Errored       int                  `json:"errored"`
	AvgPercentage float64              `json:"avg_percentage"`
	Failed        bool                 `json:"failed"`
	Results       []models.BatchResult `json:"results"`
}

// BatchStats tracks engine-wide counters since start.
type BatchStats struct {
	TotalJobs      int64     `json:"total_jobs"`
	CompletedJobs  int64     `json:"completed_jobs"`
	FailedJobs     int64     `json:"failed_jobs"`
	CompletedPairs int64     `json:"completed_pairs"`
	ErroredPairs   int64     `json:"errored_pairs"`
	AverageJobMs   int64     `json:"average_job_ms"`
	AvgPercentage  float64   `json:"avg_percentage"`
	StartTime      time.Time `json:"start_time"`
	LastActivity   time.Time `json:"last_activity"`
	WorkerCount    int       `json:"worker_count"`
	QueueSize      int64     `json:"queue_size"`
}

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	tokens   chan struct{}
	interval time.Duration
	capacity int
	ticker   *time.Ticker
	mu       sync.Mutex
	running  bool
}

func NewRateLimiter(rps int, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = rps
	}

	rl := &RateLimiter{
		tokens:   make(chan struct{}, burst),
		interval: time.Duration(1000000000/rps) * time.Nanosecond,
		capacity: burst,
	}

	// Fill initial tokens
	for i := 0; i < burst; i++ {
		rl.tokens <- struct{}{}
	}

	return rl
}

func (rl *RateLimiter) Start() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.running {
		return
	}

	rl.ticker = time.NewTicker(rl.interval)
	rl.running = true

	go func() {
		for range rl.ticker.C {
			select {
			case rl.tokens <- struct{}{}:
			default:
				// Bucket is full, drop token
			}
		}
	}()
}

func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.running {
		return
	}

	rl.ticker.Stop()
	rl.running = false
}

// TryAcquire takes a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	select {
	case <-rl.tokens:
		return true
	default:
		return false
	}
}

// Config holds batch engine settings.
type Config struct {
	WorkerCount int
	JobTimeout  time.Duration
	RatePerSec  int // job submissions per second
	Burst       int // submission burst capacity
	QueueSize   int // job queue buffer size
	MaxStored   int // completed jobs kept for pickup
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount: constants.BatchWorkerCountDefault,
		JobTimeout:  constants.BatchJobTimeoutDefault,
		RatePerSec:  50,
		Burst:       10,
		QueueSize:   constants.BatchQueueSizeDefault,
		MaxStored:   constants.BatchStoredJobsDefault,
	}
}

// Engine runs jobs on a pool of workers. Submit is safe for concurrent use;
// Start must be called before the first Submit.
type Engine struct {
	matcher *matcher.Matcher
	logger  *logging.ComponentLogger

	workerCount int
	jobTimeout  time.Duration
	maxStored   int

	rate *RateLimiter

	jobQueue   chan Job
	resultChan chan JobResult
	ctx        context.Context
	cancel     context.CancelFunc
	workerWg   sync.WaitGroup
	procWg     sync.WaitGroup

	stats       BatchStats
	totalPct    float64
	totalScored int64
	statsMu     sync.RWMutex
	queueLen    int64 // atomic; lives outside stats so the struct copy stays race-free

	states    map[string]JobState
	results   map[string]JobResult
	doneOrder []string
	storeMu   sync.RWMutex

	workerQuit   chan struct{}
	nextWorkerID int64

	submitMu     sync.RWMutex
	shutdown     chan struct{}
	shutdownOnce sync.Once

	eventSink events.Store
}

// SetEventStore wires an activity log. Call before Start.
func (e *Engine) SetEventStore(es events.Store) { e.eventSink = es }

// New creates a batch engine. Zero config values fall back to defaults.
func New(m *matcher.Matcher, cfg Config, logger *logging.Logger) *Engine {
	def := DefaultConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxStored <= 0 {
		cfg.MaxStored = def.MaxStored
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = def.RatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		matcher:     m,
		logger:      logger.WithComponent("batch"),
		workerCount: cfg.WorkerCount,
		jobTimeout:  cfg.JobTimeout,
		maxStored:   cfg.MaxStored,
		rate:        NewRateLimiter(cfg.RatePerSec, cfg.Burst),
		jobQueue:    make(chan Job, cfg.QueueSize),
		resultChan:  make(chan JobResult, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		states:      make(map[string]JobState),
		results:     make(map[string]JobResult),
		workerQuit:  make(chan struct{}, 128),
		shutdown:    make(chan struct{}),
		stats: BatchStats{
			StartTime:    time.Now(),
			LastActivity: time.Now(),
		},
	}
}

// Start launches the rate limiter, result processor and workers.
func (e *Engine) Start() {
	e.logger.Info("Starting batch engine",
		logging.Int("workers", e.workerCount),
		logging.Int("queue_size", cap(e.jobQueue)))

	e.rate.Start()

	e.procWg.Add(1)
	go e.resultProcessor()

	e.ApplyWorkerCount(e.workerCount)
}

// Stop drains the queue and shuts the engine down. Jobs already queued are
// finished unless the timeout expires first.
func (e *Engine) Stop(timeout time.Duration) error {
	var err error

	e.shutdownOnce.Do(func() {
		e.logger.Info("Stopping batch engine")

		e.submitMu.Lock()
		close(e.shutdown)
		close(e.jobQueue)
		e.submitMu.Unlock()

		done := make(chan struct{})
		go func() {
			e.workerWg.Wait()
			close(e.resultChan)
			e.procWg.Wait()
			close(done)
		}()

		select {
		case <-done:
			e.logger.Info("Batch engine drained and stopped")
		case <-time.After(timeout):
			e.logger.Warn("Batch shutdown timeout reached, forcing exit")
			err = errors.New("batch shutdown timeout exceeded")
		}

		e.cancel()
		e.rate.Stop()
	})

	return err
}

// Submit queues a job and returns its ID. Fails fast when shutting down,
// rate limited or the queue is full.
func (e *Engine) Submit(pairs []models.MatchRequest, submittedBy string) (string, error) {
	if len(pairs) == 0 {
		return "", ErrEmptyBatch
	}

	e.submitMu.RLock()
	defer e.submitMu.RUnlock()

	select {
	case <-e.shutdown:
		return "", ErrShuttingDown
	default:
	}

	if !e.rate.TryAcquire() {
		mJobsRejected.Inc(1)
		return "", ErrRateLimited
	}

	job := Job{
		ID:          uuid.New().String(),
		Pairs:       pairs,
		SubmittedBy: submittedBy,
		SubmittedAt: time.Now(),
	}

	select {
	case e.jobQueue <- job:
		atomic.AddInt64(&e.queueLen, 1)
	case <-e.ctx.Done():
		return "", ErrShuttingDown
	default:
		mJobsRejected.Inc(1)
		return "", ErrQueueFull
	}

	e.setState(job.ID, StateQueued)
	e.statsMu.Lock()
	e.stats.TotalJobs++
	e.statsMu.Unlock()
	mJobsSubmitted.Inc(1)

	e.logger.Debug("Queued batch job",
		logging.String("job_id", job.ID),
		logging.String("submitted_by", submittedBy),
		logging.Int("pairs", len(pairs)))

	return job.ID, nil
}

// Lookup returns the job result (when done) and the job's current state.
func (e *Engine) Lookup(id string) (JobResult, JobState) {
	e.storeMu.RLock()
	defer e.storeMu.RUnlock()

	if res, ok := e.results[id]; ok {
		return res, StateDone
	}
	if state, ok := e.states[id]; ok {
		return JobResult{}, state
	}
	return JobResult{}, StateUnknown
}

// Stats returns a copy of the current counters.
func (e *Engine) Stats() BatchStats {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()

	stats := e.stats
	stats.QueueSize = atomic.LoadInt64(&e.queueLen)
	if e.totalScored > 0 {
		stats.AvgPercentage = e.totalPct / float64(e.totalScored)
	}
	return stats
}

// QueueLoad reports queue fullness between 0.0 and 1.0.
func (e *Engine) QueueLoad() float64 {
	if cap(e.jobQueue) == 0 {
		return 0
	}
	return float64(len(e.jobQueue)) / float64(cap(e.jobQueue))
}

// ApplyWorkerCount grows or shrinks the pool to n workers. Safe to call
// while jobs are in flight; shrinking lets busy workers finish their job.
func (e *Engine) ApplyWorkerCount(n int) {
	if n <= 0 {
		n = constants.BatchWorkerCountDefault
	}

	e.statsMu.Lock()
	cur := e.stats.WorkerCount
	e.stats.WorkerCount = n
	e.statsMu.Unlock()

	switch {
	case n > cur:
		for i := cur; i < n; i++ {
			e.workerWg.Add(1)
			go e.worker(int(atomic.AddInt64(&e.nextWorkerID, 1)))
		}
		e.logger.Info("Scaled batch workers",
			logging.Int("from", cur),
			logging.Int("to", n))
	case n < cur:
		for i := 0; i < cur-n; i++ {
			select {
			case e.workerQuit <- struct{}{}:
			default:
			}
		}
		e.logger.Info("Scaled batch workers",
			logging.Int("from", cur),
			logging.Int("to", n))
	}
}

// worker processes jobs from the queue
func (e *Engine) worker(id int) {
	defer e.workerWg.Done()

	e.logger.Debug("Worker started", logging.Int("worker", id))
	defer e.logger.Debug("Worker stopped", logging.Int("worker", id))

	for {
		select {
		case <-e.workerQuit:
			return
		case job, ok := <-e.jobQueue:
			if !ok {
				return // Queue closed, worker should exit
			}

			atomic.AddInt64(&e.queueLen, -1)
			e.setState(job.ID, StateRunning)
			result := e.runJob(job)

			select {
			case e.resultChan <- result:
			case <-e.ctx.Done():
				return
			}

		case <-e.ctx.Done():
			return
		}
	}
}

// runJob scores every pair in the job. Once the job deadline passes,
// remaining pairs are marked as timed out instead of scored.
func (e *Engine) runJob(job Job) JobResult {
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(e.ctx, e.jobTimeout)
	defer cancel()

	out := JobResult{
		JobID:       job.ID,
		SubmittedBy: job.SubmittedBy,
		SubmittedAt: job.SubmittedAt,
		Pairs:       len(job.Pairs),
		Results:     make([]models.BatchResult, 0, len(job.Pairs)),
	}

	var pctSum float64
	scored := 0

	for _, pair := range job.Pairs {
		br := models.BatchResult{Request: pair, CompletedAt: time.Now()}

		if err := jobCtx.Err(); err != nil {
			br.Err = "job cancelled: " + err.Error()
			out.Results = append(out.Results, br)
			continue
		}

		res, err := e.matcher.Match(pair.Target, pair.Reference)
		if err != nil {
			br.Err = err.Error()
		} else {
			br.Result = &res
			pctSum += float64(res.Percentage)
			scored++
			mPairsScored.Inc(1)
		}
		out.Results = append(out.Results, br)
	}

	out.Errored = out.Pairs - scored
	if scored > 0 {
		out.AvgPercentage = pctSum / float64(scored)
	}
	out.Failed = scored == 0 && out.Pairs > 0
	out.CompletedAt = time.Now()
	out.DurationMs = time.Since(start).Milliseconds()

	e.statsMu.Lock()
	e.totalPct += pctSum
	e.totalScored += int64(scored)
	e.statsMu.Unlock()

	return out
}

// resultProcessor folds completed jobs into stats and the result store.
func (e *Engine) resultProcessor() {
	defer e.procWg.Done()

	e.logger.Debug("Result processor started")
	defer e.logger.Debug("Result processor stopped")

	for result := range e.resultChan {
		e.handleResult(result)
	}
}

func (e *Engine) handleResult(result JobResult) {
	e.statsMu.Lock()
	e.stats.CompletedJobs++
	e.stats.LastActivity = time.Now()
	e.stats.CompletedPairs += int64(result.Pairs - result.Errored)
	e.stats.ErroredPairs += int64(result.Errored)

	if e.stats.CompletedJobs == 1 {
		e.stats.AverageJobMs = result.DurationMs
	} else {
		e.stats.AverageJobMs = (e.stats.AverageJobMs + result.DurationMs) / 2
	}

	if result.Failed {
		e.stats.FailedJobs++
	}
	e.statsMu.Unlock()

	if result.Failed {
		mJobsFailed.Inc(1)
		e.logger.Warn("Batch job failed",
			logging.String("job_id", result.JobID),
			logging.Int("pairs", result.Pairs),
			logging.Int("errored", result.Errored))
	} else {
		mJobsCompleted.Inc(1)
		e.logger.Info("Batch job completed",
			logging.String("job_id", result.JobID),
			logging.Int("pairs", result.Pairs),
			logging.Int("errored", result.Errored),
			logging.Int64("duration_ms", result.DurationMs))
	}

	if e.eventSink != nil {
		var ed *string
		if result.SubmittedBy != "" {
			by := result.SubmittedBy
			ed = &by
		}
		_ = e.eventSink.Append(e.ctx, events.BatchCompleted{
			Base:          events.Base{Ts: result.CompletedAt, Ed: ed},
			JobID:         result.JobID,
			Pairs:         result.Pairs,
			Errored:       result.Errored,
			AvgPercentage: result.AvgPercentage,
			Failed:        result.Failed,
		})
	}

	e.store(result)
}

// store keeps the result for pickup, evicting the oldest beyond capacity.
func (e *Engine) store(result JobResult) {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	e.states[result.JobID] = StateDone
	e.results[result.JobID] = result
	e.doneOrder = append(e.doneOrder, result.JobID)

	for len(e.doneOrder) > e.maxStored {
		oldest := e.doneOrder[0]
		e.doneOrder = e.doneOrder[1:]
		delete(e.results, oldest)
		delete(e.states, oldest)
	}
}

func (e *Engine) setState(id string, state JobState) {
	e.storeMu.Lock()
	e.states[id] = state
	e.storeMu.Unlock()
}
