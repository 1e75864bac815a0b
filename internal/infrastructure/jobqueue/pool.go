package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Handler runs one job attempt. A returned error fails the attempt; the
// queue decides whether it is retried.
type Handler interface {
	Handle(ctx context.Context, job *JobRun) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *JobRun) error

func (f HandlerFunc) Handle(ctx context.Context, job *JobRun) error {
	return f(ctx, job)
}

// Queue is the part of Store the pool drives.
type Queue interface {
	ClaimNext(ctx context.Context, types []string) (*JobRun, error)
	Heartbeat(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, job *JobRun, cause error) (Status, error)
	RequeueStale(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// PoolConfig tunes the worker pool.
type PoolConfig struct {
	Workers           int
	PollInterval      time.Duration
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	StaleTimeout      time.Duration
}

// DefaultPoolConfig returns the settings used for zero config fields.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:           4,
		PollInterval:      time.Second,
		JobTimeout:        30 * time.Minute,
		HeartbeatInterval: 15 * time.Second,
		StaleTimeout:      2 * time.Minute,
	}
}

func (c PoolConfig) withDefaults() PoolConfig {
	d := DefaultPoolConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.StaleTimeout <= 0 {
		c.StaleTimeout = d.StaleTimeout
	}
	return c
}

// Pool runs registered handlers for jobs claimed from a Queue.
type Pool struct {
	config  PoolConfig
	queue   Queue
	metrics *Metrics
	logger  *zap.Logger

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	mu         sync.Mutex
	running    bool
	quit       chan struct{}
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup
}

// NewPool creates a stopped pool. metrics may be nil.
func NewPool(config PoolConfig, queue Queue, metrics *Metrics, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		config:   config.withDefaults(),
		queue:    queue,
		metrics:  metrics,
		logger:   log.Named("jobqueue"),
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job type, replacing any previous one.
func (p *Pool) Register(jobType string, h Handler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.handlers[jobType] = h
}

func (p *Pool) handler(jobType string) (Handler, bool) {
	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()
	h, ok := p.handlers[jobType]
	return h, ok
}

// jobTypes lists the registered types so workers never claim a job they
// cannot run.
func (p *Pool) jobTypes() []string {
	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()
	types := make([]string, 0, len(p.handlers))
	for t := range p.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Start launches the workers and the stale-job reaper.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrPoolAlreadyRunning
	}
	p.running = true
	p.quit = make(chan struct{})

	// Jobs outlive the caller's ctx so Stop can drain them gracefully.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancelJobs = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(jobCtx, i)
	}
	p.wg.Add(1)
	go p.reaper(jobCtx)

	p.logger.Info("job pool started",
		zap.Int("workers", p.config.Workers),
		zap.Strings("job_types", p.jobTypes()),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop waits for running jobs to finish. When ctx expires first, running
// jobs are cancelled and ctx's error is returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPoolNotRunning
	}
	p.running = false
	close(p.quit)
	cancel := p.cancelJobs
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		p.logger.Info("job pool stopped")
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		p.logger.Warn("job pool stop timed out, running jobs were cancelled")
		return ctx.Err()
	}
}

// IsRunning reports whether Start was called without a matching Stop.
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker_id", id))

	for {
		select {
		case <-p.quit:
			return
		default:
		}

		job, err := p.queue.ClaimNext(ctx, p.jobTypes())
		if err != nil {
			log.Error("claim failed", zap.Error(err))
		}
		if job == nil {
			if !p.sleep(p.config.PollInterval) {
				return
			}
			continue
		}
		p.run(ctx, job)
	}
}

// sleep waits d and reports false when the pool is stopping.
func (p *Pool) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.quit:
		return false
	case <-t.C:
		return true
	}
}

func (p *Pool) reaper(ctx context.Context) {
	defer p.wg.Done()
	for p.sleep(p.config.StaleTimeout / 2) {
		n, err := p.queue.RequeueStale(ctx, p.config.StaleTimeout)
		if err != nil {
			p.logger.Error("requeue stale jobs failed", zap.Error(err))
			continue
		}
		if n > 0 {
			p.logger.Warn("requeued stale jobs", zap.Int64("count", n))
		}
	}
}

func (p *Pool) run(ctx context.Context, job *JobRun) {
	p.metrics.claimed(job.JobType)
	start := time.Now()

	ctx = logger.WithTenantID(ctx, job.TenantID.String())
	ctx = logger.WithJobID(ctx, job.ID.String())
	ctx = logger.WithContext(ctx, p.logger.With(
		zap.String("job_type", job.JobType),
		zap.Int("attempt", job.Attempts),
	))
	log := logger.L(ctx)

	ctx, span := telemetry.StartSpan(ctx, "job "+job.JobType,
		telemetry.AttrJobType.String(job.JobType),
		telemetry.AttrTenantID.String(job.TenantID.String()),
		attribute.Int("job.attempt", job.Attempts),
	)

	runCtx, cancel := context.WithCancelCause(ctx)
	runCtx, cancelTimeout := context.WithTimeout(runCtx, p.config.JobTimeout)
	stopHeartbeat := p.heartbeat(runCtx, job.ID, cancel)

	var err error
	telemetry.WithProfilingLabels(runCtx, map[string]string{
		telemetry.ProfilingLabelJobType:  job.JobType,
		telemetry.ProfilingLabelTenantID: job.TenantID.String(),
	}, func(c context.Context) {
		err = p.execute(c, job)
	})

	stopHeartbeat()
	cancelTimeout()
	cause := context.Cause(runCtx)
	cancel(nil)

	// Finishing writes must land even when the pool is shutting down.
	ctx = context.WithoutCancel(ctx)
	switch {
	case errors.Is(cause, ErrJobNotRunning):
		log.Info("job stopped, no longer running", zap.Duration("duration", time.Since(start)))
		p.metrics.observe(job.JobType, "cancelled", start)
		telemetry.EndSpan(span, nil)
	case err == nil:
		if mErr := p.queue.MarkSucceeded(ctx, job.ID); mErr != nil {
			log.Error("mark succeeded failed", zap.Error(mErr))
		}
		p.metrics.succeeded(job.JobType)
		p.metrics.observe(job.JobType, "succeeded", start)
		log.Info("job succeeded", zap.Duration("duration", time.Since(start)))
		telemetry.EndSpan(span, nil)
	default:
		status, mErr := p.queue.MarkFailed(ctx, job, err)
		if mErr != nil {
			log.Error("mark failed failed", zap.Error(mErr))
		}
		p.metrics.failed(job.JobType, status)
		p.metrics.observe(job.JobType, "failed", start)
		log.Warn("job attempt failed",
			zap.Error(err),
			zap.String("next_status", string(status)),
			zap.Duration("duration", time.Since(start)),
		)
		telemetry.EndSpan(span, err)
	}
}

// execute runs the handler and turns a panic into an error.
func (p *Pool) execute(ctx context.Context, job *JobRun) (err error) {
	h, ok := p.handler(job.JobType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.JobType)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.L(ctx).Error("job handler panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, job)
}

// heartbeat keeps the job's lease alive until the returned stop func is
// called. A lost lease cancels ctx with ErrJobNotRunning.
func (p *Pool) heartbeat(ctx context.Context, id uuid.UUID, cancel context.CancelCauseFunc) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(p.config.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := p.queue.Heartbeat(ctx, id)
				if errors.Is(err, ErrJobNotRunning) {
					cancel(ErrJobNotRunning)
					return
				}
				if err != nil {
					logger.L(ctx).Warn("heartbeat failed", zap.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
