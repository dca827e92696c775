package adsb

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is the refresh period used by the dashboard.
const DefaultPollInterval = 5 * time.Second

// Poll outcomes reported to a PollObserver.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// PollResult is delivered to the sink for every applied poll.
type PollResult struct {
	// Seq is the poll's issue number; applied results have increasing Seq
	Seq uint64

	// Aircraft is the normalized list (nil when Err is set)
	Aircraft []Aircraft

	// Err is the final error after retries
	Err error

	// FetchedAt is when the poll finished
	FetchedAt time.Time

	// Duration covers the fetch including retries
	Duration time.Duration
}

// PollObserver receives poll statistics, typically a metrics registry.
type PollObserver interface {
	PollCompleted(outcome string, duration time.Duration, aircraft int)
	PollDiscarded()
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Interval between poll issues (default: 5 seconds)
	Interval time.Duration

	// Retry policy applied to each poll
	Retry RetryConfig
}

// DefaultPollerConfig returns a 5 second interval with DefaultRetryConfig.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: DefaultPollInterval,
		Retry:    DefaultRetryConfig(),
	}
}

// Poller fetches the feed on a fixed interval and delivers normalized
// results to a sink. Polls are issued on schedule even when an earlier one
// is still in flight; a result is applied only if no later-issued poll has
// already been applied.
type Poller struct {
	source     FeedSource
	normalizer *Normalizer
	cfg        PollerConfig
	logger     *zap.Logger
	observer   PollObserver
}

// NewPoller creates a Poller. logger and observer may be nil.
func NewPoller(source FeedSource, normalizer *Normalizer, cfg PollerConfig, logger *zap.Logger, observer PollObserver) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = logger
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Poller{
		source:     source,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
		observer:   observer,
	}
}

// PollHandle controls a running poll loop.
type PollHandle struct {
	poller *Poller
	sink   func(PollResult)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	issued   atomic.Uint64
	stopOnce sync.Once

	mu      sync.Mutex
	applied uint64
	stopped bool
}

// Start issues a poll immediately and then every Interval until ctx is
// cancelled or Stop is called.
//
// sink is called from poll goroutines, one call at a time. It must not call
// Stop on the same handle.
func (p *Poller) Start(ctx context.Context, sink func(PollResult)) *PollHandle {
	hctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{
		poller: p,
		sink:   sink,
		ctx:    hctx,
		cancel: cancel,
	}

	h.wg.Add(1)
	go h.loop()
	return h
}

// Stop cancels in-flight polls and waits for them to exit. After Stop
// returns the sink is never called again. Safe to call more than once.
func (h *PollHandle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		h.cancel()
		h.wg.Wait()
	})
}

// Done is closed once the poll loop has been cancelled.
func (h *PollHandle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// LastApplied returns the Seq of the most recently delivered result.
func (h *PollHandle) LastApplied() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.applied
}

func (h *PollHandle) loop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.poller.cfg.Interval)
	defer ticker.Stop()

	h.issue()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.issue()
		}
	}
}

// issue starts one poll in its own goroutine.
func (h *PollHandle) issue() {
	seq := h.issued.Add(1)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		start := time.Now()
		raw, err := RetryWithBackoffResult(h.ctx, h.poller.cfg.Retry, func() ([]RawAircraft, error) {
			return h.poller.source.FetchAircraft(h.ctx)
		})
		h.apply(seq, raw, err, time.Since(start))
	}()
}

// apply delivers a finished poll unless a newer one has already been applied.
func (h *PollHandle) apply(seq uint64, raw []RawAircraft, err error, elapsed time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped || h.ctx.Err() != nil {
		return
	}

	p := h.poller
	if seq <= h.applied {
		p.logger.Debug("discarding stale poll result",
			zap.Uint64("seq", seq),
			zap.Uint64("applied", h.applied),
		)
		if p.observer != nil {
			p.observer.PollDiscarded()
		}
		return
	}
	h.applied = seq

	result := PollResult{
		Seq:       seq,
		Err:       err,
		FetchedAt: time.Now(),
		Duration:  elapsed,
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		p.logger.Warn("poll failed", zap.Uint64("seq", seq), zap.Error(err))
	} else {
		result.Aircraft = p.normalizer.Normalize(raw)
		p.logger.Debug("poll applied",
			zap.Uint64("seq", seq),
			zap.Int("aircraft", len(result.Aircraft)),
			zap.Duration("duration", elapsed),
		)
	}
	if p.observer != nil {
		p.observer.PollCompleted(outcome, elapsed, len(result.Aircraft))
	}

	h.sink(result)
}
