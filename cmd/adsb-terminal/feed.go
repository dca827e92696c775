package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/internal/metrics"
	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/refdata"
)

// refsLoadedMsg carries both reference tables once loading finishes.
type refsLoadedMsg struct {
	provider *refdata.Provider
}

// pollMsg is one applied poll result.
type pollMsg adsb.PollResult

// feed owns the reference loader and the poller. The model starts it once
// the reference tables are in; main stops it after the program exits.
type feed struct {
	ctx     context.Context
	source  adsb.FeedSource
	loader  *refdata.Loader
	sources refdata.Sources
	poller  adsb.PollerConfig
	tracker *adsb.Tracker
	metrics *metrics.Registry
	logger  *zap.Logger

	// send delivers messages to the running program
	send func(tea.Msg)

	mu     sync.Mutex
	handle *adsb.PollHandle
}

// loadReferences loads both tables concurrently off the UI goroutine.
func (f *feed) loadReferences() tea.Cmd {
	return func() tea.Msg {
		provider := refdata.LoadProvider(f.ctx, f.loader, f.sources)
		f.metrics.SetReferenceRecords("aircraft_models", provider.Models().Len())
		f.metrics.SetReferenceRecords("airlines", provider.Airlines().Len())
		return refsLoadedMsg{provider: provider}
	}
}

// start begins polling with provider for enrichment. Later calls are no-ops.
func (f *feed) start(provider *refdata.Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handle != nil {
		return
	}

	poller := adsb.NewPoller(f.source, adsb.NewNormalizer(provider), f.poller, f.logger, f.metrics)
	f.handle = poller.Start(f.ctx, func(r adsb.PollResult) {
		f.tracker.Apply(r)
		f.send(pollMsg(r))
	})
	f.logger.Info("Polling started", zap.Duration("interval", f.poller.Interval))
}

// stop halts polling. It must not be called from the UI goroutine while the
// program is running, since the sink may be blocked in send.
func (f *feed) stop() {
	f.mu.Lock()
	handle := f.handle
	f.mu.Unlock()

	if handle != nil {
		handle.Stop()
	}
}
