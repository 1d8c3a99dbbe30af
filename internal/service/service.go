// Package service runs the daemon loop: it feeds observed activations into
// the history tracker and serializes switch requests against them.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/actionsum/lastapp/internal/config"
	"github.com/actionsum/lastapp/internal/eligibility"
	"github.com/actionsum/lastapp/internal/history"
	"github.com/actionsum/lastapp/internal/logger"
	"github.com/actionsum/lastapp/internal/metrics"
	"github.com/actionsum/lastapp/internal/models"
	"github.com/actionsum/lastapp/internal/switcher"
	"github.com/actionsum/lastapp/pkg/probe"
	"github.com/actionsum/lastapp/pkg/shell"
)

// ErrNotRunning is returned by RequestSwitch when the loop is not serving requests
var ErrNotRunning = fmt.Errorf("service is not running")

const retentionSweepInterval = time.Hour

// Recorder persists observations. Failures are logged, never fatal.
type Recorder interface {
	CreateActivationEvent(event *models.ActivationEvent) error
	CreateSwitchAttempt(attempt *models.SwitchAttempt) error
	CreateErrorLog(errorLog *models.ErrorLog) error
	DeleteOldEvents(before time.Time) (int64, error)
}

// EventFeed delivers activation and deactivation events until ctx is done
type EventFeed interface {
	SourceName() string
	Run(ctx context.Context, out chan<- shell.Event) error
}

// Deps are the collaborators chosen once at startup
type Deps struct {
	Probe         shell.StateProbe
	Activator     shell.Activator
	Protocol      string
	DisplayServer string
	Feed          EventFeed
	Repo          Recorder
	Metrics       *metrics.Metrics
}

// Status is a point-in-time view of the daemon
type Status struct {
	Running       bool             `json:"running"`
	History       history.Record   `json:"history"`
	Protocol      string           `json:"protocol"`
	DisplayServer string           `json:"display_server"`
	Source        string           `json:"source"`
	Probe         probe.State      `json:"probe"`
	Metrics       metrics.Snapshot `json:"metrics"`
	StartedAt     time.Time        `json:"started_at"`
}

type switchResult struct {
	verdict eligibility.Verdict
	err     error
}

type switchRequest struct {
	ctx   context.Context
	reply chan switchResult
}

type Service struct {
	config   *config.Config
	deps     Deps
	tracker  *history.Tracker
	switcher *switcher.Orchestrator
	now      func() time.Time

	requests chan switchRequest
	stopChan chan struct{}
	stopOnce sync.Once
	ready    chan struct{}
	done     chan struct{}
	started  atomic.Bool
	running  atomic.Bool

	mu        sync.RWMutex
	startedAt time.Time
}

func NewService(cfg *config.Config, deps Deps) *Service {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Service{
		config:   cfg,
		deps:     deps,
		tracker:  history.NewTracker(),
		now:      time.Now,
		requests: make(chan switchRequest),
		stopChan: make(chan struct{}),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.switcher = switcher.New(deps.Probe, s.tracker, deps.Activator, switcher.WithObserver(s))
	return s
}

// Start runs the loop until ctx is cancelled or Stop is called. A Service
// runs once. Feed failures are logged and stored; switch requests keep being served.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("service has already been started")
	}
	s.running.Store(true)
	close(s.ready)
	defer close(s.done)
	defer s.running.Store(false)

	s.mu.Lock()
	s.startedAt = s.now()
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		events  chan shell.Event
		feedErr chan error
	)
	if s.deps.Feed != nil {
		events = make(chan shell.Event, 16)
		feedErr = make(chan error, 1)
		go func() {
			feedErr <- s.deps.Feed.Run(ctx, events)
		}()
		logger.InfoKV(ctx, "service started",
			"source", s.deps.Feed.SourceName(),
			"protocol", s.deps.Protocol,
			"display_server", s.deps.DisplayServer)
	} else {
		logger.Warnf(ctx, "service started without an event feed; history only follows switch-time probes")
	}

	var sweep <-chan time.Time
	if s.config.Database.Retention > 0 {
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
		s.sweepRetention(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "service stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			logger.Info(ctx, "service stopped")
			return nil

		case ev := <-events:
			s.handleEvent(ctx, ev)

		case err := <-feedErr:
			if err != nil && ctx.Err() == nil {
				logger.WarnKV(ctx, "event feed stopped", "error", err)
				s.storeError(ctx, models.ComponentFeed, fmt.Errorf("event feed stopped: %w", err))
			}
			// nil channels block forever, leaving switch requests served
			events, feedErr = nil, nil

		case req := <-s.requests:
			verdict, err := s.switcher.SwitchToLastApp(req.ctx)
			req.reply <- switchResult{verdict: verdict, err: err}

		case <-sweep:
			s.sweepRetention(ctx)
		}
	}
}

// Stop ends the loop started by Start. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Ready is closed once Start accepts switch requests. Surfaces that forward
// triggers should wait on it before serving.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the loop has returned
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// RequestSwitch submits a switch trigger to the loop and waits for its verdict
func (s *Service) RequestSwitch(ctx context.Context) (eligibility.Verdict, error) {
	if !s.IsRunning() {
		return eligibility.Verdict{}, ErrNotRunning
	}

	req := switchRequest{ctx: ctx, reply: make(chan switchResult, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return eligibility.Verdict{}, ErrNotRunning
	case <-ctx.Done():
		return eligibility.Verdict{}, ctx.Err()
	}

	res := <-req.reply
	return res.verdict, res.err
}

// Status reports history, capabilities and a fresh probe reading
func (s *Service) Status() Status {
	s.mu.RLock()
	started := s.startedAt
	s.mu.RUnlock()

	st := Status{
		Running:       s.IsRunning(),
		History:       s.tracker.Snapshot(),
		Protocol:      s.deps.Protocol,
		DisplayServer: s.deps.DisplayServer,
		Metrics:       s.deps.Metrics.Snapshot(),
		StartedAt:     started,
	}
	if s.deps.Feed != nil {
		st.Source = s.deps.Feed.SourceName()
	}
	if s.deps.Probe != nil {
		st.Probe = probe.Read(s.deps.Probe)
	}
	return st
}

// Metrics exposes the collector so the HTTP layer can serve it
func (s *Service) Metrics() *metrics.Metrics {
	return s.deps.Metrics
}

func (s *Service) handleEvent(ctx context.Context, ev shell.Event) {
	shell.Dispatch(s.tracker, ev)

	if ev.Kind == shell.Activation {
		s.deps.Metrics.RecordActivation()
		logger.DebugKV(ctx, "activation observed", "app", ev.ID)
	}

	if s.deps.Repo == nil {
		return
	}
	err := s.deps.Repo.CreateActivationEvent(&models.ActivationEvent{
		Timestamp:     ev.Timestamp,
		AppID:         string(ev.ID),
		Kind:          string(ev.Kind),
		DisplayServer: s.deps.DisplayServer,
	})
	if err != nil {
		s.deps.Metrics.RecordStoreError()
		logger.WarnKV(ctx, "failed to record event", "error", err)
	}
}

// SwitchAttempted persists and counts every decided switch request
func (s *Service) SwitchAttempted(ctx context.Context, a switcher.Attempt) {
	reason := a.Verdict.Reason.String()
	s.deps.Metrics.RecordSwitch(reason)

	kvs := []any{"reason", reason, "target", a.Target, "resynced", a.Resynced}
	if a.Err != nil {
		s.deps.Metrics.RecordActivationFailure(s.deps.Protocol)
		logger.WarnKV(ctx, "activation failed", append(kvs, "error", a.Err)...)
	} else {
		logger.InfoKV(ctx, "switch requested", kvs...)
	}

	if s.deps.Repo == nil {
		return
	}

	record := &models.SwitchAttempt{
		Timestamp: a.Timestamp,
		Target:    string(a.Target),
		Reason:    reason,
		Allowed:   a.Verdict.Allowed,
		Protocol:  s.deps.Protocol,
	}
	if a.Err != nil {
		record.Error = a.Err.Error()
	}
	if err := s.deps.Repo.CreateSwitchAttempt(record); err != nil {
		s.deps.Metrics.RecordStoreError()
		logger.WarnKV(ctx, "failed to record switch attempt", "error", err)
	}
}

func (s *Service) sweepRetention(ctx context.Context) {
	if s.deps.Repo == nil {
		return
	}
	deleted, err := s.deps.Repo.DeleteOldEvents(s.now().Add(-s.config.Database.Retention))
	if err != nil {
		s.storeError(ctx, models.ComponentRetention, fmt.Errorf("retention sweep: %w", err))
		return
	}
	if deleted > 0 {
		logger.Debugf(ctx, "retention sweep removed %d events", deleted)
	}
}

func (s *Service) storeError(ctx context.Context, component string, err error) {
	if s.deps.Repo == nil {
		logger.Errorf(ctx, "%v", err)
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Component: component,
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.deps.Repo.CreateErrorLog(errorLog); dbErr != nil {
		s.deps.Metrics.RecordStoreError()
		logger.ErrorKV(ctx, "failed to store error in database", "error", dbErr, "original_error", err)
	} else {
		logger.WarnKV(ctx, "error logged to database", "component", component, "error", err)
	}
}
