package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/actionsum/lastapp/internal/config"
	"github.com/actionsum/lastapp/internal/eligibility"
	"github.com/actionsum/lastapp/internal/history"
	"github.com/actionsum/lastapp/internal/models"
	"github.com/actionsum/lastapp/pkg/shell"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	mu     sync.Mutex
	locked bool
}

func (p *fakeProbe) IsDeviceLocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked
}
func (p *fakeProbe) IsEmergencyCallActive() bool   { return false }
func (p *fakeProbe) IsPowerDownAlertVisible() bool { return false }
func (p *fakeProbe) IsIconEditingModeActive() bool { return false }
func (p *fakeProbe) CurrentForegroundApplication() (shell.AppID, bool) {
	return "", false
}

type spyActivator struct {
	mu    sync.Mutex
	calls []shell.AppID
	err   error
}

func (a *spyActivator) Activate(_ context.Context, id shell.AppID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, id)
	return a.err
}

func (a *spyActivator) Calls() []shell.AppID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]shell.AppID(nil), a.calls...)
}

type scriptedFeed struct {
	events []shell.Event
	err    error
}

func (f *scriptedFeed) SourceName() string { return "scripted" }

func (f *scriptedFeed) Run(ctx context.Context, out chan<- shell.Event) error {
	for _, ev := range f.events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

type memoryRecorder struct {
	mu       sync.Mutex
	events   []*models.ActivationEvent
	attempts []*models.SwitchAttempt
	errors   []*models.ErrorLog
	deleted  []time.Time
}

func (r *memoryRecorder) CreateActivationEvent(e *models.ActivationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memoryRecorder) CreateSwitchAttempt(a *models.SwitchAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

func (r *memoryRecorder) CreateErrorLog(e *models.ErrorLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
	return nil
}

func (r *memoryRecorder) DeleteOldEvents(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, before)
	return 0, nil
}

func (r *memoryRecorder) counts() (events, attempts, errs, sweeps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events), len(r.attempts), len(r.errors), len(r.deleted)
}

func activations(ids ...shell.AppID) []shell.Event {
	var out []shell.Event
	now := time.Now()
	for i, id := range ids {
		if i > 0 {
			out = append(out, shell.Event{Kind: shell.Deactivation, ID: ids[i-1], Timestamp: now})
		}
		out = append(out, shell.Event{Kind: shell.Activation, ID: id, Timestamp: now})
	}
	return out
}

type harness struct {
	svc       *Service
	probe     *fakeProbe
	activator *spyActivator
	repo      *memoryRecorder
	cancel    context.CancelFunc
	done      chan error
}

func start(t *testing.T, feed EventFeed) *harness {
	t.Helper()

	h := &harness{
		probe:     &fakeProbe{},
		activator: &spyActivator{},
		repo:      &memoryRecorder{},
		done:      make(chan error, 1),
	}
	h.svc = NewService(config.Default(), Deps{
		Probe:         h.probe,
		Activator:     h.activator,
		Protocol:      "test",
		DisplayServer: "x11",
		Feed:          feed,
		Repo:          h.repo,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.svc.Start(ctx) }()
	require.Eventually(t, h.svc.IsRunning, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func waitForHistory(t *testing.T, svc *Service, want history.Record) {
	t.Helper()
	require.Eventually(t, func() bool {
		return svc.Status().History == want
	}, time.Second, 5*time.Millisecond)
}

func TestEventsDriveHistoryAndSwitch(t *testing.T) {
	h := start(t, &scriptedFeed{events: activations("mail", "browser")})
	waitForHistory(t, h.svc, history.Record{Current: "browser", Previous: "mail"})

	verdict, err := h.svc.RequestSwitch(context.Background())
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, []shell.AppID{"mail"}, h.activator.Calls())

	// history waits for the shell's own activation event
	assert.Equal(t, history.Record{Current: "browser", Previous: "mail"}, h.svc.Status().History)

	events, attempts, _, _ := h.repo.counts()
	assert.Equal(t, 3, events)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, "allowed", h.repo.attempts[0].Reason)
	assert.Equal(t, "mail", h.repo.attempts[0].Target)

	snap := h.svc.Status().Metrics
	assert.EqualValues(t, 2, snap.ActivationsObserved)
	assert.EqualValues(t, 1, snap.SwitchesByReason["allowed"])
}

func TestDeniedSwitchIsRecordedWithoutActivation(t *testing.T) {
	h := start(t, &scriptedFeed{events: activations("mail", "browser")})
	waitForHistory(t, h.svc, history.Record{Current: "browser", Previous: "mail"})

	h.probe.mu.Lock()
	h.probe.locked = true
	h.probe.mu.Unlock()

	verdict, err := h.svc.RequestSwitch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, eligibility.Verdict{Allowed: false, Reason: eligibility.Locked}, verdict)
	assert.Empty(t, h.activator.Calls())

	_, attempts, _, _ := h.repo.counts()
	require.Equal(t, 1, attempts)
	assert.Equal(t, "locked", h.repo.attempts[0].Reason)
	assert.False(t, h.repo.attempts[0].Allowed)
}

func TestActivationErrorIsReturnedAndRecorded(t *testing.T) {
	h := start(t, &scriptedFeed{events: activations("mail", "browser")})
	h.activator.err = errors.New("no such window")
	waitForHistory(t, h.svc, history.Record{Current: "browser", Previous: "mail"})

	_, err := h.svc.RequestSwitch(context.Background())
	require.Error(t, err)
	assert.Len(t, h.activator.Calls(), 1)

	_, attempts, _, _ := h.repo.counts()
	require.Equal(t, 1, attempts)
	assert.Equal(t, "no such window", h.repo.attempts[0].Error)
	assert.EqualValues(t, 1, h.svc.Status().Metrics.ActivationFailures)
}

func TestFeedFailureKeepsServingRequests(t *testing.T) {
	h := start(t, &scriptedFeed{err: errors.New("display went away")})

	require.Eventually(t, func() bool {
		_, _, errs, _ := h.repo.counts()
		return errs == 1
	}, time.Second, 5*time.Millisecond)

	h.repo.mu.Lock()
	assert.Equal(t, models.ComponentFeed, h.repo.errors[0].Component)
	h.repo.mu.Unlock()

	verdict, err := h.svc.RequestSwitch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, eligibility.NoPreviousApp, verdict.Reason)
}

func TestRetentionSweepRunsOnStart(t *testing.T) {
	h := start(t, nil)

	require.Eventually(t, func() bool {
		_, _, _, sweeps := h.repo.counts()
		return sweeps == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRequestSwitchWhenNotRunning(t *testing.T) {
	svc := NewService(config.Default(), Deps{Probe: &fakeProbe{}, Activator: &spyActivator{}})

	_, err := svc.RequestSwitch(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestReadyAcceptsSwitchImmediately(t *testing.T) {
	probe := &fakeProbe{}
	spy := &spyActivator{}
	svc := NewService(config.Default(), Deps{Probe: probe, Activator: spy, Repo: &memoryRecorder{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-svc.Ready():
	case <-time.After(time.Second):
		t.Fatal("service never became ready")
	}

	verdict, err := svc.RequestSwitch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, eligibility.NoPreviousApp, verdict.Reason)
}

func TestStopEndsLoopAndRejectsLaterRequests(t *testing.T) {
	h := start(t, &scriptedFeed{})

	h.svc.Stop()
	h.svc.Stop()

	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
	<-h.svc.Done()

	_, err := h.svc.RequestSwitch(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Error(t, h.svc.Start(context.Background()))
}

func TestStatusReportsCapabilities(t *testing.T) {
	h := start(t, &scriptedFeed{})

	st := h.svc.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "test", st.Protocol)
	assert.Equal(t, "x11", st.DisplayServer)
	assert.Equal(t, "scripted", st.Source)
	assert.False(t, st.StartedAt.IsZero())
}
