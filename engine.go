package goOIDC

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goOIDC/identity"
	"github.com/MrEthical07/goOIDC/internal/logger"
	"github.com/MrEthical07/goOIDC/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine runs at most one login flow at a time in the background and exposes
// its progress through Status. Create it with New().Build(); all methods are
// safe for concurrent use.
type Engine struct {
	config    Config
	transport Transport
	store     SettingsStore
	logger    *zap.Logger
	metrics   *Metrics
	audit     *auditDispatcher

	state *flowState

	// startMu serializes StartFlow and Close.
	startMu sync.Mutex
	taskMu  sync.Mutex
	done    chan struct{}

	lifetime  context.Context
	stop      context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

// StartFlow begins a login for the device identified by id and deviceUUID.
// op selects the provider operation (for example the OIDC provider name).
//
// A flow already running is cancelled and StartFlow blocks until its task has
// exited, which takes at most one poll interval plus one in-flight provider
// call. State is then reset and the new flow runs in the background; its
// outcome is only observable through Status. With rememberMe the access token
// and the local shape of the user are written to the settings store before
// the flow reports PhaseLoggedIn.
func (e *Engine) StartFlow(op, id, deviceUUID string, rememberMe bool) error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	if prev := e.currentTask(); prev != nil {
		select {
		case <-prev:
		default:
			status := e.state.snapshot()
			e.state.requestCancel()
			e.metricInc(MetricFlowSuperseded)
			e.logger.Info("superseding running flow",
				logger.FlowID(status.FlowID),
				logger.Phase(string(status.StateMessage)),
			)
			e.emitAudit(e.lifetime, auditEventFlowSuperseded, true, &flowRequest{flowID: status.FlowID}, nil, nil)
			<-prev
		}
	}

	req := flowRequest{
		flowID:     uuid.NewString(),
		op:         op,
		deviceID:   id,
		deviceUUID: deviceUUID,
		rememberMe: rememberMe,
	}
	req.cancel = e.state.reset(req.flowID)

	done := make(chan struct{})
	e.taskMu.Lock()
	e.done = done
	e.taskMu.Unlock()

	go e.runFlow(req, done)
	return nil
}

// CancelFlow asks the running flow to stop. The flow ends without a failure
// message at its next check, between provider calls. Calling it with no flow
// running, or repeatedly, has no effect.
func (e *Engine) CancelFlow() {
	e.state.requestCancel()
}

// Status returns a snapshot of the current flow. It never waits on the flow.
func (e *Engine) Status() FlowStatus {
	return e.state.snapshot()
}

// Running reports whether a flow task is still executing.
func (e *Engine) Running() bool {
	done := e.currentTask()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current flow task exits or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := e.currentTask()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StoredCredentials reads back what a remembered login wrote. It reports
// ErrNoStoredCredentials when either entry is missing.
func (e *Engine) StoredCredentials(ctx context.Context) (Credentials, error) {
	token, err := e.store.GetOption(ctx, e.config.Store.AccessTokenKey)
	if err != nil {
		return Credentials{}, storeReadError(err)
	}
	raw, err := e.store.GetOption(ctx, e.config.Store.UserInfoKey)
	if err != nil {
		return Credentials{}, storeReadError(err)
	}
	user, err := identity.UnmarshalLocal([]byte(raw))
	if err != nil {
		return Credentials{}, fmt.Errorf("decode %s: %w", e.config.Store.UserInfoKey, err)
	}
	return Credentials{AccessToken: token, User: user}, nil
}

// ForgetCredentials removes both remembered entries.
func (e *Engine) ForgetCredentials(ctx context.Context) error {
	err := errors.Join(
		e.store.DeleteOption(ctx, e.config.Store.AccessTokenKey),
		e.store.DeleteOption(ctx, e.config.Store.UserInfoKey),
	)
	e.emitAudit(ctx, auditEventCredentialsForgotten, err == nil, nil, wrapStoreError(err), nil)
	return err
}

// Close cancels the running flow, aborts its in-flight provider call, waits
// for the task to exit and flushes queued audit events. Later StartFlow calls
// return ErrEngineClosed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.startMu.Lock()
		e.closed.Store(true)
		e.state.requestCancel()
		e.stop()
		done := e.currentTask()
		e.startMu.Unlock()

		if done != nil {
			<-done
		}
		e.audit.Close()
		_ = e.logger.Sync()
	})
}

// MetricsSnapshot returns a point-in-time copy of all counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) currentTask() chan struct{} {
	e.taskMu.Lock()
	defer e.taskMu.Unlock()
	return e.done
}

func storeReadError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoStoredCredentials
	}
	return wrapStoreError(err)
}

func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errStoreFailure, err)
}
