package goOIDC

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goOIDC/identity"
	"github.com/MrEthical07/goOIDC/internal/logger"
	"github.com/MrEthical07/goOIDC/transport"
	"go.uber.org/zap"
)

type flowRequest struct {
	flowID     string
	op         string
	deviceID   string
	deviceUUID string
	rememberMe bool
	cancel     <-chan struct{}
	started    time.Time
}

// runFlow is the background task of one flow. Every outcome is written to the
// shared state; nothing is returned to the caller of StartFlow.
func (e *Engine) runFlow(req flowRequest, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("flow task panicked",
				logger.FlowID(req.flowID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			if e.state.failUnlessLoggedIn(req.flowID, ErrFlowPanicked.Error()) {
				e.metricInc(MetricLoginFailure)
				e.emitAudit(e.lifetime, auditEventLoginFailure, false, &req, ErrFlowPanicked, nil)
			}
		}
	}()

	req.started = time.Now()
	log := e.logger.With(logger.FlowID(req.flowID), logger.Op(req.op), logger.DeviceID(req.deviceID))

	e.metricInc(MetricFlowStarted)
	e.emitAudit(e.lifetime, auditEventFlowStarted, true, &req, nil, func() map[string]string {
		return map[string]string{"remember_me": fmt.Sprint(req.rememberMe)}
	})

	handle, ok := e.requestAuthorization(&req, log)
	if !ok {
		return
	}
	e.pollAuthorization(&req, handle, log)
}

// requestAuthorization performs the initiate call. Any outcome other than a
// handle ends the flow with a failure message.
func (e *Engine) requestAuthorization(req *flowRequest, log *zap.Logger) (identity.AuthorizationHandle, bool) {
	resp, err := e.transport.RequestAuth(e.lifetime, req.op, req.deviceID, req.deviceUUID)
	if err != nil {
		if e.cancelRequested(req) {
			e.finishCancelled(req, log)
			return identity.AuthorizationHandle{}, false
		}
		log.Warn("authorization request failed", logger.Err(err))
		e.failAuthorization(req, err.Error(), fmt.Errorf("%w: %w", errTransport, err))
		return identity.AuthorizationHandle{}, false
	}

	switch {
	case resp.Kind == transport.KindData && resp.Data != nil:
	case resp.Kind == transport.KindError:
		log.Warn("authorization request rejected", zap.String("provider_error", resp.Error))
		e.failAuthorization(req, resp.Error, fmt.Errorf("%w: %s", errProvider, resp.Error))
		return identity.AuthorizationHandle{}, false
	default:
		log.Warn("authorization request returned an unrecognized response", zap.Stringer("kind", resp.Kind))
		e.failAuthorization(req, ErrInvalidAuthResponse.Error(), ErrInvalidAuthResponse)
		return identity.AuthorizationHandle{}, false
	}

	handle := *resp.Data
	if !e.state.setWaiting(req.flowID, handle) {
		return identity.AuthorizationHandle{}, false
	}
	e.metricInc(MetricAuthURLIssued)
	log.Info("authorization url issued", zap.String("url", handle.URL))
	e.emitAudit(e.lifetime, auditEventAuthorizationIssued, true, req, nil, nil)
	return handle, true
}

func (e *Engine) failAuthorization(req *flowRequest, msg string, cause error) {
	e.state.setPhase(req.flowID, PhaseRequesting, msg)
	e.metricInc(MetricAuthRequestFailure)
	e.metricInc(MetricLoginFailure)
	e.emitAudit(e.lifetime, auditEventAuthorizationFailed, false, req, cause, nil)
}

// pollAuthorization polls until the login resolves, the provider reports an
// error other than pending, the flow is cancelled, or the budget runs out.
// Transport errors and unrecognized bodies are retried.
func (e *Engine) pollAuthorization(req *flowRequest, handle identity.AuthorizationHandle, log *zap.Logger) {
	interval := e.config.Polling.Interval
	deadline := time.Now().Add(e.config.Polling.Timeout)

	for attempt := 1; ; attempt++ {
		if !e.state.keepPolling(req.flowID) {
			e.finishCancelled(req, log)
			return
		}
		if !time.Now().Before(deadline) {
			e.finishTimeout(req, log)
			return
		}

		e.metricInc(MetricPollAttempt)
		resp, err := e.transport.QueryAuth(e.lifetime, handle.Code, req.deviceID, req.deviceUUID)
		switch {
		case err != nil:
			e.metricInc(MetricPollTransportError)
			log.Debug("poll failed, retrying", logger.Attempt(attempt), logger.Err(err))
		case resp.Kind == transport.KindData && resp.Data != nil:
			e.completeLogin(req, *resp.Data, log)
			return
		case resp.Kind == transport.KindError && transport.IsPendingAuthorization(resp.Error):
			e.metricInc(MetricPollPending)
		case resp.Kind == transport.KindError:
			log.Warn("provider rejected login", zap.String("provider_error", resp.Error))
			e.state.setPhase(req.flowID, PhaseWaiting, resp.Error)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(e.lifetime, auditEventLoginFailure, false, req, fmt.Errorf("%w: %s", errProvider, resp.Error), nil)
			return
		default:
			e.metricInc(MetricPollIgnored)
			log.Debug("poll returned an unrecognized response, retrying", logger.Attempt(attempt))
		}

		e.pause(req.cancel, interval)
	}
}

// pause sleeps for d, returning early when the flow is cancelled or the
// engine is closed.
func (e *Engine) pause(cancel <-chan struct{}, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-cancel:
	case <-e.lifetime.Done():
	}
}

func (e *Engine) completeLogin(req *flowRequest, body identity.AuthBody, log *zap.Logger) {
	if req.rememberMe {
		e.persistCredentials(req, body, log)
	}
	if !e.state.setLoggedIn(req.flowID, body) {
		return
	}

	elapsed := time.Since(req.started)
	e.metricInc(MetricLoginSuccess)
	if e.metrics != nil {
		e.metrics.Observe(MetricLoginLatency, elapsed)
	}
	log.Info("login completed",
		zap.String("user", body.User.Name),
		zap.Stringer("status", body.User.Status),
		logger.Duration(elapsed),
	)
	e.emitAudit(e.lifetime, auditEventLoginSuccess, true, req, nil, func() map[string]string {
		return map[string]string{
			"user":       body.User.Name,
			"token_type": body.TokenType,
		}
	})
}

// persistCredentials writes the token and the local user shape. A store
// failure is reported but does not fail the login.
func (e *Engine) persistCredentials(req *flowRequest, body identity.AuthBody, log *zap.Logger) {
	err := e.writeCredentials(body)
	if err != nil {
		e.metricInc(MetricCredentialsPersistFailure)
		log.Error("failed to remember credentials", logger.Err(err))
		e.emitAudit(e.lifetime, auditEventCredentialsPersistFailed, false, req, wrapStoreError(err), nil)
		return
	}
	e.metricInc(MetricCredentialsPersisted)
	e.emitAudit(e.lifetime, auditEventCredentialsPersisted, true, req, nil, nil)
}

func (e *Engine) writeCredentials(body identity.AuthBody) error {
	user, err := identity.MarshalLocal(body.User)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.lifetime), e.config.Store.WriteTimeout)
	defer cancel()

	values := map[string]string{
		e.config.Store.AccessTokenKey: body.AccessToken,
		e.config.Store.UserInfoKey:    string(user),
	}
	if ms, ok := e.store.(multiSetter); ok {
		return ms.SetOptions(ctx, values)
	}
	if err := e.store.SetOption(ctx, e.config.Store.AccessTokenKey, body.AccessToken); err != nil {
		return err
	}
	return e.store.SetOption(ctx, e.config.Store.UserInfoKey, string(user))
}

func (e *Engine) finishCancelled(req *flowRequest, log *zap.Logger) {
	e.metricInc(MetricFlowCancelled)
	log.Info("flow cancelled")
	e.emitAudit(e.lifetime, auditEventFlowCancelled, false, req, errFlowCancelled, nil)
}

func (e *Engine) finishTimeout(req *flowRequest, log *zap.Logger) {
	e.state.setPhase(req.flowID, PhaseWaiting, ErrFlowTimeout.Error())
	e.metricInc(MetricFlowTimeout)
	e.metricInc(MetricLoginFailure)
	log.Warn("flow timed out", logger.Duration(time.Since(req.started)))
	e.emitAudit(e.lifetime, auditEventFlowTimeout, false, req, ErrFlowTimeout, nil)
}

func (e *Engine) cancelRequested(req *flowRequest) bool {
	select {
	case <-req.cancel:
		return true
	default:
		return errors.Is(e.lifetime.Err(), context.Canceled)
	}
}
