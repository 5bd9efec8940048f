package goOIDC

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventFlowStarted              = "flow_started"
	auditEventFlowSuperseded           = "flow_superseded"
	auditEventAuthorizationIssued      = "authorization_issued"
	auditEventAuthorizationFailed      = "authorization_failed"
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventFlowTimeout              = "flow_timeout"
	auditEventFlowCancelled            = "flow_cancelled"
	auditEventCredentialsPersisted     = "credentials_persisted"
	auditEventCredentialsPersistFailed = "credentials_persist_failed"
	auditEventCredentialsForgotten     = "credentials_forgotten"
)

// AuditErrorCode is the stable, machine-readable cause attached to failed events.
type AuditErrorCode string

const (
	auditErrTransport       AuditErrorCode = "transport_error"
	auditErrProvider        AuditErrorCode = "provider_error"
	auditErrInvalidResponse AuditErrorCode = "invalid_response"
	auditErrTimeout         AuditErrorCode = "timeout"
	auditErrCancelled       AuditErrorCode = "cancelled"
	auditErrStore           AuditErrorCode = "store_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	req *flowRequest,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if req != nil {
		event.FlowID = req.flowID
		event.Op = req.op
		event.DeviceID = req.deviceID
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errTransport):
		return auditErrTransport
	case errors.Is(err, errProvider):
		return auditErrProvider
	case errors.Is(err, ErrInvalidAuthResponse):
		return auditErrInvalidResponse
	case errors.Is(err, ErrFlowTimeout):
		return auditErrTimeout
	case errors.Is(err, errFlowCancelled):
		return auditErrCancelled
	case errors.Is(err, errStoreFailure):
		return auditErrStore
	default:
		return auditErrInternal
	}
}
