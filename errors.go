package goOIDC

import "errors"

var (
	// ErrInvalidAuthResponse is reported when the authorization request returns
	// neither a handle nor a provider error.
	ErrInvalidAuthResponse = errors.New("Invalid auth response")
	// ErrFlowTimeout is reported when polling exhausts the timeout budget.
	ErrFlowTimeout = errors.New("timeout")
	// ErrFlowPanicked is reported when the background task recovers from a panic.
	ErrFlowPanicked = errors.New("internal error")
	// ErrEngineClosed is returned by operations invoked after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrAPIServerRequired is returned by Build when no transport is supplied and
	// Config.APIServer is empty.
	ErrAPIServerRequired = errors.New("api server required")
	// ErrNoStoredCredentials is returned when nothing was persisted by a previous login.
	ErrNoStoredCredentials = errors.New("no stored credentials")

	errTransport     = errors.New("transport failure")
	errProvider      = errors.New("provider error")
	errStoreFailure  = errors.New("settings store failure")
	errFlowCancelled = errors.New("flow cancelled")
)
