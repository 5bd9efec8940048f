package goOIDC

import (
	"context"

	"github.com/MrEthical07/goOIDC/identity"
	"github.com/MrEthical07/goOIDC/transport"
)

// Phase is the human-readable label of the step a flow is in.
type Phase string

const (
	// PhaseRequesting is set while the authorization request is in flight.
	PhaseRequesting Phase = "Requesting..."
	// PhaseWaiting is set once the provider returned an authorization URL and
	// the flow is polling for the user's approval.
	PhaseWaiting Phase = "Waiting..."
	// PhaseLoggedIn is the terminal success phase.
	PhaseLoggedIn Phase = "LoggedIn"
)

// FlowStatus is a point-in-time copy of the current flow. It never aliases
// engine state.
//
// Result is non-nil only when StateMessage is PhaseLoggedIn. AuthorizationURL
// is non-nil only once the flow has moved past PhaseRequesting.
type FlowStatus struct {
	FlowID           string             `json:"flow_id"`
	StateMessage     Phase              `json:"state_msg"`
	FailureMessage   string             `json:"failed_msg"`
	AuthorizationURL *string            `json:"url"`
	Result           *identity.AuthBody `json:"auth_body"`
}

// LoggedIn reports whether the flow completed successfully.
func (s FlowStatus) LoggedIn() bool {
	return s.StateMessage == PhaseLoggedIn && s.Result != nil
}

// Failed reports whether the flow ended with a failure message.
func (s FlowStatus) Failed() bool {
	return s.FailureMessage != ""
}

// Credentials is what a remembered login left in the settings store. Only the
// local shape of the user (name and status) is available.
type Credentials struct {
	AccessToken string
	User        identity.UserRecord
}

// Transport performs the two provider calls of a flow. *transport.Client is
// the default implementation.
type Transport interface {
	RequestAuth(ctx context.Context, op, id, uuid string) (transport.Response[identity.AuthorizationHandle], error)
	QueryAuth(ctx context.Context, code, id, uuid string) (transport.Response[identity.AuthBody], error)
}

// SettingsStore is the key-value store credentials are remembered in. The
// stores in package store implement it and report missing keys with
// store.ErrNotFound.
type SettingsStore interface {
	SetOption(ctx context.Context, key, value string) error
	GetOption(ctx context.Context, key string) (string, error)
	DeleteOption(ctx context.Context, key string) error
}

// multiSetter is implemented by stores that can write several options as one unit.
type multiSetter interface {
	SetOptions(ctx context.Context, values map[string]string) error
}
