// Package goOIDC drives a device-style OIDC login against a rendezvous API
// server: it requests an authorization URL, polls for the result in the
// background and publishes every step through a single [FlowStatus] snapshot.
//
// At most one flow runs per [Engine]. Starting a new flow cancels the running
// one and waits for its task to exit before state is reset, so a snapshot never
// mixes two flows. Engine methods are safe to call from multiple goroutines
// after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goOIDC is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (FlowStatus, Credentials, MetricsSnapshot). The wire protocol
// lives in transport, the user record and its two JSON shapes in identity, and
// the settings backends in store. Flow orchestration, state guarding and audit
// dispatch are unexported.
//
// # What this package must NOT do
//
//   - Return flow outcomes from StartFlow; they are observable only through Status.
//   - Put access tokens in logs, audit events or metrics labels.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports goOIDC (no import cycles).
package goOIDC
