// Package middleware guards local HTTP endpoints on the outcome of a goOIDC
// login flow.
//
// # Guards
//
//   - [Guard] admits requests once the current flow reports LoggedIn.
//   - [RequireToken] additionally requires the login's access token as a
//     bearer credential.
//
// Both read Engine.Status and inject the login result into the request
// context; see [AuthBodyFromContext].
//
// # What this package must NOT do
//
//   - Start, cancel or otherwise drive flows.
//   - Touch the settings store.
package middleware
