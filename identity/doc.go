// Package identity defines the records produced by a completed OIDC login and
// their two serialized shapes.
//
// A [UserRecord] is serialized either in full, for transmission to a UI or API
// client ([MarshalTransport], also used by its MarshalJSON), or in the minimal
// local shape ({name, status}) written to on-device storage ([MarshalLocal]).
// The shape is chosen by the function called, never by state on the value, so
// the same record can be persisted and handed to a UI without either path
// affecting the other.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Interpret or validate access token contents.
package identity
