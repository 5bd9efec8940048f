// Package transport is the HTTP client for the identity provider's OIDC
// endpoints and the decoder for its response envelope.
//
// Every response body is one of three shapes: a payload ({"data": T} or a bare
// T), a provider error ({"error": "message"}), or anything else. [Decode]
// reports which one it saw through [Kind]; deciding what each shape means for
// a login flow is left to the caller.
package transport
