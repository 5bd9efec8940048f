// Package httpapi exposes a goOIDC engine over a small local JSON API so a UI
// or another process can drive logins and watch their progress.
//
//	POST   /login        start a flow (supersedes a running one)
//	POST   /cancel       cancel the running flow
//	GET    /status       current FlowStatus
//	GET    /me           logged-in user, bearer token required
//	GET    /credentials  remembered user, if any
//	DELETE /credentials  forget remembered credentials
//
// Handlers never block on a flow: /login returns as soon as StartFlow does.
package httpapi
