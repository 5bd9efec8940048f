package internaldefs

import (
	goOIDC "github.com/MrEthical07/goOIDC"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goOIDC.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goOIDC.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported from Engine.AuditDropped.
const AuditDroppedName = "goidc_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goOIDC.MetricFlowStarted, Name: "goidc_flow_started_total", Help: "Login flows started."},
	{ID: goOIDC.MetricFlowSuperseded, Name: "goidc_flow_superseded_total", Help: "Running flows cancelled by a newer start."},
	{ID: goOIDC.MetricAuthURLIssued, Name: "goidc_auth_url_issued_total", Help: "Authorization requests answered with a URL."},
	{ID: goOIDC.MetricAuthRequestFailure, Name: "goidc_auth_request_failure_total", Help: "Authorization requests that ended the flow."},
	{ID: goOIDC.MetricPollAttempt, Name: "goidc_poll_attempt_total", Help: "Authorization result polls."},
	{ID: goOIDC.MetricPollPending, Name: "goidc_poll_pending_total", Help: "Polls answered as still pending."},
	{ID: goOIDC.MetricPollTransportError, Name: "goidc_poll_transport_error_total", Help: "Polls that failed in transport and were retried."},
	{ID: goOIDC.MetricPollIgnored, Name: "goidc_poll_ignored_total", Help: "Polls with an unrecognized response."},
	{ID: goOIDC.MetricLoginSuccess, Name: "goidc_login_success_total", Help: "Flows that logged in."},
	{ID: goOIDC.MetricLoginFailure, Name: "goidc_login_failure_total", Help: "Flows that ended with a failure message."},
	{ID: goOIDC.MetricFlowTimeout, Name: "goidc_flow_timeout_total", Help: "Flows that exhausted the polling budget."},
	{ID: goOIDC.MetricFlowCancelled, Name: "goidc_flow_cancelled_total", Help: "Flows that observed cancellation."},
	{ID: goOIDC.MetricCredentialsPersisted, Name: "goidc_credentials_persisted_total", Help: "Remembered logins written to the settings store."},
	{ID: goOIDC.MetricCredentialsPersistFailure, Name: "goidc_credentials_persist_failure_total", Help: "Remembered logins the settings store rejected."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goOIDC.MetricLoginLatency, Name: "goidc_login_latency_seconds", Help: "Time from flow start to login."},
}

// HistogramBounds are the exposition labels of the latency buckets.
var HistogramBounds = []string{
	"5",
	"10",
	"20",
	"30",
	"60",
	"90",
	"120",
	"+Inf",
}

// HistogramBoundSuffix names each bucket where labels are not available.
var HistogramBoundSuffix = []string{
	"5",
	"10",
	"20",
	"30",
	"60",
	"90",
	"120",
	"inf",
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, 0, len(goOIDC.LatencyBucketBounds))
	for _, b := range goOIDC.LatencyBucketBounds {
		out = append(out, b.Seconds())
	}
	return out
}

// NormalizeBuckets copies raw into a fixed array, padding or truncating to 8 buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
