package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goOIDC "github.com/MrEthical07/goOIDC"
	promclient "github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	snapshot goOIDC.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goOIDC.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func gather(t *testing.T, src fakeSource) map[string]float64 {
	t.Helper()
	reg := promclient.NewRegistry()
	if err := reg.Register(NewPrometheusExporterFromSource(src)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	out := make(map[string]float64, len(families))
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			out[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetHistogram() != nil:
			h := m.GetHistogram()
			out[mf.GetName()+"_count"] = float64(h.GetSampleCount())
			out[mf.GetName()+"_sum"] = h.GetSampleSum()
			for _, b := range h.GetBucket() {
				if b.GetUpperBound() == 5 {
					out[mf.GetName()+"_le5"] = float64(b.GetCumulativeCount())
				}
			}
		}
	}
	return out
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	got := gather(t, fakeSource{
		snapshot: goOIDC.MetricsSnapshot{
			Counters:   map[goOIDC.MetricID]uint64{},
			Histograms: map[goOIDC.MetricID][]uint64{},
		},
	})
	if len(got) != 0 {
		t.Fatalf("expected no metrics for disabled engine, got %v", got)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	got := gather(t, fakeSource{
		snapshot: goOIDC.MetricsSnapshot{
			Counters: map[goOIDC.MetricID]uint64{
				goOIDC.MetricLoginSuccess: 7,
				goOIDC.MetricPollAttempt:  40,
			},
			Histograms: map[goOIDC.MetricID][]uint64{
				goOIDC.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[goOIDC.MetricID]time.Duration{
				goOIDC.MetricLoginLatency: 90 * time.Second,
			},
		},
		dropped: 2,
	})

	checks := map[string]float64{
		"goidc_login_success_total":         7,
		"goidc_poll_attempt_total":          40,
		"goidc_flow_started_total":          0,
		"goidc_audit_dropped_total":         2,
		"goidc_login_latency_seconds_count": 36,
		"goidc_login_latency_seconds_sum":   90,
		"goidc_login_latency_seconds_le5":   1,
	}
	for name, want := range checks {
		if got[name] != want {
			t.Fatalf("%s = %v, want %v (all: %v)", name, got[name], want, got)
		}
	}
}

func TestHandlerServesTextExposition(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goOIDC.MetricsSnapshot{
			Counters:   map[goOIDC.MetricID]uint64{goOIDC.MetricLoginSuccess: 1},
			Histograms: map[goOIDC.MetricID][]uint64{},
		},
	})

	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text exposition content type, got %q", got)
	}
	if !strings.Contains(string(body), "goidc_login_success_total 1") {
		t.Fatalf("expected login_success counter in output, got:\n%s", body)
	}
}

func TestExporterAgainstEngine(t *testing.T) {
	e, err := goOIDC.New().WithAPIServer("http://127.0.0.1:1").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	reg := promclient.NewRegistry()
	reg.MustRegister(NewPrometheusExporter(e))
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected metrics from an engine with metrics enabled")
	}
}
