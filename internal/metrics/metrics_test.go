package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"reelup/internal/upload"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func counterValue(t *testing.T, families map[string]*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	family, ok := families[name]
	if !ok {
		t.Fatalf("metric %s not gathered", name)
	}
	for _, metric := range family.GetMetric() {
		if matchLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s has no series with labels %v", name, labels)
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, pair := range pairs {
		if want[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestObserverCountsUploadActivity(t *testing.T) {
	m := New()
	m.ChunkCommitted(256, 1000)
	m.ChunkCommitted(512, 1000)
	m.RetryScheduled(upload.Classification{Kind: upload.KindRetriableServerStatus, StatusCode: 503}, 1, 2*time.Second)
	m.RetryScheduled(upload.Classification{Kind: upload.KindTransientNetwork}, 2, time.Second)
	m.UploadFinished(upload.Outcome{ResourceID: "vid", Bytes: 1000}, 3*time.Second)
	m.UploadFinished(upload.Outcome{Err: &upload.Error{Kind: upload.KindRetriesExhausted}}, time.Second)

	families := gather(t, m)
	if got := counterValue(t, families, "reelup_chunks_committed_total", nil); got != 2 {
		t.Fatalf("chunks = %v, want 2", got)
	}
	if got := counterValue(t, families, "reelup_uploaded_bytes_total", nil); got != 1000 {
		t.Fatalf("bytes = %v, want 1000", got)
	}
	if got := counterValue(t, families, "reelup_retries_total", map[string]string{"kind": "retriable_server_status", "status": "503"}); got != 1 {
		t.Fatalf("server retries = %v", got)
	}
	if got := counterValue(t, families, "reelup_retries_total", map[string]string{"kind": "transient_network", "status": "none"}); got != 1 {
		t.Fatalf("network retries = %v", got)
	}
	if got := counterValue(t, families, "reelup_uploads_total", map[string]string{"outcome": OutcomeSuccess}); got != 1 {
		t.Fatalf("successes = %v", got)
	}
	if got := counterValue(t, families, "reelup_uploads_total", map[string]string{"outcome": "retries_exhausted"}); got != 1 {
		t.Fatalf("exhausted = %v", got)
	}
	if families["reelup_last_success_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue() <= 0 {
		t.Fatal("last success timestamp not set")
	}
}

func TestOutcomeLabel(t *testing.T) {
	cases := []struct {
		outcome upload.Outcome
		want    string
	}{
		{upload.Outcome{ResourceID: "v"}, OutcomeSuccess},
		{upload.Outcome{ResourceID: "v", Err: &upload.Error{Kind: upload.KindAttachmentFailed}}, "attachment_failed"},
		{upload.Outcome{Err: errors.New("boom")}, "fatal_protocol_error"},
	}
	for _, tc := range cases {
		if got := OutcomeLabel(tc.outcome); got != tc.want {
			t.Errorf("OutcomeLabel(%+v) = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ChunkCommitted(1, 1)
	path := filepath.Join(t.TempDir(), "textfile", "reelup.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "reelup_chunks_committed_total 1") {
		t.Fatalf("textfile missing chunk counter:\n%s", data)
	}
	if err := m.WriteTextfile("  "); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
