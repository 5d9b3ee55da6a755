package metric

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
)

var _ service.Observer = (*Registry)(nil)

func TestRegistry_Observer(t *testing.T) {
	r := NewRegistry()

	r.OperationCompleted(domain.OpStore, domain.Secret, true, 3*time.Millisecond)
	r.OperationCompleted(domain.OpStore, domain.Secret, true, time.Millisecond)
	r.OperationCompleted(domain.OpRetrieve, domain.Secret, false, time.Millisecond)
	r.IntegrityFailure("vault", domain.Secret)
	r.KeyDerived(80 * time.Millisecond)
	r.AuditSize(7)

	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("store", "secret", "success")); got != 2 {
		t.Errorf("store successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("retrieve", "secret", "failure")); got != 1 {
		t.Errorf("retrieve failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.IntegrityFailures.WithLabelValues("secret")); got != 1 {
		t.Errorf("integrity failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.KeyDerivations); got != 1 {
		t.Errorf("key derivations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.AuditRecords); got != 7 {
		t.Errorf("audit records = %v, want 7", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest(http.MethodPut, "/entries", http.StatusCreated, 10*time.Millisecond)
	r.IntegrityFailure("vault", domain.Confidential)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`securestore_http_requests_total{code="201",method="PUT",route="/entries"} 1`,
		`securestore_engine_integrity_failures_total{classification="confidential"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(string(body), "vault") {
		t.Error("logical key exported as a label")
	}
}

type fakeStats struct {
	st  service.Stats
	err error
}

func (f fakeStats) Stats(context.Context) (service.Stats, error) {
	return f.st, f.err
}

func TestCollector(t *testing.T) {
	c := NewCollector(fakeStats{st: service.Stats{
		TotalEntries:     4,
		EncryptedEntries: 3,
		ExpiredEntries:   1,
		UsedSpaceBytes:   2048,
		SecurityScore:    75,
	}}, 0)

	if n := testutil.CollectAndCount(c); n != 6 {
		t.Errorf("collected %d metrics, want 6", n)
	}

	expected := `
# HELP securestore_entries_security_score Percentage of entries that are encrypted.
# TYPE securestore_entries_security_score gauge
securestore_entries_security_score 75
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "securestore_entries_security_score"); err != nil {
		t.Error(err)
	}
}

func TestCollector_SourceError(t *testing.T) {
	c := NewCollector(fakeStats{err: errors.New("backend down")}, time.Second)

	expected := `
# HELP securestore_stats_up Whether the last statistics sample succeeded.
# TYPE securestore_stats_up gauge
securestore_stats_up 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestRegistry_RegisterCollector(t *testing.T) {
	r := NewRegistry()
	if err := r.Registerer().Register(NewCollector(fakeStats{}, 0)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "securestore_entries_total" {
			found = true
		}
	}
	if !found {
		t.Error("securestore_entries_total not gathered")
	}
}
