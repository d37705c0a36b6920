package perf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/observability"
	"github.com/shiftdesk/shiftdesk/internal/shared"
)

type staticRepo map[string]auth.Principal

func (s staticRepo) FindPrincipalByID(_ context.Context, id string) (*auth.Principal, error) {
	p, ok := s[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (s staticRepo) FindCredentialByEmail(context.Context, string) (*auth.StoredCredential, error) {
	return nil, shared.ErrNotFound
}

type pipeline struct {
	router  http.Handler
	tokens  *auth.TokenIssuer
	metrics *observability.Metrics
}

func newPipeline(tb testing.TB) *pipeline {
	tb.Helper()
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(tb, err)
	tokens, err := auth.NewTokenIssuer([]byte("perf-secret"), time.Hour)
	require.NoError(tb, err)

	repo := staticRepo{
		"admin-1": {ID: "admin-1", Email: "admin@demo.com", Role: auth.RoleAdmin, TenantID: "r1"},
		"staff-1": {ID: "staff-1", Email: "john@demo.com", Role: auth.RoleStaff, TenantID: "r1"},
	}
	metrics := observability.NewMetrics()
	service := auth.NewService(nil, repo, hasher, tokens, metrics)
	mw := auth.Middleware{Service: service, Observer: metrics}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.With(mw.Authenticate, mw.RequireAdmin()).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &pipeline{router: r, tokens: tokens, metrics: metrics}
}

func (p *pipeline) request(token string) int {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	p.router.ServeHTTP(rr, req)
	return rr.Code
}

func TestAuthPipelineLatencyTargets(t *testing.T) {
	p := newPipeline(t)
	tok, err := p.tokens.IssueDefault("admin-1")
	require.NoError(t, err)

	samples := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		start := time.Now()
		if code := p.request(tok.Value); code != http.StatusNoContent {
			t.Fatalf("unexpected status %d", code)
		}
		samples = append(samples, time.Since(start))
	}

	if p95 := percentile95(samples); p95 > 50*time.Millisecond {
		t.Fatalf("auth pipeline latency regression: p95=%s threshold=50ms", p95)
	}
}

func TestAuthOutcomesAreCounted(t *testing.T) {
	p := newPipeline(t)
	admin, err := p.tokens.IssueDefault("admin-1")
	require.NoError(t, err)
	staff, err := p.tokens.IssueDefault("staff-1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		p.request(admin.Value)
	}
	for i := 0; i < 3; i++ {
		p.request(staff.Value)
	}
	p.request("")

	families, err := p.metrics.Gatherer().Gather()
	require.NoError(t, err)
	counts := outcomeCounts(families)

	if got := counts["authorized/none"]; got != 5 {
		t.Fatalf("expected 5 authorized outcomes, got %v", got)
	}
	if got := counts["rejected/FORBIDDEN"]; got != 3 {
		t.Fatalf("expected 3 forbidden outcomes, got %v", got)
	}
	if got := counts["unverified/UNAUTHENTICATED"]; got != 1 {
		t.Fatalf("expected 1 unauthenticated outcome, got %v", got)
	}
	if got := counts["principal_resolved/none"]; got != 8 {
		t.Fatalf("expected 8 resolved principals, got %v", got)
	}
}

func BenchmarkAuthenticatedRequest(b *testing.B) {
	p := newPipeline(b)
	tok, err := p.tokens.IssueDefault("admin-1")
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if code := p.request(tok.Value); code != http.StatusNoContent {
			b.Fatalf("unexpected status %d", code)
		}
	}
}

func outcomeCounts(families []*dto.MetricFamily) map[string]float64 {
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "shiftdesk_auth_outcomes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var stage, reason string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "stage":
					stage = l.GetValue()
				case "reason":
					reason = l.GetValue()
				}
			}
			counts[stage+"/"+reason] = m.GetCounter().GetValue()
		}
	}
	return counts
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
