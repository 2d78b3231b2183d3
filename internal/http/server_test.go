package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spendable/internal/budget"
	"spendable/internal/core"
	"spendable/internal/services"
	"spendable/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "spendable.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := services.NewBudgetService(repo, nil)
	srv := NewServer(":0", svc, 30*time.Second)
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.stop()
		repo.Close()
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestIncomeSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/settings/income", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET before setup = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/income",
		`{"amount":"3000.00","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/settings/income", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET after setup = %d, want 200", rec.Code)
	}
	var payload incomePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Amount != "3000.00" {
		t.Errorf("amount = %q, want 3000.00", payload.Amount)
	}
	if payload.Period.Start != "2025-06-01" || !payload.Period.Repeating {
		t.Errorf("period = %+v", payload.Period)
	}
}

func TestIncomeSettingsValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"unknown field", `{"amont":"3000.00"}`, http.StatusBadRequest},
		{"bad amount", `{"amount":"abc","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"amount":"0","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`, http.StatusUnprocessableEntity},
		{"inverted period", `{"amount":"3000.00","period":{"start":"2025-06-30","end":"2025-06-01","repeating":true}}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPut, "/api/settings/income", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestSavingsPolicyEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/settings/savings",
		`{"mode":"percentage","percentage":10,"period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT percentage = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/savings",
		`{"mode":"fixed","fixed_amount":"200.00","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT fixed = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/settings/savings", "")
	var payload savingsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Mode != "fixed" || payload.FixedAmount != "200.00" {
		t.Errorf("policy = %+v", payload)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/savings",
		`{"mode":"percentage","percentage":150,"period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("PUT percentage 150 = %d, want 422", rec.Code)
	}
}

func TestFixedExpenseEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/fixed-expenses",
		`{"description":"rent","amount":"900.00","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", rec.Code, rec.Body.String())
	}
	var created createdPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/fixed-expenses", "")
	var list []fixedExpensePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Description != "rent" || list[0].Amount != "900.00" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/fixed-expenses/1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, "/api/fixed-expenses/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, "/api/fixed-expenses/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("DELETE with bad id = %d, want 400", rec.Code)
	}
}

func TestFutureExpenseEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/future-expenses",
		`{"description":"flight","amount":"120.00","due_date":"2025-09-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/future-expenses", "")
	var list []futureExpensePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].DueDate != "2025-09-01" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/future-expenses",
		`{"description":"flight","amount":"120.00","due_date":"soon"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST with bad due date = %d, want 422", rec.Code)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":"45.00","type":"expense","date":"2025-06-15","category":"groceries"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?from=2025-06-15&to=2025-06-15", "")
	var list []transactionPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Amount != "45.00" || list[0].Type != "expense" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":"45.00","type":"transfer","date":"2025-06-15"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST with bad type = %d, want 422", rec.Code)
	}
}

func TestBudgetTodayEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPut, "/api/settings/income",
		`{"amount":"3000.00","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)
	doJSON(t, srv, http.MethodPost, "/api/fixed-expenses",
		`{"description":"rent","amount":"900.00","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/budget/today?date=2025-06-15", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET = %d: %s", rec.Code, rec.Body.String())
	}
	var ov budget.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if ov.DailyIncome != 100 || ov.DailyFixedExpenses != 30 || ov.DailyBudget != 70 {
		t.Errorf("overview = %+v", ov)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/budget/today?date=15-06-2025", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET with bad date = %d, want 400", rec.Code)
	}
}

func TestOverviewCacheInvalidation(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPut, "/api/settings/income",
		`{"amount":"3000.00","period":{"start":"2025-06-01","end":"2025-06-30","repeating":true}}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/budget/today?date=2025-06-15", "")
	var before budget.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if before.Surplus != 100 {
		t.Fatalf("surplus before spend = %v, want 100", before.Surplus)
	}

	// A write must evict the cached overview.
	doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":"40.00","type":"expense","date":"2025-06-15"}`)

	rec = doJSON(t, srv, http.MethodGet, "/api/budget/today?date=2025-06-15", "")
	var after budget.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if after.Surplus != 60 {
		t.Errorf("surplus after spend = %v, want 60", after.Surplus)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/fixed-expenses", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	srv := newTestServer(t)

	body := `{"amount":"1.00","type":"expense","date":"2025-06-15"}`
	var limited bool
	for i := 0; i < 70; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/transactions", body)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected a 429 within 70 rapid POSTs")
	}
	if srv.metrics.RateLimitHits() == 0 {
		t.Error("rate limit hits metric not incremented")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{12345, "123.45"},
		{-9000, "-90.00"},
	}
	for _, tt := range tests {
		if got := formatAmount(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.7:1234", "", "203.0.113.7"},
		{"trusted proxy honors XFF", "10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"untrusted peer ignores XFF", "203.0.113.9:1234", "1.2.3.4", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
