package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
	"fintrack/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testAPI struct {
	t      *testing.T
	server *Server
	tokens *auth.JWTManager
}

func newTestAPI(t *testing.T, limiter *ratelimit.Limiter) *testAPI {
	t.Helper()
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	var logs bytes.Buffer
	logger := log.New(log.Config{Output: &logs, Format: "json"})
	m := metrics.New()
	dash := services.NewDashboardService(store, cache.NewLRUCache[core.Dashboard](16, time.Minute), m)
	ledger := services.NewLedgerService(store, nil, dash, m, logger)
	tokens := auth.NewJWTManager(testSecret, time.Hour, 24*time.Hour)

	s := NewServer(":0", Deps{
		Store:     store,
		Ledger:    ledger,
		Dashboard: dash,
		Auth:      auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost),
		Tokens:    tokens,
		Metrics:   m,
		Limiter:   limiter,
		Logger:    logger,
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return &testAPI{t: t, server: s, tokens: tokens}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.10:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, req)
	return rec
}

// login registers username and returns an access token for it.
func (a *testAPI) login(username string) string {
	a.t.Helper()
	creds := map[string]string{"username": username, "password": "correct horse"}
	if rec := a.do(http.MethodPost, "/users", "", creds); rec.Code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body)
	}
	rec := a.do(http.MethodPost, "/token", "", creds)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("token %s: %d %s", username, rec.Code, rec.Body)
	}
	var pair auth.TokenPair
	decode(a.t, rec, &pair)
	return pair.Access
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	creds := map[string]string{"username": "alice", "password": "correct horse"}
	rec := api.do(http.MethodPost, "/users", "", creds)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("registration response leaks password: %s", rec.Body)
	}

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"duplicate username", "/users", creds, http.StatusConflict},
		{"short password", "/users", map[string]string{"username": "bob", "password": "short"}, http.StatusBadRequest},
		{"missing username", "/users", map[string]string{"password": "long enough"}, http.StatusBadRequest},
		{"malformed body", "/users", "{", http.StatusBadRequest},
		{"wrong password", "/token", map[string]string{"username": "alice", "password": "nope nope"}, http.StatusUnauthorized},
		{"unknown user", "/token", map[string]string{"username": "zed", "password": "whatever1"}, http.StatusUnauthorized},
		{"garbage refresh", "/token/refresh", map[string]string{"refresh": "x.y.z"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, tt.path, "", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if errorMessage(t, rec) == "" {
				t.Error("error body missing message")
			}
		})
	}

	rec = api.do(http.MethodPost, "/token", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("token: %d %s", rec.Code, rec.Body)
	}
	var pair auth.TokenPair
	decode(t, rec, &pair)

	rec = api.do(http.MethodPost, "/token/refresh", "", map[string]string{"refresh": pair.Refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
	var refreshed map[string]string
	decode(t, rec, &refreshed)
	if refreshed["access"] == "" {
		t.Fatal("refresh returned no access token")
	}
	if rec := api.do(http.MethodGet, "/income", refreshed["access"], nil); rec.Code != http.StatusOK {
		t.Fatalf("refreshed token rejected: %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	api := newTestAPI(t, nil)
	api.login("alice")

	creds := map[string]string{"username": "alice", "password": "correct horse"}
	var pair auth.TokenPair
	decode(t, api.do(http.MethodPost, "/token", "", creds), &pair)

	for _, path := range []string{"/income", "/expenses", "/liabilities", "/employees", "/payroll", "/customers", "/customer-payments", "/stats", "/dashboard"} {
		t.Run(path, func(t *testing.T) {
			if rec := api.do(http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("no token: status %d", rec.Code)
			}
			if rec := api.do(http.MethodGet, path, pair.Refresh, nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("refresh token as access: status %d", rec.Code)
			}
			if rec := api.do(http.MethodGet, path, pair.Access, nil); rec.Code != http.StatusOK {
				t.Errorf("access token: status %d", rec.Code)
			}
		})
	}
}

func TestIncomeCRUDIsScopedToCaller(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")
	bob := api.login("bob")

	rec := api.do(http.MethodPost, "/income", alice, map[string]any{
		"source": "Salary", "amount": 2500, "date": "2024-07-01", "description": "July",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var created map[string]any
	decode(t, rec, &created)
	if created["amount"] != "2500" || created["date"] != "2024-07-01" {
		t.Fatalf("unexpected income %v", created)
	}
	path := "/income/" + jsonID(created)

	if rec := api.do(http.MethodGet, path, bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("bob GET: %d", rec.Code)
	}
	if rec := api.do(http.MethodPut, path, bob, map[string]any{"source": "x", "amount": "1", "date": "2024-07-02"}); rec.Code != http.StatusNotFound {
		t.Errorf("bob PUT: %d", rec.Code)
	}
	if rec := api.do(http.MethodDelete, path, bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("bob DELETE: %d", rec.Code)
	}
	var bobsList []any
	decode(t, api.do(http.MethodGet, "/income", bob, nil), &bobsList)
	if len(bobsList) != 0 {
		t.Errorf("bob sees %d incomes", len(bobsList))
	}

	rec = api.do(http.MethodPut, path, alice, map[string]any{"source": "Salary", "amount": "2600.50", "date": "2024-07-01"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body)
	}
	var updated map[string]any
	decode(t, rec, &updated)
	if updated["amount"] != "2600.5" {
		t.Errorf("updated amount = %v", updated["amount"])
	}

	if rec := api.do(http.MethodDelete, path, alice, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, path, alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, "/income/abc", alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("non-numeric id: %d", rec.Code)
	}
}

func TestExpenseValidation(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"bad category", map[string]any{"category": "Yachts", "amount": "5", "date": "2024-07-01"}, "invalid expense category"},
		{"missing category", map[string]any{"amount": "5", "date": "2024-07-01"}, "category"},
		{"negative amount", map[string]any{"category": "Food", "amount": "-5", "date": "2024-07-01"}, "amount cannot be negative"},
		{"unparseable amount", map[string]any{"category": "Food", "amount": "five", "date": "2024-07-01"}, "invalid amount format"},
		{"bad date", map[string]any{"category": "Food", "amount": "5", "date": "07/01/2024"}, "invalid date"},
		{"missing date", map[string]any{"category": "Food", "amount": "5"}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/expenses", alice, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body)
			}
			if msg := errorMessage(t, rec); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want it to mention %q", msg, tt.want)
			}
		})
	}

	rec := api.do(http.MethodPost, "/expenses", alice, map[string]any{"category": "food", "amount": "12,50", "date": "2024-07-01"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var e map[string]any
	decode(t, rec, &e)
	if e["category"] != "Food" || e["amount"] != "12.5" {
		t.Errorf("unexpected expense %v", e)
	}
}

func TestPayLiabilityEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")
	bob := api.login("bob")

	rec := api.do(http.MethodPost, "/liabilities", alice, map[string]any{
		"title": "Car loan", "total_amount": "1000", "due_date": "2025-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create liability: %d %s", rec.Code, rec.Body)
	}
	var l map[string]any
	decode(t, rec, &l)
	if l["remaining_amount"] != "1000" || l["is_settled"] != false {
		t.Fatalf("unexpected liability %v", l)
	}
	payPath := "/liabilities/" + jsonID(l) + "/pay"

	rejections := []struct {
		name   string
		token  string
		body   any
		status int
		msg    string
	}{
		{"zero", alice, map[string]any{"amount": 0}, http.StatusBadRequest, "amount must be greater than 0"},
		{"missing amount", alice, map[string]any{}, http.StatusBadRequest, "amount must be greater than 0"},
		{"negative", alice, map[string]any{"amount": "-10"}, http.StatusBadRequest, "amount must be greater than 0"},
		{"not a number", alice, map[string]any{"amount": "abc"}, http.StatusBadRequest, "invalid amount format"},
		{"null amount", alice, map[string]any{"amount": nil}, http.StatusBadRequest, "invalid amount format"},
		{"too many digits", alice, map[string]any{"amount": "1234567890123"}, http.StatusBadRequest, "invalid amount format"},
		{"huge exponent string", alice, map[string]any{"amount": "1e50000000"}, http.StatusBadRequest, "invalid amount format"},
		{"huge exponent number", alice, map[string]any{"amount": json.RawMessage("1e50000000")}, http.StatusBadRequest, "invalid amount format"},
		{"over remaining", alice, map[string]any{"amount": "1000.01"}, http.StatusBadRequest, "amount exceeds remaining debt"},
		{"other user", bob, map[string]any{"amount": "10"}, http.StatusNotFound, "not found"},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, payPath, tt.token, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if msg := errorMessage(t, rec); msg != tt.msg {
				t.Errorf("error = %q, want %q", msg, tt.msg)
			}
		})
	}

	rec = api.do(http.MethodPost, payPath, alice, map[string]any{"amount": 300.5, "date": "2024-07-10"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay: %d %s", rec.Code, rec.Body)
	}
	var paid map[string]any
	decode(t, rec, &paid)
	if paid["status"] != "payment recorded" || paid["new_balance"] != "699.5" || paid["is_settled"] != false {
		t.Fatalf("unexpected pay result %v", paid)
	}

	var expenses []map[string]any
	decode(t, api.do(http.MethodGet, "/expenses", alice, nil), &expenses)
	if len(expenses) != 1 {
		t.Fatalf("expected exactly the payment expense, got %v", expenses)
	}
	if expenses[0]["category"] != "Liability" || expenses[0]["description"] != "Payment for Car loan" ||
		expenses[0]["date"] != "2024-07-10" {
		t.Errorf("unexpected payment expense %v", expenses[0])
	}

	rec = api.do(http.MethodPut, "/liabilities/"+jsonID(l), alice, map[string]any{"title": "Car", "total_amount": "1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update liability: %d %s", rec.Code, rec.Body)
	}
	var edited map[string]any
	decode(t, rec, &edited)
	if edited["title"] != "Car" || edited["total_amount"] != "1000" || edited["due_date"] != nil {
		t.Errorf("PUT must only change title and due date: %v", edited)
	}

	rec = api.do(http.MethodPost, payPath, alice, map[string]any{"amount": "699.50"})
	decode(t, rec, &paid)
	if paid["is_settled"] != true || paid["new_balance"] != "0" {
		t.Errorf("expected settled liability, got %v", paid)
	}
}

func TestPayrollAndCustomerPostings(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")
	bob := api.login("bob")

	rec := api.do(http.MethodPost, "/employees", alice, map[string]any{
		"name": "Ada", "role": "Engineer", "base_salary": "5000", "email": "ada@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create employee: %d %s", rec.Code, rec.Body)
	}
	var emp map[string]any
	decode(t, rec, &emp)
	if emp["joined_date"] == nil {
		t.Error("joined_date not set on creation")
	}

	rec = api.do(http.MethodPost, "/employees", alice, map[string]any{"name": "Bad", "role": "x", "base_salary": "1", "email": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid email: %d", rec.Code)
	}

	empID := emp["id"].(float64)
	if rec := api.do(http.MethodPost, "/payroll", bob, map[string]any{"employee": empID, "amount": "10", "payment_date": "2024-07-01"}); rec.Code != http.StatusNotFound {
		t.Errorf("bob paying alice's employee: %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/payroll", alice, map[string]any{"employee": empID, "amount": "4200", "payment_date": "2024-07-01"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post payroll: %d %s", rec.Code, rec.Body)
	}
	var sp map[string]any
	decode(t, rec, &sp)
	if sp["employee_name"] != "Ada" || sp["employee_role"] != "Engineer" || sp["title"] != "Salary Payment" {
		t.Errorf("unexpected salary payment %v", sp)
	}

	var filtered []any
	decode(t, api.do(http.MethodGet, "/payroll?employee="+jsonID(emp), alice, nil), &filtered)
	if len(filtered) != 1 {
		t.Errorf("payroll filter returned %d rows", len(filtered))
	}
	if rec := api.do(http.MethodGet, "/payroll?employee=abc", alice, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad employee filter: %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/customers", alice, map[string]any{
		"name": "Acme", "project_name": "Site", "total_amount": "1000", "advance_amount": "200",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer: %d %s", rec.Code, rec.Body)
	}
	var cust map[string]any
	decode(t, rec, &cust)

	rec = api.do(http.MethodPost, "/customer-payments", alice, map[string]any{
		"customer": cust["id"], "amount": "300", "date": "2024-07-02", "note": "milestone 1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post customer payment: %d %s", rec.Code, rec.Body)
	}

	decode(t, api.do(http.MethodGet, "/customers/"+jsonID(cust), alice, nil), &cust)
	if cust["total_paid"] != "500" || cust["remaining"] != "500" {
		t.Errorf("unexpected customer totals %v", cust)
	}

	var incomes []map[string]any
	decode(t, api.do(http.MethodGet, "/income", alice, nil), &incomes)
	if len(incomes) != 1 || incomes[0]["source"] != "Site (Acme)" || incomes[0]["description"] != "Customer payment: milestone 1" {
		t.Errorf("unexpected derived income %v", incomes)
	}

	var expenses []map[string]any
	decode(t, api.do(http.MethodGet, "/expenses", alice, nil), &expenses)
	if len(expenses) != 1 || expenses[0]["category"] != "Salary" {
		t.Errorf("unexpected derived expense %v", expenses)
	}

	var payments []any
	decode(t, api.do(http.MethodGet, "/customer-payments?customer="+jsonID(cust), bob, nil), &payments)
	if len(payments) != 0 {
		t.Errorf("bob sees alice's customer payments")
	}
}

func TestStatsEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")

	api.do(http.MethodPost, "/income", alice, map[string]any{"source": "Gig", "amount": "100", "date": core.Today().String()})
	api.do(http.MethodPost, "/expenses", alice, map[string]any{"category": "Food", "amount": "40", "date": core.Today().String()})

	for _, path := range []string{"/stats", "/dashboard"} {
		rec := api.do(http.MethodGet, path, alice, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", path, rec.Code, rec.Body)
		}
		var d map[string]any
		decode(t, rec, &d)
		if d["total_income"] != "100" || d["total_expense"] != "40" || d["balance"] != "60" {
			t.Errorf("%s: unexpected totals %v", path, d)
		}
		if feed, _ := d["recent_transactions"].([]any); len(feed) != 2 {
			t.Errorf("%s: recent_transactions = %v", path, d["recent_transactions"])
		}
	}
}

func TestOperationalEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing tracing or security headers: %v", rec.Header())
	}
	if rec := api.do(http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body)
	}
	if rec := api.do(http.MethodGet, "/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", rec.Code)
	}

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fintrack_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`) {
		t.Errorf("request counter missing from exposition:\n%s", rec.Body)
	}
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2, CleanupInterval: time.Hour}))

	for i := 0; i < 2; i++ {
		if rec := api.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || errorMessage(t, rec) != "rate limit exceeded" {
		t.Errorf("unexpected 429 response: %v %s", rec.Header(), rec.Body)
	}
}

func jsonID(v map[string]any) string {
	raw, _ := json.Marshal(v["id"])
	return string(raw)
}
