package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Deps are the collaborators the API is built from. Metrics and Limiter may
// be nil.
type Deps struct {
	Store     *storage.SQLiteRepository
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
	Auth      *auth.PasswordAuthenticator
	Tokens    *auth.JWTManager
	Metrics   *metrics.Metrics
	Limiter   *ratelimit.Limiter
	Logger    *log.Logger
}

type Server struct {
	http.Server
	store     *storage.SQLiteRepository
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	auth      *auth.PasswordAuthenticator
	tokens    *auth.JWTManager
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		store:     d.Store,
		ledger:    d.Ledger,
		dashboard: d.Dashboard,
		auth:      d.Auth,
		tokens:    d.Tokens,
		metrics:   d.Metrics,
		limiter:   d.Limiter,
		detector:  security.NewDetector(),
		logger:    logger.WithComponent(log.ComponentHTTP),
		started:   time.Now(),
	}
	s.Handler = s.middleware(s.routes())
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("POST /token/refresh", s.handleRefresh)

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireAuth(h))
	}

	authed("GET /income", s.handleListIncome)
	authed("POST /income", s.handleCreateIncome)
	authed("GET /income/{id}", s.handleGetIncome)
	authed("PUT /income/{id}", s.handleUpdateIncome)
	authed("DELETE /income/{id}", s.handleDeleteIncome)

	authed("GET /expenses", s.handleListExpenses)
	authed("POST /expenses", s.handleCreateExpense)
	authed("GET /expenses/{id}", s.handleGetExpense)
	authed("PUT /expenses/{id}", s.handleUpdateExpense)
	authed("DELETE /expenses/{id}", s.handleDeleteExpense)

	authed("GET /liabilities", s.handleListLiabilities)
	authed("POST /liabilities", s.handleCreateLiability)
	authed("GET /liabilities/{id}", s.handleGetLiability)
	authed("PUT /liabilities/{id}", s.handleUpdateLiability)
	authed("DELETE /liabilities/{id}", s.handleDeleteLiability)
	authed("POST /liabilities/{id}/pay", s.handlePayLiability)

	authed("GET /employees", s.handleListEmployees)
	authed("POST /employees", s.handleCreateEmployee)
	authed("GET /employees/{id}", s.handleGetEmployee)
	authed("PUT /employees/{id}", s.handleUpdateEmployee)
	authed("DELETE /employees/{id}", s.handleDeleteEmployee)

	authed("GET /payroll", s.handleListPayroll)
	authed("POST /payroll", s.handleCreatePayroll)
	authed("GET /payroll/{id}", s.handleGetPayroll)
	authed("PUT /payroll/{id}", s.handleUpdatePayroll)
	authed("DELETE /payroll/{id}", s.handleDeletePayroll)

	authed("GET /customers", s.handleListCustomers)
	authed("POST /customers", s.handleCreateCustomer)
	authed("GET /customers/{id}", s.handleGetCustomer)
	authed("PUT /customers/{id}", s.handleUpdateCustomer)
	authed("DELETE /customers/{id}", s.handleDeleteCustomer)

	authed("GET /customer-payments", s.handleListCustomerPayments)
	authed("POST /customer-payments", s.handleCreateCustomerPayment)
	authed("GET /customer-payments/{id}", s.handleGetCustomerPayment)
	authed("PUT /customer-payments/{id}", s.handleUpdateCustomerPayment)
	authed("DELETE /customer-payments/{id}", s.handleDeleteCustomerPayment)

	authed("GET /stats", s.handleStats)
	authed("GET /dashboard", s.handleStats)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, http.StatusNotFound, "not found")
	})
	return mux
}

// middleware wraps the mux outermost first: tracing, security headers,
// probe detection, then rate limiting.
func (s *Server) middleware(mux http.Handler) http.Handler {
	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeErrorStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
		})(h)
	}
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics).Middleware(h)
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
