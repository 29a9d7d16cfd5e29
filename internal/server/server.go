package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/session"
)

// ReceiptFiles serves the data of uploaded receipts
type ReceiptFiles interface {
	ReceiptFile(ctx context.Context, key string) ([]byte, string, error)
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Enabled reports whether credentials are configured
func (a BasicAuth) Enabled() bool {
	return a.Username != "" || a.Password != ""
}

// Options holds the optional collaborators of a Server
type Options struct {
	// Files serves /files/{key}; receipts are not served when nil
	Files ReceiptFiles
	// Scanner prefills the new bill form from the receipt; disabled when nil
	Scanner scanning.Scanner
	// BasicAuth protects every route when a username or password is set.
	// The JSON API is only served when it is.
	BasicAuth BasicAuth
	// FetchTimeout bounds the wait for the bill list before showing the loading page
	FetchTimeout time.Duration
	// SecureCookies marks the session cookie Secure
	SecureCookies bool
}

// Server handles HTTP requests for the application
type Server struct {
	store    bill.Store
	sessions *session.Issuer
	opts     Options
	mux      *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(store bill.Store, sessions *session.Issuer, opts Options) *Server {
	return NewServerWithMux(store, sessions, opts, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(store bill.Store, sessions *session.Issuer, opts Options, mux *http.ServeMux) *Server {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	s := &Server{
		store:    store,
		sessions: sessions,
		opts:     opts,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.opts.BasicAuth.Enabled() {
		return true // No auth required if not configured
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.opts.BasicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.opts.BasicAuth.Password)) == 1
	return userOK && passOK
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Billed"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// corsMiddleware adds CORS headers to API responses
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handlePreflight answers CORS preflight requests
func handlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)

	// Pages
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleLoginPage))
	s.mux.HandleFunc("POST /login", s.requireAuth(s.handleLogin))
	s.mux.HandleFunc("POST /logout", s.requireAuth(s.handleLogout))
	s.mux.HandleFunc("GET /employee/bills", s.requireAuth(s.requireEmployee(s.handleBills)))
	s.mux.HandleFunc("GET /employee/bills/{id}/receipt", s.requireAuth(s.requireEmployee(s.handleReceiptPreview)))
	s.mux.HandleFunc("GET /employee/bill/new", s.requireAuth(s.requireEmployee(s.handleNewBillPage)))
	s.mux.HandleFunc("POST /employee/bill/new/file", s.requireAuth(s.requireEmployee(s.handleAttachFile)))
	s.mux.HandleFunc("POST /employee/bill/new", s.requireAuth(s.requireEmployee(s.handleSubmitBill)))
	s.mux.HandleFunc("GET /admin/dashboard", s.requireAuth(s.requireAdmin(s.handleDashboard)))
	// Receipt files are addressed by unguessable keys and need no session
	s.mux.HandleFunc("GET /files/{key}", s.requireAuth(s.handleReceiptFile))

	// JSON API used by remote stores. It trusts the email it is given, so it
	// is only served behind basic auth.
	if !s.opts.BasicAuth.Enabled() {
		return
	}
	s.mux.HandleFunc("OPTIONS /api/", handlePreflight)
	s.mux.HandleFunc("GET /api/bills", s.requireAuth(corsMiddleware(s.handleAPIListBills)))
	s.mux.HandleFunc("POST /api/bills", s.requireAuth(corsMiddleware(s.handleAPICreateBill)))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(corsMiddleware(s.handleAPIUploadReceipt)))
	s.mux.HandleFunc("GET /api/receipts/{key}", s.requireAuth(corsMiddleware(s.handleAPIGetReceipt)))
}

// APIEnabled reports whether the JSON API is served
func (s *Server) APIEnabled() bool {
	return s.opts.BasicAuth.Enabled()
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           requestLogger(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
