// Package web serves the back-office dashboard and the public contact and
// booking pages.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/logging"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var log = logging.NewLogger("web")

// NewHandler builds the route table. When api is non-nil it is mounted under /api/.
func NewHandler(st *store.Store, cfg *config.Config, version string, api http.Handler) http.Handler {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	h := &Handlers{
		st:       st,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version),
	}

	mux := http.NewServeMux()

	// Back office: redirected to /onboarding until the workspace is activated.
	mux.Handle("GET /{$}", h.activated(h.HandleDashboard))
	mux.Handle("GET /inbox", h.activated(h.HandleInbox))
	mux.Handle("GET /inbox/{contact}", h.activated(h.HandleConversation))
	mux.Handle("POST /inbox/{contact}/reply", h.activated(h.HandleReply))
	mux.Handle("GET /bookings", h.activated(h.HandleBookings))
	mux.Handle("POST /bookings/{id}/status", h.activated(h.HandleBookingStatus))
	mux.Handle("GET /forms", h.activated(h.HandleForms))
	mux.Handle("POST /forms/{id}/complete", h.activated(h.HandleCompleteForm))
	mux.Handle("GET /inventory", h.activated(h.HandleInventory))
	mux.Handle("POST /inventory", h.activated(h.HandleAddItem))
	mux.Handle("POST /inventory/{id}/adjust", h.activated(h.HandleAdjust))
	mux.Handle("GET /staff", h.activated(h.HandleStaff))
	mux.Handle("POST /role", h.activated(h.HandleRole))

	mux.HandleFunc("GET /onboarding", h.HandleOnboarding)
	mux.HandleFunc("POST /onboarding", h.HandleOnboardingSubmit)

	// Public pages.
	mux.HandleFunc("GET /contact-us", h.HandleContactPage)
	mux.HandleFunc("POST /contact-us", h.HandleContactSubmit)
	mux.HandleFunc("GET /book-now", h.HandleBookPage)
	mux.HandleFunc("POST /book-now", h.HandleBookSubmit)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	if api != nil {
		mux.Handle("/api/", api)
	}

	return securityHeaders(mux)
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, cfg *config.Config, version string, api http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           NewHandler(st, cfg, version, api),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.WithField("addr", srv.Addr).Info("unified ops running at http://" + srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, ":") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
