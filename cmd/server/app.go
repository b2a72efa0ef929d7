package main

import (
	"log"
	"net/http"
	"time"

	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/handlers"
	"github.com/billflow/billflow/internal/httpx"
	"github.com/billflow/billflow/internal/mailer"
	"github.com/billflow/billflow/internal/services"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	db  *gorm.DB
}

// NewApp creates the application with all routes configured.
func NewApp(db *gorm.DB, svc *services.InvoiceService, sender mailer.Sender) *App {
	app := &App{mux: http.NewServeMux(), db: db}

	ah := handlers.NewAuthHandler(db)
	ch := handlers.NewClientHandler(db)
	ih := handlers.NewInvoiceHandler(db, svc, sender)
	th := handlers.NewTemplateHandler(db)
	auh := handlers.NewAutomationHandler(db)
	dh := handlers.NewDashboardHandler(svc)

	// ─── Public routes ──────────────────────────────────────────────────
	app.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	app.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	app.mux.HandleFunc("POST /signup", ah.Signup)
	app.mux.HandleFunc("POST /login", ah.Login)
	app.mux.HandleFunc("POST /logout", ah.Logout)

	// ─── Authenticated API routes ───────────────────────────────────────
	app.api("GET /api/dashboard", dh.Get)

	app.api("GET /api/clients", ch.List)
	app.api("POST /api/clients", ch.Create)
	app.api("GET /api/clients/{id}", ch.Get)
	app.api("PUT /api/clients/{id}", ch.Update)
	app.api("DELETE /api/clients/{id}", ch.Delete)

	app.api("GET /api/invoices", ih.List)
	app.api("POST /api/invoices", ih.Create)
	app.api("GET /api/invoices/{id}", ih.Get)
	app.api("PUT /api/invoices/{id}", ih.Update)
	app.api("DELETE /api/invoices/{id}", ih.Delete)
	app.api("POST /api/invoices/{id}/send", ih.Send)
	app.api("POST /api/invoices/{id}/pay", ih.Pay)
	app.api("POST /api/invoices/{id}/cancel", ih.Cancel)
	app.api("GET /api/invoices/{id}/pdf", ih.PDF)

	app.api("GET /api/email-templates", th.List)
	app.api("POST /api/email-templates", th.Create)
	app.api("GET /api/email-templates/{id}", th.Get)
	app.api("PUT /api/email-templates/{id}", th.Update)
	app.api("DELETE /api/email-templates/{id}", th.Delete)

	app.api("GET /api/automations", auh.List)
	app.api("POST /api/automations", auh.Create)
	app.api("GET /api/automations/{id}", auh.Get)
	app.api("PUT /api/automations/{id}", auh.Update)
	app.api("PATCH /api/automations/{id}", auh.Toggle)
	app.api("DELETE /api/automations/{id}", auh.Delete)
	app.api("GET /api/automations/{id}/runs", auh.Runs)

	return app
}

// api registers an auth-required route.
func (a *App) api(pattern string, handler http.HandlerFunc) {
	a.mux.Handle(pattern, auth.RequireAuth(handler))
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth.Middleware(withRecover(withLogging(a.mux))).ServeHTTP(w, r)
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// withRecover converts panics into 500 responses.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
