package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/my-mailer/internal/common"
	"github.com/noah-isme/my-mailer/internal/submission"
)

// ServiceName identifies this API in utility responses.
const ServiceName = "my-mailer"

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness; it is cleared when the server starts draining.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingStorage(ctx context.Context, timeout time.Duration) error
	MailConfigured() bool
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker        Checker
	StorageTimeout time.Duration
	Now            func() time.Time
}

// HelloResponse is the greeting payload.
type HelloResponse struct {
	Message   string `json:"message" example:"Hello World! 👋"`
	Status    string `json:"status" example:"success"`
	Service   string `json:"service" example:"my-mailer"`
	Timestamp string `json:"timestamp" example:"2025-03-05T14:07:00.000000+05:30"`
}

// StatusResponse is the liveness payload of /api/health.
type StatusResponse struct {
	Status    string `json:"status" example:"healthy"`
	Service   string `json:"service" example:"my-mailer"`
	Timestamp string `json:"timestamp" example:"2025-03-05T14:07:00.000000+05:30"`
}

// APIRoutes mounts the public utility endpoints under /api.
func (h Handler) APIRoutes(r chi.Router) {
	r.Get("/hello", h.Hello)
	r.Get("/health", h.Health)
}

// Routes mounts the operational probes under /health.
func (h Handler) Routes(r chi.Router) {
	r.Get("/live", h.Live)
	r.Get("/ready", h.Ready)
}

// Hello godoc
// @Summary Hello World
// @Tags Utilities
// @Produce json
// @Success 200 {object} HelloResponse
// @Router /api/hello [get]
func (h Handler) Hello(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, HelloResponse{
		Message:   "Hello World! 👋",
		Status:    "success",
		Service:   ServiceName,
		Timestamp: h.timestamp(),
	})
}

// Health godoc
// @Summary Health check
// @Tags Utilities
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/health [get]
func (h Handler) Health(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, StatusResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: h.timestamp(),
	})
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on the storage probe. Missing mail
// credentials are reported but do not fail readiness since submissions are
// still accepted.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}
	storageStatus := "ok"
	if err := h.Checker.PingStorage(r.Context(), h.storageTimeout()); err != nil {
		storageStatus = err.Error()
	}
	mailStatus := "disabled"
	if h.Checker.MailConfigured() {
		mailStatus = "enabled"
	}
	status := map[string]string{
		"status":  "ready",
		"storage": storageStatus,
		"email":   mailStatus,
	}
	code := http.StatusOK
	if storageStatus != "ok" {
		status["status"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) timestamp() string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return submission.FormatTimestamp(now())
}

func (h Handler) storageTimeout() time.Duration {
	if h.StorageTimeout <= 0 {
		return 2 * time.Second
	}
	return h.StorageTimeout
}
