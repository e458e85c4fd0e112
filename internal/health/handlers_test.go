package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/my-mailer/internal/health"
)

type stubChecker struct {
	storageErr error
	mail       bool
}

func (s stubChecker) PingStorage(_ context.Context, _ time.Duration) error {
	return s.storageErr
}

func (s stubChecker) MailConfigured() bool { return s.mail }

func fixedNow() time.Time { return time.Date(2025, time.March, 5, 8, 37, 0, 0, time.UTC) }

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestHelloAndHealth(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api", health.Handler{Now: fixedNow}.APIRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/hello", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"Hello World! 👋","status":"success","service":"my-mailer","timestamp":"2025-03-05T14:07:00.000000+05:30"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"healthy","service":"my-mailer","timestamp":"2025-03-05T14:07:00.000000+05:30"}`, rr.Body.String())
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}, StorageTimeout: 50 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, "ok", status["storage"])
	require.Equal(t, "disabled", status["email"])
}

func TestReadyFailure(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{storageErr: errors.New("read-only file system"), mail: true}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, "read-only file system", status["storage"])
	require.Equal(t, "enabled", status["email"])
}

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDependenciesBoundStorageProbe(t *testing.T) {
	deps := health.Dependencies{Storage: slowPinger{}, Mail: func() bool { return true }}
	err := deps.PingStorage(context.Background(), 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, deps.MailConfigured())

	require.Error(t, health.Dependencies{}.PingStorage(context.Background(), time.Second))
	require.False(t, health.Dependencies{}.MailConfigured())
}
