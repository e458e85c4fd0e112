package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	require.Equal(t, "10.0.0.7", ClientIP(req, "Unknown"))

	req.Header.Set("X-Real-IP", "192.0.2.10")
	require.Equal(t, "192.0.2.10", ClientIP(req, "Unknown"))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	require.Equal(t, "203.0.113.5", ClientIP(req, "Unknown"))
}

func TestClientIPFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = ""
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	require.Equal(t, "Unknown", ClientIP(req, "Unknown"))
	require.Equal(t, "Unknown", ClientIP(nil, "Unknown"))

	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", ClientIP(req, "Unknown"))
}

func TestJSONErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusBadRequest, "Invalid email address")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"success":false,"error":"Invalid email address"}`, rr.Body.String())
}
