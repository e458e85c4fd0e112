package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error envelope returned by every API endpoint.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Success: false, Error: message})
}
