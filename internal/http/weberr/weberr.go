// Package weberr writes the JSON error envelope used by every API route and
// logs the underlying error with the request ID.
package weberr

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Envelope is the API error body. Success responses carry their own shapes;
// failures always look like this.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteJSON serializes payload with the given status. Serialization failures
// are logged; headers are already out at that point so nothing more is sent.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		LogError(r, "encoding response", err)
	}
}

// Write logs err under the request ID and sends the client-safe message in
// the error envelope.
func Write(w http.ResponseWriter, r *http.Request, status int, clientMessage string, err error) {
	if err != nil {
		logf(r, levelFor(status), clientMessage, err)
	}
	WriteJSON(w, r, status, Envelope{Success: false, Error: clientMessage})
}

// Internal hides the error behind a generic message.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	logf(r, "ERROR", "internal server error", err)
	WriteJSON(w, r, http.StatusInternalServerError, Envelope{Success: false, Error: "Internal server error"})
}

func BadRequest(w http.ResponseWriter, r *http.Request, clientMessage string, err error) {
	Write(w, r, http.StatusBadRequest, clientMessage, err)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, clientMessage string) {
	WriteJSON(w, r, http.StatusUnauthorized, Envelope{Success: false, Error: clientMessage})
}

func Forbidden(w http.ResponseWriter, r *http.Request, clientMessage string) {
	WriteJSON(w, r, http.StatusForbidden, Envelope{Success: false, Error: clientMessage})
}

func LogError(r *http.Request, message string, err error) {
	logf(r, "ERROR", message, err)
}

func LogInfo(r *http.Request, message string) {
	requestID := middleware.GetReqID(r.Context())
	if requestID != "" {
		log.Printf("[INFO] RequestID=%s: %s", requestID, message)
	} else {
		log.Printf("[INFO] %s", message)
	}
}

func logf(r *http.Request, level, message string, err error) {
	requestID := middleware.GetReqID(r.Context())
	if requestID != "" {
		log.Printf("[%s] RequestID=%s: %s: %v", level, requestID, message, err)
	} else {
		log.Printf("[%s] %s: %v", level, message, err)
	}
}

func levelFor(status int) string {
	if status >= http.StatusInternalServerError {
		return "ERROR"
	}
	return "WARN"
}
