package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/medtravel/directory/pkg/errors"
)

// errorResponse is the body of every non-2xx API response
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("Failed to write response body")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps err onto its status code and {error, details} body
func respondWithAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	body := errorResponse{Error: "internal server error"}
	if appErr, ok := apperrors.As(err); ok {
		body.Error = appErr.Message
		body.Details = appErr.Details()
	} else {
		body.Details = err.Error()
	}
	respondWithJSON(w, status, body)
}

// clientIP returns the first forwarded address, falling back to the peer
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
