package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/internal/infrastructure/observability"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

const maxSubmissionBytes = 64 << 10

// SubmissionService defines the form operations used by the handler
type SubmissionService interface {
	Submit(ctx context.Context, sub *entities.Submission) (*entities.SubmissionResult, error)
}

// SubmissionHandler accepts website form posts
type SubmissionHandler struct {
	service SubmissionService
	limiter providers.RateLimiter
}

// NewSubmissionHandler creates a new submission handler. limiter may be nil.
func NewSubmissionHandler(service SubmissionService, limiter providers.RateLimiter) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		limiter: limiter,
	}
}

type submissionRequest struct {
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Country      string            `json:"country"`
	Message      string            `json:"message"`
	Organization string            `json:"organization"`
	HospitalID   string            `json:"hospitalId"`
	TreatmentID  string            `json:"treatmentId"`
	Page         string            `json:"page"`
	Extra        map[string]string `json:"extra"`
}

// Inquiry handles POST /api/inquiries
func (h *SubmissionHandler) Inquiry(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, entities.SubmissionInquiry)
}

// Registration handles POST /api/registrations
func (h *SubmissionHandler) Registration(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, entities.SubmissionRegistration)
}

// PartnerApplication handles POST /api/partner-applications
func (h *SubmissionHandler) PartnerApplication(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, entities.SubmissionPartnerApplication)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request, kind entities.SubmissionKind) {
	logger := observability.LoggerFromContext(r.Context())

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), "submit:"+clientIP(r))
		switch {
		case err != nil:
			// Fail open so a Redis outage does not block leads.
			logger.Warn().Err(err).Msg("Rate limiter unavailable")
		case !allowed:
			observability.RecordSubmission(string(kind), "rate_limited")
			respondWithJSON(w, http.StatusTooManyRequests, entities.SubmissionResult{
				OK:    false,
				Error: "too many submissions, please try again later",
			})
			return
		}
	}

	var payload submissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes)).Decode(&payload); err != nil {
		respondWithJSON(w, http.StatusBadRequest, entities.SubmissionResult{
			OK:    false,
			Error: "invalid request payload",
		})
		return
	}

	page := strings.TrimSpace(payload.Page)
	if page == "" {
		page = r.Referer()
	}

	result, err := h.service.Submit(r.Context(), &entities.Submission{
		Kind:         kind,
		Name:         payload.Name,
		Email:        payload.Email,
		Phone:        payload.Phone,
		Country:      payload.Country,
		Message:      payload.Message,
		Organization: payload.Organization,
		HospitalID:   strings.TrimSpace(payload.HospitalID),
		TreatmentID:  strings.TrimSpace(payload.TreatmentID),
		Page:         page,
		Extra:        payload.Extra,
	})
	if err != nil {
		respondWithJSON(w, apperrors.HTTPStatus(err), result)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}
