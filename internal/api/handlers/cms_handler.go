package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/infrastructure/observability"
	"github.com/medtravel/directory/internal/search"
)

// DirectoryService is the snapshot API the read handlers depend on
type DirectoryService interface {
	GetAllCMSData(ctx context.Context) (*entities.CMSData, error)
	Search(ctx context.Context, query string, p search.Pagination) ([]entities.SearchHit, int, error)
	Invalidate(ctx context.Context) error
}

// CMSHandler serves the aggregated CMS snapshot
type CMSHandler struct {
	service         DirectoryService
	revalidateToken string
}

// NewCMSHandler creates a new CMS handler. An empty token leaves
// revalidation open.
func NewCMSHandler(service DirectoryService, revalidateToken string) *CMSHandler {
	return &CMSHandler{
		service:         service,
		revalidateToken: revalidateToken,
	}
}

type allDataResponse struct {
	Hospitals       []entities.Hospital          `json:"hospitals"`
	Treatments      []entities.ExtendedTreatment `json:"treatments"`
	TotalHospitals  int                          `json:"totalHospitals"`
	TotalTreatments int                          `json:"totalTreatments"`
	Page            int                          `json:"page"`
	PageSize        int                          `json:"pageSize"`
	HasMore         bool                         `json:"hasMore"`
	LastUpdated     time.Time                    `json:"lastUpdated"`
}

type searchResponse struct {
	Items    []entities.SearchHit `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	HasMore  bool                 `json:"hasMore"`
}

// HandleCMS handles GET /api/cms?action=all|hospital|search
func (h *CMSHandler) HandleCMS(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	switch action {
	case "", "all":
		h.getAll(w, r)
	case "hospital":
		h.getHospital(w, r)
	case "search":
		h.search(w, r)
	default:
		respondWithError(w, http.StatusBadRequest, "unknown action "+action)
	}
}

func (h *CMSHandler) getAll(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.GetAllCMSData(r.Context())
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Failed to load CMS data")
		respondWithAppError(w, err)
		return
	}

	p := parsePagination(r)
	respondWithJSON(w, http.StatusOK, allDataResponse{
		Hospitals:       search.PageOf(data.Hospitals, p),
		Treatments:      nonNil(data.Treatments),
		TotalHospitals:  data.TotalHospitals,
		TotalTreatments: data.TotalTreatments,
		Page:            p.Page,
		PageSize:        p.PageSize,
		HasMore:         p.HasMore(data.TotalHospitals),
		LastUpdated:     data.LastUpdated,
	})
}

func (h *CMSHandler) getHospital(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		respondWithError(w, http.StatusBadRequest, "slug is required")
		return
	}
	h.writeHospital(w, r, slug)
}

// GetHospital handles GET /api/hospitals/{slug}
func (h *CMSHandler) GetHospital(w http.ResponseWriter, r *http.Request) {
	h.writeHospital(w, r, r.PathValue("slug"))
}

func (h *CMSHandler) writeHospital(w http.ResponseWriter, r *http.Request, slug string) {
	data, err := h.service.GetAllCMSData(r.Context())
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Failed to load CMS data")
		respondWithAppError(w, err)
		return
	}

	hospital, ok := data.HospitalBySlug(slug)
	if !ok {
		respondWithError(w, http.StatusNotFound, "hospital not found")
		return
	}
	respondWithJSON(w, http.StatusOK, hospital)
}

func (h *CMSHandler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	p := parsePagination(r)

	hits, total, err := h.service.Search(r.Context(), query, p)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("query", query).Msg("Search failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, searchResponse{
		Items:    nonNil(hits),
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasMore(total),
	})
}

// Revalidate handles POST /api/cms/revalidate
func (h *CMSHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	if h.revalidateToken != "" && !h.authorized(r) {
		respondWithError(w, http.StatusUnauthorized, "invalid revalidation token")
		return
	}

	if err := h.service.Invalidate(r.Context()); err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Revalidation failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"revalidated": true,
		"timestamp":   time.Now().UTC(),
	})
}

func (h *CMSHandler) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("secret")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.revalidateToken)) == 1
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
