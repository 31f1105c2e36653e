package handlers

import (
	"net/http"

	"github.com/medtravel/directory/internal/infrastructure/observability"
	"github.com/medtravel/directory/internal/search"
)

var knownViews = map[search.View]bool{
	search.ViewHospitals:  true,
	search.ViewDoctors:    true,
	search.ViewTreatments: true,
}

// HospitalsHandler serves the filtered hospital, doctor and treatment views
type HospitalsHandler struct {
	service DirectoryService
}

// NewHospitalsHandler creates a new hospitals handler
func NewHospitalsHandler(service DirectoryService) *HospitalsHandler {
	return &HospitalsHandler{service: service}
}

type filteredViewResponse struct {
	View           search.View        `json:"view"`
	Items          interface{}        `json:"items"`
	Total          int                `json:"total"`
	Page           int                `json:"page"`
	PageSize       int                `json:"pageSize"`
	HasMore        bool               `json:"hasMore"`
	Filters        search.FilterState `json:"filters"`
	VisibleFilters []search.FilterKey `json:"visibleFilters"`
}

// ListFiltered handles GET /api/hospitals?view=hospitals|doctors|treatments
func (h *HospitalsHandler) ListFiltered(w http.ResponseWriter, r *http.Request) {
	filters := search.ParseFilterState(r.URL.Query())
	if filters.View == "" {
		filters.View = search.ViewHospitals
	}

	var total int
	var items interface{}
	p := parsePagination(r)

	if !knownViews[filters.View] {
		respondWithError(w, http.StatusBadRequest, "unknown view "+string(filters.View))
		return
	}

	data, err := h.service.GetAllCMSData(r.Context())
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Failed to load CMS data")
		respondWithAppError(w, err)
		return
	}

	switch filters.View {
	case search.ViewHospitals:
		branches := search.GetMatchingBranches(data.Hospitals, filters, data.Treatments)
		total, items = len(branches), search.PageOf(branches, p)
	case search.ViewDoctors:
		doctors := search.GetMatchingDoctors(data.Doctors, filters, data.Treatments)
		total, items = len(doctors), search.PageOf(doctors, p)
	case search.ViewTreatments:
		treatments := search.GetMatchingTreatments(data.Treatments, filters)
		total, items = len(treatments), search.PageOf(treatments, p)
	}

	respondWithJSON(w, http.StatusOK, filteredViewResponse{
		View:           filters.View,
		Items:          items,
		Total:          total,
		Page:           p.Page,
		PageSize:       p.PageSize,
		HasMore:        p.HasMore(total),
		Filters:        filters,
		VisibleFilters: search.GetVisibleFiltersByView(filters.View),
	})
}
