package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/api/handlers"
	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/search"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

type stubDirectoryService struct {
	data        *entities.CMSData
	err         error
	hits        []entities.SearchHit
	searchQuery string
	invalidated int
}

func (s *stubDirectoryService) GetAllCMSData(ctx context.Context) (*entities.CMSData, error) {
	return s.data, s.err
}

func (s *stubDirectoryService) Search(ctx context.Context, query string, p search.Pagination) ([]entities.SearchHit, int, error) {
	s.searchQuery = query
	if s.err != nil {
		return nil, 0, s.err
	}
	return search.PageOf(s.hits, p), len(s.hits), nil
}

func (s *stubDirectoryService) Invalidate(ctx context.Context) error {
	s.invalidated++
	return nil
}

func sampleData() *entities.CMSData {
	delhi := entities.City{ID: "c1", CityName: "Delhi", State: "Delhi"}
	mumbai := entities.City{ID: "c2", CityName: "Mumbai", State: "Maharashtra"}
	angioplasty := entities.Treatment{ID: "t1", Name: "Angioplasty", Cost: "$5,000"}

	hospitals := []entities.Hospital{
		{
			ID: "h1", HospitalName: "Apollo Hospitals", Slug: "apollo-hospitals",
			Branches: []entities.Branch{
				{ID: "b1", BranchName: "Apollo Delhi", City: []entities.City{delhi}, Treatments: []entities.Treatment{angioplasty}},
				{ID: "b2", BranchName: "Apollo Mumbai", City: []entities.City{mumbai}},
			},
		},
		{
			ID: "h2", HospitalName: "Fortis", Slug: "fortis",
			Branches: []entities.Branch{{ID: "b3", BranchName: "Fortis Delhi", City: []entities.City{delhi}}},
		},
		{ID: "h3", HospitalName: "Medanta", Slug: "medanta"},
	}
	treatments := []entities.ExtendedTreatment{
		{
			Treatment: angioplasty,
			BranchesAvailableAt: []entities.TreatmentLocation{
				{HospitalID: "h1", BranchID: "b1", BranchName: "Apollo Delhi", Cities: []entities.City{delhi}, Cost: "$5,000"},
			},
			Departments: []entities.Department{},
		},
	}
	return &entities.CMSData{
		Hospitals:       hospitals,
		Treatments:      treatments,
		Doctors:         []entities.ExtendedDoctor{},
		TotalHospitals:  len(hospitals),
		TotalTreatments: len(treatments),
		LastUpdated:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestCMSHandler_All_Paginates(t *testing.T) {
	handler := handlers.NewCMSHandler(&stubDirectoryService{data: sampleData()}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/cms?action=all&page=0&pageSize=2", nil)
	rr := httptest.NewRecorder()
	handler.HandleCMS(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Len(t, body["hospitals"], 2)
	assert.Len(t, body["treatments"], 1)
	assert.Equal(t, float64(3), body["totalHospitals"])
	assert.Equal(t, true, body["hasMore"])
	assert.Equal(t, float64(2), body["pageSize"])

	req = httptest.NewRequest(http.MethodGet, "/api/cms?action=all&page=1&pageSize=2", nil)
	rr = httptest.NewRecorder()
	handler.HandleCMS(rr, req)

	body = decodeBody(t, rr)
	assert.Len(t, body["hospitals"], 1)
	assert.Equal(t, false, body["hasMore"])
}

func TestCMSHandler_All_HugePage(t *testing.T) {
	handler := handlers.NewCMSHandler(&stubDirectoryService{data: sampleData()}, "")

	rr := httptest.NewRecorder()
	handler.HandleCMS(rr, httptest.NewRequest(http.MethodGet, "/api/cms?action=all&page=9223372036854775807", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Empty(t, body["hospitals"])
	assert.Equal(t, false, body["hasMore"])
}

func TestCMSHandler_Hospital(t *testing.T) {
	handler := handlers.NewCMSHandler(&stubDirectoryService{data: sampleData()}, "")

	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"missing slug", "/api/cms?action=hospital", http.StatusBadRequest},
		{"unknown slug", "/api/cms?action=hospital&slug=nowhere", http.StatusNotFound},
		{"by slug", "/api/cms?action=hospital&slug=fortis", http.StatusOK},
		{"by id", "/api/cms?action=hospital&slug=h1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.HandleCMS(rr, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, decodeBody(t, rr)["error"])
			}
		})
	}
}

func TestCMSHandler_GetHospitalByPath(t *testing.T) {
	handler := handlers.NewCMSHandler(&stubDirectoryService{data: sampleData()}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals/apollo-hospitals", nil)
	req.SetPathValue("slug", "apollo-hospitals")
	rr := httptest.NewRecorder()
	handler.GetHospital(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "h1", body["id"])
	assert.Len(t, body["branches"], 2)
}

func TestCMSHandler_UnknownAction(t *testing.T) {
	handler := handlers.NewCMSHandler(&stubDirectoryService{data: sampleData()}, "")

	rr := httptest.NewRecorder()
	handler.HandleCMS(rr, httptest.NewRequest(http.MethodGet, "/api/cms?action=delete", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCMSHandler_Search(t *testing.T) {
	service := &stubDirectoryService{
		data: sampleData(),
		hits: []entities.SearchHit{
			{Type: entities.SearchHitHospital, ID: "h1", Name: "Apollo Hospitals"},
			{Type: entities.SearchHitBranch, ID: "b1", Name: "Apollo Delhi"},
			{Type: entities.SearchHitBranch, ID: "b2", Name: "Apollo Mumbai"},
		},
	}
	handler := handlers.NewCMSHandler(service, "")

	rr := httptest.NewRecorder()
	handler.HandleCMS(rr, httptest.NewRequest(http.MethodGet, "/api/cms?action=search&q=+apollo+&pageSize=2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "apollo", service.searchQuery)
	body := decodeBody(t, rr)
	assert.Len(t, body["items"], 2)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, true, body["hasMore"])
}

func TestCMSHandler_UpstreamFailure(t *testing.T) {
	service := &stubDirectoryService{
		err: apperrors.NewExternalError("failed to fetch CMS data", errors.New("cms returned 503")),
	}
	handler := handlers.NewCMSHandler(service, "")

	rr := httptest.NewRecorder()
	handler.HandleCMS(rr, httptest.NewRequest(http.MethodGet, "/api/cms?action=all", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "failed to fetch CMS data", body["error"])
	assert.Equal(t, "cms returned 503", body["details"])
}

func TestCMSHandler_Revalidate(t *testing.T) {
	service := &stubDirectoryService{data: sampleData()}
	handler := handlers.NewCMSHandler(service, "s3cret")

	rr := httptest.NewRecorder()
	handler.Revalidate(rr, httptest.NewRequest(http.MethodPost, "/api/cms/revalidate", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, service.invalidated)

	req := httptest.NewRequest(http.MethodPost, "/api/cms/revalidate", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	handler.Revalidate(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, service.invalidated)
}

func TestHospitalsHandler_ListFiltered(t *testing.T) {
	handler := handlers.NewHospitalsHandler(&stubDirectoryService{data: sampleData()})

	t.Run("branches in a city", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ListFiltered(rr, httptest.NewRequest(http.MethodGet, "/api/hospitals?view=hospitals&cityId=c1", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, float64(2), body["total"])
		assert.Equal(t, []interface{}{"branch", "treatment", "city"}, body["visibleFilters"])
	})

	t.Run("treatment with no candidates", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ListFiltered(rr, httptest.NewRequest(http.MethodGet, "/api/hospitals?treatmentQuery=zzz", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, float64(0), body["total"])
		assert.Empty(t, body["items"])
	})

	t.Run("treatments view", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ListFiltered(rr, httptest.NewRequest(http.MethodGet, "/api/hospitals?view=treatments&cityQuery=del", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, float64(1), body["total"])
	})

	t.Run("unknown view", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ListFiltered(rr, httptest.NewRequest(http.MethodGet, "/api/hospitals?view=clinics", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
