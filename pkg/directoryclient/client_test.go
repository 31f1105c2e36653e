package directoryclient_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/search"
	"github.com/medtravel/directory/pkg/directoryclient"
	"github.com/medtravel/directory/pkg/retry"
)

var updated = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func hospitals(n int) []entities.Hospital {
	out := make([]entities.Hospital, n)
	for i := range out {
		id := fmt.Sprintf("h%d", i+1)
		out[i] = entities.Hospital{
			ID:           id,
			HospitalName: "Hospital " + id,
			Slug:         id,
			Branches: []entities.Branch{{
				ID:         id + "-b1",
				BranchName: "Branch " + id,
				City:       []entities.City{{ID: "c" + strconv.Itoa(i%2), CityName: []string{"Delhi", "Mumbai"}[i%2]}},
				Doctors:    []entities.Doctor{{ID: "d" + id, DoctorName: "Dr. " + id}},
			}},
		}
	}
	return out
}

// directoryServer pages the hospitals the way the API does. Pages past the
// first see the list shifted by shift positions to mimic a rebuild between
// requests.
func directoryServer(t *testing.T, all []entities.Hospital, shift int, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/cms", r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("action"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		p := search.NewPagination(page, size)

		source := all
		if page > 0 && shift > 0 {
			source = append(append([]entities.Hospital{}, all[:shift]...), all...)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hospitals":       search.PageOf(source, p),
			"treatments":      []entities.ExtendedTreatment{{Treatment: entities.Treatment{ID: "t1", Name: "Knee Replacement"}}},
			"totalHospitals":  len(all),
			"totalTreatments": 1,
			"page":            p.Page,
			"pageSize":        p.PageSize,
			"hasMore":         p.HasMore(len(all)),
			"lastUpdated":     updated,
		})
	}))
}

func TestLoadProgressive_PartialThenFull(t *testing.T) {
	var requests atomic.Int32
	server := directoryServer(t, hospitals(5), 0, &requests)
	defer server.Close()

	client := directoryclient.New(server.URL, directoryclient.WithPageSize(2))

	var partial *directoryclient.Snapshot
	full, err := client.LoadProgressive(t.Context(), func(s *directoryclient.Snapshot) {
		partial = s
	})
	require.NoError(t, err)

	require.NotNil(t, partial)
	assert.False(t, partial.Complete)
	assert.Len(t, partial.Hospitals, 2)
	assert.Equal(t, 5, partial.TotalHospitals)

	assert.True(t, full.Complete)
	require.Len(t, full.Hospitals, 5)
	for i, h := range full.Hospitals {
		assert.Equal(t, fmt.Sprintf("h%d", i+1), h.ID)
	}
	assert.Len(t, full.Doctors, 5)
	assert.Len(t, full.Treatments, 1)
	assert.True(t, updated.Equal(full.LastUpdated))
	assert.Equal(t, int32(3), requests.Load())
}

func TestLoadProgressive_MergesShiftedPagesByID(t *testing.T) {
	var requests atomic.Int32
	server := directoryServer(t, hospitals(4), 1, &requests)
	defer server.Close()

	client := directoryclient.New(server.URL, directoryclient.WithPageSize(2))
	full, err := client.LoadProgressive(t.Context(), nil)
	require.NoError(t, err)

	// Page 1 of the shifted list is [h2 h3], so h4 is never served and h2
	// must not appear twice.
	ids := make([]string, 0, len(full.Hospitals))
	for _, h := range full.Hospitals {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"h1", "h2", "h3"}, ids)
}

func TestLoadProgressive_SinglePage(t *testing.T) {
	var requests atomic.Int32
	server := directoryServer(t, hospitals(2), 0, &requests)
	defer server.Close()

	calls := 0
	full, err := directoryclient.New(server.URL).LoadProgressive(t.Context(), func(s *directoryclient.Snapshot) {
		calls++
		assert.True(t, s.Complete)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, full.Hospitals, 2)
	assert.Equal(t, int32(1), requests.Load())
}

func TestLoadProgressive_Errors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantRequests int32
	}{
		{"client error is not retried", http.StatusBadRequest, 1},
		{"server error is retried", http.StatusBadGateway, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
			}))
			defer server.Close()

			client := directoryclient.New(server.URL, directoryclient.WithRetry(retry.Config{MaxAttempts: 2}))
			_, err := client.LoadProgressive(t.Context(), nil)
			require.Error(t, err)

			var statusErr *directoryclient.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "upstream unavailable", statusErr.Message)
			assert.Equal(t, tt.wantRequests, requests.Load())
		})
	}
}

func TestLoadProgressive_BackgroundPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "0" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hospitals":      hospitals(2),
			"totalHospitals": 4,
			"page":           0,
			"pageSize":       2,
			"hasMore":        true,
		})
	}))
	defer server.Close()

	partialSeen := false
	_, err := directoryclient.New(server.URL).LoadProgressive(t.Context(), func(*directoryclient.Snapshot) {
		partialSeen = true
	})
	assert.True(t, partialSeen)
	assert.ErrorContains(t, err, "page 1")
}
