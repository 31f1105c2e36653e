package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/adapters/export"
	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/infrastructure/clients/cms"
	"github.com/medtravel/directory/internal/search"
)

func writeSnapshotFile(t *testing.T) string {
	t.Helper()
	delhi := entities.City{ID: "c1", CityName: "Delhi", State: "Delhi"}
	data := &entities.CMSData{
		Hospitals: []entities.Hospital{{ID: "h1", HospitalName: "Apollo", Slug: "apollo"}},
		Doctors: []entities.ExtendedDoctor{
			{
				Doctor: entities.Doctor{ID: "d1", DoctorName: "Dr. Kapoor"},
				BaseID: "d1",
				Locations: []entities.DoctorLocation{
					{HospitalID: "h1", HospitalName: "Apollo", BranchID: "b1", BranchName: "Apollo Delhi", Cities: []entities.City{delhi}},
				},
				Departments: []entities.Department{},
			},
			{
				Doctor:      entities.Doctor{ID: "d2", DoctorName: "Dr. Rao"},
				BaseID:      "d2",
				Departments: []entities.Department{},
			},
		},
		Treatments:     []entities.ExtendedTreatment{},
		TotalHospitals: 1,
		TotalDoctors:   2,
		LastUpdated:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	path := filepath.Join(t.TempDir(), "snapshot.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, export.EncodeSnapshot(f, data))
	require.NoError(t, f.Close())
	return path
}

func TestDoctorsCmd_FromSnapshotFile(t *testing.T) {
	path := writeSnapshotFile(t)

	cmd := newDoctorsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--from", path, "--city", "delhi"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Dr. Kapoor")
	assert.Contains(t, out.String(), "Apollo / Apollo Delhi")
	assert.NotContains(t, out.String(), "Dr. Rao")
}

func TestSnapshotCmd_Summary(t *testing.T) {
	path := writeSnapshotFile(t)

	cmd := newSnapshotCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--from", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "2026-03-01T10:00:00Z")
	assert.Contains(t, out.String(), "hospitals")
}

func TestFilterFlags_LaterPrimaryWins(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	filters := bindFilterFlags(cmd, search.FilterDoctor, search.FilterTreatment, search.FilterCity, search.FilterSpecialization)
	require.NoError(t, cmd.Flags().Parse([]string{"--doctor", "kapoor", "--treatment-id", "t1", "--city", "delhi", "--specialization", "cardio"}))

	state := filters.state(search.ViewDoctors)
	assert.False(t, state.Doctor.Active())
	assert.Equal(t, "cardio", state.Specialization.Query)
	assert.Equal(t, "t1", state.Treatment.ID)
	assert.Equal(t, "delhi", state.City.Query)
}

func TestLocationName(t *testing.T) {
	assert.Equal(t, "Apollo", locationName("Apollo", ""))
	assert.Equal(t, "Apollo", locationName("Apollo", "Apollo"))
	assert.Equal(t, "Apollo / Saket", locationName("Apollo", "Saket"))
}

func TestEvalCmd_ThresholdFailure(t *testing.T) {
	path := writeSnapshotFile(t)
	golden := filepath.Join(t.TempDir(), "golden.json")
	require.NoError(t, os.WriteFile(golden, []byte(`[
		{"id": "q1", "query": "kapoor", "type": "doctor", "expected": ["d1"], "difficulty": "easy"},
		{"id": "q2", "query": "fortis", "type": "hospital", "expected": ["h9"], "difficulty": "hard"}
	]`), 0o644))

	cmd := newEvalCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--from", path, "--golden", golden, "--min-recall", "0.9"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recall@10 0.500")
	assert.Contains(t, out.String(), "2 queries, 1 with hits")
}

func TestWhereFlags_Filter(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var where whereFlags
	where.bind(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--eq", "country=India",
		"--contains", "hospitalName=apollo",
		"--has-some", "city=c1, c2,",
	}))

	filter, err := where.filter()
	require.NoError(t, err)
	assert.Equal(t, cms.And(
		cms.Eq("country", "India"),
		cms.Contains("hospitalName", "apollo"),
		cms.HasSome("city", "c1", "c2"),
	), filter)

	empty, err := (&whereFlags{}).filter()
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = (&whereFlags{eq: []string{"country"}}).filter()
	assert.ErrorContains(t, err, "expected field=value")
}

func TestRecordsCmd_QueriesWithFilter(t *testing.T) {
	var received struct {
		DataCollectionID string `json:"dataCollectionId"`
		Query            struct {
			Filter map[string]any `json:"filter"`
		} `json:"query"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dataItems": [{"id": "h1", "data": {"_id": "h1", "hospitalName": "Apollo Hospitals"}}],
			"pagingMetadata": {"count": 1, "hasNext": false}
		}`))
	}))
	defer server.Close()

	t.Setenv("CMS_BASE_URL", server.URL)
	t.Setenv("CMS_API_KEY", "key")
	t.Setenv("CMS_SITE_ID", "site")

	cmd := newRecordsCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"HospitalMaster", "--contains", "hospitalName=apollo"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "HospitalMaster", received.DataCollectionID)
	assert.Equal(t, map[string]any{"hospitalName": map[string]any{"$contains": "apollo"}}, received.Query.Filter)
	assert.Contains(t, out.String(), "Apollo Hospitals")
	assert.Contains(t, errOut.String(), "1 records")
}
