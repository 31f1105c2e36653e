package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/search"
)

type failingSearcher struct {
	Searcher
	failOn string
}

func (f failingSearcher) Search(ctx context.Context, query string, p search.Pagination) ([]entities.SearchHit, int, error) {
	if query == f.failOn {
		return nil, 0, errors.New("index unavailable")
	}
	return f.Searcher.Search(ctx, query, p)
}

func evalSnapshot() *entities.CMSData {
	return &entities.CMSData{
		Hospitals: []entities.Hospital{
			{ID: "h1", HospitalName: "Apollo Hospitals", Slug: "apollo-hospitals"},
			{ID: "h2", HospitalName: "Fortis Memorial", Slug: "fortis-memorial"},
		},
		Doctors: []entities.ExtendedDoctor{
			{Doctor: entities.Doctor{ID: "d1", DoctorName: "Dr. Naresh Trehan"}, BaseID: "d1"},
		},
	}
}

func TestRunner_ScoresGoldenQueries(t *testing.T) {
	searcher := failingSearcher{Searcher: SnapshotSearcher{Data: evalSnapshot()}, failOn: "broken"}
	queries := []GoldenQuery{
		{ID: "q1", Query: "apollo", Type: entities.SearchHitHospital, Expected: []string{"h1"}, Difficulty: "easy"},
		{ID: "q2", Query: "trehan", Type: entities.SearchHitDoctor, Expected: []string{"d1"}, Difficulty: "easy"},
		{ID: "q3", Query: "max healthcare", Type: entities.SearchHitHospital, Expected: []string{"h9"}, Difficulty: "hard"},
		{ID: "q4", Query: "broken", Type: entities.SearchHitHospital, Expected: []string{"h2"}, Difficulty: "hard"},
	}

	summary, err := NewRunner(searcher).Run(context.Background(), queries)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalQueries)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.QueriesWithHits)
	assert.InDelta(t, 0.5, summary.AvgRecallAt10, 1e-9)
	assert.InDelta(t, 0.5, summary.AvgMRRAt10, 1e-9)

	require.Contains(t, summary.ByType, entities.SearchHitHospital)
	assert.Equal(t, 3, summary.ByType[entities.SearchHitHospital].Count)
	assert.InDelta(t, 1.0/3.0, summary.ByType[entities.SearchHitHospital].AvgRecallAt10, 1e-9)
	assert.InDelta(t, 1.0, summary.ByType[entities.SearchHitDoctor].AvgMRRAt10, 1e-9)

	require.Len(t, summary.Results, 4)
	assert.Error(t, summary.Results[3].Err)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(SnapshotSearcher{Data: evalSnapshot()}).Run(ctx, []GoldenQuery{
		{ID: "q1", Query: "apollo", Type: entities.SearchHitHospital, Expected: []string{"h1"}, Difficulty: "easy"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
