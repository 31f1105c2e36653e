package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtravel/directory/internal/catalog"
	"github.com/medtravel/directory/internal/domain/entities"
)

func TestExtendedDoctors_SingleBranchScenario(t *testing.T) {
	delhi := entities.City{ID: "c1", CityName: "Delhi"}
	hospitals := []entities.Hospital{{
		ID: "h1",
		Branches: []entities.Branch{{
			ID:      "b1",
			City:    []entities.City{delhi},
			Doctors: []entities.Doctor{{ID: "d1", DoctorName: "Dr. X"}},
		}},
	}}

	doctors := catalog.ExtendedDoctors(hospitals)

	require.Len(t, doctors, 1)
	assert.Equal(t, "d1", doctors[0].BaseID)
	require.Len(t, doctors[0].Locations, 1)
	loc := doctors[0].Locations[0]
	assert.Equal(t, "h1", loc.HospitalID)
	assert.Equal(t, "b1", loc.BranchID)
	assert.Equal(t, []entities.City{delhi}, loc.Cities)
}

func TestExtendedDoctors_CollapsesAppearances(t *testing.T) {
	cardio := entities.Department{ID: "dep1", Name: "Cardiology"}
	ortho := entities.Department{ID: "dep2", Name: "Orthopaedics"}
	doc := entities.Doctor{
		ID:         "d1",
		DoctorName: "Dr. Kapoor",
		Specialization: []entities.Specialization{
			{ID: "s1", Department: []entities.Department{cardio}},
			{ID: "s2", Department: []entities.Department{cardio, ortho}},
		},
	}
	hospitals := []entities.Hospital{
		{
			ID:      "h1",
			Doctors: []entities.Doctor{doc},
			Branches: []entities.Branch{
				{ID: "b1", Doctors: []entities.Doctor{doc}},
				{ID: "b2", Doctors: []entities.Doctor{doc, doc}},
			},
		},
		{
			ID:       "h2",
			Branches: []entities.Branch{{ID: "b3", Doctors: []entities.Doctor{doc}}},
		},
		{
			ID:      "h3",
			Doctors: []entities.Doctor{doc},
		},
	}

	doctors := catalog.ExtendedDoctors(hospitals)

	require.Len(t, doctors, 1)
	var pairs [][2]string
	for _, l := range doctors[0].Locations {
		pairs = append(pairs, [2]string{l.HospitalID, l.BranchID})
	}
	assert.Equal(t, [][2]string{{"h1", "b1"}, {"h1", "b2"}, {"h2", "b3"}, {"h3", ""}}, pairs)
	assert.Equal(t, []entities.Department{cardio, ortho}, doctors[0].Departments)
}

func TestExtendedTreatments_BranchAndSpecialistOffering(t *testing.T) {
	t1 := entities.Treatment{ID: "t1", Name: "Angioplasty"}
	cardio := entities.Department{ID: "dep1", Name: "Cardiology"}
	hospitals := []entities.Hospital{{
		ID: "h1",
		Branches: []entities.Branch{
			{ID: "bA", Treatments: []entities.Treatment{t1}},
			{ID: "bB", Specialists: []entities.Specialization{{
				ID:         "s1",
				Department: []entities.Department{cardio},
				Treatments: []entities.Treatment{t1},
			}}},
		},
	}}

	treatments := catalog.ExtendedTreatments(hospitals)

	require.Len(t, treatments, 1)
	ext := treatments[0]
	assert.Equal(t, "t1", ext.ID)
	require.Len(t, ext.BranchesAvailableAt, 2)
	assert.Equal(t, "bA", ext.BranchesAvailableAt[0].BranchID)
	assert.Empty(t, ext.BranchesAvailableAt[0].Departments)
	assert.Equal(t, []entities.Department{cardio}, ext.BranchesAvailableAt[1].Departments)
	assert.Equal(t, []entities.Department{cardio}, ext.Departments)
}

func TestExtendedTreatments_Costs(t *testing.T) {
	priced := entities.Treatment{ID: "t1", Name: "Angioplasty", Cost: "$5,000"}
	unpriced := entities.Treatment{ID: "t2", Name: "Knee Replacement"}
	hospitals := []entities.Hospital{{
		ID:         "h1",
		Treatments: []entities.Treatment{unpriced},
		Branches: []entities.Branch{
			{ID: "b1", Treatments: []entities.Treatment{priced}, TreatmentCosts: map[string]string{"t1": "$4,200"}},
			{ID: "b2", Treatments: []entities.Treatment{priced}},
		},
	}}

	treatments := catalog.ExtendedTreatments(hospitals)

	require.Len(t, treatments, 2)
	assert.Equal(t, "$5,000", treatments[0].Cost)
	assert.Equal(t, "$4,200", treatments[0].BranchesAvailableAt[0].Cost)
	assert.Equal(t, "$5,000", treatments[0].BranchesAvailableAt[1].Cost)

	assert.Equal(t, entities.PriceVaries, treatments[1].Cost)
	require.Len(t, treatments[1].BranchesAvailableAt, 1)
	assert.Equal(t, entities.PriceVaries, treatments[1].BranchesAvailableAt[0].Cost)
	assert.Empty(t, treatments[1].BranchesAvailableAt[0].BranchID)
}

func TestExtendedDoctors_IdempotentOverRepeatedBuilds(t *testing.T) {
	data, _ := catalog.Build(sampleCollections(), fixedNow)
	again := catalog.ExtendedDoctors(data.Hospitals)

	assert.Equal(t, data.Doctors, again)
	for _, d := range again {
		seen := map[[2]string]bool{}
		for _, l := range d.Locations {
			key := [2]string{l.HospitalID, l.BranchID}
			assert.False(t, seen[key], "duplicate location %v for %s", key, d.ID)
			seen[key] = true
		}
	}
}
