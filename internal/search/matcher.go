package search

import (
	"strings"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/pkg/utils"
)

const (
	cityKeyPrefix  = "city:"
	stateKeyPrefix = "state:"
)

// LocationKey builds the compound location id for a city
func LocationKey(c entities.City) string { return cityKeyPrefix + c.ID }

// StateLocationKey builds the compound location id for a state
func StateLocationKey(state string) string { return stateKeyPrefix + state }

// treatmentCandidates resolves the treatment filter to a set of ids. ok is
// false when the filter is active but nothing matches.
func treatmentCandidates(filter FilterValue, treatments []entities.ExtendedTreatment) (set map[string]bool, ok bool) {
	if !filter.Active() {
		return nil, true
	}
	set = map[string]bool{}
	for _, t := range treatments {
		if filter.Matches(t.ID, t.Name) {
			set[t.ID] = true
		}
	}
	return set, len(set) > 0
}

// GetMatchingBranches returns every branch satisfying all active filters,
// in tree order, with its owning hospital attached. A treatment filter that
// resolves to no known treatment yields an empty result.
func GetMatchingBranches(hospitals []entities.Hospital, filters FilterState, treatments []entities.ExtendedTreatment) []entities.MatchedBranch {
	candidates, ok := treatmentCandidates(filters.Treatment, treatments)
	if !ok {
		return []entities.MatchedBranch{}
	}

	out := []entities.MatchedBranch{}
	for _, h := range hospitals {
		for _, b := range h.Branches {
			if !branchMatches(b, filters, candidates) {
				continue
			}
			out = append(out, entities.MatchedBranch{
				Branch:       b,
				HospitalID:   h.ID,
				HospitalName: h.HospitalName,
				HospitalSlug: h.Slug,
				HospitalLogo: h.Logo,
			})
		}
	}
	return out
}

func branchMatches(b entities.Branch, f FilterState, candidates map[string]bool) bool {
	if f.Branch.Active() && !f.Branch.Matches(b.ID, b.BranchName) {
		return false
	}
	if !citiesMatch(b.City, f) {
		return false
	}
	if f.Doctor.Active() && !anyDoctor(b.Doctors, f.Doctor) {
		return false
	}
	if candidates != nil && !branchOffers(b, candidates) {
		return false
	}
	if f.Department.Active() && !anyDepartment(branchDepartments(b), f.Department) {
		return false
	}
	if f.Specialization.Active() && !branchHasSpecialization(b, f.Specialization) {
		return false
	}
	return true
}

// citiesMatch applies the city, state and location dimensions. Each passes
// when any one of the cities satisfies it; an entity with no city fails only
// an active filter.
func citiesMatch(cities []entities.City, f FilterState) bool {
	if f.City.Active() && !anyCity(cities, func(c entities.City) bool { return f.City.Matches(c.ID, c.CityName) }) {
		return false
	}
	if f.State.Active() && !anyCity(cities, func(c entities.City) bool { return stateMatches(c, f.State) }) {
		return false
	}
	if f.Location.Active() && !anyCity(cities, func(c entities.City) bool { return locationMatches(c, f.Location) }) {
		return false
	}
	return true
}

func anyCity(cities []entities.City, pred func(entities.City) bool) bool {
	for _, c := range cities {
		if pred(c) {
			return true
		}
	}
	return false
}

func stateMatches(c entities.City, v FilterValue) bool {
	if v.ID != "" && c.State != "" && strings.EqualFold(v.ID, c.State) {
		return true
	}
	return utils.ContainsFold(c.State, v.Query)
}

func locationMatches(c entities.City, v FilterValue) bool {
	switch {
	case v.ID == "":
	case strings.HasPrefix(v.ID, cityKeyPrefix):
		if strings.TrimPrefix(v.ID, cityKeyPrefix) == c.ID {
			return true
		}
	case strings.HasPrefix(v.ID, stateKeyPrefix):
		if c.State != "" && strings.EqualFold(strings.TrimPrefix(v.ID, stateKeyPrefix), c.State) {
			return true
		}
	case v.ID == c.ID:
		return true
	}
	return utils.ContainsFold(c.CityName, v.Query) || utils.ContainsFold(c.State, v.Query)
}

func anyDoctor(doctors []entities.Doctor, v FilterValue) bool {
	for _, d := range doctors {
		if v.Matches(d.ID, d.DoctorName) {
			return true
		}
	}
	return false
}

func anyDepartment(depts []entities.Department, v FilterValue) bool {
	for _, d := range depts {
		if v.Matches(d.ID, d.Name) {
			return true
		}
	}
	return false
}

func anySpecialization(specs []entities.Specialization, v FilterValue) bool {
	for _, s := range specs {
		if v.Matches(s.ID, s.Name) {
			return true
		}
	}
	return false
}

func branchOffers(b entities.Branch, candidates map[string]bool) bool {
	for _, t := range b.Treatments {
		if candidates[t.ID] {
			return true
		}
	}
	for _, s := range b.Specialists {
		for _, t := range s.Treatments {
			if candidates[t.ID] {
				return true
			}
		}
	}
	return false
}

func branchDepartments(b entities.Branch) []entities.Department {
	var out []entities.Department
	for _, s := range b.Specialists {
		out = append(out, s.Department...)
	}
	return out
}

func branchHasSpecialization(b entities.Branch, v FilterValue) bool {
	if anySpecialization(b.Specialty, v) || anySpecialization(b.Specialists, v) {
		return true
	}
	for _, d := range b.Doctors {
		if anySpecialization(d.Specialization, v) {
			return true
		}
	}
	return false
}

// GetMatchingDoctors filters the flattened doctor list. Location dimensions
// match any of the doctor's locations; a treatment matches when one of the
// doctor's specializations covers it.
func GetMatchingDoctors(doctors []entities.ExtendedDoctor, filters FilterState, treatments []entities.ExtendedTreatment) []entities.ExtendedDoctor {
	candidates, ok := treatmentCandidates(filters.Treatment, treatments)
	if !ok {
		return []entities.ExtendedDoctor{}
	}

	out := []entities.ExtendedDoctor{}
	for _, d := range doctors {
		if filters.Doctor.Active() && !filters.Doctor.Matches(d.ID, d.DoctorName) {
			continue
		}
		if filters.Specialization.Active() && !anySpecialization(d.Specialization, filters.Specialization) {
			continue
		}
		if filters.Department.Active() && !anyDepartment(d.Departments, filters.Department) {
			continue
		}
		if candidates != nil && !doctorCovers(d, candidates) {
			continue
		}
		if !anyDoctorLocation(d.Locations, filters) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func doctorCovers(d entities.ExtendedDoctor, candidates map[string]bool) bool {
	for _, s := range d.Specialization {
		for _, t := range s.Treatments {
			if candidates[t.ID] {
				return true
			}
		}
	}
	return false
}

func anyDoctorLocation(locations []entities.DoctorLocation, f FilterState) bool {
	if !f.Branch.Active() && !f.City.Active() && !f.State.Active() && !f.Location.Active() {
		return true
	}
	for _, l := range locations {
		if f.Branch.Active() && !f.Branch.Matches(l.BranchID, l.BranchName) {
			continue
		}
		if citiesMatch(l.Cities, f) {
			return true
		}
	}
	return false
}

// GetMatchingTreatments filters the flattened treatment list. Doctor and
// specialization carry no meaning for a treatment and are ignored.
func GetMatchingTreatments(treatments []entities.ExtendedTreatment, filters FilterState) []entities.ExtendedTreatment {
	out := []entities.ExtendedTreatment{}
	for _, t := range treatments {
		if filters.Treatment.Active() && !filters.Treatment.Matches(t.ID, t.Name) {
			continue
		}
		if filters.Department.Active() && !anyDepartment(t.Departments, filters.Department) {
			continue
		}
		if !anyTreatmentLocation(t.BranchesAvailableAt, filters) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func anyTreatmentLocation(locations []entities.TreatmentLocation, f FilterState) bool {
	if !f.Branch.Active() && !f.City.Active() && !f.State.Active() && !f.Location.Active() {
		return true
	}
	for _, l := range locations {
		if f.Branch.Active() && !f.Branch.Matches(l.BranchID, l.BranchName) {
			continue
		}
		if citiesMatch(l.Cities, f) {
			return true
		}
	}
	return false
}
