package catalog

import (
	"github.com/medtravel/directory/internal/domain/entities"
)

// ExtendedDoctors flattens the tree into one entry per doctor identity, each
// listing every (hospital, branch) it appears under. Branch appearances are
// walked first; a hospital-level appearance adds a location only when the
// doctor has none under that hospital yet. Scalars come from the first
// appearance.
func ExtendedDoctors(hospitals []entities.Hospital) []entities.ExtendedDoctor {
	var out []entities.ExtendedDoctor
	index := map[string]int{}

	add := func(d entities.Doctor, loc entities.DoctorLocation, hospitalLevel bool) {
		key := identityKey(d.ID, d.DoctorName)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, entities.ExtendedDoctor{Doctor: d, BaseID: key, Departments: []entities.Department{}})
			i = len(out) - 1
		}
		ext := &out[i]
		for _, existing := range ext.Locations {
			if existing.HospitalID != loc.HospitalID {
				continue
			}
			if hospitalLevel || existing.BranchID == loc.BranchID {
				return
			}
		}
		ext.Locations = append(ext.Locations, loc)
		ext.Departments = mergeDepartments(ext.Departments, doctorDepartments(d))
	}

	for _, h := range hospitals {
		for _, b := range h.Branches {
			for _, d := range b.Doctors {
				add(d, entities.DoctorLocation{
					HospitalID:   h.ID,
					HospitalName: h.HospitalName,
					HospitalSlug: h.Slug,
					BranchID:     b.ID,
					BranchName:   b.BranchName,
					Cities:       b.City,
				}, false)
			}
		}
		cities := hospitalCities(h)
		for _, d := range h.Doctors {
			add(d, entities.DoctorLocation{
				HospitalID:   h.ID,
				HospitalName: h.HospitalName,
				HospitalSlug: h.Slug,
				Cities:       cities,
			}, true)
		}
	}
	return out
}

// ExtendedTreatments flattens the tree into one entry per treatment identity.
// A branch offers a treatment when it lists it directly or through one of its
// specialists; the specialist's departments become that location's context.
// Each location carries the branch price, falling back to the catalog cost
// and then to the PriceVaries sentinel.
func ExtendedTreatments(hospitals []entities.Hospital) []entities.ExtendedTreatment {
	var out []entities.ExtendedTreatment
	index := map[string]int{}

	add := func(t entities.Treatment, loc entities.TreatmentLocation, hospitalLevel bool) {
		key := identityKey(t.ID, t.Name)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			base := t
			if base.Cost == "" {
				base.Cost = entities.PriceVaries
			}
			out = append(out, entities.ExtendedTreatment{Treatment: base, Departments: []entities.Department{}})
			i = len(out) - 1
		}
		ext := &out[i]
		ext.Departments = mergeDepartments(ext.Departments, loc.Departments)
		for j := range ext.BranchesAvailableAt {
			existing := &ext.BranchesAvailableAt[j]
			if existing.HospitalID != loc.HospitalID {
				continue
			}
			if hospitalLevel {
				return
			}
			if existing.BranchID == loc.BranchID {
				existing.Departments = mergeDepartments(existing.Departments, loc.Departments)
				return
			}
		}
		ext.BranchesAvailableAt = append(ext.BranchesAvailableAt, loc)
	}

	for _, h := range hospitals {
		for _, b := range h.Branches {
			location := func(t entities.Treatment, depts []entities.Department) entities.TreatmentLocation {
				return entities.TreatmentLocation{
					HospitalID:   h.ID,
					HospitalName: h.HospitalName,
					HospitalSlug: h.Slug,
					BranchID:     b.ID,
					BranchName:   b.BranchName,
					Cities:       b.City,
					Departments:  depts,
					Cost:         locationCost(b, t),
				}
			}
			for _, t := range b.Treatments {
				add(t, location(t, nil), false)
			}
			for _, s := range b.Specialists {
				for _, t := range s.Treatments {
					add(t, location(t, s.Department), false)
				}
			}
		}
		cities := hospitalCities(h)
		for _, t := range h.Treatments {
			add(t, entities.TreatmentLocation{
				HospitalID:   h.ID,
				HospitalName: h.HospitalName,
				HospitalSlug: h.Slug,
				Cities:       cities,
				Cost:         costOrSentinel(t.Cost),
			}, true)
		}
	}
	return out
}

func locationCost(b entities.Branch, t entities.Treatment) string {
	if cost, ok := b.TreatmentCosts[t.ID]; ok && cost != "" {
		return cost
	}
	return costOrSentinel(t.Cost)
}

func costOrSentinel(cost string) string {
	if cost == "" {
		return entities.PriceVaries
	}
	return cost
}

func doctorDepartments(d entities.Doctor) []entities.Department {
	var out []entities.Department
	for _, s := range d.Specialization {
		out = append(out, s.Department...)
	}
	return out
}

// mergeDepartments returns a new slice holding the union of a and b by identity
func mergeDepartments(a, b []entities.Department) []entities.Department {
	if len(b) == 0 {
		return a
	}
	merged := make([]entities.Department, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return dedupe(merged, func(d entities.Department) string { return identityKey(d.ID, d.Name) })
}

func hospitalCities(h entities.Hospital) []entities.City {
	var cities []entities.City
	for _, b := range h.Branches {
		cities = append(cities, b.City...)
	}
	return dedupe(cities, func(c entities.City) string { return identityKey(c.ID, c.CityName) })
}
