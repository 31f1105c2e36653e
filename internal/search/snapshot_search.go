package search

import (
	"strconv"
	"strings"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/pkg/utils"
)

// SearchSnapshot runs a free-text search over an in-memory snapshot. Hits are
// grouped hospitals, branches, doctors, then treatments, each in tree order.
// An empty query returns no hits.
func SearchSnapshot(data *entities.CMSData, q string) []entities.SearchHit {
	hits := []entities.SearchHit{}
	if data == nil || utils.NormalizeText(q) == "" {
		return hits
	}

	var branches []entities.SearchHit
	for _, h := range data.Hospitals {
		if utils.ContainsFold(h.HospitalName, q) {
			hits = append(hits, entities.SearchHit{
				Type:         entities.SearchHitHospital,
				ID:           h.ID,
				Name:         h.HospitalName,
				HospitalID:   h.ID,
				HospitalSlug: h.Slug,
				Subtitle:     branchCount(h),
				Image:        h.Logo,
			})
		}
		for _, b := range h.Branches {
			if h.IsStandalone {
				continue
			}
			cities := cityNames(b.City)
			if utils.ContainsFold(b.BranchName, q) || utils.ContainsFold(cities, q) {
				branches = append(branches, entities.SearchHit{
					Type:         entities.SearchHitBranch,
					ID:           b.ID,
					Name:         b.BranchName,
					HospitalID:   h.ID,
					HospitalSlug: h.Slug,
					Subtitle:     cities,
					Image:        b.Image,
				})
			}
		}
	}
	hits = append(hits, branches...)

	for _, d := range data.Doctors {
		specs := specializationNames(d.Specialization)
		if utils.ContainsFold(d.DoctorName, q) || utils.ContainsFold(specs, q) {
			hit := entities.SearchHit{
				Type:     entities.SearchHitDoctor,
				ID:       d.ID,
				Name:     d.DoctorName,
				Subtitle: specs,
				Image:    d.ProfileImage,
			}
			if len(d.Locations) > 0 {
				hit.HospitalID = d.Locations[0].HospitalID
				hit.HospitalSlug = d.Locations[0].HospitalSlug
			}
			hits = append(hits, hit)
		}
	}

	for _, t := range data.Treatments {
		if utils.ContainsFold(t.Name, q) || utils.ContainsFold(t.Category, q) {
			hits = append(hits, entities.SearchHit{
				Type:     entities.SearchHitTreatment,
				ID:       t.ID,
				Name:     t.Name,
				Subtitle: t.Cost,
				Image:    t.Image,
			})
		}
	}
	return hits
}

func branchCount(h entities.Hospital) string {
	switch n := len(h.Branches); n {
	case 0:
		return ""
	case 1:
		return "1 branch"
	default:
		return strconv.Itoa(n) + " branches"
	}
}

func cityNames(cities []entities.City) string {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		if c.CityName != "" {
			names = append(names, c.CityName)
		}
	}
	return strings.Join(names, ", ")
}

func specializationNames(specs []entities.Specialization) string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return strings.Join(names, ", ")
}
