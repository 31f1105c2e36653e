package catalog

import (
	"strconv"
	"strings"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/pkg/utils"
)

// Aggregate assembles resolved records into the hospital tree. Every branch
// ends up under exactly one hospital: its referenced owner, else the first
// hospital listing it, else a standalone hospital promoted from the branch.
// Hospital-level doctors, treatments, specialists and accreditations are
// fresh unions; branch slices are never modified.
func Aggregate(r *Resolved) ([]entities.Hospital, int) {
	index := make(map[string]int, len(r.Hospitals))
	owners := map[string]string{}
	hospitals := make([]entities.Hospital, 0, len(r.Hospitals))
	for _, rh := range r.Hospitals {
		index[rh.Hospital.ID] = len(hospitals)
		hospitals = append(hospitals, rh.Hospital)
		for _, bid := range rh.BranchIDs {
			if _, taken := owners[bid]; !taken {
				owners[bid] = rh.Hospital.ID
			}
		}
	}

	children := make([][]entities.Branch, len(hospitals))
	var standalone []entities.Hospital
	for _, rb := range r.Branches {
		ownerID := rb.HospitalID
		if _, ok := index[ownerID]; !ok {
			ownerID = owners[rb.Branch.ID]
		}
		if i, ok := index[ownerID]; ok {
			children[i] = append(children[i], rb.Branch)
			continue
		}
		standalone = append(standalone, promoteBranch(rb.Branch))
	}

	for i := range hospitals {
		hospitals[i] = withBranches(hospitals[i], children[i])
	}
	hospitals = append(hospitals, standalone...)
	assignSlugs(hospitals)

	return hospitals, len(standalone)
}

func withBranches(h entities.Hospital, branches []entities.Branch) entities.Hospital {
	h.Branches = branches
	doctors := append([]entities.Doctor(nil), h.Doctors...)
	treatments := append([]entities.Treatment(nil), h.Treatments...)
	specialists := append([]entities.Specialization(nil), h.Specialists...)
	accreditations := append([]entities.Accreditation(nil), h.Accreditations...)
	for _, b := range branches {
		doctors = append(doctors, b.Doctors...)
		treatments = append(treatments, b.Treatments...)
		for _, s := range b.Specialists {
			treatments = append(treatments, s.Treatments...)
		}
		specialists = append(specialists, b.Specialists...)
		accreditations = append(accreditations, b.Accreditation...)
	}
	h.Doctors = dedupe(doctors, func(d entities.Doctor) string { return identityKey(d.ID, d.DoctorName) })
	h.Treatments = dedupe(treatments, func(t entities.Treatment) string { return identityKey(t.ID, t.Name) })
	h.Specialists = dedupe(specialists, func(s entities.Specialization) string { return identityKey(s.ID, s.Name) })
	h.Accreditations = dedupe(accreditations, func(a entities.Accreditation) string { return identityKey(a.ID, a.Title) })
	return h
}

func promoteBranch(b entities.Branch) entities.Hospital {
	b.IsStandalone = true
	h := entities.Hospital{
		ID:               b.ID,
		HospitalName:     b.BranchName,
		Description:      b.Description,
		Logo:             b.Image,
		YearEstablished:  b.YearEstablished,
		Specialty:        b.Specialty,
		Accreditations:   b.Accreditation,
		IsStandalone:     true,
		OriginalBranchID: b.ID,
	}
	return withBranches(h, []entities.Branch{b})
}

// assignSlugs fills missing slugs from the hospital name and disambiguates
// collisions with a numeric suffix in tree order.
func assignSlugs(hospitals []entities.Hospital) {
	used := make(map[string]bool, len(hospitals))
	for i := range hospitals {
		slug := hospitals[i].Slug
		if slug == "" {
			slug = utils.Slugify(hospitals[i].HospitalName)
		}
		if slug == "" {
			slug = hospitals[i].ID
		}
		base := slug
		for n := 2; used[slug]; n++ {
			slug = base + "-" + strconv.Itoa(n)
		}
		used[slug] = true
		hospitals[i].Slug = slug
	}
}

// identityKey is the dedup key for an entity: its CMS id, or its
// lower-cased name when the id is missing.
func identityKey(id, name string) string {
	if id != "" {
		return id
	}
	return "name:" + strings.ToLower(strings.TrimSpace(name))
}

// dedupe keeps the first occurrence of each key, preserving order
func dedupe[T any](items []T, key func(T) string) []T {
	if len(items) == 0 {
		return nil
	}
	out := make([]T, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}
