package catalog

import (
	"strings"

	"github.com/medtravel/directory/internal/domain/entities"
)

// Collections holds the raw records of every CMS collection for one fetch cycle
type Collections struct {
	Hospitals      []Record
	Branches       []Record
	Doctors        []Record
	Treatments     []Record
	Specialists    []Record
	Departments    []Record
	Cities         []Record
	Accreditations []Record
}

// Len returns the total number of raw records
func (c Collections) Len() int {
	return len(c.Hospitals) + len(c.Branches) + len(c.Doctors) + len(c.Treatments) +
		len(c.Specialists) + len(c.Departments) + len(c.Cities) + len(c.Accreditations)
}

// ResolveStats records data-quality conditions seen while resolving
type ResolveStats struct {
	// Orphans counts dropped references keyed by "<collection>.<field>"
	Orphans map[string]int
	// Duplicates counts records skipped for a missing or repeated id
	Duplicates int
	// Standalone counts branches promoted to top-level hospitals
	Standalone int
}

// TotalOrphans sums all dropped references
func (s ResolveStats) TotalOrphans() int {
	total := 0
	for _, n := range s.Orphans {
		total += n
	}
	return total
}

// ResolvedHospital is a hospital with every reference replaced by its entity.
// Branches is left empty; BranchIDs keeps the hospital's own branch list for
// ownership resolution.
type ResolvedHospital struct {
	Hospital  entities.Hospital
	BranchIDs []string
}

// ResolvedBranch is a branch with every reference replaced by its entity
type ResolvedBranch struct {
	Branch     entities.Branch
	HospitalID string
}

// Resolved is the output of Resolve
type Resolved struct {
	Hospitals []ResolvedHospital
	Branches  []ResolvedBranch
	Stats     ResolveStats
}

type table[T any] struct {
	byID map[string]T
}

func (t table[T]) get(id string) (T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

type resolver struct {
	stats          ResolveStats
	cities         table[entities.City]
	departments    table[entities.Department]
	accreditations table[entities.Accreditation]
	treatments     table[entities.Treatment]
	specialists    table[entities.Specialization]
	doctors        table[entities.Doctor]
}

// Resolve builds id lookup tables once per collection, leaves first, and
// replaces every reference with its entity. Dangling references are dropped
// and counted; nothing here fails on partial data.
func Resolve(c Collections) *Resolved {
	r := &resolver{stats: ResolveStats{Orphans: map[string]int{}}}

	r.cities = buildTable(r, c.Cities, cityFromRecord)
	r.departments = buildTable(r, c.Departments, departmentFromRecord)
	r.accreditations = buildTable(r, c.Accreditations, accreditationFromRecord)
	r.treatments = buildTable(r, c.Treatments, treatmentFromRecord)
	r.specialists = buildTable(r, c.Specialists, r.specialistFromRecord)
	r.doctors = buildTable(r, c.Doctors, r.doctorFromRecord)

	out := &Resolved{}
	seen := map[string]bool{}
	for _, rec := range c.Branches {
		id := rec.ID()
		if id == "" || seen[id] {
			r.stats.Duplicates++
			continue
		}
		seen[id] = true
		out.Branches = append(out.Branches, r.branchFromRecord(rec))
	}

	seen = map[string]bool{}
	for _, rec := range c.Hospitals {
		id := rec.ID()
		if id == "" || seen[id] {
			r.stats.Duplicates++
			continue
		}
		seen[id] = true
		out.Hospitals = append(out.Hospitals, r.hospitalFromRecord(rec))
	}

	out.Stats = r.stats
	return out
}

func buildTable[T any](r *resolver, records []Record, build func(Record) T) table[T] {
	t := table[T]{byID: make(map[string]T, len(records))}
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			r.stats.Duplicates++
			continue
		}
		if _, dup := t.byID[id]; dup {
			r.stats.Duplicates++
			continue
		}
		t.byID[id] = build(rec)
	}
	return t
}

// resolveList maps refs through a table, dropping orphans and repeated ids
func resolveList[T any](r *resolver, t table[T], refs []Ref, where string) []T {
	if len(refs) == 0 {
		return nil
	}
	out := make([]T, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.ID] {
			continue
		}
		v, ok := t.get(ref.ID)
		if !ok {
			r.stats.Orphans[where]++
			continue
		}
		seen[ref.ID] = true
		out = append(out, v)
	}
	return out
}

func cityFromRecord(rec Record) entities.City {
	return entities.City{
		ID:       rec.ID(),
		CityName: rec.String("cityName", "city", "name", "title"),
		State:    rec.String("state", "stateName"),
		Country:  rec.String("country", "countryName"),
	}
}

func departmentFromRecord(rec Record) entities.Department {
	return entities.Department{
		ID:   rec.ID(),
		Name: rec.String("department", "name", "title"),
	}
}

func accreditationFromRecord(rec Record) entities.Accreditation {
	return entities.Accreditation{
		ID:    rec.ID(),
		Title: rec.String("title", "name"),
		Image: rec.Image("image", "logo"),
	}
}

func treatmentFromRecord(rec Record) entities.Treatment {
	return entities.Treatment{
		ID:          rec.ID(),
		Name:        rec.String("treatmentName", "name", "title"),
		Description: rec.String("description"),
		Category:    rec.String("category"),
		Duration:    rec.String("duration"),
		Cost:        rec.String("averageCost", "cost", "price"),
		Image:       rec.Image("treatmentImage", "image"),
		Popular:     rec.Bool("popular"),
	}
}

func (r *resolver) specialistFromRecord(rec Record) entities.Specialization {
	return entities.Specialization{
		ID:          rec.ID(),
		Name:        rec.String("specialty", "name", "title"),
		IsTreatment: rec.Bool("isTreatment"),
		Department:  resolveList(r, r.departments, rec.Refs("department", "departments"), "specialists.department"),
		Treatments:  resolveList(r, r.treatments, rec.Refs("treatments", "treatment"), "specialists.treatments"),
	}
}

func (r *resolver) doctorFromRecord(rec Record) entities.Doctor {
	return entities.Doctor{
		ID:              rec.ID(),
		DoctorName:      rec.String("doctorName", "name", "title"),
		Specialization:  resolveList(r, r.specialists, rec.Refs("specialization", "specialty"), "doctors.specialization"),
		Qualification:   rec.String("qualification"),
		ExperienceYears: rec.Int("experienceYears", "experience"),
		Designation:     rec.String("designation"),
		AboutDoctor:     rec.String("aboutDoctor", "about"),
		ProfileImage:    rec.Image("profileImage", "image"),
		Popular:         rec.Bool("popular"),
	}
}

func (r *resolver) branchFromRecord(rec Record) ResolvedBranch {
	treatmentRefs := rec.Refs("treatments", "treatment")
	b := entities.Branch{
		ID:              rec.ID(),
		BranchName:      rec.String("branchName", "name", "title"),
		Address:         rec.String("address"),
		Description:     rec.String("description"),
		Image:           rec.Image("branchImage", "image", "logo"),
		City:            resolveList(r, r.cities, rec.Refs("city", "cities"), "branches.city"),
		Specialty:       resolveList(r, r.specialists, rec.Refs("specialty", "specialization"), "branches.specialty"),
		Accreditation:   resolveList(r, r.accreditations, rec.Refs("accreditation", "accreditations"), "branches.accreditation"),
		Doctors:         resolveList(r, r.doctors, rec.Refs("doctors", "doctor"), "branches.doctors"),
		Specialists:     resolveList(r, r.specialists, rec.Refs("specialists", "specialist"), "branches.specialists"),
		Treatments:      resolveList(r, r.treatments, treatmentRefs, "branches.treatments"),
		TreatmentCosts:  r.inlineCosts(treatmentRefs),
		TotalBeds:       rec.Int("totalBeds"),
		NoOfDoctors:     rec.Int("noOfDoctors"),
		YearEstablished: rec.Int("yearEstablished"),
	}

	var hospitalID string
	if refs := rec.Refs("hospital", "hospitalGroup", "HospitalMaster_branches"); len(refs) > 0 {
		hospitalID = refs[0].ID
	}
	return ResolvedBranch{Branch: b, HospitalID: hospitalID}
}

func (r *resolver) hospitalFromRecord(rec Record) ResolvedHospital {
	h := entities.Hospital{
		ID:              rec.ID(),
		HospitalName:    rec.String("hospitalName", "name", "title"),
		Slug:            strings.Trim(rec.String("slug"), "/"),
		Description:     rec.String("description"),
		Logo:            rec.Image("logo", "image"),
		YearEstablished: rec.Int("yearEstablished"),
		Specialty:       resolveList(r, r.specialists, rec.Refs("specialty", "specialization"), "hospitals.specialty"),
		Doctors:         resolveList(r, r.doctors, rec.Refs("doctors", "doctor"), "hospitals.doctors"),
		Treatments:      resolveList(r, r.treatments, rec.Refs("treatments", "treatment"), "hospitals.treatments"),
		Specialists:     resolveList(r, r.specialists, rec.Refs("specialists", "specialist"), "hospitals.specialists"),
		Accreditations:  resolveList(r, r.accreditations, rec.Refs("accreditations", "accreditation"), "hospitals.accreditations"),
	}

	var branchIDs []string
	for _, ref := range rec.Refs("branches", "branch") {
		branchIDs = append(branchIDs, ref.ID)
	}
	return ResolvedHospital{Hospital: h, BranchIDs: branchIDs}
}

// inlineCosts collects per-branch prices embedded on treatment references
// that differ from the treatment's catalog cost.
func (r *resolver) inlineCosts(refs []Ref) map[string]string {
	var costs map[string]string
	for _, ref := range refs {
		if ref.Inline == nil {
			continue
		}
		cost := ref.Inline.String("branchCost", "cost", "price")
		if cost == "" {
			continue
		}
		if base, ok := r.treatments.get(ref.ID); !ok || base.Cost == cost {
			continue
		}
		if costs == nil {
			costs = map[string]string{}
		}
		if _, ok := costs[ref.ID]; !ok {
			costs[ref.ID] = cost
		}
	}
	return costs
}
