package entities

import "time"

// CMSData is one immutable aggregation of the CMS. It is rebuilt from scratch
// on every cache miss and never mutated afterwards.
type CMSData struct {
	Hospitals       []Hospital          `json:"hospitals"`
	Treatments      []ExtendedTreatment `json:"treatments"`
	Doctors         []ExtendedDoctor    `json:"doctors"`
	TotalHospitals  int                 `json:"totalHospitals"`
	TotalTreatments int                 `json:"totalTreatments"`
	TotalDoctors    int                 `json:"totalDoctors"`
	LastUpdated     time.Time           `json:"lastUpdated"`
}

// HospitalBySlug returns the hospital with the given slug (or id)
func (d *CMSData) HospitalBySlug(slug string) (*Hospital, bool) {
	for i := range d.Hospitals {
		if d.Hospitals[i].Slug == slug || d.Hospitals[i].ID == slug {
			return &d.Hospitals[i], true
		}
	}
	return nil, false
}

// SearchHitType identifies which entity a search hit points at
type SearchHitType string

const (
	SearchHitHospital  SearchHitType = "hospital"
	SearchHitBranch    SearchHitType = "branch"
	SearchHitDoctor    SearchHitType = "doctor"
	SearchHitTreatment SearchHitType = "treatment"
)

// SearchHit is a single free-text search result
type SearchHit struct {
	Type         SearchHitType `json:"type"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	HospitalID   string        `json:"hospitalId,omitempty"`
	HospitalSlug string        `json:"hospitalSlug,omitempty"`
	Subtitle     string        `json:"subtitle,omitempty"`
	Image        string        `json:"image,omitempty"`
}
