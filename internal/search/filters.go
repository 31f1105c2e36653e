package search

import (
	"net/url"
	"strings"

	"github.com/medtravel/directory/pkg/utils"
)

// FilterKey names one filter dimension
type FilterKey string

const (
	FilterDoctor         FilterKey = "doctor"
	FilterTreatment      FilterKey = "treatment"
	FilterBranch         FilterKey = "branch"
	FilterCity           FilterKey = "city"
	FilterStateKey       FilterKey = "state"
	FilterDepartment     FilterKey = "department"
	FilterSpecialization FilterKey = "specialization"
	FilterLocation       FilterKey = "location"
)

// AllFilterKeys lists every supported dimension in display order
var AllFilterKeys = []FilterKey{
	FilterDoctor, FilterTreatment, FilterBranch, FilterCity,
	FilterStateKey, FilterDepartment, FilterSpecialization, FilterLocation,
}

// View is the directory page a filter state belongs to
type View string

const (
	ViewHospitals  View = "hospitals"
	ViewDoctors    View = "doctors"
	ViewTreatments View = "treatments"
)

// primaryFilters are mutually exclusive search modes
var primaryFilters = []FilterKey{FilterDoctor, FilterTreatment, FilterBranch}

// IsPrimary reports whether key is one of the exclusive search modes
func IsPrimary(key FilterKey) bool {
	for _, k := range primaryFilters {
		if k == key {
			return true
		}
	}
	return false
}

// FilterValue is a dropdown selection (ID) and/or a free-text query
type FilterValue struct {
	ID    string `json:"id,omitempty"`
	Query string `json:"query,omitempty"`
}

// Active reports whether the value constrains anything
func (v FilterValue) Active() bool {
	return strings.TrimSpace(v.ID) != "" || strings.TrimSpace(v.Query) != ""
}

// Matches is true when the id equals the selection or the name contains the
// query. Either mode alone is enough.
func (v FilterValue) Matches(id, name string) bool {
	if v.ID != "" && v.ID == id {
		return true
	}
	return utils.ContainsFold(name, v.Query)
}

// FilterState is the complete set of filters for one directory view
type FilterState struct {
	View           View        `json:"view"`
	Doctor         FilterValue `json:"doctor"`
	Treatment      FilterValue `json:"treatment"`
	Branch         FilterValue `json:"branch"`
	City           FilterValue `json:"city"`
	State          FilterValue `json:"state"`
	Department     FilterValue `json:"department"`
	Specialization FilterValue `json:"specialization"`
	Location       FilterValue `json:"location"`
}

func (s *FilterState) field(key FilterKey) *FilterValue {
	switch key {
	case FilterDoctor:
		return &s.Doctor
	case FilterTreatment:
		return &s.Treatment
	case FilterBranch:
		return &s.Branch
	case FilterCity:
		return &s.City
	case FilterStateKey:
		return &s.State
	case FilterDepartment:
		return &s.Department
	case FilterSpecialization:
		return &s.Specialization
	case FilterLocation:
		return &s.Location
	}
	return nil
}

// Get returns the value of one dimension; unknown keys are inactive
func (s FilterState) Get(key FilterKey) FilterValue {
	if f := s.field(key); f != nil {
		return *f
	}
	return FilterValue{}
}

// With returns a copy with one dimension replaced
func (s FilterState) With(key FilterKey, value FilterValue) FilterState {
	if f := s.field(key); f != nil {
		*f = value
	}
	return s
}

// ActiveKeys lists the dimensions currently constraining results
func (s FilterState) ActiveKeys() []FilterKey {
	var keys []FilterKey
	for _, k := range AllFilterKeys {
		if s.Get(k).Active() {
			keys = append(keys, k)
		}
	}
	return keys
}

// EnforceOnePrimaryFilter applies newValue to key. Setting an active doctor,
// treatment or branch filter clears the other two along with department and
// specialization, which only make sense relative to the chosen mode. City,
// state and location combine freely.
func EnforceOnePrimaryFilter(key FilterKey, prev FilterState, newValue FilterValue) FilterState {
	next := prev.With(key, newValue)
	if !IsPrimary(key) || !newValue.Active() {
		return next
	}
	for _, k := range primaryFilters {
		if k != key {
			next = next.With(k, FilterValue{})
		}
	}
	next.Department = FilterValue{}
	next.Specialization = FilterValue{}
	return next
}

// GetVisibleFiltersByView returns the filter controls shown for a view
func GetVisibleFiltersByView(view View) []FilterKey {
	switch view {
	case ViewHospitals:
		return []FilterKey{FilterBranch, FilterTreatment, FilterCity}
	case ViewDoctors:
		return []FilterKey{FilterDoctor, FilterSpecialization, FilterTreatment, FilterCity}
	case ViewTreatments:
		return []FilterKey{FilterTreatment, FilterCity}
	default:
		return []FilterKey{FilterDoctor, FilterCity}
	}
}

// ParseFilterState reads view, <key>Id and <key>Query query parameters
func ParseFilterState(values url.Values) FilterState {
	state := FilterState{View: View(strings.TrimSpace(values.Get("view")))}
	for _, k := range AllFilterKeys {
		state = state.With(k, FilterValue{
			ID:    strings.TrimSpace(values.Get(string(k) + "Id")),
			Query: strings.TrimSpace(values.Get(string(k) + "Query")),
		})
	}
	return state
}

// Encode writes the state back as query parameters, omitting inactive dimensions
func (s FilterState) Encode(values url.Values) {
	if s.View != "" {
		values.Set("view", string(s.View))
	}
	for _, k := range AllFilterKeys {
		v := s.Get(k)
		if v.ID != "" {
			values.Set(string(k)+"Id", v.ID)
		}
		if v.Query != "" {
			values.Set(string(k)+"Query", v.Query)
		}
	}
}
