package directoryclient

import (
	"net/url"
	"sync"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/search"
)

// Filters holds the UI filter state for one directory view. It is safe for
// concurrent use so a background load can evaluate results while the user
// edits filters.
type Filters struct {
	mu    sync.RWMutex
	state search.FilterState
}

// NewFilters starts an empty filter state for view
func NewFilters(view search.View) *Filters {
	return &Filters{state: search.FilterState{View: view}}
}

// FiltersFromQuery restores a filter state from page query parameters,
// applying primaries last so a crafted URL cannot combine two of them.
func FiltersFromQuery(values url.Values) *Filters {
	parsed := search.ParseFilterState(values)
	f := NewFilters(parsed.View)
	for _, k := range search.AllFilterKeys {
		if !search.IsPrimary(k) {
			f.Set(k, parsed.Get(k))
		}
	}
	for _, k := range search.AllFilterKeys {
		if search.IsPrimary(k) && parsed.Get(k).Active() {
			f.Set(k, parsed.Get(k))
		}
	}
	return f
}

// Set applies one filter, clearing conflicting primaries
func (f *Filters) Set(key search.FilterKey, value search.FilterValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = search.EnforceOnePrimaryFilter(key, f.state, value)
}

// Clear resets one filter
func (f *Filters) Clear(key search.FilterKey) {
	f.Set(key, search.FilterValue{})
}

// Reset clears every filter but keeps the view
func (f *Filters) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = search.FilterState{View: f.state.View}
}

// State returns a copy of the current state
func (f *Filters) State() search.FilterState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Visible lists the controls shown for the current view
func (f *Filters) Visible() []search.FilterKey {
	return search.GetVisibleFiltersByView(f.State().View)
}

// Query encodes the state for a shareable URL
func (f *Filters) Query() url.Values {
	values := url.Values{}
	f.State().Encode(values)
	return values
}

// Branches evaluates the hospitals view against a loaded snapshot
func (f *Filters) Branches(s *Snapshot) []entities.MatchedBranch {
	return search.GetMatchingBranches(s.Hospitals, f.State(), s.Treatments)
}

// Doctors evaluates the doctors view against a loaded snapshot
func (f *Filters) Doctors(s *Snapshot) []entities.ExtendedDoctor {
	return search.GetMatchingDoctors(s.Doctors, f.State(), s.Treatments)
}

// Treatments evaluates the treatments view against a loaded snapshot
func (f *Filters) Treatments(s *Snapshot) []entities.ExtendedTreatment {
	return search.GetMatchingTreatments(s.Treatments, f.State())
}
