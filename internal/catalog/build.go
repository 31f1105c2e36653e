package catalog

import (
	"time"

	"github.com/medtravel/directory/internal/domain/entities"
)

// Build runs the whole read-side pipeline over one fetch cycle: resolve
// references, aggregate the hospital tree, then project the flat doctor and
// treatment lists. The result is a complete snapshot; callers must treat it
// as read-only.
func Build(c Collections, now time.Time) (*entities.CMSData, ResolveStats) {
	resolved := Resolve(c)
	hospitals, standalone := Aggregate(resolved)
	stats := resolved.Stats
	stats.Standalone = standalone

	treatments := ExtendedTreatments(hospitals)
	doctors := ExtendedDoctors(hospitals)

	return &entities.CMSData{
		Hospitals:       hospitals,
		Treatments:      treatments,
		Doctors:         doctors,
		TotalHospitals:  len(hospitals),
		TotalTreatments: len(treatments),
		TotalDoctors:    len(doctors),
		LastUpdated:     now.UTC(),
	}, stats
}
