package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/medtravel/directory/internal/domain/entities"
)

// LoadGoldenQueries reads, parses and validates a golden query set
func LoadGoldenQueries(path string) ([]GoldenQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden queries file: %w", err)
	}

	var queries []GoldenQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse golden queries: %w", err)
	}
	if err := ValidateGoldenQueries(queries); err != nil {
		return nil, err
	}
	return queries, nil
}

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

var validTypes = map[entities.SearchHitType]bool{
	entities.SearchHitHospital:  true,
	entities.SearchHitBranch:    true,
	entities.SearchHitDoctor:    true,
	entities.SearchHitTreatment: true,
}

// ValidateGoldenQueries checks that all golden queries have required fields and valid values.
func ValidateGoldenQueries(queries []GoldenQuery) error {
	if len(queries) == 0 {
		return fmt.Errorf("golden query set is empty")
	}
	seen := make(map[string]struct{}, len(queries))

	for i, q := range queries {
		if q.ID == "" {
			return fmt.Errorf("query at index %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("query at index %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}

		if q.Query == "" {
			return fmt.Errorf("query %q: missing query text", q.ID)
		}
		if !validTypes[q.Type] {
			return fmt.Errorf("query %q: invalid type %q", q.ID, q.Type)
		}
		if len(q.Expected) == 0 {
			return fmt.Errorf("query %q: no expected ids", q.ID)
		}
		if !validDifficulties[q.Difficulty] {
			return fmt.Errorf("query %q: invalid difficulty %q (must be easy/medium/hard)", q.ID, q.Difficulty)
		}
	}

	return nil
}
