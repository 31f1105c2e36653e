package evaluation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medtravel/directory/internal/domain/entities"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golden.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadGoldenQueries_ValidFile(t *testing.T) {
	path := writeTempFile(t, `[
		{"id": "q1", "query": "apollo", "type": "hospital", "expected": ["h1"], "difficulty": "easy"},
		{"id": "q2", "query": "knee", "type": "treatment", "expected": ["t1", "t2"], "difficulty": "medium"}
	]`)

	queries, err := LoadGoldenQueries(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[1].Type != entities.SearchHitTreatment {
		t.Errorf("expected treatment type, got %s", queries[1].Type)
	}
	if got := queries[1].relevantKeys(); len(got) != 2 || got[0] != "treatment:t1" {
		t.Errorf("unexpected relevant keys %v", got)
	}
}

func TestLoadGoldenQueries_Errors(t *testing.T) {
	if _, err := LoadGoldenQueries("/nonexistent/golden.json"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadGoldenQueries(writeTempFile(t, `not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := LoadGoldenQueries(writeTempFile(t, `[]`)); err == nil {
		t.Error("expected error for empty set")
	}
}

func TestValidateGoldenQueries(t *testing.T) {
	valid := GoldenQuery{ID: "q1", Query: "apollo", Type: entities.SearchHitHospital, Expected: []string{"h1"}, Difficulty: "easy"}

	tests := []struct {
		name    string
		mutate  func(q *GoldenQuery)
		wantErr string
	}{
		{"valid", func(q *GoldenQuery) {}, ""},
		{"missing id", func(q *GoldenQuery) { q.ID = "" }, "missing id"},
		{"missing query", func(q *GoldenQuery) { q.Query = "" }, "missing query"},
		{"bad type", func(q *GoldenQuery) { q.Type = "clinic" }, "invalid type"},
		{"no expected", func(q *GoldenQuery) { q.Expected = nil }, "no expected"},
		{"bad difficulty", func(q *GoldenQuery) { q.Difficulty = "impossible" }, "invalid difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			err := ValidateGoldenQueries([]GoldenQuery{q})
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateGoldenQueries_DuplicateIDs(t *testing.T) {
	q := GoldenQuery{ID: "q1", Query: "apollo", Type: entities.SearchHitHospital, Expected: []string{"h1"}, Difficulty: "easy"}
	if err := ValidateGoldenQueries([]GoldenQuery{q, q}); err == nil {
		t.Error("expected validation error for duplicate IDs")
	}
}
