package evaluation

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name      string
		relevant  []string
		retrieved []string
		k         int
		want      float64
	}{
		{"all found", []string{"doctor:a", "doctor:b"}, []string{"doctor:b", "hospital:x", "doctor:a"}, 10, 1.0},
		{"half found", []string{"a", "b", "c", "d"}, []string{"a", "x", "b"}, 10, 0.5},
		{"cut off by k", []string{"a", "b", "c"}, []string{"a", "b", "x", "y", "c"}, 3, 2.0 / 3.0},
		{"nothing retrieved", []string{"a"}, nil, 10, 0.0},
		{"no relevant set", nil, []string{"a"}, 10, 0.0},
		{"duplicate hits count once", []string{"a", "b"}, []string{"a", "a", "a"}, 10, 0.5},
		{"duplicate relevant ids", []string{"a", "a"}, []string{"a"}, 10, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecallAtK(tt.relevant, tt.retrieved, tt.k); !almostEqual(got, tt.want) {
				t.Errorf("RecallAtK() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMRRAtK(t *testing.T) {
	tests := []struct {
		name      string
		relevant  []string
		retrieved []string
		want      float64
	}{
		{"first hit", []string{"a"}, []string{"a", "x"}, 1.0},
		{"third hit", []string{"a"}, []string{"x", "y", "a"}, 1.0 / 3.0},
		{"earliest of several", []string{"a", "b"}, []string{"x", "b", "a"}, 0.5},
		{"beyond k", []string{"a"}, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "a"}, 0.0},
		{"empty relevant", nil, []string{"a"}, 0.0},
		{"empty retrieved", []string{"a"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MRRAtK(tt.relevant, tt.retrieved, 10); !almostEqual(got, tt.want) {
				t.Errorf("MRRAtK() = %f, want %f", got, tt.want)
			}
		})
	}
}
