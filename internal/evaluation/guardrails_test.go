package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholds_Check(t *testing.T) {
	summary := &EvalSummary{AvgRecallAt10: 0.8, AvgMRRAt10: 0.6, Failed: 1}

	assert.NoError(t, Thresholds{MinRecallAt10: 0.75, MinMRRAt10: 0.5, MaxFailed: 1}.Check(summary))
	assert.ErrorContains(t, Thresholds{MaxFailed: 0}.Check(summary), "1 queries failed")
	assert.ErrorContains(t, Thresholds{MinRecallAt10: 0.9, MaxFailed: 1}.Check(summary), "recall@10")
	assert.ErrorContains(t, Thresholds{MinMRRAt10: 0.7, MaxFailed: 1}.Check(summary), "mrr@10")
}
