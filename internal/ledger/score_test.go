package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eigerco/fraudledger/internal/record"
)

func TestFraudScore(t *testing.T) {
	pending := record.Report{}
	approved := record.Report{Finalized: true, Status: record.StatusApproved}
	disputed := record.Report{Finalized: true, Status: record.StatusDisputed}

	tests := []struct {
		name    string
		reports []record.Report
		want    uint8
	}{
		{"clean", nil, 100},
		{"one pending", []record.Report{pending}, 70},
		{"two pending", []record.Report{pending, pending}, 55},
		{"disputed counts as a report", []record.Report{pending, disputed}, 55},
		{"approved costs extra", []record.Report{pending, approved}, 35},
		{"floored at zero", []record.Report{approved, approved, approved}, 0},
		{"many reports", make([]record.Report, 10), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fraudScore(tc.reports))
		})
	}
}

func TestFraudScoreMonotonic(t *testing.T) {
	var reports []record.Report
	prev := fraudScore(reports)
	for i := 0; i < 8; i++ {
		reports = append(reports, record.Report{})
		score := fraudScore(reports)
		assert.LessOrEqual(t, score, prev)
		prev = score

		reports[i] = record.Report{Finalized: true, Status: record.StatusApproved}
		score = fraudScore(reports)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
}
