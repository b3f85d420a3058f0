package ledger

import "github.com/eigerco/fraudledger/internal/record"

const (
	scoreMax          = 100
	scoreReportedBase = 15
	scorePerReport    = 15
	scorePerApproved  = 20
)

// fraudScore rates a customer from 100 (clean) down to 0. Any report costs
// a base penalty plus a penalty per report, and approved reports cost
// extra. With no reports the score is 100; two pending reports give 55.
func fraudScore(reports []record.Report) uint8 {
	if len(reports) == 0 {
		return scoreMax
	}
	penalty := scoreReportedBase + scorePerReport*len(reports)
	for _, r := range reports {
		if r.Finalized && r.Status == record.StatusApproved {
			penalty += scorePerApproved
		}
	}
	if penalty >= scoreMax {
		return 0
	}
	return uint8(scoreMax - penalty)
}
