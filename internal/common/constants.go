package common

import "time"

// Unit is one whole unit of stake value. Stakes and balances are expressed
// in base units, 10^9 per Unit, which leaves uint64 room for about 1.8e10
// Units in circulation.
const Unit uint64 = 1_000_000_000

const (
	// ReporterStakeMin is the least a member must stake to submit a report (0.05 Unit).
	ReporterStakeMin = Unit / 20

	// ValidatorStakeMin is the least a member must stake to vote on a report (0.01 Unit).
	ValidatorStakeMin = Unit / 100

	// LockPeriod is how long a report stays open for votes before it can be finalized.
	LockPeriod = 48 * time.Hour
)

const (
	// MaxEvidenceRefLength bounds the evidence reference string accepted on a report.
	MaxEvidenceRefLength = 128
)
