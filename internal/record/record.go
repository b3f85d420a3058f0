// Package record defines the entities kept on the fraud ledger.
package record

import (
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/ledgertime"
)

// Status is the lifecycle state of a report. It leaves StatusPending
// exactly once, at finalization.
type Status uint8

const (
	StatusPending Status = iota
	StatusApproved
	StatusDisputed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusDisputed:
		return "disputed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusPending, StatusApproved, StatusDisputed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Vote is a validator's judgement on a report.
type Vote uint8

const (
	VoteApprove Vote = iota
	VoteDispute
)

func (v Vote) Valid() bool {
	return v == VoteApprove || v == VoteDispute
}

func (v Vote) String() string {
	switch v {
	case VoteApprove:
		return "approve"
	case VoteDispute:
		return "dispute"
	default:
		return fmt.Sprintf("vote(%d)", uint8(v))
	}
}

func (v Vote) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Vote) UnmarshalText(text []byte) error {
	switch string(text) {
	case "approve":
		*v = VoteApprove
	case "dispute":
		*v = VoteDispute
	default:
		return fmt.Errorf("unknown vote %q", text)
	}
	return nil
}

// Report is a stake-backed fraud accusation against a customer.
type Report struct {
	ID              uint64               `json:"id"`
	Customer        crypto.Address       `json:"customer"`
	ReportingMember crypto.Address       `json:"reportingMember"`
	EvidenceRef     string               `json:"evidenceRef"`
	SubmittedAt     ledgertime.Timestamp `json:"submittedAt"`
	ReporterStake   uint64               `json:"reporterStake"`
	FinalizeAt      ledgertime.Timestamp `json:"finalizeAt"`
	Status          Status               `json:"status"`
	Finalized       bool                 `json:"finalized"`
}

// VotingOpen reports whether a vote cast at now is still accepted.
func (r Report) VotingOpen(now ledgertime.Timestamp) bool {
	return now.Before(r.FinalizeAt)
}

// Finalizable reports whether the report can be finalized at now.
func (r Report) Finalizable(now ledgertime.Timestamp) bool {
	return !r.Finalized && !now.Before(r.FinalizeAt)
}

// Validation is a single member's stake-backed vote on a report.
type Validation struct {
	ReportID  uint64               `json:"reportId"`
	Validator crypto.Address       `json:"validator"`
	Vote      Vote                 `json:"vote"`
	Stake     uint64               `json:"stake"`
	CastAt    ledgertime.Timestamp `json:"castAt"`
}

// Tally aggregates the votes cast on a report.
type Tally struct {
	ApproveCount uint32 `json:"approveCount"`
	DisputeCount uint32 `json:"disputeCount"`
	ApproveStake uint64 `json:"approveStake"`
	DisputeStake uint64 `json:"disputeStake"`
}

// Votes returns the total number of validations.
func (t Tally) Votes() uint32 {
	return t.ApproveCount + t.DisputeCount
}

// Outcome applies the tie-break policy: only a strict approve majority
// approves, ties and the empty tally dispute.
func (t Tally) Outcome() Status {
	if t.ApproveCount > t.DisputeCount {
		return StatusApproved
	}
	return StatusDisputed
}

// MemberStats is the running record of a member's activity.
type MemberStats struct {
	ReportsSubmitted uint64 `json:"reportsSubmitted"`
	ValidationsMade  uint64 `json:"validationsMade"`
	RewardsEarned    uint64 `json:"rewardsEarned"`
	StakesLost       uint64 `json:"stakesLost"`
}

// Role is the part a party played on a settled report.
type Role uint8

const (
	RoleReporter Role = iota + 1
	RoleValidator
)

func (r Role) String() string {
	switch r {
	case RoleReporter:
		return "reporter"
	case RoleValidator:
		return "validator"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "reporter":
		*r = RoleReporter
	case "validator":
		*r = RoleValidator
	default:
		return fmt.Errorf("unknown role %q", text)
	}
	return nil
}

// Payout is value owed to a party by a settlement.
type Payout struct {
	ReportID  uint64         `json:"reportId"`
	Recipient crypto.Address `json:"recipient"`
	Role      Role           `json:"role"`
	Principal uint64         `json:"principal"`
	Reward    uint64         `json:"reward"`
}

// Amount is the total value transferred by the payout.
func (p Payout) Amount() uint64 {
	return p.Principal + p.Reward
}

// Forfeit is stake lost by a party on the losing side.
type Forfeit struct {
	Address crypto.Address `json:"address"`
	Role    Role           `json:"role"`
	Amount  uint64         `json:"amount"`
}

// Settlement records how the stakes of a finalized report were resolved.
type Settlement struct {
	ReportID     uint64               `json:"reportId"`
	Status       Status               `json:"status"`
	Tally        Tally                `json:"tally"`
	Pool         uint64               `json:"pool"`
	WinningStake uint64               `json:"winningStake"`
	Distributed  uint64               `json:"distributed"`
	Retained     uint64               `json:"retained"`
	Payouts      []Payout             `json:"payouts"`
	Forfeits     []Forfeit            `json:"forfeits"`
	FinalizedAt  ledgertime.Timestamp `json:"finalizedAt"`
}

// Accounting tracks value flowing through the engine's escrow.
type Accounting struct {
	Deposited uint64 `json:"deposited"`
	Disbursed uint64 `json:"disbursed"`
	// Retained is the cumulative value kept by the engine from rounding
	// remainders and pools with no winning side.
	Retained uint64 `json:"retained"`
}

// Held is the value currently held in escrow.
func (a Accounting) Held() uint64 {
	return a.Deposited - a.Disbursed
}
