package ledger

import (
	"errors"

	"github.com/eigerco/fraudledger/internal/membership"
	"github.com/eigerco/fraudledger/internal/store"
	"github.com/eigerco/fraudledger/internal/vault"
)

var (
	// Authorization
	ErrNotAuthorized  = errors.New("caller is not an accredited member")
	ErrSelfValidation = errors.New("reporter cannot validate own report")
	ErrNotOwner       = membership.ErrNotOwner

	// Validation
	ErrInvalidTarget      = errors.New("customer address is zero")
	ErrEmptyEvidenceRef   = errors.New("evidence reference is empty")
	ErrInvalidEvidenceRef = errors.New("evidence reference is malformed")
	ErrInsufficientStake  = errors.New("stake below minimum")
	ErrInsufficientFunds  = vault.ErrInsufficientFunds
	ErrInvalidVote        = errors.New("unknown vote value")
	ErrDuplicateVote      = store.ErrDuplicateVote
	ErrZeroAddress        = membership.ErrZeroAddress
	ErrAlreadyMember      = membership.ErrAlreadyMember
	ErrNotMember          = membership.ErrNotMember

	// Temporal
	ErrVotingClosed     = errors.New("voting window has closed")
	ErrLockPeriodActive = errors.New("lock period has not elapsed")

	// Lifecycle
	ErrReportNotFound   = store.ErrReportNotFound
	ErrAlreadyFinalized = errors.New("report already finalized")
)

// ErrorCategory groups ledger rejections.
type ErrorCategory uint8

const (
	CategoryNone ErrorCategory = iota
	CategoryAuthorization
	CategoryValidation
	CategoryTemporal
	CategoryLifecycle
	// CategoryInternal covers storage and encoding failures.
	CategoryInternal
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryAuthorization:
		return "authorization"
	case CategoryValidation:
		return "validation"
	case CategoryTemporal:
		return "temporal"
	case CategoryLifecycle:
		return "lifecycle"
	default:
		return "internal"
	}
}

type errorInfo struct {
	err      error
	code     string
	category ErrorCategory
}

// errorTable holds the stable wire code of every rejection.
var errorTable = []errorInfo{
	{ErrNotAuthorized, "not_authorized", CategoryAuthorization},
	{ErrSelfValidation, "self_validation", CategoryAuthorization},
	{ErrNotOwner, "not_owner", CategoryAuthorization},
	{ErrInvalidTarget, "invalid_target", CategoryValidation},
	{ErrEmptyEvidenceRef, "empty_evidence_ref", CategoryValidation},
	{ErrInvalidEvidenceRef, "invalid_evidence_ref", CategoryValidation},
	{ErrInsufficientStake, "insufficient_stake", CategoryValidation},
	{ErrInsufficientFunds, "insufficient_funds", CategoryValidation},
	{ErrInvalidVote, "invalid_vote", CategoryValidation},
	{ErrDuplicateVote, "duplicate_vote", CategoryValidation},
	{ErrZeroAddress, "zero_address", CategoryValidation},
	{ErrAlreadyMember, "already_member", CategoryValidation},
	{ErrNotMember, "not_member", CategoryValidation},
	{ErrVotingClosed, "voting_closed", CategoryTemporal},
	{ErrLockPeriodActive, "lock_period_active", CategoryTemporal},
	{ErrReportNotFound, "report_not_found", CategoryLifecycle},
	{ErrAlreadyFinalized, "already_finalized", CategoryLifecycle},
}

const (
	CodeOK       = "ok"
	CodeInternal = "internal"
)

func lookup(err error) (errorInfo, bool) {
	for _, info := range errorTable {
		if errors.Is(err, info.err) {
			return info, true
		}
	}
	return errorInfo{}, false
}

// Category classifies err. Errors that are not ledger rejections are
// CategoryInternal.
func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}
	if info, ok := lookup(err); ok {
		return info.category
	}
	return CategoryInternal
}

// Code returns the stable code of err, CodeOK for nil.
func Code(err error) string {
	if err == nil {
		return CodeOK
	}
	if info, ok := lookup(err); ok {
		return info.code
	}
	return CodeInternal
}

// FromCode maps a code back to its sentinel error. Unknown codes yield nil.
func FromCode(code string) error {
	for _, info := range errorTable {
		if info.code == code {
			return info.err
		}
	}
	return nil
}
