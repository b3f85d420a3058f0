package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{nil, CategoryNone},
		{ErrNotAuthorized, CategoryAuthorization},
		{ErrSelfValidation, CategoryAuthorization},
		{ErrNotOwner, CategoryAuthorization},
		{ErrInvalidTarget, CategoryValidation},
		{ErrEmptyEvidenceRef, CategoryValidation},
		{ErrInvalidEvidenceRef, CategoryValidation},
		{ErrInsufficientStake, CategoryValidation},
		{ErrInsufficientFunds, CategoryValidation},
		{ErrDuplicateVote, CategoryValidation},
		{ErrAlreadyMember, CategoryValidation},
		{ErrNotMember, CategoryValidation},
		{ErrZeroAddress, CategoryValidation},
		{ErrVotingClosed, CategoryTemporal},
		{ErrLockPeriodActive, CategoryTemporal},
		{ErrReportNotFound, CategoryLifecycle},
		{ErrAlreadyFinalized, CategoryLifecycle},
		{fmt.Errorf("wrapped: %w", ErrVotingClosed), CategoryTemporal},
		{errors.New("disk on fire"), CategoryInternal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Category(tc.err), "%v", tc.err)
	}
}

func TestCodeRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, info := range errorTable {
		code := Code(info.err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
		assert.Equal(t, info.err, FromCode(code))
	}

	assert.Equal(t, CodeOK, Code(nil))
	assert.Equal(t, CodeInternal, Code(errors.New("boom")))
	assert.Nil(t, FromCode("no_such_code"))
	assert.Equal(t, "temporal", CategoryTemporal.String())
}
