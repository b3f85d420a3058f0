// Package evidence validates the content identifiers that reports use to
// point at off-ledger evidence.
package evidence

import (
	"errors"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/eigerco/fraudledger/internal/common"
)

var (
	ErrEmptyRef   = errors.New("evidence reference is empty")
	ErrInvalidRef = errors.New("evidence reference is not a valid content identifier")
)

// Validator is the predicate the ledger consults before accepting a report.
type Validator interface {
	IsValidEvidenceRef(ref string) bool
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ref string) bool

func (f ValidatorFunc) IsValidEvidenceRef(ref string) bool {
	return f(ref)
}

// CIDValidator accepts IPFS content identifiers, CIDv0 (base58 "Qm...") and
// CIDv1 in any multibase encoding.
type CIDValidator struct{}

func (CIDValidator) IsValidEvidenceRef(ref string) bool {
	return Check(ref) == nil
}

// Check reports why ref is unacceptable, or nil.
func Check(ref string) error {
	if ref == "" {
		return ErrEmptyRef
	}
	if len(ref) > common.MaxEvidenceRefLength || strings.TrimSpace(ref) != ref {
		return ErrInvalidRef
	}
	c, err := cid.Decode(ref)
	if err != nil || !c.Defined() {
		return ErrInvalidRef
	}
	return nil
}
