package store

import (
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/internal/safemath"
)

// Tally returns the running vote totals of a report. A report without votes
// has the zero tally.
func (tx *Tx) Tally(id uint64) (record.Tally, error) {
	var t record.Tally
	if _, err := tx.getValue(tallyKey(id), &t); err != nil {
		return record.Tally{}, err
	}
	return t, nil
}

func (tx *Tx) HasVoted(id uint64, validator crypto.Address) (bool, error) {
	return tx.has(voteKey(id, validator))
}

// AppendValidation records a vote, indexes the voter and updates the tally.
// A second vote by the same validator on the same report is rejected with
// ErrDuplicateVote.
func (tx *Tx) AppendValidation(v record.Validation) (record.Tally, error) {
	voted, err := tx.HasVoted(v.ReportID, v.Validator)
	if err != nil {
		return record.Tally{}, err
	}
	if voted {
		return record.Tally{}, ErrDuplicateVote
	}

	t, err := tx.Tally(v.ReportID)
	if err != nil {
		return record.Tally{}, err
	}
	seq := t.Votes()

	var ok bool
	switch v.Vote {
	case record.VoteApprove:
		t.ApproveCount++
		t.ApproveStake, ok = safemath.Add64(t.ApproveStake, v.Stake)
	case record.VoteDispute:
		t.DisputeCount++
		t.DisputeStake, ok = safemath.Add64(t.DisputeStake, v.Stake)
	default:
		return record.Tally{}, fmt.Errorf("unknown vote %d", v.Vote)
	}
	if !ok {
		return record.Tally{}, fmt.Errorf("tally stake: %w", safemath.ErrOverflow)
	}

	if err := tx.putValue(validationKey(v.ReportID, seq), v); err != nil {
		return record.Tally{}, err
	}
	tx.put(voteKey(v.ReportID, v.Validator), u32(seq))
	if err := tx.putValue(tallyKey(v.ReportID), t); err != nil {
		return record.Tally{}, err
	}
	return t, nil
}

// Validations lists the votes on a report in the order they were cast.
func (tx *Tx) Validations(id uint64) ([]record.Validation, error) {
	out := []record.Validation{}
	err := tx.scan(makeKey(prefixValidation, u64(id)), func(key, value []byte) error {
		var v record.Validation
		if err := decMode.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("unmarshal validation: %w", err)
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
