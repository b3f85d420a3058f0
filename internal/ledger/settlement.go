package ledger

import (
	"fmt"

	"github.com/eigerco/fraudledger/internal/ledgertime"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/internal/safemath"
)

// TallyOf counts the votes in validations.
func TallyOf(validations []record.Validation) (record.Tally, error) {
	var t record.Tally
	var err error
	for _, v := range validations {
		switch v.Vote {
		case record.VoteApprove:
			t.ApproveCount++
			t.ApproveStake, err = safemath.Sum64(t.ApproveStake, v.Stake)
		case record.VoteDispute:
			t.DisputeCount++
			t.DisputeStake, err = safemath.Sum64(t.DisputeStake, v.Stake)
		default:
			return record.Tally{}, fmt.Errorf("validation by %s: %w", v.Validator, ErrInvalidVote)
		}
		if err != nil {
			return record.Tally{}, fmt.Errorf("tally: %w", err)
		}
	}
	return t, nil
}

// Settle resolves the stakes of r. It does not touch state.
//
// On an approved report the reporter gets its stake back and approve voters
// split the dispute stakes. On a disputed report the reporter's stake and
// the approve stakes are split among dispute voters. Each winner receives
// its principal plus floor(pool * stake / winningStake). Whatever is not
// distributed, the rounding remainder or a pool with no winners, is
// retained.
func Settle(r record.Report, validations []record.Validation, now ledgertime.Timestamp) (record.Settlement, error) {
	tally, err := TallyOf(validations)
	if err != nil {
		return record.Settlement{}, err
	}

	s := record.Settlement{
		ReportID:    r.ID,
		Status:      tally.Outcome(),
		Tally:       tally,
		Payouts:     []record.Payout{},
		Forfeits:    []record.Forfeit{},
		FinalizedAt: now,
	}

	winningVote := record.VoteDispute
	if s.Status == record.StatusApproved {
		winningVote = record.VoteApprove
		s.Pool = tally.DisputeStake
		s.WinningStake = tally.ApproveStake
		s.Payouts = append(s.Payouts, record.Payout{
			ReportID:  r.ID,
			Recipient: r.ReportingMember,
			Role:      record.RoleReporter,
			Principal: r.ReporterStake,
		})
	} else {
		s.Pool, err = safemath.Sum64(r.ReporterStake, tally.ApproveStake)
		if err != nil {
			return record.Settlement{}, fmt.Errorf("pool: %w", err)
		}
		s.WinningStake = tally.DisputeStake
		s.Forfeits = append(s.Forfeits, record.Forfeit{
			Address: r.ReportingMember,
			Role:    record.RoleReporter,
			Amount:  r.ReporterStake,
		})
	}

	for _, v := range validations {
		if v.Vote != winningVote {
			s.Forfeits = append(s.Forfeits, record.Forfeit{
				Address: v.Validator,
				Role:    record.RoleValidator,
				Amount:  v.Stake,
			})
			continue
		}
		reward, err := safemath.MulDiv64(s.Pool, v.Stake, s.WinningStake)
		if err != nil {
			return record.Settlement{}, fmt.Errorf("reward for %s: %w", v.Validator, err)
		}
		s.Distributed += reward
		s.Payouts = append(s.Payouts, record.Payout{
			ReportID:  r.ID,
			Recipient: v.Validator,
			Role:      record.RoleValidator,
			Principal: v.Stake,
			Reward:    reward,
		})
	}

	// Σ floor(pool*stake_i/W) <= pool, so this never underflows.
	s.Retained = s.Pool - s.Distributed
	return s, nil
}

// Staked is the total value a report locked in escrow.
func Staked(r record.Report, t record.Tally) (uint64, error) {
	return safemath.Sum64(r.ReporterStake, t.ApproveStake, t.DisputeStake)
}
