package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyOutcome(t *testing.T) {
	tests := []struct {
		name  string
		tally Tally
		want  Status
	}{
		{"no votes", Tally{}, StatusDisputed},
		{"tie", Tally{ApproveCount: 1, DisputeCount: 1}, StatusDisputed},
		{"approve majority", Tally{ApproveCount: 2, DisputeCount: 1}, StatusApproved},
		{"dispute majority", Tally{ApproveCount: 1, DisputeCount: 2}, StatusDisputed},
		{"single approve", Tally{ApproveCount: 1}, StatusApproved},
		// Stake weight plays no part in the outcome
		{"heavy minority", Tally{ApproveCount: 1, DisputeCount: 2, ApproveStake: 100, DisputeStake: 2}, StatusDisputed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.tally.Outcome())
		})
	}
}

func TestReportWindow(t *testing.T) {
	r := Report{FinalizeAt: 100}

	assert.True(t, r.VotingOpen(99))
	assert.False(t, r.VotingOpen(100))
	assert.False(t, r.Finalizable(99))
	assert.True(t, r.Finalizable(100))

	r.Finalized = true
	assert.False(t, r.Finalizable(200))
}

func TestEnumText(t *testing.T) {
	data, err := json.Marshal(struct {
		S Status
		V Vote
		R Role
	}{StatusApproved, VoteDispute, RoleValidator})
	require.NoError(t, err)
	assert.JSONEq(t, `{"S":"approved","V":"dispute","R":"validator"}`, string(data))

	var back struct {
		S Status
		V Vote
		R Role
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StatusApproved, back.S)
	assert.Equal(t, VoteDispute, back.V)
	assert.Equal(t, RoleValidator, back.R)

	assert.Error(t, back.V.UnmarshalText([]byte("abstain")))
	assert.False(t, Vote(7).Valid())
	assert.Equal(t, "status(9)", Status(9).String())
}

func TestAccountingHeld(t *testing.T) {
	a := Accounting{Deposited: 10, Disbursed: 4, Retained: 1}
	assert.Equal(t, uint64(6), a.Held())
}

func TestPayoutAmount(t *testing.T) {
	assert.Equal(t, uint64(15), Payout{Principal: 10, Reward: 5}.Amount())
}
