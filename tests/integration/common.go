package integration

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/events"
	"github.com/eigerco/fraudledger/internal/ledger"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/internal/store"
)

type reportDump struct {
	Report      record.Report       `json:"report"`
	Validations []record.Validation `json:"validations"`
	Settlement  *record.Settlement  `json:"settlement,omitempty"`
}

type accountDump struct {
	Address crypto.Address     `json:"address"`
	Balance uint64             `json:"balance"`
	Stats   record.MemberStats `json:"stats"`
}

type ledgerDump struct {
	ReportCounter  uint64               `json:"reportCounter"`
	Reports        []reportDump         `json:"reports"`
	Accounts       []accountDump        `json:"accounts"`
	Accounting     record.Accounting    `json:"accounting"`
	PendingPayouts []store.QueuedPayout `json:"pendingPayouts"`
	Events         []events.Event       `json:"events"`
}

// DumpLedger renders everything observable through the engine's queries for
// the given parties as indented JSON.
func DumpLedger(t *testing.T, e *ledger.Engine, parties ...crypto.Address) string {
	t.Helper()
	var d ledgerDump
	var err error

	d.ReportCounter, err = e.ReportCounter()
	require.NoError(t, err)
	for id := uint64(1); id <= d.ReportCounter; id++ {
		var rd reportDump
		rd.Report, err = e.GetReport(id)
		require.NoError(t, err)
		rd.Validations, err = e.Validations(id)
		require.NoError(t, err)
		if rd.Report.Finalized {
			s, err := e.Settlement(id)
			require.NoError(t, err)
			rd.Settlement = &s
		}
		d.Reports = append(d.Reports, rd)
	}

	parties = append([]crypto.Address(nil), parties...)
	sort.Slice(parties, func(i, j int) bool { return parties[i].Compare(parties[j]) < 0 })
	for _, a := range parties {
		acc := accountDump{Address: a}
		acc.Balance, err = e.Balance(a)
		require.NoError(t, err)
		acc.Stats, err = e.MemberStats(a)
		require.NoError(t, err)
		d.Accounts = append(d.Accounts, acc)
	}

	d.Accounting, err = e.Accounting()
	require.NoError(t, err)
	d.PendingPayouts, err = e.PendingPayouts()
	require.NoError(t, err)
	d.Events, err = e.Events(0)
	require.NoError(t, err)

	out, err := json.MarshalIndent(d, "", "  ")
	require.NoError(t, err)
	return string(out) + "\n"
}

// RequireEqualDumps fails with a unified diff when the dumps differ.
func RequireEqualDumps(t *testing.T, expected, actual string) {
	t.Helper()
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  2,
	})
	if diff != "" {
		t.Fatalf("ledger mismatch:\n%s", diff)
	}
}
