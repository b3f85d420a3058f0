// Package events defines the ledger's event stream and the sinks it can be
// delivered to.
package events

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/ledgertime"
	"github.com/eigerco/fraudledger/internal/record"
)

type Kind uint8

const (
	KindReportSubmitted Kind = iota + 1
	KindReportValidated
	KindReportFinalized
)

func (k Kind) String() string {
	switch k {
	case KindReportSubmitted:
		return "ReportSubmitted"
	case KindReportValidated:
		return "ReportValidated"
	case KindReportFinalized:
		return "ReportFinalized"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one entry of the ledger's event log. Seq is assigned when the
// event is appended and increases by one per event in commit order.
type Event struct {
	Seq       uint64               `json:"seq"`
	Kind      Kind                 `json:"kind"`
	ReportID  uint64               `json:"reportId"`
	Time      ledgertime.Timestamp `json:"time"`
	Submitted *Submitted           `json:"submitted,omitempty"`
	Validated *Validated           `json:"validated,omitempty"`
	Finalized *Finalized           `json:"finalized,omitempty"`
}

type Submitted struct {
	Customer    crypto.Address `json:"customer"`
	Reporter    crypto.Address `json:"reporter"`
	EvidenceRef string         `json:"evidenceRef"`
	Stake       uint64         `json:"stake"`
}

type Validated struct {
	Validator crypto.Address `json:"validator"`
	Vote      record.Vote    `json:"vote"`
	Stake     uint64         `json:"stake"`
}

type Finalized struct {
	Status record.Status `json:"status"`
	Totals Totals        `json:"totals"`
}

// Totals summarize the vote and the settlement of a finalized report.
type Totals struct {
	ApproveCount uint32 `json:"approveCount"`
	DisputeCount uint32 `json:"disputeCount"`
	ApproveStake uint64 `json:"approveStake"`
	DisputeStake uint64 `json:"disputeStake"`
	Pool         uint64 `json:"pool"`
	Distributed  uint64 `json:"distributed"`
	Retained     uint64 `json:"retained"`
}

// TotalsOf extracts the event totals from a settlement.
func TotalsOf(s record.Settlement) Totals {
	return Totals{
		ApproveCount: s.Tally.ApproveCount,
		DisputeCount: s.Tally.DisputeCount,
		ApproveStake: s.Tally.ApproveStake,
		DisputeStake: s.Tally.DisputeStake,
		Pool:         s.Pool,
		Distributed:  s.Distributed,
		Retained:     s.Retained,
	}
}

func NewSubmitted(r record.Report) Event {
	return Event{
		Kind:     KindReportSubmitted,
		ReportID: r.ID,
		Time:     r.SubmittedAt,
		Submitted: &Submitted{
			Customer:    r.Customer,
			Reporter:    r.ReportingMember,
			EvidenceRef: r.EvidenceRef,
			Stake:       r.ReporterStake,
		},
	}
}

func NewValidated(v record.Validation) Event {
	return Event{
		Kind:     KindReportValidated,
		ReportID: v.ReportID,
		Time:     v.CastAt,
		Validated: &Validated{
			Validator: v.Validator,
			Vote:      v.Vote,
			Stake:     v.Stake,
		},
	}
}

func NewFinalized(s record.Settlement) Event {
	return Event{
		Kind:     KindReportFinalized,
		ReportID: s.ReportID,
		Time:     s.FinalizedAt,
		Finalized: &Finalized{
			Status: s.Status,
			Totals: TotalsOf(s),
		},
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes an event in deterministic CBOR, the form that is stored
// and signed.
func Marshal(e Event) ([]byte, error) {
	return encMode.Marshal(e)
}

func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := decMode.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
