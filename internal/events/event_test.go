package events

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
	"github.com/eigerco/fraudledger/internal/record"
)

var (
	customer = crypto.MustParseAddress("0x00000000000000000000000000000000000000c1")
	reporter = crypto.MustParseAddress("0x00000000000000000000000000000000000000a1")
)

func submittedEvent() Event {
	e := NewSubmitted(record.Report{
		ID:              4,
		Customer:        customer,
		ReportingMember: reporter,
		EvidenceRef:     "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		SubmittedAt:     1000,
		ReporterStake:   50,
	})
	e.Seq = 9
	return e
}

func TestMarshalRoundTrip(t *testing.T) {
	e := submittedEvent()
	data, err := Marshal(e)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, e, back)
	assert.Nil(t, back.Validated)

	again, err := Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestNewFinalized(t *testing.T) {
	e := NewFinalized(record.Settlement{
		ReportID:    2,
		Status:      record.StatusApproved,
		Tally:       record.Tally{ApproveCount: 2, DisputeCount: 1, ApproveStake: 20, DisputeStake: 10},
		Pool:        10,
		Distributed: 9,
		Retained:    1,
		FinalizedAt: 500,
	})
	assert.Equal(t, KindReportFinalized, e.Kind)
	require.NotNil(t, e.Finalized)
	assert.Equal(t, Totals{
		ApproveCount: 2, DisputeCount: 1, ApproveStake: 20, DisputeStake: 10,
		Pool: 10, Distributed: 9, Retained: 1,
	}, e.Finalized.Totals)
}

func TestSignVerify(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := NewSigner(priv)

	body, sig, err := signer.Sign(submittedEvent())
	require.NoError(t, err)

	e, err := Verify(signer.PublicKey(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, submittedEvent(), e)

	body[len(body)-1] ^= 0xff
	_, err = Verify(signer.PublicKey(), body, sig)
	assert.ErrorIs(t, err, ErrBadSignature)
}

type failingSink struct{ err error }

func (f failingSink) Publish(context.Context, Event) error { return f.err }

func TestFanout(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	boom := errors.New("boom")
	f := Fanout{a, failingSink{boom}, b}

	err := f.Publish(context.Background(), submittedEvent())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
	assert.Equal(t, []Kind{KindReportSubmitted}, b.Kinds())

	b.Reset()
	assert.Empty(t, b.Events())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(zerolog.New(&buf))
	require.NoError(t, s.Publish(context.Background(), submittedEvent()))

	assert.Contains(t, buf.String(), `"kind":"ReportSubmitted"`)
	assert.Contains(t, buf.String(), `"seq":9`)
	assert.Contains(t, buf.String(), `"customer":"`+customer.String()+`"`)
}
