package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/ledger"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/pkg/network/transport"
)

// DefaultTimeout bounds a single call when the context has no deadline.
const DefaultTimeout = 30 * time.Second

// StreamOpener is satisfied by *transport.Conn.
type StreamOpener interface {
	OpenStream(ctx context.Context) (quic.Stream, error)
}

// Client issues calls over a connection. Ledger rejections come back as the
// same sentinel errors the engine returns, so errors.Is works on them.
type Client struct {
	conn    StreamOpener
	timeout time.Duration
}

func NewClient(conn StreamOpener) *Client {
	return &Client{conn: conn, timeout: DefaultTimeout}
}

func (c *Client) call(ctx context.Context, method Method, in, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := marshal(in)
	if err != nil {
		return err
	}
	req := Request{ID: uuid.New(), Method: method, Body: body}
	raw, err := marshal(req)
	if err != nil {
		return err
	}

	stream, err := c.conn.OpenStream(ctx)
	if err != nil {
		return err
	}
	defer stream.CancelRead(0)

	if err := transport.WriteMessage(ctx, stream, raw); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("%s: close send: %w", method, err)
	}
	raw, err = transport.ReadMessage(ctx, stream)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var resp Response
	if err := unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.ID != req.ID {
		return fmt.Errorf("%s: %w", method, ErrMismatchedResponse)
	}
	if resp.Code != ledger.CodeOK {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	return unmarshal(resp.Body, out)
}

func errorFromResponse(resp Response) error {
	switch resp.Code {
	case CodeBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, resp.Message)
	case CodeUnknownMethod:
		return fmt.Errorf("%w: %s", ErrUnknownMethod, resp.Message)
	}
	if err := ledger.FromCode(resp.Code); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s: %s", ErrRemote, resp.Code, resp.Message)
}

func (c *Client) SubmitReport(ctx context.Context, customer crypto.Address, evidenceRef string, stake uint64) (uint64, error) {
	var id uint64
	err := c.call(ctx, MethodSubmitReport, SubmitReportRequest{
		Customer:    customer,
		EvidenceRef: evidenceRef,
		Stake:       stake,
	}, &id)
	return id, err
}

func (c *Client) ValidateReport(ctx context.Context, id uint64, vote record.Vote, stake uint64) error {
	return c.call(ctx, MethodValidateReport, ValidateReportRequest{ReportID: id, Vote: vote, Stake: stake}, nil)
}

func (c *Client) FinalizeReport(ctx context.Context, id uint64) (record.Settlement, error) {
	var s record.Settlement
	err := c.call(ctx, MethodFinalizeReport, ReportRequest{ReportID: id}, &s)
	return s, err
}

func (c *Client) GetReport(ctx context.Context, id uint64) (record.Report, error) {
	var r record.Report
	err := c.call(ctx, MethodGetReport, ReportRequest{ReportID: id}, &r)
	return r, err
}

func (c *Client) ReportsForCustomer(ctx context.Context, customer crypto.Address) ([]record.Report, error) {
	var reports []record.Report
	err := c.call(ctx, MethodReportsForCustomer, AddressRequest{Address: customer}, &reports)
	return reports, err
}

func (c *Client) ReportIDsForCustomer(ctx context.Context, customer crypto.Address) ([]uint64, error) {
	var ids []uint64
	err := c.call(ctx, MethodReportIDsForCustomer, AddressRequest{Address: customer}, &ids)
	return ids, err
}

func (c *Client) Validations(ctx context.Context, id uint64) ([]record.Validation, error) {
	var vals []record.Validation
	err := c.call(ctx, MethodValidations, ReportRequest{ReportID: id}, &vals)
	return vals, err
}

func (c *Client) VoteCounts(ctx context.Context, id uint64) (record.Tally, error) {
	var t record.Tally
	err := c.call(ctx, MethodVoteCounts, ReportRequest{ReportID: id}, &t)
	return t, err
}

func (c *Client) ListPending(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := c.call(ctx, MethodListPending, nil, &ids)
	return ids, err
}

func (c *Client) ListFinalizable(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := c.call(ctx, MethodListFinalizable, nil, &ids)
	return ids, err
}

func (c *Client) CanFinalize(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	err := c.call(ctx, MethodCanFinalize, ReportRequest{ReportID: id}, &ok)
	return ok, err
}

func (c *Client) FraudScore(ctx context.Context, customer crypto.Address) (uint8, error) {
	var score uint8
	err := c.call(ctx, MethodFraudScore, AddressRequest{Address: customer}, &score)
	return score, err
}

// MemberStats of a; the zero address asks for the caller's own.
func (c *Client) MemberStats(ctx context.Context, a crypto.Address) (record.MemberStats, error) {
	var st record.MemberStats
	err := c.call(ctx, MethodMemberStats, AddressRequest{Address: a}, &st)
	return st, err
}

// Balance of a; the zero address asks for the caller's own.
func (c *Client) Balance(ctx context.Context, a crypto.Address) (uint64, error) {
	var b uint64
	err := c.call(ctx, MethodBalance, AddressRequest{Address: a}, &b)
	return b, err
}

// RegisterMember accredits a. Only the registry owner may call it.
func (c *Client) RegisterMember(ctx context.Context, a crypto.Address) error {
	return c.call(ctx, MethodRegisterMember, AddressRequest{Address: a}, nil)
}

// RemoveMember revokes a. Only the registry owner may call it.
func (c *Client) RemoveMember(ctx context.Context, a crypto.Address) error {
	return c.call(ctx, MethodRemoveMember, AddressRequest{Address: a}, nil)
}
