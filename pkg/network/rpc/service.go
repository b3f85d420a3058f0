package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/ledger"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/pkg/network/transport"
)

// Ledger is the engine surface exposed over RPC. *ledger.Engine implements it.
type Ledger interface {
	SubmitReport(ctx context.Context, caller, customer crypto.Address, evidenceRef string, stake uint64) (uint64, error)
	ValidateReport(ctx context.Context, caller crypto.Address, id uint64, vote record.Vote, stake uint64) error
	FinalizeReport(ctx context.Context, id uint64) (record.Settlement, error)
	GetReport(id uint64) (record.Report, error)
	ReportsForCustomer(customer crypto.Address) ([]record.Report, error)
	ReportIDsForCustomer(customer crypto.Address) ([]uint64, error)
	Validations(id uint64) ([]record.Validation, error)
	VoteCounts(id uint64) (record.Tally, error)
	ListPendingReports() ([]uint64, error)
	ListFinalizableReports() ([]uint64, error)
	CanFinalize(id uint64) (bool, error)
	FraudScore(customer crypto.Address) (uint8, error)
	MemberStats(a crypto.Address) (record.MemberStats, error)
	Balance(a crypto.Address) (uint64, error)
}

// Registry is the member registry as changed over RPC. The caller must be
// its owner. *membership.Registry implements it.
type Registry interface {
	Register(caller, a crypto.Address) error
	Remove(caller, a crypto.Address) error
}

type Metrics interface {
	ObserveRPC(method, result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRPC(string, string) {}

type handlerFunc func(ctx context.Context, caller crypto.Address, body []byte) (any, error)

// Service serves RPC streams against a Ledger. It implements
// transport.StreamHandler; the caller of every mutation is the peer
// address taken from the TLS certificate, never from the request body.
type Service struct {
	ledger   Ledger
	registry Registry
	log      zerolog.Logger
	metrics  Metrics
	handlers map[Method]handlerFunc
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// WithRegistry enables the member registration methods.
func WithRegistry(r Registry) ServiceOption {
	return func(s *Service) { s.registry = r }
}

func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(l Ledger, opts ...ServiceOption) *Service {
	s := &Service{
		ledger:  l,
		log:     zerolog.Nop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handlers = map[Method]handlerFunc{
		MethodSubmitReport:         s.submitReport,
		MethodValidateReport:       s.validateReport,
		MethodFinalizeReport:       s.finalizeReport,
		MethodGetReport:            s.getReport,
		MethodReportsForCustomer:   s.reportsForCustomer,
		MethodReportIDsForCustomer: s.reportIDsForCustomer,
		MethodValidations:          s.validations,
		MethodVoteCounts:           s.voteCounts,
		MethodListPending:          s.listPending,
		MethodListFinalizable:      s.listFinalizable,
		MethodCanFinalize:          s.canFinalize,
		MethodFraudScore:           s.fraudScore,
		MethodMemberStats:          s.memberStats,
		MethodBalance:              s.balance,
	}
	if s.registry != nil {
		s.handlers[MethodRegisterMember] = s.registerMember
		s.handlers[MethodRemoveMember] = s.removeMember
	}
	return s
}

var _ transport.StreamHandler = (*Service)(nil)

// HandleStream reads one request, dispatches it and writes the response.
func (s *Service) HandleStream(ctx context.Context, peer crypto.Address, stream quic.Stream) error {
	defer stream.Close()

	raw, err := transport.ReadMessage(ctx, stream)
	if err != nil {
		return err
	}
	resp := s.Dispatch(ctx, peer, raw)
	out, err := marshal(resp)
	if err != nil {
		return err
	}
	return transport.WriteMessage(ctx, stream, out)
}

// Dispatch decodes raw as a Request from caller and executes it.
func (s *Service) Dispatch(ctx context.Context, caller crypto.Address, raw []byte) Response {
	var req Request
	if err := unmarshal(raw, &req); err != nil {
		s.metrics.ObserveRPC("", CodeBadRequest)
		return Response{Code: CodeBadRequest, Message: err.Error()}
	}

	resp := Response{ID: req.ID}
	h, ok := s.handlers[req.Method]
	if !ok {
		resp.Code = CodeUnknownMethod
		resp.Message = string(req.Method)
		s.metrics.ObserveRPC("unknown", resp.Code)
		return resp
	}

	result, err := h(ctx, caller, req.Body)
	if err == nil {
		resp.Body, err = marshal(result)
	}
	resp.Code = codeOf(err)
	switch resp.Code {
	case ledger.CodeOK:
	case ledger.CodeInternal:
		resp.Message = err.Error()
		s.log.Error().Err(err).Str("method", string(req.Method)).Stringer("caller", caller).Msg("rpc failed")
	default:
		resp.Message = err.Error()
		s.log.Debug().Err(err).Str("method", string(req.Method)).Stringer("caller", caller).Msg("rpc rejected")
	}
	s.metrics.ObserveRPC(string(req.Method), resp.Code)
	return resp
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	default:
		return ledger.Code(err)
	}
}

func decodeBody(body []byte, v any) error {
	if err := unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (s *Service) submitReport(ctx context.Context, caller crypto.Address, body []byte) (any, error) {
	var req SubmitReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.SubmitReport(ctx, caller, req.Customer, req.EvidenceRef, req.Stake)
}

func (s *Service) validateReport(ctx context.Context, caller crypto.Address, body []byte) (any, error) {
	var req ValidateReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return nil, s.ledger.ValidateReport(ctx, caller, req.ReportID, req.Vote, req.Stake)
}

func (s *Service) finalizeReport(ctx context.Context, _ crypto.Address, body []byte) (any, error) {
	var req ReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.FinalizeReport(ctx, req.ReportID)
}

func (s *Service) getReport(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req ReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.GetReport(req.ReportID)
}

func (s *Service) reportsForCustomer(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.ReportsForCustomer(req.Address)
}

func (s *Service) reportIDsForCustomer(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.ReportIDsForCustomer(req.Address)
}

func (s *Service) validations(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req ReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.Validations(req.ReportID)
}

func (s *Service) voteCounts(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req ReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.VoteCounts(req.ReportID)
}

func (s *Service) listPending(context.Context, crypto.Address, []byte) (any, error) {
	return s.ledger.ListPendingReports()
}

func (s *Service) listFinalizable(context.Context, crypto.Address, []byte) (any, error) {
	return s.ledger.ListFinalizableReports()
}

func (s *Service) canFinalize(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req ReportRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.CanFinalize(req.ReportID)
}

func (s *Service) fraudScore(_ context.Context, _ crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return s.ledger.FraudScore(req.Address)
}

func (s *Service) memberStats(_ context.Context, caller crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	if req.Address.IsZero() {
		req.Address = caller
	}
	return s.ledger.MemberStats(req.Address)
}

// balance defaults to the caller's own account.
func (s *Service) balance(_ context.Context, caller crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	if req.Address.IsZero() {
		req.Address = caller
	}
	return s.ledger.Balance(req.Address)
}

func (s *Service) registerMember(_ context.Context, caller crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return nil, s.registry.Register(caller, req.Address)
}

func (s *Service) removeMember(_ context.Context, caller crypto.Address, body []byte) (any, error) {
	var req AddressRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return nil, s.registry.Remove(caller, req.Address)
}
