// Package rpc carries ledger operations over transport streams. Each call is
// one stream holding a single framed CBOR request and response.
package rpc

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/record"
)

type Method string

const (
	MethodSubmitReport         Method = "SubmitReport"
	MethodValidateReport       Method = "ValidateReport"
	MethodFinalizeReport       Method = "FinalizeReport"
	MethodGetReport            Method = "GetReport"
	MethodReportsForCustomer   Method = "ReportsForCustomer"
	MethodReportIDsForCustomer Method = "ReportIDsForCustomer"
	MethodValidations          Method = "Validations"
	MethodVoteCounts           Method = "VoteCounts"
	MethodListPending          Method = "ListPending"
	MethodListFinalizable      Method = "ListFinalizable"
	MethodCanFinalize          Method = "CanFinalize"
	MethodFraudScore           Method = "FraudScore"
	MethodMemberStats          Method = "MemberStats"
	MethodBalance              Method = "Balance"
	MethodRegisterMember       Method = "RegisterMember"
	MethodRemoveMember         Method = "RemoveMember"
)

// Codes outside the ledger's own set.
const (
	CodeBadRequest    = "bad_request"
	CodeUnknownMethod = "unknown_method"
)

var (
	ErrBadRequest         = errors.New("malformed request")
	ErrUnknownMethod      = errors.New("unknown method")
	ErrRemote             = errors.New("remote error")
	ErrMismatchedResponse = errors.New("response does not match request")
)

type Request struct {
	ID     uuid.UUID       `json:"id"`
	Method Method          `json:"method"`
	Body   cbor.RawMessage `json:"body,omitempty"`
}

type Response struct {
	ID      uuid.UUID       `json:"id"`
	Code    string          `json:"code"`
	Message string          `json:"message,omitempty"`
	Body    cbor.RawMessage `json:"body,omitempty"`
}

type SubmitReportRequest struct {
	Customer    crypto.Address `json:"customer"`
	EvidenceRef string         `json:"evidenceRef"`
	Stake       uint64         `json:"stake"`
}

type ValidateReportRequest struct {
	ReportID uint64      `json:"reportId"`
	Vote     record.Vote `json:"vote"`
	Stake    uint64      `json:"stake"`
}

type ReportRequest struct {
	ReportID uint64 `json:"reportId"`
}

type AddressRequest struct {
	Address crypto.Address `json:"address"`
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

func marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

// unmarshal decodes body into v. An empty body leaves v at its zero value.
func unmarshal(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := decMode.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
