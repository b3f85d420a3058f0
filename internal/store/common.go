package store

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"

	"github.com/eigerco/fraudledger/internal/crypto"
)

// Prefix constants for all store types
const (
	prefixMeta byte = iota + 1
	prefixReport
	prefixTally
	prefixValidation
	prefixVote
	prefixCustomerReport
	prefixPending
	prefixMemberStats
	prefixMember
	prefixBalance
	prefixSettlement
	prefixPayout
	prefixEvent
)

// Keys under prefixMeta
const (
	metaReportCounter byte = iota + 1
	metaEventSeq
	metaPayoutSeq
	metaAccounting
	metaRegistryOwner
	metaPublishedSeq
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixMeta:
		return "meta"
	case prefixReport:
		return "report"
	case prefixTally:
		return "tally"
	case prefixValidation:
		return "validation"
	case prefixVote:
		return "vote"
	case prefixCustomerReport:
		return "customerReport"
	case prefixPending:
		return "pending"
	case prefixMemberStats:
		return "memberStats"
	case prefixMember:
		return "member"
	case prefixBalance:
		return "balance"
	case prefixSettlement:
		return "settlement"
	case prefixPayout:
		return "payout"
	case prefixEvent:
		return "event"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and its parts
func makeKey(prefix byte, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 1, n)
	key[0] = prefix
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// u64 encodes big-endian so that keys sort numerically.
func u64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func metaKey(k byte) []byte {
	return []byte{prefixMeta, k}
}

func reportKey(id uint64) []byte {
	return makeKey(prefixReport, u64(id))
}

func tallyKey(id uint64) []byte {
	return makeKey(prefixTally, u64(id))
}

func settlementKey(id uint64) []byte {
	return makeKey(prefixSettlement, u64(id))
}

func pendingKey(id uint64) []byte {
	return makeKey(prefixPending, u64(id))
}

func payoutKey(seq uint64) []byte {
	return makeKey(prefixPayout, u64(seq))
}

func eventKey(seq uint64) []byte {
	return makeKey(prefixEvent, u64(seq))
}

func memberKey(a crypto.Address) []byte {
	return makeKey(prefixMember, a[:])
}

func balanceKey(a crypto.Address) []byte {
	return makeKey(prefixBalance, a[:])
}

func memberStatsKey(a crypto.Address) []byte {
	return makeKey(prefixMemberStats, a[:])
}

// validationKey orders a report's validations by submission.
func validationKey(id uint64, seq uint32) []byte {
	return makeKey(prefixValidation, u64(id), u32(seq))
}

func voteKey(id uint64, a crypto.Address) []byte {
	return makeKey(prefixVote, u64(id), a[:])
}

func customerReportKey(a crypto.Address, id uint64) []byte {
	return makeKey(prefixCustomerReport, a[:], u64(id))
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
