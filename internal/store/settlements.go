package store

import (
	"encoding/binary"
	"fmt"

	"github.com/eigerco/fraudledger/internal/record"
)

func (tx *Tx) PutSettlement(s record.Settlement) error {
	return tx.putValue(settlementKey(s.ReportID), s)
}

func (tx *Tx) Settlement(id uint64) (record.Settlement, error) {
	var s record.Settlement
	found, err := tx.getValue(settlementKey(id), &s)
	if err != nil {
		return record.Settlement{}, err
	}
	if !found {
		return record.Settlement{}, ErrSettlementNotFound
	}
	return s, nil
}

// QueuedPayout is a payout that has been decided but not yet transferred.
type QueuedPayout struct {
	Seq    uint64        `json:"seq"`
	Payout record.Payout `json:"payout"`
}

// EnqueuePayout adds a payout to the release queue.
func (tx *Tx) EnqueuePayout(p record.Payout) (uint64, error) {
	seq, err := tx.getUint64(metaKey(metaPayoutSeq))
	if err != nil {
		return 0, err
	}
	seq++
	if err := tx.putUint64(metaKey(metaPayoutSeq), seq); err != nil {
		return 0, err
	}
	if err := tx.putValue(payoutKey(seq), p); err != nil {
		return 0, err
	}
	return seq, nil
}

// PendingPayouts lists queued payouts in the order they were enqueued.
func (tx *Tx) PendingPayouts() ([]QueuedPayout, error) {
	out := []QueuedPayout{}
	err := tx.scan([]byte{prefixPayout}, func(key, value []byte) error {
		if len(key) != 9 {
			return fmt.Errorf("malformed payout key of length %d", len(key))
		}
		var p record.Payout
		if err := decMode.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("unmarshal payout: %w", err)
		}
		out = append(out, QueuedPayout{Seq: binary.BigEndian.Uint64(key[1:]), Payout: p})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *Tx) RemovePayout(seq uint64) {
	tx.del(payoutKey(seq))
}
