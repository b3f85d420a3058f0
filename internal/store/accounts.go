package store

import (
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/record"
)

// Balance is the spendable value of an address.
func (tx *Tx) Balance(a crypto.Address) (uint64, error) {
	return tx.getUint64(balanceKey(a))
}

func (tx *Tx) SetBalance(a crypto.Address, v uint64) error {
	if v == 0 {
		tx.del(balanceKey(a))
		return nil
	}
	return tx.putUint64(balanceKey(a), v)
}

// Balances returns every non-zero balance.
func (tx *Tx) Balances() (map[crypto.Address]uint64, error) {
	out := make(map[crypto.Address]uint64)
	err := tx.scan([]byte{prefixBalance}, func(key, value []byte) error {
		if len(key) != 1+crypto.AddressSize {
			return fmt.Errorf("malformed balance key of length %d", len(key))
		}
		var v uint64
		if err := decMode.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("unmarshal balance: %w", err)
		}
		out[crypto.Address(key[1:])] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Accounting returns the escrow counters.
func (tx *Tx) Accounting() (record.Accounting, error) {
	var a record.Accounting
	if _, err := tx.getValue(metaKey(metaAccounting), &a); err != nil {
		return record.Accounting{}, err
	}
	return a, nil
}

func (tx *Tx) PutAccounting(a record.Accounting) error {
	return tx.putValue(metaKey(metaAccounting), a)
}
