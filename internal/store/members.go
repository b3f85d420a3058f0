package store

import (
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/record"
)

func (tx *Tx) MemberStats(a crypto.Address) (record.MemberStats, error) {
	var s record.MemberStats
	if _, err := tx.getValue(memberStatsKey(a), &s); err != nil {
		return record.MemberStats{}, err
	}
	return s, nil
}

func (tx *Tx) PutMemberStats(a crypto.Address, s record.MemberStats) error {
	return tx.putValue(memberStatsKey(a), s)
}

func (tx *Tx) IsMember(a crypto.Address) (bool, error) {
	return tx.has(memberKey(a))
}

func (tx *Tx) AddMember(a crypto.Address) {
	tx.put(memberKey(a), nil)
}

func (tx *Tx) RemoveMember(a crypto.Address) {
	tx.del(memberKey(a))
}

// Members lists registered members in address order.
func (tx *Tx) Members() ([]crypto.Address, error) {
	prefix := []byte{prefixMember}
	out := []crypto.Address{}
	err := tx.scan(prefix, func(key, _ []byte) error {
		if len(key) != 1+crypto.AddressSize {
			return fmt.Errorf("malformed member key of length %d", len(key))
		}
		out = append(out, crypto.Address(key[1:]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Owner is the address allowed to change the member registry. The zero
// address means no owner was set.
func (tx *Tx) Owner() (crypto.Address, error) {
	var a crypto.Address
	if _, err := tx.getValue(metaKey(metaRegistryOwner), &a); err != nil {
		return crypto.Address{}, err
	}
	return a, nil
}

func (tx *Tx) SetOwner(a crypto.Address) error {
	return tx.putValue(metaKey(metaRegistryOwner), a)
}
