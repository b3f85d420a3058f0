package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/membership"
	"github.com/eigerco/fraudledger/internal/store"
	"github.com/eigerco/fraudledger/internal/vault"
)

// Genesis is the initial state of a ledger: who may change the registry,
// the founding members and their starting balances.
type Genesis struct {
	Owner    crypto.Address            `json:"owner"`
	Members  []crypto.Address          `json:"members"`
	Balances map[crypto.Address]uint64 `json:"balances"`
}

func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Genesis{}, err
	}
	return g, nil
}

func (g Genesis) Validate() error {
	if g.Owner.IsZero() {
		return fmt.Errorf("%w: genesis owner is required", ErrInvalidConfig)
	}
	seen := make(map[crypto.Address]bool, len(g.Members))
	for _, m := range g.Members {
		if m.IsZero() {
			return fmt.Errorf("%w: genesis member is the zero address", ErrInvalidConfig)
		}
		if seen[m] {
			return fmt.Errorf("%w: genesis member %s listed twice", ErrInvalidConfig, m)
		}
		seen[m] = true
	}
	for a := range g.Balances {
		if a.IsZero() {
			return fmt.Errorf("%w: genesis balance for the zero address", ErrInvalidConfig)
		}
	}
	return nil
}

// Apply writes the owner, the members and the balances of g in one
// transaction. It reports false, and changes nothing, when the registry was
// already bootstrapped.
func (g Genesis) Apply(l *store.Ledger) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}
	err := l.Update(func(tx *store.Tx) error {
		if err := membership.Bootstrap(tx, g.Owner, g.Members...); err != nil {
			return err
		}
		for a, amount := range g.Balances {
			if amount == 0 {
				continue
			}
			if err := vault.Credit(tx, a, amount); err != nil {
				return fmt.Errorf("fund %s: %w", a, err)
			}
		}
		return nil
	})
	if errors.Is(err, membership.ErrOwnerSet) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("apply genesis: %w", err)
	}
	return true, nil
}
