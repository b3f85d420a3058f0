// Package vault moves value between member balances and the ledger's escrow.
//
// Functions taking a *store.Tx only stage their changes; they take effect
// when the transaction commits.
package vault

import (
	"errors"
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/internal/safemath"
	"github.com/eigerco/fraudledger/internal/store"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEscrowShortfall   = errors.New("escrow holds less than the disbursement")
	ErrZeroAmount        = errors.New("amount must be positive")
)

// Deposit moves amount from the balance of from into escrow.
func Deposit(tx *store.Tx, from crypto.Address, amount uint64) error {
	if err := Debit(tx, from, amount); err != nil {
		return err
	}
	acc, err := tx.Accounting()
	if err != nil {
		return err
	}
	var ok bool
	if acc.Deposited, ok = safemath.Add64(acc.Deposited, amount); !ok {
		return fmt.Errorf("escrow deposits: %w", safemath.ErrOverflow)
	}
	return tx.PutAccounting(acc)
}

// Disburse moves amount out of escrow into the balance of to.
func Disburse(tx *store.Tx, to crypto.Address, amount uint64) error {
	acc, err := tx.Accounting()
	if err != nil {
		return err
	}
	if acc.Held() < amount {
		return fmt.Errorf("%w: held %d, requested %d", ErrEscrowShortfall, acc.Held(), amount)
	}
	acc.Disbursed += amount
	if err := tx.PutAccounting(acc); err != nil {
		return err
	}
	return Credit(tx, to, amount)
}

// Retain records value that stays in escrow for good.
func Retain(tx *store.Tx, amount uint64) error {
	acc, err := tx.Accounting()
	if err != nil {
		return err
	}
	var ok bool
	if acc.Retained, ok = safemath.Add64(acc.Retained, amount); !ok {
		return fmt.Errorf("escrow retained: %w", safemath.ErrOverflow)
	}
	if acc.Retained > acc.Held() {
		return fmt.Errorf("%w: retaining %d of %d held", ErrEscrowShortfall, acc.Retained, acc.Held())
	}
	return tx.PutAccounting(acc)
}

// Debit lowers a balance, failing with ErrInsufficientFunds if it would go
// negative.
func Debit(tx *store.Tx, a crypto.Address, amount uint64) error {
	bal, err := tx.Balance(a)
	if err != nil {
		return err
	}
	rest, ok := safemath.Sub64(bal, amount)
	if !ok {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, bal, amount)
	}
	return tx.SetBalance(a, rest)
}

// Credit raises a balance.
func Credit(tx *store.Tx, a crypto.Address, amount uint64) error {
	bal, err := tx.Balance(a)
	if err != nil {
		return err
	}
	sum, ok := safemath.Add64(bal, amount)
	if !ok {
		return fmt.Errorf("balance of %s: %w", a, safemath.ErrOverflow)
	}
	return tx.SetBalance(a, sum)
}

// Vault is the committed view of balances and escrow.
type Vault struct {
	ledger *store.Ledger
}

func New(l *store.Ledger) *Vault {
	return &Vault{ledger: l}
}

// Fund credits new value to an address outside of escrow. It commits its
// own transaction and must not run concurrently with an engine on the same
// ledger; genesis balances go through config.Genesis instead.
func (v *Vault) Fund(a crypto.Address, amount uint64) error {
	if a.IsZero() {
		return fmt.Errorf("fund: %w", crypto.ErrInvalidAddress)
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	return v.ledger.Update(func(tx *store.Tx) error {
		return Credit(tx, a, amount)
	})
}

func (v *Vault) Balance(a crypto.Address) (uint64, error) {
	var bal uint64
	err := v.ledger.View(func(tx *store.Tx) error {
		var err error
		bal, err = tx.Balance(a)
		return err
	})
	return bal, err
}

func (v *Vault) Accounting() (record.Accounting, error) {
	var acc record.Accounting
	err := v.ledger.View(func(tx *store.Tx) error {
		var err error
		acc, err = tx.Accounting()
		return err
	})
	return acc, err
}
