// Package membership holds the set of accredited members allowed to report
// and validate.
package membership

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/store"
)

var (
	ErrNotOwner      = errors.New("caller is not the registry owner")
	ErrAlreadyMember = errors.New("address is already a member")
	ErrNotMember     = errors.New("address is not a member")
	ErrZeroAddress   = errors.New("zero address")
	ErrOwnerSet      = errors.New("registry owner already set")
)

// Directory answers whether an address is an accredited member.
type Directory interface {
	IsMember(a crypto.Address) bool
}

// Static is a fixed in-memory Directory.
type Static map[crypto.Address]struct{}

func NewStatic(members ...crypto.Address) Static {
	s := make(Static, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s Static) IsMember(a crypto.Address) bool {
	_, ok := s[a]
	return ok
}

// Registry is the persistent Directory. Only its owner may change it.
type Registry struct {
	ledger *store.Ledger
	log    zerolog.Logger
	mu     sync.Mutex
}

var _ Directory = (*Registry)(nil)

func NewRegistry(l *store.Ledger, log zerolog.Logger) *Registry {
	return &Registry{ledger: l, log: log}
}

// Bootstrap sets the owner and the initial members of an empty registry.
// It fails with ErrOwnerSet once an owner exists.
func (r *Registry) Bootstrap(owner crypto.Address, members ...crypto.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ledger.Update(func(tx *store.Tx) error {
		return Bootstrap(tx, owner, members...)
	})
}

// Bootstrap stages the owner and initial members in tx, so that they can
// commit together with other initial state.
func Bootstrap(tx *store.Tx, owner crypto.Address, members ...crypto.Address) error {
	if owner.IsZero() {
		return ErrZeroAddress
	}
	current, err := tx.Owner()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return ErrOwnerSet
	}
	if err := tx.SetOwner(owner); err != nil {
		return err
	}
	for _, m := range members {
		if m.IsZero() {
			return ErrZeroAddress
		}
		tx.AddMember(m)
	}
	return nil
}

func (r *Registry) Owner() (crypto.Address, error) {
	var owner crypto.Address
	err := r.ledger.View(func(tx *store.Tx) error {
		var err error
		owner, err = tx.Owner()
		return err
	})
	return owner, err
}

// Register adds a member.
func (r *Registry) Register(caller, a crypto.Address) error {
	return r.change(caller, a, func(tx *store.Tx, isMember bool) error {
		if isMember {
			return ErrAlreadyMember
		}
		tx.AddMember(a)
		return nil
	})
}

// Remove revokes a member. Its open reports and votes are unaffected.
func (r *Registry) Remove(caller, a crypto.Address) error {
	return r.change(caller, a, func(tx *store.Tx, isMember bool) error {
		if !isMember {
			return ErrNotMember
		}
		tx.RemoveMember(a)
		return nil
	})
}

func (r *Registry) change(caller, a crypto.Address, apply func(tx *store.Tx, isMember bool) error) error {
	if a.IsZero() {
		return ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.ledger.Update(func(tx *store.Tx) error {
		owner, err := tx.Owner()
		if err != nil {
			return err
		}
		if owner.IsZero() || caller != owner {
			return ErrNotOwner
		}
		isMember, err := tx.IsMember(a)
		if err != nil {
			return err
		}
		return apply(tx, isMember)
	})
	if err != nil {
		return err
	}
	r.log.Info().Stringer("member", a).Msg("registry updated")
	return nil
}

// IsMember reports membership. A storage failure counts as not a member.
func (r *Registry) IsMember(a crypto.Address) bool {
	var ok bool
	err := r.ledger.View(func(tx *store.Tx) error {
		var err error
		ok, err = tx.IsMember(a)
		return err
	})
	if err != nil {
		r.log.Error().Err(err).Stringer("address", a).Msg("membership lookup failed")
		return false
	}
	return ok
}

func (r *Registry) Members() ([]crypto.Address, error) {
	var members []crypto.Address
	err := r.ledger.View(func(tx *store.Tx) error {
		var err error
		members, err = tx.Members()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
