package ledger

import (
	"errors"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/events"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/internal/store"
)

func (e *Engine) view(fn func(tx *store.Tx) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.View(fn)
}

// GetReport returns report id, or ErrReportNotFound.
func (e *Engine) GetReport(id uint64) (record.Report, error) {
	var r record.Report
	err := e.view(func(tx *store.Tx) error {
		var err error
		r, err = tx.Report(id)
		return err
	})
	return r, err
}

func (e *Engine) ReportIDsForCustomer(customer crypto.Address) ([]uint64, error) {
	var ids []uint64
	err := e.view(func(tx *store.Tx) error {
		var err error
		ids, err = tx.CustomerReportIDs(customer)
		return err
	})
	return ids, err
}

// ReportsForCustomer returns every report against customer, oldest first.
func (e *Engine) ReportsForCustomer(customer crypto.Address) ([]record.Report, error) {
	var reports []record.Report
	err := e.view(func(tx *store.Tx) error {
		ids, err := tx.CustomerReportIDs(customer)
		if err != nil {
			return err
		}
		reports, err = tx.Reports(ids)
		return err
	})
	return reports, err
}

func (e *Engine) ReportCountForCustomer(customer crypto.Address) (int, error) {
	ids, err := e.ReportIDsForCustomer(customer)
	return len(ids), err
}

// Validations lists the votes on a report in the order they were cast.
func (e *Engine) Validations(id uint64) ([]record.Validation, error) {
	var vals []record.Validation
	err := e.view(func(tx *store.Tx) error {
		if _, err := tx.Report(id); err != nil {
			return err
		}
		var err error
		vals, err = tx.Validations(id)
		return err
	})
	return vals, err
}

// VoteCounts returns the running tally of report id.
func (e *Engine) VoteCounts(id uint64) (record.Tally, error) {
	var t record.Tally
	err := e.view(func(tx *store.Tx) error {
		if _, err := tx.Report(id); err != nil {
			return err
		}
		var err error
		t, err = tx.Tally(id)
		return err
	})
	return t, err
}

func (e *Engine) HasVoted(id uint64, validator crypto.Address) (bool, error) {
	var voted bool
	err := e.view(func(tx *store.Tx) error {
		var err error
		voted, err = tx.HasVoted(id, validator)
		return err
	})
	return voted, err
}

// ListPendingReports returns the IDs of reports not yet finalized.
func (e *Engine) ListPendingReports() ([]uint64, error) {
	var ids []uint64
	err := e.view(func(tx *store.Tx) error {
		var err error
		ids, err = tx.PendingReportIDs()
		return err
	})
	return ids, err
}

// ListFinalizableReports returns the IDs of pending reports whose lock
// period has elapsed.
func (e *Engine) ListFinalizableReports() ([]uint64, error) {
	now := e.clock.Now()
	ids := []uint64{}
	err := e.view(func(tx *store.Tx) error {
		pending, err := tx.PendingReportIDs()
		if err != nil {
			return err
		}
		reports, err := tx.Reports(pending)
		if err != nil {
			return err
		}
		for _, r := range reports {
			if r.Finalizable(now) {
				ids = append(ids, r.ID)
			}
		}
		return nil
	})
	return ids, err
}

// CanFinalize reports whether FinalizeReport(id) would succeed now, that
// is whether id is among ListFinalizableReports. Unknown IDs are not
// finalizable.
func (e *Engine) CanFinalize(id uint64) (bool, error) {
	r, err := e.GetReport(id)
	if errors.Is(err, ErrReportNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Finalizable(e.clock.Now()), nil
}

// FraudScore rates customer from 100 (no reports) down to 0.
func (e *Engine) FraudScore(customer crypto.Address) (uint8, error) {
	reports, err := e.ReportsForCustomer(customer)
	if err != nil {
		return 0, err
	}
	return fraudScore(reports), nil
}

func (e *Engine) MemberStats(a crypto.Address) (record.MemberStats, error) {
	var s record.MemberStats
	err := e.view(func(tx *store.Tx) error {
		var err error
		s, err = tx.MemberStats(a)
		return err
	})
	return s, err
}

// ReportCounter is the number of reports ever submitted.
func (e *Engine) ReportCounter() (uint64, error) {
	var n uint64
	err := e.view(func(tx *store.Tx) error {
		var err error
		n, err = tx.ReportCounter()
		return err
	})
	return n, err
}

// Settlement returns how report id was settled. Pending reports yield
// store.ErrSettlementNotFound.
func (e *Engine) Settlement(id uint64) (record.Settlement, error) {
	var s record.Settlement
	err := e.view(func(tx *store.Tx) error {
		if _, err := tx.Report(id); err != nil {
			return err
		}
		var err error
		s, err = tx.Settlement(id)
		return err
	})
	return s, err
}

// Accounting returns the escrow counters.
func (e *Engine) Accounting() (record.Accounting, error) {
	var acc record.Accounting
	err := e.view(func(tx *store.Tx) error {
		var err error
		acc, err = tx.Accounting()
		return err
	})
	return acc, err
}

func (e *Engine) Balance(a crypto.Address) (uint64, error) {
	var bal uint64
	err := e.view(func(tx *store.Tx) error {
		var err error
		bal, err = tx.Balance(a)
		return err
	})
	return bal, err
}

// PendingPayouts lists payouts decided but not yet released.
func (e *Engine) PendingPayouts() ([]store.QueuedPayout, error) {
	var queued []store.QueuedPayout
	err := e.view(func(tx *store.Tx) error {
		var err error
		queued, err = tx.PendingPayouts()
		return err
	})
	return queued, err
}

// Events replays the durable event log from sequence number from.
func (e *Engine) Events(from uint64) ([]events.Event, error) {
	var evs []events.Event
	err := e.view(func(tx *store.Tx) error {
		var err error
		evs, err = tx.Events(from)
		return err
	})
	return evs, err
}
