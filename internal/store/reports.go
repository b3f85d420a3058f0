package store

import (
	"encoding/binary"
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/record"
)

// ReportCounter is the highest report ID assigned so far.
func (tx *Tx) ReportCounter() (uint64, error) {
	return tx.getUint64(metaKey(metaReportCounter))
}

// NextReportID assigns the next report ID. IDs start at 1 and are dense.
func (tx *Tx) NextReportID() (uint64, error) {
	n, err := tx.ReportCounter()
	if err != nil {
		return 0, err
	}
	n++
	if n == 0 {
		return 0, fmt.Errorf("report counter exhausted")
	}
	if err := tx.putUint64(metaKey(metaReportCounter), n); err != nil {
		return 0, err
	}
	return n, nil
}

// PutReport stores a report and keeps the customer and pending indexes in
// step with it.
func (tx *Tx) PutReport(r record.Report) error {
	if err := tx.putValue(reportKey(r.ID), r); err != nil {
		return err
	}
	tx.put(customerReportKey(r.Customer, r.ID), nil)
	if r.Finalized {
		tx.del(pendingKey(r.ID))
	} else {
		tx.put(pendingKey(r.ID), nil)
	}
	tx.reports[r.ID] = r
	return nil
}

// Report fetches a report by ID.
func (tx *Tx) Report(id uint64) (record.Report, error) {
	if r, ok := tx.reports[id]; ok {
		return r, nil
	}
	if r, ok := tx.l.reports.Get(id); ok {
		return r, nil
	}

	var r record.Report
	found, err := tx.getValue(reportKey(id), &r)
	if err != nil {
		return record.Report{}, err
	}
	if !found {
		return record.Report{}, ErrReportNotFound
	}
	return r, nil
}

// CustomerReportIDs lists the IDs of every report against a customer in
// ascending order.
func (tx *Tx) CustomerReportIDs(customer crypto.Address) ([]uint64, error) {
	prefix := makeKey(prefixCustomerReport, customer[:])
	return tx.collectIDs(prefix)
}

// PendingReportIDs lists the IDs of every report not yet finalized.
func (tx *Tx) PendingReportIDs() ([]uint64, error) {
	return tx.collectIDs([]byte{prefixPending})
}

// Reports resolves a list of IDs.
func (tx *Tx) Reports(ids []uint64) ([]record.Report, error) {
	out := make([]record.Report, 0, len(ids))
	for _, id := range ids {
		r, err := tx.Report(id)
		if err != nil {
			return nil, fmt.Errorf("report %d: %w", id, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// collectIDs reads the trailing big-endian ID of every key under prefix.
func (tx *Tx) collectIDs(prefix []byte) ([]uint64, error) {
	ids := []uint64{}
	err := tx.scan(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+8 {
			return fmt.Errorf("malformed %s key of length %d", PrefixToString(key[0]), len(key))
		}
		ids = append(ids, binary.BigEndian.Uint64(key[len(prefix):]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
