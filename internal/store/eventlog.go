package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/fraudledger/internal/events"
)

// LastEventSeq is the sequence number of the newest event, 0 if none.
func (tx *Tx) LastEventSeq() (uint64, error) {
	return tx.getUint64(metaKey(metaEventSeq))
}

// AppendEvent assigns the next sequence number to e and adds it to the log.
func (tx *Tx) AppendEvent(e events.Event) (events.Event, error) {
	seq, err := tx.LastEventSeq()
	if err != nil {
		return events.Event{}, err
	}
	seq++
	e.Seq = seq

	data, err := events.Marshal(e)
	if err != nil {
		return events.Event{}, fmt.Errorf("marshal event: %w", err)
	}
	if err := tx.putUint64(metaKey(metaEventSeq), seq); err != nil {
		return events.Event{}, err
	}
	tx.put(eventKey(seq), data)
	return e, nil
}

var errScanLimit = errors.New("scan limit reached")

// Events returns the log from sequence number from onwards.
func (tx *Tx) Events(from uint64) ([]events.Event, error) {
	return tx.EventsLimit(from, 0)
}

// EventsLimit is Events capped at limit entries. A limit of 0 means no cap.
func (tx *Tx) EventsLimit(from uint64, limit int) ([]events.Event, error) {
	out := []events.Event{}
	end := []byte{prefixEvent + 1}
	err := tx.scanRange(eventKey(from), end, func(_, value []byte) error {
		e, err := events.Unmarshal(value)
		if err != nil {
			return err
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			return errScanLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errScanLimit) {
		return nil, err
	}
	return out, nil
}

// PublishedSeq is the sequence number of the newest event every sink has
// accepted, 0 if none.
func (tx *Tx) PublishedSeq() (uint64, error) {
	return tx.getUint64(metaKey(metaPublishedSeq))
}

func (tx *Tx) SetPublishedSeq(seq uint64) error {
	return tx.putUint64(metaKey(metaPublishedSeq), seq)
}
