package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives events after the operation that produced them has been
// committed. Delivery is at least once and in sequence order; an event a
// sink rejected is offered again, so consumers deduplicate by Seq.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds lists the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LogSink writes events to a logger.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, e Event) error {
	ev := s.log.Info().
		Uint64("seq", e.Seq).
		Stringer("kind", e.Kind).
		Uint64("report", e.ReportID)

	switch {
	case e.Submitted != nil:
		ev = ev.Stringer("customer", e.Submitted.Customer).
			Stringer("reporter", e.Submitted.Reporter).
			Str("evidence", e.Submitted.EvidenceRef).
			Uint64("stake", e.Submitted.Stake)
	case e.Validated != nil:
		ev = ev.Stringer("validator", e.Validated.Validator).
			Stringer("vote", e.Validated.Vote).
			Uint64("stake", e.Validated.Stake)
	case e.Finalized != nil:
		ev = ev.Stringer("status", e.Finalized.Status).
			Uint32("approve", e.Finalized.Totals.ApproveCount).
			Uint32("dispute", e.Finalized.Totals.DisputeCount).
			Uint64("pool", e.Finalized.Totals.Pool).
			Uint64("distributed", e.Finalized.Totals.Distributed).
			Uint64("retained", e.Finalized.Totals.Retained)
	}
	ev.Msg("ledger event")
	return nil
}

// Fanout publishes every event to all of its sinks, in order. A failing
// sink does not stop delivery to the others.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
