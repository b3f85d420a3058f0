// Package ledger is the fraud ledger engine: report submission, stake-backed
// peer validation and time-locked finalization with pro rata settlement.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eigerco/fraudledger/internal/common"
	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/events"
	"github.com/eigerco/fraudledger/internal/evidence"
	"github.com/eigerco/fraudledger/internal/ledgertime"
	"github.com/eigerco/fraudledger/internal/membership"
	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/internal/store"
	"github.com/eigerco/fraudledger/internal/vault"
)

// Params are the economic and temporal constants of the ledger.
type Params struct {
	ReporterStakeMin  uint64
	ValidatorStakeMin uint64
	LockPeriod        time.Duration
}

func DefaultParams() Params {
	return Params{
		ReporterStakeMin:  common.ReporterStakeMin,
		ValidatorStakeMin: common.ValidatorStakeMin,
		LockPeriod:        common.LockPeriod,
	}
}

func (p Params) Validate() error {
	if p.ReporterStakeMin == 0 || p.ValidatorStakeMin == 0 {
		return errors.New("stake minimums must be positive")
	}
	if p.LockPeriod < time.Second {
		return errors.New("lock period must be at least one second")
	}
	return nil
}

// Metrics is what the engine reports about itself.
type Metrics interface {
	ObserveOperation(op, result string, d time.Duration)
	ObserveFinalized(status string)
	SetPendingReports(n int)
	SetEscrow(held, retained uint64)
	ObservePayout(amount uint64)
	ObservePublishError()
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string, time.Duration) {}
func (nopMetrics) ObserveFinalized(string)                        {}
func (nopMetrics) SetPendingReports(int)                          {}
func (nopMetrics) SetEscrow(uint64, uint64)                       {}
func (nopMetrics) ObservePayout(uint64)                           {}
func (nopMetrics) ObservePublishError()                           {}

type Option func(*Engine)

func WithParams(p Params) Option {
	return func(e *Engine) { e.params = p }
}

func WithClock(c ledgertime.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithEvidenceValidator(v evidence.Validator) Option {
	return func(e *Engine) { e.evidence = v }
}

func WithSink(s events.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// publishBatch bounds how many logged events one publish pass reads.
const publishBatch = 256

// Engine owns the ledger state. State-changing operations are serialized;
// each one commits in a single store transaction or not at all. Events are
// published from the durable log after the state lock is released.
type Engine struct {
	mu       sync.RWMutex
	pubMu    sync.Mutex
	pubDirty atomic.Bool
	ledger   *store.Ledger
	members  membership.Directory
	evidence evidence.Validator
	clock    ledgertime.Clock
	params   Params
	sink     events.Sink
	metrics  Metrics
	log      zerolog.Logger
}

// New creates an engine over l. Membership is decided by members.
func New(l *store.Ledger, members membership.Directory, opts ...Option) (*Engine, error) {
	e := &Engine{
		ledger:   l,
		members:  members,
		evidence: evidence.CIDValidator{},
		clock:    ledgertime.SystemClock{},
		params:   DefaultParams(),
		sink:     events.Discard,
		metrics:  nopMetrics{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.params.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	return e, nil
}

func (e *Engine) Params() Params {
	return e.params
}

// Recover releases payouts left queued by an interrupted finalization. Call
// it once on start.
func (e *Engine) Recover(ctx context.Context) error {
	n, err := e.ReleasePayouts(ctx)
	if err != nil {
		return fmt.Errorf("recover payouts: %w", err)
	}
	if n > 0 {
		e.log.Warn().Int("payouts", n).Msg("released payouts left by an interrupted finalization")
	}
	e.refreshGauges()
	e.PublishEvents(ctx)
	return nil
}

// SubmitReport files a report against customer on behalf of caller, moving
// stake from the caller's balance into escrow. It returns the new report ID.
func (e *Engine) SubmitReport(ctx context.Context, caller, customer crypto.Address, evidenceRef string, stake uint64) (id uint64, err error) {
	defer e.observe("submit", time.Now(), &err)
	defer e.publishOnSuccess(ctx, &err)

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case !e.members.IsMember(caller):
		return 0, ErrNotAuthorized
	case customer.IsZero():
		return 0, ErrInvalidTarget
	case evidenceRef == "":
		return 0, ErrEmptyEvidenceRef
	case !e.evidence.IsValidEvidenceRef(evidenceRef):
		return 0, ErrInvalidEvidenceRef
	case stake < e.params.ReporterStakeMin:
		return 0, ErrInsufficientStake
	}

	now := e.clock.Now()
	finalizeAt, err := now.Add(e.params.LockPeriod)
	if err != nil {
		return 0, fmt.Errorf("finalization time: %w", err)
	}

	tx := e.ledger.Begin()
	defer tx.Discard()

	if err := vault.Deposit(tx, caller, stake); err != nil {
		return 0, err
	}
	id, err = tx.NextReportID()
	if err != nil {
		return 0, fmt.Errorf("assign report id: %w", err)
	}
	r := record.Report{
		ID:              id,
		Customer:        customer,
		ReportingMember: caller,
		EvidenceRef:     evidenceRef,
		SubmittedAt:     now,
		ReporterStake:   stake,
		FinalizeAt:      finalizeAt,
		Status:          record.StatusPending,
	}
	if err := tx.PutReport(r); err != nil {
		return 0, fmt.Errorf("store report: %w", err)
	}

	stats, err := tx.MemberStats(caller)
	if err != nil {
		return 0, err
	}
	stats.ReportsSubmitted++
	if err := tx.PutMemberStats(caller, stats); err != nil {
		return 0, err
	}

	if _, err := tx.AppendEvent(events.NewSubmitted(r)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit submission: %w", err)
	}

	e.log.Info().
		Uint64("report", id).
		Stringer("customer", customer).
		Stringer("reporter", caller).
		Uint64("stake", stake).
		Msg("report submitted")
	e.refreshGauges()
	return id, nil
}

// ValidateReport records caller's stake-backed vote on report id.
func (e *Engine) ValidateReport(ctx context.Context, caller crypto.Address, id uint64, vote record.Vote, stake uint64) (err error) {
	defer e.observe("validate", time.Now(), &err)
	defer e.publishOnSuccess(ctx, &err)

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := e.ledger.Begin()
	defer tx.Discard()

	r, err := tx.Report(id)
	if err != nil {
		return err
	}
	if !e.members.IsMember(caller) {
		return ErrNotAuthorized
	}
	if caller == r.ReportingMember {
		return ErrSelfValidation
	}
	voted, err := tx.HasVoted(id, caller)
	if err != nil {
		return err
	}
	if voted {
		return ErrDuplicateVote
	}
	now := e.clock.Now()
	switch {
	case !r.VotingOpen(now):
		return ErrVotingClosed
	case !vote.Valid():
		return ErrInvalidVote
	case stake < e.params.ValidatorStakeMin:
		return ErrInsufficientStake
	}

	if err := vault.Deposit(tx, caller, stake); err != nil {
		return err
	}
	v := record.Validation{
		ReportID:  id,
		Validator: caller,
		Vote:      vote,
		Stake:     stake,
		CastAt:    now,
	}
	if _, err := tx.AppendValidation(v); err != nil {
		return fmt.Errorf("store validation: %w", err)
	}

	stats, err := tx.MemberStats(caller)
	if err != nil {
		return err
	}
	stats.ValidationsMade++
	if err := tx.PutMemberStats(caller, stats); err != nil {
		return err
	}

	if _, err := tx.AppendEvent(events.NewValidated(v)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit validation: %w", err)
	}

	e.log.Info().
		Uint64("report", id).
		Stringer("validator", caller).
		Stringer("vote", vote).
		Uint64("stake", stake).
		Msg("report validated")
	e.refreshGauges()
	return nil
}

// FinalizeReport settles report id once its lock period has elapsed. Anyone
// may call it. The settlement is committed first; the payouts it owes are
// then released from escrow.
func (e *Engine) FinalizeReport(ctx context.Context, id uint64) (s record.Settlement, err error) {
	defer e.observe("finalize", time.Now(), &err)
	defer e.publishOnSuccess(ctx, &err)

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := e.ledger.Begin()
	defer tx.Discard()

	r, err := tx.Report(id)
	if err != nil {
		return record.Settlement{}, err
	}
	if r.Finalized {
		return record.Settlement{}, ErrAlreadyFinalized
	}
	now := e.clock.Now()
	if now.Before(r.FinalizeAt) {
		return record.Settlement{}, ErrLockPeriodActive
	}

	validations, err := tx.Validations(id)
	if err != nil {
		return record.Settlement{}, err
	}
	s, err = Settle(r, validations, now)
	if err != nil {
		return record.Settlement{}, fmt.Errorf("settle report %d: %w", id, err)
	}

	r.Status = s.Status
	r.Finalized = true
	if err := tx.PutReport(r); err != nil {
		return record.Settlement{}, fmt.Errorf("store report: %w", err)
	}
	if err := e.applyStats(tx, s); err != nil {
		return record.Settlement{}, err
	}
	if err := vault.Retain(tx, s.Retained); err != nil {
		return record.Settlement{}, err
	}
	for _, p := range s.Payouts {
		if _, err := tx.EnqueuePayout(p); err != nil {
			return record.Settlement{}, fmt.Errorf("queue payout: %w", err)
		}
	}
	if err := tx.PutSettlement(s); err != nil {
		return record.Settlement{}, fmt.Errorf("store settlement: %w", err)
	}
	if _, err := tx.AppendEvent(events.NewFinalized(s)); err != nil {
		return record.Settlement{}, err
	}
	if err := tx.Commit(); err != nil {
		return record.Settlement{}, fmt.Errorf("commit finalization: %w", err)
	}

	e.log.Info().
		Uint64("report", id).
		Stringer("status", s.Status).
		Uint32("approve", s.Tally.ApproveCount).
		Uint32("dispute", s.Tally.DisputeCount).
		Uint64("pool", s.Pool).
		Uint64("retained", s.Retained).
		Msg("report finalized")
	e.metrics.ObserveFinalized(s.Status.String())

	// The settlement stands even if the transfer fails here; the payouts
	// stay queued for the next release.
	if _, err := e.releasePayouts(ctx); err != nil {
		e.log.Error().Err(err).Uint64("report", id).Msg("payout release failed")
	}
	e.refreshGauges()
	return s, nil
}

// applyStats credits rewards and debits forfeited principal in member stats.
func (e *Engine) applyStats(tx *store.Tx, s record.Settlement) error {
	update := func(a crypto.Address, fn func(*record.MemberStats)) error {
		stats, err := tx.MemberStats(a)
		if err != nil {
			return err
		}
		fn(&stats)
		return tx.PutMemberStats(a, stats)
	}
	for _, p := range s.Payouts {
		if p.Reward == 0 {
			continue
		}
		if err := update(p.Recipient, func(m *record.MemberStats) { m.RewardsEarned += p.Reward }); err != nil {
			return err
		}
	}
	for _, f := range s.Forfeits {
		if err := update(f.Address, func(m *record.MemberStats) { m.StakesLost += f.Amount }); err != nil {
			return err
		}
	}
	return nil
}

// ReleasePayouts transfers every queued payout from escrow to its
// recipient and returns how many were released.
func (e *Engine) ReleasePayouts(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.releasePayouts(ctx)
}

func (e *Engine) releasePayouts(ctx context.Context) (int, error) {
	tx := e.ledger.Begin()
	defer tx.Discard()

	queued, err := tx.PendingPayouts()
	if err != nil {
		return 0, err
	}
	if len(queued) == 0 {
		return 0, nil
	}
	for _, q := range queued {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if amount := q.Payout.Amount(); amount > 0 {
			if err := vault.Disburse(tx, q.Payout.Recipient, amount); err != nil {
				return 0, fmt.Errorf("payout %d: %w", q.Seq, err)
			}
		}
		tx.RemovePayout(q.Seq)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit payouts: %w", err)
	}

	for _, q := range queued {
		e.metrics.ObservePayout(q.Payout.Amount())
		e.log.Debug().
			Uint64("report", q.Payout.ReportID).
			Stringer("recipient", q.Payout.Recipient).
			Stringer("role", q.Payout.Role).
			Uint64("principal", q.Payout.Principal).
			Uint64("reward", q.Payout.Reward).
			Msg("payout released")
	}
	return len(queued), nil
}

// publishOnSuccess is deferred ahead of the state lock so that it runs
// after the lock is released.
func (e *Engine) publishOnSuccess(ctx context.Context, err *error) {
	if *err == nil {
		e.PublishEvents(ctx)
	}
}

// PublishEvents offers every logged event past the published cursor to the
// sink, in sequence order. The cursor only moves past events the sink
// accepted, so a rejected event is offered again on the next pass. One pass
// runs at a time; a caller that finds a pass running leaves its events to it.
func (e *Engine) PublishEvents(ctx context.Context) {
	e.pubDirty.Store(true)
	for e.pubDirty.Load() && e.pubMu.TryLock() {
		e.pubDirty.Store(false)
		e.drainEvents(ctx)
		e.pubMu.Unlock()
	}
}

func (e *Engine) drainEvents(ctx context.Context) {
	for {
		var (
			published uint64
			batch     []events.Event
		)
		err := e.ledger.View(func(tx *store.Tx) error {
			var err error
			if published, err = tx.PublishedSeq(); err != nil {
				return err
			}
			batch, err = tx.EventsLimit(published+1, publishBatch)
			return err
		})
		if err != nil {
			e.log.Error().Err(err).Msg("read event log")
			return
		}
		if len(batch) == 0 {
			return
		}

		from, failed := published, false
		for _, ev := range batch {
			if err := e.sink.Publish(ctx, ev); err != nil {
				e.metrics.ObservePublishError()
				e.log.Warn().Err(err).Uint64("seq", ev.Seq).Stringer("kind", ev.Kind).Msg("event publish failed")
				failed = true
				break
			}
			published = ev.Seq
		}
		if published > from {
			err := e.ledger.Update(func(tx *store.Tx) error {
				return tx.SetPublishedSeq(published)
			})
			if err != nil {
				e.log.Error().Err(err).Uint64("seq", published).Msg("store publish cursor")
				return
			}
		}
		if failed || len(batch) < publishBatch {
			return
		}
	}
}

// RunPublisher retries publishing every interval until ctx is done, so that
// events held back by a failing sink go out without waiting for the next
// operation.
func (e *Engine) RunPublisher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.PublishEvents(ctx)
		}
	}
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	e.metrics.ObserveOperation(op, Code(*err), time.Since(start))
}

func (e *Engine) refreshGauges() {
	err := e.ledger.View(func(tx *store.Tx) error {
		pending, err := tx.PendingReportIDs()
		if err != nil {
			return err
		}
		acc, err := tx.Accounting()
		if err != nil {
			return err
		}
		e.metrics.SetPendingReports(len(pending))
		e.metrics.SetEscrow(acc.Held(), acc.Retained)
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("refresh gauges")
	}
}
