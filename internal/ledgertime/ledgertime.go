// Package ledgertime defines the second-resolution timestamps stored on the
// ledger and the clocks that produce them.
package ledgertime

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/eigerco/fraudledger/internal/safemath"
)

var now = time.Now

// Timestamp is a ledger time in whole seconds since the Unix epoch.
type Timestamp uint64

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp {
	ts, err := FromTime(now())
	if err != nil {
		return 0
	}
	return ts
}

// FromTime converts a standard time.Time to a Timestamp, truncating to the second.
func FromTime(t time.Time) (Timestamp, error) {
	if t.Unix() < 0 {
		return 0, ErrBeforeEpoch
	}
	return Timestamp(t.Unix()), nil
}

// ToTime converts a Timestamp to a UTC time.Time.
func (ts Timestamp) ToTime() time.Time {
	if ts > math.MaxInt64 {
		return time.Unix(math.MaxInt64, 0).UTC()
	}
	return time.Unix(int64(ts), 0).UTC()
}

// Add returns ts+d. Sub-second parts of d are dropped.
func (ts Timestamp) Add(d time.Duration) (Timestamp, error) {
	if d < 0 {
		secs := uint64(-d / time.Second)
		v, ok := safemath.Sub64(uint64(ts), secs)
		if !ok {
			return 0, ErrBeforeEpoch
		}
		return Timestamp(v), nil
	}
	v, ok := safemath.Add64(uint64(ts), uint64(d/time.Second))
	if !ok {
		return 0, ErrAfterMaxTime
	}
	return Timestamp(v), nil
}

// Before reports whether ts is strictly before u.
func (ts Timestamp) Before(u Timestamp) bool {
	return ts < u
}

// After reports whether ts is strictly after u.
func (ts Timestamp) After(u Timestamp) bool {
	return ts > u
}

// Sub returns the duration ts-u, saturating at the bounds of time.Duration.
func (ts Timestamp) Sub(u Timestamp) time.Duration {
	if ts >= u {
		diff := uint64(ts - u)
		if diff > uint64(math.MaxInt64/int64(time.Second)) {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(diff) * time.Second
	}
	return -u.Sub(ts)
}

func (ts Timestamp) String() string {
	return ts.ToTime().Format(time.RFC3339)
}

// MarshalJSON implements the json.Marshaler interface
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", ts.String())), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	t, err := time.Parse(`"`+time.RFC3339+`"`, string(data))
	if err != nil {
		return err
	}
	*ts, err = FromTime(t)
	return err
}

// Clock is the time source of the ledger.
type Clock interface {
	Now() Timestamp
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() Timestamp {
	return Now()
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu sync.Mutex
	ts Timestamp
}

func NewManualClock(start Timestamp) *ManualClock {
	return &ManualClock{ts: start}
}

func (c *ManualClock) Now() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}

// Set moves the clock to ts.
func (c *ManualClock) Set(ts Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts = ts
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.ts.Add(d)
	if err != nil {
		panic(err)
	}
	c.ts = next
	return c.ts
}
