package correlation

import (
	"sync"
	"time"
)

// Checkpoint pairs an outstanding approval request with the invocation that
// emitted it.  The checkpoint ID is the approval ID a later decision must
// quote; a decision that quotes an unknown or already consumed checkpoint is
// a correlation error, not a new pause.
type Checkpoint struct {
	ID           string
	InvocationID string
	OperationID  string
	Service      string
	Method       string

	Hint    string
	Payload map[string]interface{}

	CreatedAt time.Time
	TimeoutAt *time.Time // nil means no timeout

	mu         sync.Mutex
	consumedAt *time.Time
	confirmed  bool
	decidedBy  string
}

// Consume records the decision and returns true exactly once.  Subsequent
// calls leave the original decision intact and return false.
func (c *Checkpoint) Consume(confirmed bool, decidedBy string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumedAt != nil {
		return false
	}
	now := time.Now()
	c.consumedAt = &now
	c.confirmed = confirmed
	c.decidedBy = decidedBy
	return true
}

// Consumed reports whether a decision has already been recorded.
func (c *Checkpoint) Consumed() bool {
	c.mu.Lock()
	consumed := c.consumedAt != nil
	c.mu.Unlock()
	return consumed
}

// Decision returns the recorded decision; ok is false while the checkpoint
// is still outstanding.
func (c *Checkpoint) Decision() (confirmed bool, decidedBy string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumedAt == nil {
		return false, "", false
	}
	return c.confirmed, c.decidedBy, true
}

// TimedOut returns true if TimeoutAt is set and now past it while the
// checkpoint is still outstanding.
func (c *Checkpoint) TimedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TimeoutAt == nil {
		return false
	}
	return time.Now().After(*c.TimeoutAt) && c.consumedAt == nil
}
