// Package broker is the resume surface of the protocol: it detects the
// outstanding checkpoint of a paused invocation, validates that a decision
// quotes the right approval ID, and applies the decision exactly once.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/dao"
)

var (
	// ErrInvocationNotFound is returned when a decision targets an unknown
	// invocation.
	ErrInvocationNotFound = errors.New("invocation not found")
	// ErrNoPendingApproval is returned when the invocation has no
	// outstanding checkpoint to resolve.
	ErrNoPendingApproval = errors.New("invocation has no pending approval")
	// ErrApprovalMismatch is returned when the quoted approval ID does not
	// match the invocation's outstanding checkpoint.
	ErrApprovalMismatch = errors.New("approval id does not match pending checkpoint")
	// ErrDuplicateDecision is returned when a redelivered decision
	// contradicts the one already recorded; the first decision stands.
	ErrDuplicateDecision = errors.New("checkpoint already decided")
	// ErrAmbiguousPause is returned when more than one checkpoint is
	// outstanding for the invocation; the broker refuses to guess.
	ErrAmbiguousPause = errors.New("invocation has more than one outstanding checkpoint")
)

// Service correlates decisions with paused invocations.
type Service struct {
	checkpoints   *correlation.Store
	invocationDAO dao.Service[string, invocation.Invocation]
	approvals     approval.Service
}

// New creates a broker over the engine's checkpoint store, invocation DAO
// and approval service.
func New(checkpoints *correlation.Store, invocationDAO dao.Service[string, invocation.Invocation], approvals approval.Service) *Service {
	return &Service{
		checkpoints:   checkpoints,
		invocationDAO: invocationDAO,
		approvals:     approvals,
	}
}

// Detect returns the outstanding checkpoint for an invocation, nil when the
// invocation is not paused.
func (s *Service) Detect(ctx context.Context, invocationID string) (*correlation.Checkpoint, error) {
	anInvocation, err := s.invocationDAO.Load(ctx, invocationID)
	if err != nil || anInvocation == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvocationNotFound, invocationID)
	}

	outstanding := s.checkpoints.ByInvocation(invocationID)
	switch len(outstanding) {
	case 0:
		return nil, nil
	case 1:
		return outstanding[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousPause, invocationID)
	}
}

// Resolve applies a decision to the invocation's outstanding checkpoint.
// The quoted approvalID must match the checkpoint; the first decision wins.
// A redelivered decision that agrees with the recorded one is a no-op that
// returns the recorded decision; a contradictory redelivery fails with
// ErrDuplicateDecision.
func (s *Service) Resolve(ctx context.Context, invocationID, approvalID string, confirmed bool, reason, decidedBy string) (*approval.Decision, error) {
	checkpoint, err := s.Detect(ctx, invocationID)
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		// The checkpoint disappears from the outstanding set once decided;
		// distinguish a redelivery from a decision that never had a pause.
		if existing := s.checkpoints.Get(approvalID); existing != nil && existing.InvocationID == invocationID {
			return s.redelivered(ctx, existing, confirmed)
		}
		return nil, fmt.Errorf("%w: %s", ErrNoPendingApproval, invocationID)
	}
	if checkpoint.ID != approvalID {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrApprovalMismatch, approvalID, checkpoint.ID)
	}
	if checkpoint.Consumed() {
		return s.redelivered(ctx, checkpoint, confirmed)
	}

	// Decide first so a failure leaves the checkpoint outstanding and
	// resolvable by a later retry.
	decision, err := s.approvals.Decide(ctx, approvalID, confirmed, reason)
	if err != nil {
		if errors.Is(err, approval.ErrAlreadyDecided) {
			return s.redelivered(ctx, checkpoint, confirmed)
		}
		return nil, err
	}
	checkpoint.Consume(confirmed, decidedBy)
	decision.DecidedBy = decidedBy
	return decision, nil
}

// redelivered resolves a decision for an already consumed checkpoint: an
// identical replay returns the recorded decision, a contradictory one is
// refused so the first decision stands.
func (s *Service) redelivered(ctx context.Context, checkpoint *correlation.Checkpoint, confirmed bool) (*approval.Decision, error) {
	recorded, _, decided := checkpoint.Decision()
	if !decided || recorded != confirmed {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDecision, checkpoint.ID)
	}
	decision, err := s.approvals.GetDecision(ctx, checkpoint.ID)
	if err != nil || decision == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDecision, checkpoint.ID)
	}
	log.Printf("duplicate decision for %s ignored, original stands", checkpoint.ID)
	return decision, nil
}

// Resume applies a decision and blocks until the resumed invocation reaches
// a terminal state, returning the final snapshot.
func (s *Service) Resume(ctx context.Context, invocationID, approvalID string, confirmed bool, reason, decidedBy string, timeout time.Duration) (*invocation.Invocation, error) {
	if _, err := s.Resolve(ctx, invocationID, approvalID, confirmed, reason, decidedBy); err != nil {
		return nil, err
	}
	return s.WaitForInvocation(ctx, invocationID, timeout)
}

// WaitForInvocation polls the invocation store until the invocation leaves
// its transitional states or the timeout elapses.
func (s *Service) WaitForInvocation(ctx context.Context, invocationID string, timeout time.Duration) (*invocation.Invocation, error) {
	deadline := time.Now().Add(timeout)
	for {
		anInvocation, err := s.invocationDAO.Load(ctx, invocationID)
		if err != nil {
			return nil, err
		}
		switch anInvocation.GetState() {
		case invocation.StateCompleted, invocation.StateFailed, invocation.StatePaused:
			return anInvocation, nil
		}
		if time.Now().After(deadline) {
			return anInvocation, fmt.Errorf("timeout waiting for invocation %q", invocationID)
		}
		select {
		case <-ctx.Done():
			return anInvocation, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
