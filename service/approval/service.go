package approval

import (
	"context"
	"errors"

	"github.com/gateflow/gateflow/service/messaging"
)

var (
	// ErrRequestNotFound is returned when a decision quotes an unknown
	// approval ID.
	ErrRequestNotFound = errors.New("approval request not found")
	// ErrAlreadyDecided is returned when a request has already been decided;
	// the first decision stands.
	ErrAlreadyDecided = errors.New("approval request already decided")
	// ErrRequestActive is returned when an invocation that already owns an
	// outstanding request asks for another one.
	ErrRequestActive = errors.New("invocation already has an outstanding approval request")
)

// Service defines the approval service interface.
type Service interface {
	RequestApproval(ctx context.Context, r *Request) error
	ListPending(ctx context.Context) ([]*Request, error)
	Decide(ctx context.Context, id string, approved bool, reason string) (*Decision, error)
	// GetDecision returns the decision for id, or nil while the request is
	// still outstanding.
	GetDecision(ctx context.Context, id string) (*Decision, error)
	Queue() messaging.Queue[Event]
}
