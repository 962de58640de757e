package invocation

import (
	"time"

	"github.com/gateflow/gateflow/internal/idgen"
	"github.com/gateflow/gateflow/model/types"
)

// Event types recorded on an invocation.
const (
	EventConfirmationRequested = "confirmationRequested"
	EventConfirmationDecided   = "confirmationDecided"
	EventOperationCompleted    = "operationCompleted"
)

// Event is an append-only lifecycle record.  A confirmationRequested event is
// the pause marker: it carries the approval ID a decision must quote, plus
// the hint and payload a reviewer needs.  Consumed is set once a decision has
// been matched against it, so the same marker is never resolved twice.
type Event struct {
	ID           string                 `json:"id"`
	InvocationID string                 `json:"invocationId"`
	Type         string                 `json:"type"`
	ApprovalID   string                 `json:"approvalId,omitempty"`
	Hint         string                 `json:"hint,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Consumed     bool                   `json:"consumed,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// NewConfirmationRequested creates the pause marker for an invocation.
func NewConfirmationRequested(invocationID, approvalID string, pause *types.Pause) *Event {
	ret := &Event{
		ID:           idgen.New(),
		InvocationID: invocationID,
		Type:         EventConfirmationRequested,
		ApprovalID:   approvalID,
		CreatedAt:    time.Now(),
	}
	if pause != nil {
		ret.Hint = pause.Hint
		ret.Payload = pause.Payload
	}
	return ret
}

// NewConfirmationDecided records the decision made for approvalID.
func NewConfirmationDecided(invocationID, approvalID string, confirmed bool) *Event {
	return &Event{
		ID:           idgen.New(),
		InvocationID: invocationID,
		Type:         EventConfirmationDecided,
		ApprovalID:   approvalID,
		Payload:      map[string]interface{}{"confirmed": confirmed},
		CreatedAt:    time.Now(),
	}
}
