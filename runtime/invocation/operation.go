package invocation

import (
	"fmt"
	"sync"
	"time"

	"github.com/gateflow/gateflow/internal/clock"
	"github.com/gateflow/gateflow/internal/idgen"
	"github.com/gateflow/gateflow/model/types"
)

// OperationRequest represents a single attempt at executing a guarded
// operation.  The first attempt carries no Confirmation; a resumed attempt
// carries the decision made for the matching approval request.
type OperationRequest struct {
	ID           string                 `json:"id"`
	InvocationID string                 `json:"invocationId"`
	Service      string                 `json:"service"`
	Method       string                 `json:"method"`
	State        OperationState         `json:"state"`
	Input        interface{}            `json:"input,omitempty"`
	Output       interface{}            `json:"output,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Attempts     int                    `json:"attempts,omitempty"`
	ScheduledAt  time.Time              `json:"scheduledAt"`
	StartedAt    *time.Time             `json:"startedAt,omitempty"`
	PausedAt     *time.Time             `json:"pausedAt,omitempty"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
	ApprovalID   string                 `json:"approvalId,omitempty"`
	Confirmation *types.Confirmation    `json:"confirmation,omitempty"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
	mux          sync.RWMutex           `json:"-"`
}

// NewOperationRequest creates the first attempt for a guarded operation.
func NewOperationRequest(invocationID, service, method string, input interface{}) *OperationRequest {
	return &OperationRequest{
		ID:           generateOperationID(invocationID, service, method),
		InvocationID: invocationID,
		Service:      service,
		Method:       method,
		State:        OperationStatePending,
		Input:        input,
		ScheduledAt:  clock.Now(),
	}
}

// Start marks the operation as started
func (o *OperationRequest) Start() {
	now := clock.Now()
	o.StartedAt = &now
	o.State = OperationStateRunning
}

// Complete marks the operation as completed
func (o *OperationRequest) Complete() {
	now := clock.Now()
	o.CompletedAt = &now
	o.State = OperationStateCompleted
}

// Pause marks the operation as waiting for a decision on approvalID.
func (o *OperationRequest) Pause(approvalID string) {
	now := clock.Now()
	o.PausedAt = &now
	o.ApprovalID = approvalID
	o.State = OperationStateWaitForApproval
}

// Fail marks the operation as failed
func (o *OperationRequest) Fail(err error) {
	now := clock.Now()
	o.CompletedAt = &now
	if err != nil {
		o.Error = err.Error()
	}
	o.State = OperationStateFailed
}

func (o *OperationRequest) Schedule() {
	o.ScheduledAt = clock.Now()
}

// Resume attaches a decision and rewinds the operation so it can be
// re-dispatched.  The decision is authoritative: the resumed attempt uses it
// instead of re-evaluating any approval predicate.
func (o *OperationRequest) Resume(confirmation *types.Confirmation) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.Confirmation = confirmation
	o.State = OperationStatePending
	o.PausedAt = nil
	o.ScheduledAt = clock.Now()
}

// Merge overlays non-zero fields from another attempt onto o.
func (o *OperationRequest) Merge(other *OperationRequest) {
	if other == nil || other == o {
		return
	}
	o.mux.Lock()
	other.mux.RLock()
	defer other.mux.RUnlock()
	defer o.mux.Unlock()

	if other.Output != nil {
		o.Output = other.Output
	}
	if other.State != "" {
		o.State = other.State
	}
	if other.Error != "" {
		o.Error = other.Error
	}
	if other.StartedAt != nil {
		o.StartedAt = other.StartedAt
	}
	if other.CompletedAt != nil {
		o.CompletedAt = other.CompletedAt
	}
	if other.PausedAt != nil {
		o.PausedAt = other.PausedAt
	}
	if other.ApprovalID != "" {
		o.ApprovalID = other.ApprovalID
	}
	if other.Confirmation != nil {
		o.Confirmation = other.Confirmation
	}
	if o.Meta == nil && len(other.Meta) > 0 {
		o.Meta = make(map[string]interface{})
	}
	for key, value := range other.Meta {
		o.Meta[key] = value
	}
}

// Clone creates a deep copy of the operation so that the caller can mutate it
// without affecting the original instance.  Input and Output reference
// caller-owned data and are shared.
func (o *OperationRequest) Clone() *OperationRequest {
	if o == nil {
		return nil
	}
	o.mux.RLock()
	defer o.mux.RUnlock()

	clone := *o
	clone.mux = sync.RWMutex{}

	if o.Meta != nil {
		clone.Meta = make(map[string]interface{}, len(o.Meta))
		for k, v := range o.Meta {
			clone.Meta[k] = v
		}
	}
	if o.Confirmation != nil {
		c := *o.Confirmation
		clone.Confirmation = &c
	}
	return &clone
}

// generateOperationID creates a unique ID for an operation attempt
func generateOperationID(invocationID, service, method string) string {
	return fmt.Sprintf("%s-%s.%s-%s", invocationID, service, method, idgen.New())
}
