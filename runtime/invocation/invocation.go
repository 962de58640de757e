package invocation

import (
	"context"
	"sync"
	"time"

	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/tracing"
)

// Invocation state constants
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Invocation groups the attempts of one guarded operation submission.  It is
// the unit of correlation: a paused invocation owns at most one outstanding
// approval request, and a decision resumes it under the same ID.
type Invocation struct {
	ID         string                 `json:"id"`
	SCN        int                    `json:"scn"`
	Name       string                 `json:"name"`
	State      string                 `json:"state"`
	SessionID  string                 `json:"sessionId,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	FinishedAt *time.Time             `json:"finishedAt"`
	Stack      []*OperationRequest    `json:"stack,omitempty"`
	Events     []*Event               `json:"events,omitempty"`
	Errors     map[string]string      `json:"errors,omitempty"`
	Output     map[string]interface{} `json:"output,omitempty"`
	Span       *tracing.Span          `json:"-"`
	Policy     *policy.Config         `json:"policy,omitempty"`
	mu         sync.RWMutex
}

// Wait blocks until the invocation reaches a terminal or paused state, or the
// timeout elapses.
type Wait func(ctx context.Context, timeout time.Duration) (*Output, error)

// Output is the snapshot returned to a waiting caller.
type Output struct {
	InvocationID string
	State        string
	Output       map[string]interface{}
	Errors       map[string]string
	TimeTaken    time.Duration
	Timeout      bool
}

// NewInvocation creates a new invocation
func NewInvocation(id, name, sessionID string) *Invocation {
	now := time.Now()
	return &Invocation{
		ID:        id,
		Name:      name,
		State:     StatePending,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Errors:    make(map[string]string),
		Output:    make(map[string]interface{}),
	}
}

func (p *Invocation) Push(operations ...*OperationRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stack = append(p.Stack, operations...)
}

func (p *Invocation) Remove(anOperation *OperationRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Stack) == 0 || anOperation == nil {
		return
	}
	newStack := p.Stack[:0]
	for _, op := range p.Stack {
		if op.ID != anOperation.ID {
			newStack = append(newStack, op)
		}
	}
	p.Stack = newStack
}

func (p *Invocation) Peek() *OperationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Stack) == 0 {
		return nil
	}
	return p.Stack[len(p.Stack)-1]
}

// LookupOperation returns the most recent attempt with the given ID.
func (p *Invocation) LookupOperation(id string) *OperationRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.Stack) - 1; i >= 0; i-- {
		if p.Stack[i].ID == id {
			return p.Stack[i]
		}
	}
	return nil
}

// PausedOperation returns the attempt waiting for approval, if any.
func (p *Invocation) PausedOperation() *OperationRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.Stack) - 1; i >= 0; i-- {
		if p.Stack[i].State.IsWaitForApproval() {
			return p.Stack[i]
		}
	}
	return nil
}

// AppendEvent records a lifecycle event on the invocation.
func (p *Invocation) AppendEvent(events ...*Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, events...)
}

// PendingConfirmation scans events newest-first for an unconsumed
// confirmation request.
func (p *Invocation) PendingConfirmation() *Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.Events) - 1; i >= 0; i-- {
		if p.Events[i].Type == EventConfirmationRequested && !p.Events[i].Consumed {
			return p.Events[i]
		}
	}
	return nil
}

// GetState returns the invocation state
func (p *Invocation) GetState() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.State
}

// SetState updates the invocation state
func (p *Invocation) SetState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = state
	switch state {
	case StateCompleted, StateFailed:
		now := time.Now()
		p.FinishedAt = &now
	}
	p.UpdatedAt = time.Now()
}

// CopyFrom updates exported, mutex-independent fields from src.  It
// intentionally skips the mutex as copying it would corrupt internal state.
func (p *Invocation) CopyFrom(src any) {
	other, ok := src.(*Invocation)
	if !ok || other == nil || p == other {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.SCN = other.SCN
	p.State = other.State
	p.UpdatedAt = other.UpdatedAt
	p.FinishedAt = other.FinishedAt
	p.Stack = other.Stack
	p.Events = other.Events
	p.Errors = other.Errors
	p.Output = other.Output
}

// Clone creates a deep copy of the Invocation suitable for safe concurrent
// reads/mutations outside the original store.
func (p *Invocation) Clone() *Invocation {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := &Invocation{
		ID:         p.ID,
		SCN:        p.SCN,
		Name:       p.Name,
		State:      p.State,
		SessionID:  p.SessionID,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		FinishedAt: p.FinishedAt,
		Span:       p.Span,
		Policy:     p.Policy,
	}

	if len(p.Stack) > 0 {
		out.Stack = make([]*OperationRequest, len(p.Stack))
		for i, op := range p.Stack {
			out.Stack[i] = op.Clone()
		}
	}
	if len(p.Events) > 0 {
		out.Events = append([]*Event(nil), p.Events...)
	}
	if p.Errors != nil {
		out.Errors = make(map[string]string, len(p.Errors))
		for k, v := range p.Errors {
			out.Errors[k] = v
		}
	}
	if p.Output != nil {
		out.Output = make(map[string]interface{}, len(p.Output))
		for k, v := range p.Output {
			out.Output[k] = v
		}
	}
	return out
}
