package approval

import (
	"time"
)

// Event envelope published on the approval queue.
type Event struct {
	Topic   string            // see topic constants below
	Data    interface{}       // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"` // optional - tenant, correlation-id etc.
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// Request represents a request for approval
type Request struct {
	ID           string                 `json:"id"`                  // Globally unique, primary key; the approval ID a decision must quote
	InvocationID string                 `json:"invocationId"`        // Refers to invocation.ID
	OperationID  string                 `json:"operationId"`         // Refers to operation.ID
	Action       string                 `json:"action"`              // "service.method"
	Hint         string                 `json:"hint,omitempty"`      // Human-readable description of what needs approving
	Args         map[string]interface{} `json:"args,omitempty"`      // Structured arguments a reviewer needs to decide
	CreatedAt    time.Time              `json:"createdAt"`           // RFC-3339 timestamp
	ExpiresAt    *time.Time             `json:"expiresAt,omitempty"` // Optional deadline
	Meta         map[string]interface{} `json:"meta,omitempty"`      // Free-form map: tenant, user, environment, etc.
}

// Decision represents approval decision
type Decision struct {
	ID        string    `json:"id"` // same as request.ID
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedBy string    `json:"decidedBy,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
