package types

// Status is the tagged outcome of one operation attempt.  StatusPending is
// a valid outcome, not an error: it signals that the attempt paused and a
// confirmation request was emitted.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending"
)

// Terminal reports whether the status ends the operation from the caller's
// perspective.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Confirmation is the decision attached to a resumed operation attempt.
type Confirmation struct {
	ApprovalID string `json:"approvalId"`
	Confirmed  bool   `json:"confirmed"`
	DecidedBy  string `json:"decidedBy,omitempty"`
}

// Pause is populated by an operation that needs human review before it can
// complete.  Hint is the human-readable description; Payload carries the
// structured data a reviewer needs to decide.
type Pause struct {
	Hint    string                 `json:"hint"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Outcome is implemented by operation outputs so the engine can read the
// tagged result without knowing the concrete output type.
type Outcome interface {
	OperationStatus() Status
}

// Pauser is implemented by operation outputs that can request a pause; the
// engine turns a pending outcome's pause into a confirmation request.
type Pauser interface {
	PauseRequest() *Pause
}
