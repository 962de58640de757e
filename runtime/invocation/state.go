package invocation

// OperationState represents the current State of an operation attempt
type OperationState string

const (
	OperationStatePending   OperationState = "pending"
	OperationStateScheduled OperationState = "scheduled"
	OperationStateRunning   OperationState = "running"
	// OperationStateWaitForApproval indicates the operation paused and is
	// waiting for an explicit human decision before it can complete.
	OperationStateWaitForApproval OperationState = "waitForApproval"
	OperationStateCompleted       OperationState = "completed"
	OperationStateFailed          OperationState = "failed"
	OperationStatePaused          OperationState = "paused"
)

func (s OperationState) IsWaitForApproval() bool {
	return s == OperationStateWaitForApproval
}

// IsTerminal reports whether the operation can no longer change state.
func (s OperationState) IsTerminal() bool {
	return s == OperationStateCompleted || s == OperationStateFailed
}
