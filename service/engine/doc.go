// Package engine consumes operation attempts from a queue, evaluates the
// approval policy, dispatches handlers and turns pending outcomes into
// checkpoints plus approval requests.  A decided operation re-enters the same
// queue with its confirmation attached.
package engine
