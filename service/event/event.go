// Package event carries typed lifecycle notifications between the engine and
// host applications over the messaging queues.
package event

import "time"

// Context identifies the invocation activity an event belongs to.
type Context struct {
	InvocationID string `json:"invocationID"`
	OperationID  string `json:"operationID"`
	EventType    string `json:"eventType"`
	Service      string `json:"service"`
	Method       string `json:"method"`
	TimeTakenMs  int    `json:"timeTakenMs"`
}

// Event is a typed notification envelope.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

// NewEvent builds an event; CreatedAt is stamped on publish.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:  context,
		Metadata: make(map[string]interface{}),
		Data:     data,
	}
}
