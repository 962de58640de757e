package invocation

import (
	"context"
	"reflect"
)

// Context decorates a parent context with the invocation and operation being
// dispatched, so handlers and listeners can reach them without threading
// extra parameters.
type Context struct {
	invocation *Invocation
	operation  *OperationRequest
	context.Context
}

var InvocationKey = KeyOf[*Invocation]()
var OperationKey = KeyOf[*OperationRequest]()
var ContextKey = KeyOf[*Context]()

// OperationContext returns a context scoped to the provided invocation and
// operation attempt.
func (c *Context) OperationContext(invocation *Invocation, operation *OperationRequest) *Context {
	clone := *c
	clone.invocation = invocation
	clone.operation = operation
	return &clone
}

func (c *Context) Value(key any) any {
	switch key {
	case InvocationKey:
		return c.invocation
	case OperationKey:
		return c.operation
	case ContextKey:
		return c
	}
	return c.Context.Value(key)
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		return value.(T)
	}
	var t T
	return t
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}

func NewContext(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{Context: ctx}
}
