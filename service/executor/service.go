package executor

// Package executor implements operation dispatch. The service invokes
// registered handlers, converts raw inputs into the handler's typed input
// and, after the user-supplied method runs, calls an optional listener that
// can observe the data that flew through the operation.

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/viant/structology/conv"

	"github.com/gateflow/gateflow/handler"
	"github.com/gateflow/gateflow/runtime/invocation"
)

// Listener is invoked once an operation completes (regardless of whether it
// returned an error or not). Implementations can log, collect metrics or
// perform any other side-effects they require.
type Listener func(service, method string, input, output interface{})

// StdoutListener serialises the operation input and output into JSON and
// prints them to standard output.  Errors from json.Marshal are ignored on
// purpose; they indicate non-serialisable values.
func StdoutListener(service, method string, input, output interface{}) {
	fmt.Printf("%s.%s\n", service, method)
	if input != nil {
		in, _ := json.Marshal(input)
		fmt.Println(string(in))
	}
	if output != nil {
		out, _ := json.Marshal(output)
		fmt.Println(string(out))
	}
}

// Option is used to customise the executor instance.
type Option func(*service)

// WithListener overrides the listener invoked after every executed
// operation. Passing nil disables the callback entirely.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// Service represents an operation executor.
type Service interface {
	Execute(ctx context.Context, operation *invocation.OperationRequest, anInvocation *invocation.Invocation) error
}

// service is the concrete implementation of Service.
type service struct {
	registry  *handler.Registry
	converter *conv.Converter
	listener  Listener
}

// Execute dispatches an operation attempt to its registered handler.
func (s *service) Execute(ctx context.Context, operation *invocation.OperationRequest, anInvocation *invocation.Invocation) error {
	aHandler := s.registry.Lookup(operation.Service)
	if aHandler == nil {
		return fmt.Errorf("handler %v not found", operation.Service)
	}
	if operation.Method == "" {
		return fmt.Errorf("method not found for handler %v", operation.Service)
	}

	method, err := aHandler.Method(operation.Method)
	if err != nil {
		return fmt.Errorf("failed to find method %v for handler %v: %w", operation.Method, operation.Service, err)
	}

	signature := aHandler.Methods().Lookup(operation.Method)
	if signature == nil {
		return fmt.Errorf("failed to find signature %v for handler %v", operation.Method, operation.Service)
	}

	output := newInstancePtr(signature.Output)
	input := newInstancePtr(signature.Input)
	if operation.Input != nil {
		if err = s.converter.Convert(operation.Input, input); err != nil {
			return fmt.Errorf("failed to convert input for %v.%v: %w", operation.Service, operation.Method, err)
		}
	}
	operation.Input = input

	// Invoke the user-defined method with the decision attached to this
	// attempt (nil on the first attempt).
	if err = method(ctx, input, output, operation.Confirmation); err != nil {
		return err
	}

	if s.listener != nil {
		s.listener(operation.Service, operation.Method, input, output)
	}

	operation.Output = output
	return nil
}

// newInstancePtr creates a new instance pointer of the given type
func newInstancePtr(t reflect.Type) interface{} {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

// NewService creates a new executor service instance.
func NewService(registry *handler.Registry, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &service{
		registry:  registry,
		converter: conv.NewConverter(options),
	}

	for _, o := range opts {
		o(s)
	}

	return s
}
