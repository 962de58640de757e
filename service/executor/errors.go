package executor

import "errors"

var (
	ErrHandlerNotFound = errors.New("handler not found")
	ErrMethodNotFound  = errors.New("method not found in handler")
)
