// Package executor defines the interface that bridges operations enqueued by
// the engine with the backing handler implementations.  It is effectively a
// glue layer between the invocation model and the registered handlers.
package executor
