// Package handler provides run-time registries that allow the engine to work
// with user-defined operation handlers and their Go input/output types.
//
// The registries are normally modified through the public APIs under the
// root gateflow package, therefore most applications do not need to import
// this package directly.
package handler
