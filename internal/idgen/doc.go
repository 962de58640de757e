// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Callers must treat the produced identifiers as opaque strings and not rely
// on their format.
package idgen
