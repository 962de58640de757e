package types

import (
	"context"
	"reflect"
)

// Signatures is a lookup-able list of operation signatures.
type Signatures []Signature

func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Signature describes a single operation: its typed input (the semantic
// arguments) and typed output (the operation result).
type Signature struct {
	Name        string
	Description string
	Input       reflect.Type
	Output      reflect.Type
}

// Executable runs one operation attempt.  The confirmation carries the human
// decision on a resumed attempt and is nil on the first one; it is passed
// explicitly rather than read from ambient context so that the coupling is
// visible in the signature.
type Executable func(ctx context.Context, input, output interface{}, confirmation *Confirmation) error
