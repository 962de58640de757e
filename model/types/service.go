package types

// Service groups a set of related operations under one name (for example
// "shipping").  The engine looks operations up as "service.method".
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}
