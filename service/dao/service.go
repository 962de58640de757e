package dao

import (
	"context"
)

// Service abstracts persistence of engine entities keyed by a comparable
// identifier. Implementations range from in-memory maps to file system or
// database backed stores; callers must not assume any particular backend.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
