package handler

import (
	"sync"

	"github.com/viant/x"

	"github.com/gateflow/gateflow/model/types"
)

// DataTypeIniter lets a handler register its custom Go types when added to
// the registry.
type DataTypeIniter interface {
	InitTypes(types *Types)
}

// Registry provides named operation handlers
type Registry struct {
	types    *Types
	services map[string]types.Service
	mux      sync.RWMutex
}

func (r *Registry) Types() *Types {
	return r.types
}

// Lookup returns a handler by name
func (r *Registry) Lookup(name string) types.Service {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.services[name]
}

// Register registers a handler
func (r *Registry) Register(service types.Service) {
	r.mux.Lock()
	defer r.mux.Unlock()

	if typer, ok := service.(DataTypeIniter); ok {
		typer.InitTypes(r.types)
	}
	r.services[service.Name()] = service
}

// New creates a new handler registry
func New(goTypes ...*x.Type) *Registry {
	ret := &Registry{
		types:    NewTypes(),
		services: make(map[string]types.Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
