package ecs

import (
	"fmt"
	"reflect"
	"unsafe"
)

const (
	maxComponentTypes = 256
	genericBlockSize  = 64
)

type componentId uint8

type componentInfo struct {
	id      componentId
	typ     reflect.Type
	name    string
	factory func() iComponentStorage
}

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage has its own registry, so independent worlds can coexist. Every
// registered type also gets a stable name used by storage snapshots.
type ComponentRegistry struct {
	infos  []componentInfo
	byType map[reflect.Type]componentId
	byName map[string]componentId
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byType: make(map[reflect.Type]componentId),
		byName: make(map[string]componentId),
	}
}

// RegisterComponent registers T under its Go type name. Registering the same
// type twice is a no-op.
func RegisterComponent[T any](r *ComponentRegistry) {
	RegisterNamedComponent[T](r, reflect.TypeFor[T]().String())
}

// RegisterNamedComponent registers T under an explicit snapshot name.
func RegisterNamedComponent[T any](r *ComponentRegistry, name string) {
	t := reflect.TypeFor[T]()
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("ecs: component " + t.String() + " cannot be a pointer, map, channel, function or interface")
	}

	if _, ok := r.byType[t]; ok {
		return
	}
	if _, ok := r.byName[name]; ok {
		panic(fmt.Sprintf("ecs: component name %q already registered", name))
	}
	if len(r.infos) >= maxComponentTypes {
		panic("ecs: too many component types")
	}

	id := componentId(len(r.infos))
	r.infos = append(r.infos, componentInfo{
		id:   id,
		typ:  t,
		name: name,
		factory: func() iComponentStorage {
			return &genericComponentStorage[T]{}
		},
	})
	r.byType[t] = id
	r.byName[name] = id
}

// Len returns the number of registered component types.
func (r *ComponentRegistry) Len() int {
	return len(r.infos)
}

func (r *ComponentRegistry) lookup(t reflect.Type) (componentInfo, bool) {
	id, ok := r.byType[t]
	if !ok {
		return componentInfo{}, false
	}
	return r.infos[id], true
}

func (r *ComponentRegistry) mustLookup(t reflect.Type) componentInfo {
	info, ok := r.lookup(t)
	if !ok {
		panic("ecs: component type " + t.String() + " not registered")
	}
	return info
}

func (r *ComponentRegistry) lookupName(name string) (componentInfo, bool) {
	id, ok := r.byName[name]
	if !ok {
		return componentInfo{}, false
	}
	return r.infos[id], true
}

// genericComponentStorage stores components of type T in fixed-size blocks.
// Blocks are allocated individually so pointers handed out by Get and Ptr stay
// valid while the column grows.
type genericComponentStorage[T any] struct {
	blocks []*[genericBlockSize]T
}

func (cs *genericComponentStorage[T]) block(row int) *[genericBlockSize]T {
	blockIdx := row / genericBlockSize
	for blockIdx >= len(cs.blocks) {
		cs.blocks = append(cs.blocks, new([genericBlockSize]T))
	}
	return cs.blocks[blockIdx]
}

func (cs *genericComponentStorage[T]) Set(row int, item any) bool {
	if row < 0 {
		return false
	}

	var value T
	if ptr, ok := item.(*T); ok {
		value = *ptr
	} else if val, ok := item.(T); ok {
		value = val
	} else {
		return false
	}

	cs.block(row)[row%genericBlockSize] = value
	return true
}

func (cs *genericComponentStorage[T]) Get(row int) any {
	if row < 0 || row/genericBlockSize >= len(cs.blocks) {
		return nil
	}
	return &cs.blocks[row/genericBlockSize][row%genericBlockSize]
}

func (cs *genericComponentStorage[T]) Ptr(row int) unsafe.Pointer {
	if row < 0 || row/genericBlockSize >= len(cs.blocks) {
		return nil
	}
	return unsafe.Pointer(&cs.blocks[row/genericBlockSize][row%genericBlockSize])
}

func (cs *genericComponentStorage[T]) Clear(row int) {
	if row < 0 || row/genericBlockSize >= len(cs.blocks) {
		return
	}
	var zero T
	cs.blocks[row/genericBlockSize][row%genericBlockSize] = zero
}
