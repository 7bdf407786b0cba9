package ecs

import (
	"reflect"

	"github.com/kamstrup/intmap"
)

// Archetype represents a unique combination of component types. Rows are
// reused through a free list, so a deleted entity leaves a hole that the next
// spawn into the archetype fills.
type Archetype struct {
	id      uint32
	mask    componentMask
	ids     []componentId
	types   []reflect.Type
	names   []string
	columns []iComponentStorage
	index   [maxComponentTypes]int16

	rows []EntityId
	free []int
	live int

	// edges caches the archetype reached by adding or removing one component
	edges *intmap.Map[uint32, *Archetype]
}

func newArchetype(id uint32, mask componentMask, registry *ComponentRegistry) *Archetype {
	a := &Archetype{
		id:    id,
		mask:  mask,
		ids:   mask.ids(),
		edges: intmap.New[uint32, *Archetype](8),
	}
	for i := range a.index {
		a.index[i] = -1
	}

	a.types = make([]reflect.Type, len(a.ids))
	a.names = make([]string, len(a.ids))
	a.columns = make([]iComponentStorage, len(a.ids))
	for idx, cid := range a.ids {
		info := registry.infos[cid]
		a.types[idx] = info.typ
		a.names[idx] = info.name
		a.columns[idx] = info.factory()
		a.index[cid] = int16(idx)
	}

	return a
}

func edgeKey(id componentId, add bool) uint32 {
	key := uint32(id) << 1
	if add {
		key |= 1
	}
	return key
}

// alloc reserves a row for entity, preferring the most recently freed one.
func (a *Archetype) alloc(entity EntityId) int {
	var row int
	if n := len(a.free); n > 0 {
		row = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		row = len(a.rows)
		a.rows = append(a.rows, 0)
	}
	a.place(row, entity)
	return row
}

// place stores entity at row, extending the row table with holes if needed.
func (a *Archetype) place(row int, entity EntityId) {
	for row >= len(a.rows) {
		a.rows = append(a.rows, 0)
	}
	a.rows[row] = entity
	a.live++
}

// release clears row and pushes it onto the free list.
func (a *Archetype) release(row int) {
	if row < 0 || row >= len(a.rows) || a.rows[row] == 0 {
		return
	}
	for _, col := range a.columns {
		col.Clear(row)
	}
	a.rows[row] = 0
	a.free = append(a.free, row)
	a.live--
}

func (a *Archetype) reset() {
	for row, entity := range a.rows {
		if entity == 0 {
			continue
		}
		for _, col := range a.columns {
			col.Clear(row)
		}
	}
	a.rows = a.rows[:0]
	a.free = a.free[:0]
	a.live = 0
}

func (a *Archetype) column(id componentId) iComponentStorage {
	idx := a.index[id]
	if idx < 0 {
		return nil
	}
	return a.columns[idx]
}

// component returns a *T for row boxed as any, or nil when the archetype does
// not carry compType.
func (a *Archetype) component(row int, compType reflect.Type, registry *ComponentRegistry) any {
	info, ok := registry.lookup(compType)
	if !ok {
		return nil
	}
	col := a.column(info.id)
	if col == nil {
		return nil
	}
	return col.Get(row)
}

// HasComponent checks if this archetype has the given component type
func (a *Archetype) HasComponent(compType reflect.Type) bool {
	for _, typ := range a.types {
		if typ == compType {
			return true
		}
	}
	return false
}

// ID returns the archetype's creation order within its storage
func (a *Archetype) ID() uint32 {
	return a.id
}

// Types returns the component types of this archetype ordered by registration
func (a *Archetype) Types() []reflect.Type {
	return a.types
}

// Len returns the number of live entities in the archetype
func (a *Archetype) Len() int {
	return a.live
}

// Iter yields live entities in row order.
func (a *Archetype) Iter() func(yield func(EntityId) bool) {
	return func(yield func(EntityId) bool) {
		for _, entity := range a.rows {
			if entity == 0 {
				continue
			}
			if !yield(entity) {
				return
			}
		}
	}
}
