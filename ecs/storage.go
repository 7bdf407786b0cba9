package ecs

import (
	"reflect"
)

// archetypeWatcher is notified once for every archetype created after it is
// registered with a Storage. Queries use it to keep their buckets current.
type archetypeWatcher interface {
	onArchetype(a *Archetype)
	// resetArchetypes replaces the watcher's view after a restore reordered them
	resetArchetypes(all []*Archetype)
}

// Storage is the main ECS storage interface
type Storage struct {
	registry *ComponentRegistry

	entities  []entityRecord
	freeSlots []uint32
	live      int

	archetypes []*Archetype
	byMask     map[componentMask]*Archetype
	watchers   []archetypeWatcher

	singletons     map[reflect.Type]*singletonEntry
	singletonOrder []reflect.Type
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		registry:   registry,
		byMask:     make(map[componentMask]*Archetype),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
}

// Registry returns the component registry backing this storage
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

func (s *Storage) watch(w archetypeWatcher) {
	for _, existing := range s.watchers {
		if existing == w {
			return
		}
	}
	s.watchers = append(s.watchers, w)
}

func (s *Storage) archetypeFor(mask componentMask) *Archetype {
	if a, ok := s.byMask[mask]; ok {
		return a
	}

	a := newArchetype(uint32(len(s.archetypes)), mask, s.registry)
	s.archetypes = append(s.archetypes, a)
	s.byMask[mask] = a
	for _, w := range s.watchers {
		w.onArchetype(a)
	}
	return a
}

// neighbour follows (and caches) the edge from a by adding or removing id.
func (s *Storage) neighbour(a *Archetype, id componentId, add bool) *Archetype {
	key := edgeKey(id, add)
	if next, ok := a.edges.Get(key); ok {
		return next
	}

	mask := a.mask
	if add {
		mask.set(id)
	} else {
		mask.unset(id)
	}
	next := s.archetypeFor(mask)
	a.edges.Put(key, next)
	return next
}

// GetArchetype returns an archetype storage (if one exists)
func (s *Storage) GetArchetype(components ...any) *Archetype {
	var mask componentMask
	for _, comp := range components {
		info, ok := s.registry.lookup(componentType(comp))
		if !ok {
			return nil
		}
		mask.set(info.id)
	}
	return s.byMask[mask]
}

// Archetypes returns every archetype in creation order
func (s *Storage) Archetypes() []*Archetype {
	return s.archetypes
}

func (s *Storage) record(id EntityId) (*entityRecord, bool) {
	slot := id.Slot()
	if id == 0 || int(slot) >= len(s.entities) {
		return nil, false
	}
	rec := &s.entities[slot]
	if rec.generation != id.Generation() || rec.archetype == nil {
		return nil, false
	}
	return rec, true
}

func (s *Storage) allocSlot() EntityId {
	if n := len(s.freeSlots); n > 0 {
		slot := s.freeSlots[n-1]
		s.freeSlots = s.freeSlots[:n-1]
		return newEntityId(slot, s.entities[slot].generation)
	}
	slot := uint32(len(s.entities))
	s.entities = append(s.entities, entityRecord{generation: 1})
	return newEntityId(slot, 1)
}

// Spawn creates a new entity with the provided components. Components may be
// passed by value or by pointer; the stored value is always a copy.
func (s *Storage) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}

	var mask componentMask
	for _, comp := range components {
		info := s.registry.mustLookup(componentType(comp))
		if mask.has(info.id) {
			panic("duplicate component " + info.name + " in spawn")
		}
		mask.set(info.id)
	}

	archetype := s.archetypeFor(mask)
	id := s.allocSlot()
	row := archetype.alloc(id)
	for _, comp := range components {
		info, _ := s.registry.lookup(componentType(comp))
		archetype.column(info.id).Set(row, comp)
	}

	rec := &s.entities[id.Slot()]
	rec.archetype = archetype
	rec.row = row
	s.live++
	return id
}

// Delete removes all data related to the entity ID. Deleting an unknown or
// already deleted id is a no-op.
func (s *Storage) Delete(id EntityId) {
	rec, ok := s.record(id)
	if !ok {
		return
	}

	rec.archetype.release(rec.row)
	rec.archetype = nil
	rec.row = 0
	rec.generation++
	if rec.generation == 0 {
		rec.generation = 1
	}
	s.freeSlots = append(s.freeSlots, id.Slot())
	s.live--
}

// move relocates the entity to another archetype, copying every component the
// two archetypes share. The entity id is unchanged.
func (s *Storage) move(rec *entityRecord, id EntityId, to *Archetype) int {
	from, oldRow := rec.archetype, rec.row
	newRow := to.alloc(id)
	for idx, cid := range to.ids {
		if col := from.column(cid); col != nil {
			to.columns[idx].Set(newRow, col.Get(oldRow))
		}
	}
	from.release(oldRow)
	rec.archetype = to
	rec.row = newRow
	return newRow
}

// AddComponent attaches component to the entity, overwriting it when the
// entity already carries that type. Returns false for dead ids.
func (s *Storage) AddComponent(id EntityId, component any) bool {
	rec, ok := s.record(id)
	if !ok {
		return false
	}

	info := s.registry.mustLookup(componentType(component))
	if col := rec.archetype.column(info.id); col != nil {
		return col.Set(rec.row, component)
	}

	next := s.neighbour(rec.archetype, info.id, true)
	row := s.move(rec, id, next)
	return next.column(info.id).Set(row, component)
}

// RemoveComponent detaches compType from the entity. An entity left without
// components is deleted.
func (s *Storage) RemoveComponent(id EntityId, compType reflect.Type) bool {
	rec, ok := s.record(id)
	if !ok {
		return false
	}

	info, ok := s.registry.lookup(compType)
	if !ok || !rec.archetype.mask.has(info.id) {
		return false
	}

	next := s.neighbour(rec.archetype, info.id, false)
	if next.mask.empty() {
		s.Delete(id)
		return true
	}
	s.move(rec, id, next)
	return true
}

// GetComponent returns a pointer to the component (boxed as any) for the given
// entity ID and component type, or nil when either is missing
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	rec, ok := s.record(id)
	if !ok {
		return nil
	}
	return rec.archetype.component(rec.row, compType, s.registry)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	rec, ok := s.record(id)
	if !ok {
		return false
	}
	return rec.archetype.HasComponent(compType)
}

// Alive reports whether id refers to a live entity
func (s *Storage) Alive(id EntityId) bool {
	_, ok := s.record(id)
	return ok
}

// Len returns the number of live entities
func (s *Storage) Len() int {
	return s.live
}

// Reset deletes every entity. Archetypes, query buckets and singletons survive,
// and every previously issued id stops resolving.
func (s *Storage) Reset() {
	for _, a := range s.archetypes {
		a.reset()
	}
	s.freeSlots = s.freeSlots[:0]
	for slot := len(s.entities) - 1; slot >= 0; slot-- {
		rec := &s.entities[slot]
		if rec.archetype != nil {
			rec.generation++
			if rec.generation == 0 {
				rec.generation = 1
			}
		}
		rec.archetype = nil
		rec.row = 0
		s.freeSlots = append(s.freeSlots, uint32(slot))
	}
	s.live = 0
}

// componentType returns the component type of a value passed as T or *T
func componentType(comp any) reflect.Type {
	t := reflect.TypeOf(comp)
	if t == nil {
		panic("nil component")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns the entity's T, or nil when it does not carry one
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	comp, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return comp
}
