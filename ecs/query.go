package ecs

import (
	"iter"
)

// Query wraps a View with a bucket of matching archetypes. The bucket is filled
// once at Init and then extended by the Storage whenever a new archetype is
// created, so Execute only walks archetypes that can match.
type Query[T any] struct {
	view       *View[T]
	storage    *Storage
	archetypes []*Archetype

	ids      []EntityId
	items    []T
	executed bool
}

// NewQuery creates a new Query bound to storage.
func NewQuery[T any](storage *Storage) *Query[T] {
	q := &Query[T]{}
	q.Init(storage)
	return q
}

// Init initializes or re-initializes the Query with a storage.
// Called by the Scheduler during system registration.
func (q *Query[T]) Init(storage *Storage) {
	q.view = NewView[T](storage)
	q.storage = storage
	q.executed = false
	q.resetArchetypes(storage.archetypes)
	storage.watch(q)
}

func (q *Query[T]) resetArchetypes(all []*Archetype) {
	q.archetypes = q.archetypes[:0]
	for _, a := range all {
		q.onArchetype(a)
	}
}

func (q *Query[T]) onArchetype(a *Archetype) {
	if q.view.matches(a) {
		q.archetypes = append(q.archetypes, a)
	}
}

// Execute snapshots the matching entities and their component pointers.
// Entities spawned or deleted afterwards do not change the snapshot.
func (q *Query[T]) Execute() {
	q.ids = q.ids[:0]
	q.items = q.items[:0]

	var item T
	for _, archetype := range q.archetypes {
		if archetype.live == 0 {
			continue
		}
		for row, id := range archetype.rows {
			if id == 0 {
				continue
			}
			q.view.fill(&item, archetype, row)
			q.ids = append(q.ids, id)
			q.items = append(q.items, item)
		}
	}

	q.executed = true
}

// Iter returns an iterator over entity IDs and component data.
// Panics if Execute() has not been called.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	if !q.executed {
		panic("Query.Iter() called before Query.Execute()")
	}

	return func(yield func(EntityId, T) bool) {
		for i := range q.ids {
			if !yield(q.ids[i], q.items[i]) {
				return
			}
		}
	}
}

// Values returns an iterator over component data only.
// Panics if Execute() has not been called.
func (q *Query[T]) Values() iter.Seq[T] {
	if !q.executed {
		panic("Query.Values() called before Query.Execute()")
	}

	return func(yield func(T) bool) {
		for i := range q.items {
			if !yield(q.items[i]) {
				return
			}
		}
	}
}

// Len returns the size of the last snapshot
func (q *Query[T]) Len() int {
	return len(q.ids)
}

// First returns the first entity of the last snapshot.
func (q *Query[T]) First() (EntityId, T, bool) {
	if !q.executed || len(q.ids) == 0 {
		var zero T
		return 0, zero, false
	}
	return q.ids[0], q.items[0], true
}
