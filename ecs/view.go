package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

type viewField struct {
	offset   uintptr
	id       componentId
	typ      reflect.Type
	optional bool
}

// View represents a query for entities with a specific combination of components
// The type T should be a struct with embedded pointer fields for each component type
// Named fields can be marked as optional using the `ecs:"optional"` struct tag
type View[T any] struct {
	storage  *Storage
	fields   []viewField
	required componentMask
}

// NewView creates a new view for the given struct type. Every component named by
// the struct must already be registered.
func NewView[T any](storage *Storage) *View[T] {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{
		storage: storage,
		fields:  make([]viewField, 0, structType.NumField()),
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Pointer {
			panic("View struct fields must be pointer types")
		}

		// Embedded fields are always required
		isOptional := false
		if !field.Anonymous {
			switch tag := field.Tag.Get("ecs"); tag {
			case "":
			case "optional":
				isOptional = true
			default:
				panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
			}
		}

		info := storage.registry.mustLookup(field.Type.Elem())
		v.fields = append(v.fields, viewField{
			offset:   field.Offset,
			id:       info.id,
			typ:      info.typ,
			optional: isOptional,
		})
		if !isOptional {
			v.required.set(info.id)
		}
	}

	return v
}

// matches checks if an archetype contains all the required component types for this view
func (v *View[T]) matches(a *Archetype) bool {
	return a.mask.contains(v.required)
}

// fill points every field of out at the components stored in row
func (v *View[T]) fill(out *T, a *Archetype, row int) {
	base := unsafe.Pointer(out)
	for _, f := range v.fields {
		fieldPtr := unsafe.Add(base, f.offset)
		col := a.column(f.id)
		if col == nil {
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = col.Ptr(row)
	}
}

// Fill populates the provided struct pointer with component data for the given entity
// Returns false if the entity is dead or missing any required components
// Optional components are set to nil if not present
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	rec, ok := v.storage.record(id)
	if !ok || !v.matches(rec.archetype) {
		return false
	}
	v.fill(ptr, rec.archetype, rec.row)
	return true
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// Iter returns an iterator over all entities that have all the required components for this view
// Archetypes are visited in creation order and rows in slot order
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		for _, archetype := range v.storage.archetypes {
			if !v.matches(archetype) {
				continue
			}

			var result T
			for row, id := range archetype.rows {
				if id == 0 {
					continue
				}
				v.fill(&result, archetype, row)
				if !yield(id, result) {
					return
				}
			}
		}
	}
}

// Values returns an iterator over just the view structs (without entity IDs)
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}
