package ecs

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownComponent is returned by Restore when a snapshot names a component
// that is not registered with the storage's registry.
var ErrUnknownComponent = errors.New("ecs: unknown component in snapshot")

// StorageSnapshot is a self-contained copy of a Storage. Component values are
// msgpack encoded and keyed by their registered names.
type StorageSnapshot struct {
	Generations []uint32            `msgpack:"gen"`
	FreeSlots   []uint32            `msgpack:"free"`
	Archetypes  []ArchetypeSnapshot `msgpack:"arch"`
	Singletons  []ComponentSnapshot `msgpack:"single"`
}

// ArchetypeSnapshot records one archetype, including its holes, so a restored
// storage iterates in exactly the same order.
type ArchetypeSnapshot struct {
	Components []string         `msgpack:"comp"`
	Rows       int              `msgpack:"rows"`
	FreeRows   []int            `msgpack:"free"`
	Entities   []EntitySnapshot `msgpack:"ent"`
}

type EntitySnapshot struct {
	Id   EntityId             `msgpack:"id"`
	Row  int                  `msgpack:"row"`
	Data []msgpack.RawMessage `msgpack:"data"`
}

type ComponentSnapshot struct {
	Name string             `msgpack:"name"`
	Data msgpack.RawMessage `msgpack:"data"`
}

// Snapshot captures every entity and every singleton whose type is a
// registered component. Archetypes that hold no entities are still recorded so
// their creation order survives a round trip.
func (s *Storage) Snapshot() (*StorageSnapshot, error) {
	snap := &StorageSnapshot{
		Generations: make([]uint32, len(s.entities)),
		FreeSlots:   append([]uint32(nil), s.freeSlots...),
		Archetypes:  make([]ArchetypeSnapshot, 0, len(s.archetypes)),
	}
	for slot, rec := range s.entities {
		snap.Generations[slot] = rec.generation
	}

	for _, a := range s.archetypes {
		as := ArchetypeSnapshot{
			Components: append([]string(nil), a.names...),
			Rows:       len(a.rows),
			FreeRows:   append([]int(nil), a.free...),
			Entities:   make([]EntitySnapshot, 0, a.live),
		}
		for row, id := range a.rows {
			if id == 0 {
				continue
			}
			es := EntitySnapshot{Id: id, Row: row, Data: make([]msgpack.RawMessage, len(a.columns))}
			for idx, col := range a.columns {
				data, err := msgpack.Marshal(col.Get(row))
				if err != nil {
					return nil, fmt.Errorf("encode %s of entity %d: %w", a.names[idx], id, err)
				}
				es.Data[idx] = data
			}
			as.Entities = append(as.Entities, es)
		}
		snap.Archetypes = append(snap.Archetypes, as)
	}

	for _, typ := range s.singletonOrder {
		info, ok := s.registry.lookup(typ)
		if !ok {
			continue
		}
		data, err := msgpack.Marshal(s.singletons[typ].value.Interface())
		if err != nil {
			return nil, fmt.Errorf("encode singleton %s: %w", info.name, err)
		}
		snap.Singletons = append(snap.Singletons, ComponentSnapshot{Name: info.name, Data: data})
	}

	return snap, nil
}

// Restore replaces the storage contents with snap. Ids captured in the
// snapshot resolve to the same entities afterwards and query buckets are
// rebuilt in the snapshot's archetype order. Singletons are decoded in place,
// so existing Singleton accessors keep working.
func (s *Storage) Restore(snap *StorageSnapshot) error {
	masks := make([]componentMask, len(snap.Archetypes))
	for i, as := range snap.Archetypes {
		for _, name := range as.Components {
			info, ok := s.registry.lookupName(name)
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownComponent, name)
			}
			masks[i].set(info.id)
		}
	}
	for _, cs := range snap.Singletons {
		if _, ok := s.registry.lookupName(cs.Name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownComponent, cs.Name)
		}
	}

	for _, a := range s.archetypes {
		a.reset()
	}

	// snapshot archetypes first, in order, then any extra ones this storage had
	ordered := make([]*Archetype, 0, len(s.archetypes)+len(masks))
	seen := make(map[*Archetype]bool, len(masks))
	for _, mask := range masks {
		a, ok := s.byMask[mask]
		if !ok {
			a = newArchetype(0, mask, s.registry)
			s.byMask[mask] = a
		}
		ordered = append(ordered, a)
		seen[a] = true
	}
	for _, a := range s.archetypes {
		if !seen[a] {
			ordered = append(ordered, a)
		}
	}
	for i, a := range ordered {
		a.id = uint32(i)
	}
	s.archetypes = ordered

	s.entities = make([]entityRecord, len(snap.Generations))
	for slot, gen := range snap.Generations {
		s.entities[slot].generation = gen
	}
	s.freeSlots = append(s.freeSlots[:0], snap.FreeSlots...)
	s.live = 0

	for i, as := range snap.Archetypes {
		a := s.archetypes[i]
		idx := make([]int16, len(as.Components))
		for c, name := range as.Components {
			info, _ := s.registry.lookupName(name)
			idx[c] = a.index[info.id]
		}

		for _, es := range as.Entities {
			slot := es.Id.Slot()
			if int(slot) >= len(s.entities) || s.entities[slot].generation != es.Id.Generation() {
				return fmt.Errorf("ecs: snapshot entity %d does not match its slot", es.Id)
			}
			a.place(es.Row, es.Id)
			for c, data := range es.Data {
				col := a.columns[idx[c]]
				col.Set(es.Row, reflect.New(a.types[idx[c]]).Interface())
				if err := msgpack.Unmarshal(data, col.Get(es.Row)); err != nil {
					return fmt.Errorf("decode %s of entity %d: %w", as.Components[c], es.Id, err)
				}
			}
			s.entities[slot].archetype = a
			s.entities[slot].row = es.Row
			s.live++
		}

		for len(a.rows) < as.Rows {
			a.rows = append(a.rows, 0)
		}
		a.free = append(a.free[:0], as.FreeRows...)
	}

	for _, cs := range snap.Singletons {
		info, _ := s.registry.lookupName(cs.Name)
		value := reflect.New(info.typ)
		if err := msgpack.Unmarshal(cs.Data, value.Interface()); err != nil {
			return fmt.Errorf("decode singleton %s: %w", cs.Name, err)
		}
		s.AddSingleton(value.Interface())
	}

	for _, w := range s.watchers {
		w.resetArchetypes(s.archetypes)
	}
	return nil
}

// MarshalSnapshot encodes a snapshot of the storage.
func (s *Storage) MarshalSnapshot() ([]byte, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(snap)
}

// UnmarshalSnapshot decodes data produced by MarshalSnapshot and restores it.
func (s *Storage) UnmarshalSnapshot(data []byte) error {
	var snap StorageSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return s.Restore(&snap)
}
