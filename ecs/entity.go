package ecs

// EntityId is an opaque entity handle. The lower 32 bits select a slot in the
// storage's entity table and the upper 32 bits carry the slot generation, so an
// id stays valid while its entity moves between archetypes and never resolves
// again once the entity is deleted.
type EntityId uint64

func newEntityId(slot uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(slot))
}

// Slot extracts the entity table slot from the id
func (e EntityId) Slot() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the slot generation from the id
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

// entityRecord locates a live entity inside its archetype.
type entityRecord struct {
	generation uint32
	archetype  *Archetype
	row        int
}
