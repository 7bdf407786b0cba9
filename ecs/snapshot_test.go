package ecs_test

import (
	"testing"

	"github.com/plus3/riverrush/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWorld(t *testing.T) (*ecs.Storage, []ecs.EntityId) {
	t.Helper()
	storage := ecs.NewStorage(newTestRegistry())
	ecs.NewSingleton(storage, GameClock{Elapsed: 12.5, Tick: 750})

	var ids []ecs.EntityId
	for i := 0; i < 6; i++ {
		ids = append(ids, storage.Spawn(Position{X: float64(i), Y: -float64(i)}, Velocity{DY: -5}))
	}
	ids = append(ids, storage.Spawn(Health{Current: 2, Max: 3}, Name{Value: "player"}, Counters{Slots: [4]int{1, 2, 3, 4}}))
	ids = append(ids, storage.Spawn(Inventory{Items: []string{"coin"}}, Tag("bag")))

	storage.Delete(ids[1])
	storage.Delete(ids[4])
	storage.AddComponent(ids[2], Frozen{})
	return storage, ids
}

func collect(storage *ecs.Storage) []ecs.EntityId {
	view := ecs.NewView[struct{ *Position }](storage)
	var out []ecs.EntityId
	for id := range view.Iter() {
		out = append(out, id)
	}
	return out
}

func TestSnapshotRoundTrip(t *testing.T) {
	source, ids := buildWorld(t)

	data, err := source.MarshalSnapshot()
	require.NoError(t, err)

	target := ecs.NewStorage(newTestRegistry())
	// an unrelated archetype that the restore has to push behind the snapshot's
	target.Spawn(Score(1))
	clock := ecs.NewSingleton[GameClock](target)

	require.NoError(t, target.UnmarshalSnapshot(data))

	assert.Equal(t, source.Len(), target.Len())
	assert.Equal(t, collect(source), collect(target))
	assert.Equal(t, 12.5, clock.Get().Elapsed, "existing accessor sees restored value")
	assert.Equal(t, uint64(750), clock.Get().Tick)

	for _, id := range ids {
		assert.Equal(t, source.Alive(id), target.Alive(id), "entity %d", id)
	}
	assert.Equal(t, 2.0, ecs.ReadComponent[Position](target, ids[2]).X)
	assert.NotNil(t, ecs.ReadComponent[Frozen](target, ids[2]))
	assert.Equal(t, [4]int{1, 2, 3, 4}, ecs.ReadComponent[Counters](target, ids[6]).Slots)
	assert.Equal(t, []string{"coin"}, ecs.ReadComponent[Inventory](target, ids[7]).Items)

	// free lists survive, so both worlds hand out the same next id
	assert.Equal(t, source.Spawn(Position{}), target.Spawn(Position{}))
	assert.Equal(t, collect(source), collect(target))
}

func TestSnapshotKeepsQueriesCurrent(t *testing.T) {
	source, _ := buildWorld(t)
	snap, err := source.Snapshot()
	require.NoError(t, err)

	target := ecs.NewStorage(newTestRegistry())
	query := ecs.NewQuery[struct{ *Position }](target)
	require.NoError(t, target.Restore(snap))

	query.Execute()
	var got []ecs.EntityId
	for id := range query.Iter() {
		got = append(got, id)
	}
	assert.Equal(t, collect(source), got)
}

func TestRestoreUnknownComponent(t *testing.T) {
	source, _ := buildWorld(t)
	snap, err := source.Snapshot()
	require.NoError(t, err)

	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	target := ecs.NewStorage(registry)

	err = target.Restore(snap)
	assert.ErrorIs(t, err, ecs.ErrUnknownComponent)
}

func TestUnmarshalSnapshotGarbage(t *testing.T) {
	target := ecs.NewStorage(newTestRegistry())
	assert.Error(t, target.UnmarshalSnapshot([]byte{0xc1, 0x00}))
}
