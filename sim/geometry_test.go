package sim

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollide(t *testing.T) {
	box := &Collider{Width: 1, Height: 1, Depth: 1}
	circle := &Collider{Radius: 0.5}

	tests := []struct {
		name string
		a, b Position
		ca   *Collider
		cb   *Collider
		want bool
	}{
		{"boxes overlap", Position{}, Position{X: 0.9}, box, box, true},
		{"touching boxes do not", Position{}, Position{X: 1}, box, box, false},
		{"circles overlap", Position{}, Position{X: 0.6, Y: 0.6}, circle, circle, true},
		{"circles apart", Position{}, Position{X: 0.8, Y: 0.8}, circle, circle, false},
		{"circle near box corner", Position{}, Position{X: 0.8, Y: 0.8}, circle, box, true},
		{"circle off box corner", Position{}, Position{X: 0.9, Y: 0.9}, circle, box, false},
		{"box then circle", Position{}, Position{X: 0.9, Y: 0.9}, box, circle, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collide(&tt.a, tt.ca, &tt.b, tt.cb))
			assert.Equal(t, tt.want, collide(&tt.b, tt.cb, &tt.a, tt.ca), "symmetric")
		})
	}
}

func TestColliderValid(t *testing.T) {
	assert.True(t, colliderValid(&Collider{Width: 1, Height: 1, Depth: 1}))
	assert.True(t, colliderValid(&Collider{Radius: 0.4}))
	assert.False(t, colliderValid(&Collider{Width: 1, Height: 0, Depth: 1}))
	assert.False(t, colliderValid(&Collider{Width: math.Inf(1), Height: 1, Depth: 1}))
	assert.False(t, colliderValid(&Collider{Radius: math.NaN()}))
}

func TestSpatialGrid(t *testing.T) {
	g := NewSpatialGrid(2)
	boxes := []AABB{
		{MinX: -0.5, MinY: -0.5, MaxX: 0.5, MaxY: 0.5},
		{MinX: 2.5, MinY: -0.5, MaxX: 3.5, MaxY: 0.5},
		{MinX: 10, MinY: 10, MaxX: 11, MaxY: 11},
		{MinX: -3, MinY: -3, MaxX: 3, MaxY: 3},
	}
	for i, b := range boxes {
		g.Insert(int32(i), b)
	}

	got := g.Query(AABB{MinX: -0.1, MinY: -0.1, MaxX: 0.1, MaxY: 0.1})
	assert.Equal(t, []int32{0, 3}, got)

	got = g.Query(AABB{MinX: -1, MinY: -1, MaxX: 2.2, MaxY: 1})
	assert.Equal(t, []int32{0, 1, 3}, got, "sorted without duplicates")

	assert.Empty(t, g.Query(AABB{MinX: 50, MinY: 50, MaxX: 51, MaxY: 51}))

	cells := g.Cells()
	g.Reset()
	assert.Empty(t, g.Query(AABB{MinX: -3, MinY: -3, MaxX: 3, MaxY: 3}))
	assert.Equal(t, cells, g.Cells(), "cells are kept for reuse")

	g.Insert(7, boxes[2])
	assert.Equal(t, []int32{7}, g.Query(boxes[2]))
}

func TestSpatialGridMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	g := NewSpatialGrid(2)
	var boxes []AABB
	for i := range 200 {
		x, y := rng.Float64()*40-20, rng.Float64()*40-20
		w, h := rng.Float64()*3, rng.Float64()*3
		b := AABB{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
		boxes = append(boxes, b)
		g.Insert(int32(i), b)
	}

	for range 50 {
		x, y := rng.Float64()*40-20, rng.Float64()*40-20
		window := AABB{MinX: x, MinY: y, MaxX: x + 1.5, MaxY: y + 1.5}
		candidates := map[int32]bool{}
		for _, i := range g.Query(window) {
			candidates[i] = true
		}
		for i, b := range boxes {
			if b.Overlaps(window) {
				require.True(t, candidates[int32(i)], "box %d overlaps but was not a candidate", i)
			}
		}
	}
}

func TestWeightedIndex(t *testing.T) {
	t.Run("no positive weight", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 1))
		ref := rand.New(rand.NewPCG(1, 1))
		assert.Equal(t, -1, weightedIndex(rng, nil))
		assert.Equal(t, -1, weightedIndex(rng, []float64{0, -1}))
		ref.Float64()
		ref.Float64()
		assert.Equal(t, ref.Float64(), rng.Float64(), "one draw per call")
	})

	t.Run("skips zero weights", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 4))
		for range 500 {
			i := weightedIndex(rng, []float64{0, 2, 0, 1})
			require.Contains(t, []int{1, 3}, i)
		}
	})

	t.Run("proportional", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		counts := make([]int, 3)
		for range 30000 {
			counts[weightedIndex(rng, []float64{1, 2, 3})]++
		}
		assert.InDelta(t, 5000, counts[0], 500)
		assert.InDelta(t, 10000, counts[1], 700)
		assert.InDelta(t, 15000, counts[2], 700)
	})
}

func TestRandomRoundTrip(t *testing.T) {
	a := NewRandom(99)
	for range 17 {
		a.Spawn().Float64()
	}
	a.Effects().IntN(10)

	data, err := a.MarshalBinary()
	require.NoError(t, err)

	b := NewRandom(1)
	require.NoError(t, b.UnmarshalBinary(data))
	assert.Equal(t, uint64(99), b.SeedValue())
	for range 10 {
		assert.Equal(t, a.Spawn().Uint64(), b.Spawn().Uint64())
		assert.Equal(t, a.Effects().Uint64(), b.Effects().Uint64())
	}

	assert.Error(t, b.UnmarshalBinary([]byte{0xc1}))
}

func TestRandomStreamsAreIndependent(t *testing.T) {
	a, b := NewRandom(5), NewRandom(5)
	for range 100 {
		a.Effects().Float64()
	}
	for range 10 {
		assert.Equal(t, a.Spawn().Uint64(), b.Spawn().Uint64())
	}

	a.Seed(5)
	c := NewRandom(5)
	assert.Equal(t, c.Effects().Uint64(), a.Effects().Uint64())
}
