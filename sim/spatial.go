package sim

import (
	"math"
	"slices"

	"github.com/kamstrup/intmap"
)

// SpatialGrid is a uniform hash grid over the X/Y plane. Items are small
// integers (indices into a caller-owned slice); cells are keyed by the packed
// cell coordinates.
type SpatialGrid struct {
	cellSize float64
	cells    *intmap.Map[int64, []int32]
	keys     []int64
	scratch  []int32
}

func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    intmap.New[int64, []int32](64),
	}
}

func cellKey(cx, cy int32) int64 {
	return int64(cx)<<32 | int64(uint32(cy))
}

func (g *SpatialGrid) cell(v float64) int32 {
	return int32(math.Floor(v / g.cellSize))
}

// Reset empties every cell but keeps their backing arrays.
func (g *SpatialGrid) Reset() {
	for _, k := range g.keys {
		if items, ok := g.cells.Get(k); ok {
			g.cells.Put(k, items[:0])
		}
	}
}

// Insert adds item to every cell the box touches.
func (g *SpatialGrid) Insert(item int32, box AABB) {
	for cx := g.cell(box.MinX); cx <= g.cell(box.MaxX); cx++ {
		for cy := g.cell(box.MinY); cy <= g.cell(box.MaxY); cy++ {
			k := cellKey(cx, cy)
			items, ok := g.cells.Get(k)
			if !ok {
				g.keys = append(g.keys, k)
			}
			g.cells.Put(k, append(items, item))
		}
	}
}

// Query returns the items of every cell the box touches, sorted and without
// duplicates. The slice is reused by the next call.
func (g *SpatialGrid) Query(box AABB) []int32 {
	g.scratch = g.scratch[:0]
	for cx := g.cell(box.MinX); cx <= g.cell(box.MaxX); cx++ {
		for cy := g.cell(box.MinY); cy <= g.cell(box.MaxY); cy++ {
			if items, ok := g.cells.Get(cellKey(cx, cy)); ok {
				g.scratch = append(g.scratch, items...)
			}
		}
	}
	slices.Sort(g.scratch)
	g.scratch = slices.Compact(g.scratch)
	return g.scratch
}

// Cells returns the number of cells ever touched.
func (g *SpatialGrid) Cells() int {
	return len(g.keys)
}
