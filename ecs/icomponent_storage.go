package ecs

import "unsafe"

// iComponentStorage is a type-erased column of one component type. Rows are
// owned by the archetype; the column only holds values.
type iComponentStorage interface {
	// Set copies item (a T or *T) into row, growing the column as needed.
	Set(row int, item any) bool
	// Get returns a *T for row, or nil when the row was never allocated.
	Get(row int) any
	// Ptr returns the address of row without boxing.
	Ptr(row int) unsafe.Pointer
	// Clear zeroes the value stored at row.
	Clear(row int)
}
