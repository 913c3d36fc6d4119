// Package mobility places nodes on a grid and moves them with a
// random-direction walk driven by engine events.
package mobility

// A Position is a 2D coordinate in meters.
type Position struct {
	X float64
	Y float64
}

// A GridAllocator deals out positions on a rectangular grid. With RowFirst
// set, slots fill left to right before moving down a row; otherwise top to
// bottom before moving right a column.
type GridAllocator struct {
	MinX      float64
	MinY      float64
	DeltaX    float64
	DeltaY    float64
	GridWidth int
	RowFirst  bool
}

// Position returns the k-th grid slot.
func (g GridAllocator) Position(k int) Position {
	if g.GridWidth < 1 {
		panic("grid width must be at least 1")
	}

	row := k / g.GridWidth
	col := k % g.GridWidth
	if !g.RowFirst {
		row, col = col, row
	}

	return Position{
		X: g.MinX + float64(col)*g.DeltaX,
		Y: g.MinY + float64(row)*g.DeltaY,
	}
}
