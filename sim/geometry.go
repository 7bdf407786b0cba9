package sim

import "math"

// AABB is an axis-aligned box on the X/Y plane.
type AABB struct {
	MinX, MinY, MaxX, MaxY float64
}

func boxAt(pos *Position, c *Collider) AABB {
	hw, hh := c.Width/2, c.Height/2
	if c.Radius > 0 {
		hw, hh = c.Radius, c.Radius
	}
	return AABB{
		MinX: pos.X - hw,
		MinY: pos.Y - hh,
		MaxX: pos.X + hw,
		MaxY: pos.Y + hh,
	}
}

// Overlaps reports a strict overlap; touching edges do not count.
func (b AABB) Overlaps(o AABB) bool {
	return b.MinX < o.MaxX && b.MaxX > o.MinX && b.MinY < o.MaxY && b.MaxY > o.MinY
}

// Expand grows the box by m on every side.
func (b AABB) Expand(m float64) AABB {
	return AABB{MinX: b.MinX - m, MinY: b.MinY - m, MaxX: b.MaxX + m, MaxY: b.MaxY + m}
}

func circleCircle(a *Position, ra float64, b *Position, rb float64) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	r := ra + rb
	return dx*dx+dy*dy < r*r
}

func circleBox(c *Position, r float64, box AABB) bool {
	nx := math.Max(box.MinX, math.Min(c.X, box.MaxX))
	ny := math.Max(box.MinY, math.Min(c.Y, box.MaxY))
	dx, dy := c.X-nx, c.Y-ny
	return dx*dx+dy*dy < r*r
}

// collide runs the narrow phase between two placed colliders.
func collide(pa *Position, ca *Collider, pb *Position, cb *Collider) bool {
	switch {
	case ca.Radius > 0 && cb.Radius > 0:
		return circleCircle(pa, ca.Radius, pb, cb.Radius)
	case ca.Radius > 0:
		return circleBox(pa, ca.Radius, boxAt(pb, cb))
	case cb.Radius > 0:
		return circleBox(pb, cb.Radius, boxAt(pa, ca))
	default:
		return boxAt(pa, ca).Overlaps(boxAt(pb, cb))
	}
}

func colliderValid(c *Collider) bool {
	if c.Radius > 0 {
		return finite(c.Radius)
	}
	return c.Width > 0 && c.Height > 0 && c.Depth > 0 &&
		finite(c.Width) && finite(c.Height) && finite(c.Depth)
}

func colliderFromBox(b Box) Collider {
	return Collider{Width: b.Width, Height: b.Height, Depth: b.Depth, Radius: b.Radius}
}
