package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half-line starting at Origin. Direction need not be unit length;
// distances reported along the ray are in multiples of it.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Transform maps the ray through m.
func (r Ray) Transform(m mgl32.Mat4) Ray {
	return Ray{Origin: TransformPoint(m, r.Origin), Direction: TransformVector(m, r.Direction)}
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// SizeBounds returns the box [0,size] of a grid.
func SizeBounds(size Size) Bounds {
	return Bounds{Max: mgl32.Vec3{float32(size[0]), float32(size[1]), float32(size[2])}}
}

func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Grow returns b extended to include p.
func (b Bounds) Grow(p mgl32.Vec3) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Contains reports whether p lies inside b, borders included.
func (b Bounds) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// IntersectRay clips r against b using the slab method. It returns the
// parameters where the ray enters and leaves the box; tEnter is 0 when the
// origin is inside.
func (b Bounds) IntersectRay(r Ray) (tEnter, tExit float32, ok bool) {
	tEnter = 0
	tExit = float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		if r.Direction[i] == 0 {
			if r.Origin[i] < b.Min[i] || r.Origin[i] > b.Max[i] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / r.Direction[i]
		t0 := (b.Min[i] - r.Origin[i]) * inv
		t1 := (b.Max[i] - r.Origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tEnter = max(tEnter, t0)
		tExit = min(tExit, t1)
		if tEnter > tExit {
			return 0, 0, false
		}
	}
	return tEnter, tExit, true
}
