package voxel

import (
	"iter"
	"math"
)

// Hit is one voxel visited by a traversal.
type Hit struct {
	Coord    Coord
	Material uint8
	// Normal is the face crossed to reach Coord, pointing back towards the
	// ray origin. It is zero for the voxel containing the origin.
	Normal Coord
	// Distance is the ray parameter at which the ray leaves Coord.
	Distance float32
	// Steps counts the voxel boundaries crossed before reaching Coord.
	Steps int
}

// Traverse walks ray through the grid of the given size with 3D DDA and
// yields every occupied voxel in order. The sequence ends when the ray
// leaves the grid after having entered it, when the ray misses the grid,
// or when the consumer stops pulling.
func Traverse(m Map, size Size, ray Ray) iter.Seq[Hit] {
	return walk(m, size, ray, false)
}

// Walk is Traverse but also yields the empty in-grid voxels it steps over.
func Walk(m Map, size Size, ray Ray) iter.Seq[Hit] {
	return walk(m, size, ray, true)
}

// FirstHit returns the closest occupied voxel along ray.
func FirstHit(m Map, size Size, ray Ray) (Hit, bool) {
	for h := range Traverse(m, size, ray) {
		return h, true
	}
	return Hit{}, false
}

func walk(m Map, size Size, ray Ray, empties bool) iter.Seq[Hit] {
	return func(yield func(Hit) bool) {
		_, tExit, ok := SizeBounds(size).IntersectRay(ray)
		if !ok {
			return
		}

		inf := float32(math.Inf(1))
		var (
			voxel  Coord
			step   Coord
			tMax   [3]float32
			tDelta [3]float32
		)
		for i := 0; i < 3; i++ {
			o, d := ray.Origin[i], ray.Direction[i]
			voxel[i] = int(math.Floor(float64(o)))
			if d > 0 {
				step[i] = 1
			} else {
				step[i] = -1
			}
			if d == 0 {
				tMax[i], tDelta[i] = inf, inf
				continue
			}
			next := voxel[i]
			if step[i] > 0 {
				next++
			}
			tMax[i] = (float32(next) - o) / d
			tDelta[i] = 1 / float32(math.Abs(float64(d)))
		}

		var normal Coord
		entered := false
		for steps := 0; ; steps++ {
			inside := size.Contains(voxel)
			if entered && !inside {
				return
			}
			entered = inside

			leave := min(tMax[0], tMax[1], tMax[2])
			if !inside && leave > tExit {
				return
			}

			material := m[voxel]
			if material > 0 || (empties && inside) {
				hit := Hit{Coord: voxel, Material: material, Normal: normal, Distance: leave, Steps: steps}
				if !yield(hit) {
					return
				}
			}

			// x is taken only when strictly smallest; otherwise y against z.
			axis := 2
			if tMax[0] < tMax[1] {
				if tMax[0] < tMax[2] {
					axis = 0
				}
			} else if tMax[1] < tMax[2] {
				axis = 1
			}

			voxel[axis] += step[axis]
			tMax[axis] += tDelta[axis]
			normal = Coord{}
			normal[axis] = -step[axis]
		}
	}
}
