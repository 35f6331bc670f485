package voxel

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Box is an axis-aligned block of whole voxels.
type Box struct {
	Min  Coord
	Size Coord
}

// Max returns the exclusive upper corner.
func (b Box) Max() Coord {
	return b.Min.Add(b.Size)
}

// Bounds returns the box in grid space.
func (b Box) Bounds() Bounds {
	return Bounds{Min: toVec3(b.Min), Max: toVec3(b.Max())}
}

// Center returns the middle of b in grid space.
func (b Box) Center() mgl32.Vec3 {
	return b.Bounds().Center()
}

// Extent returns the size of b as a vector.
func (b Box) Extent() mgl32.Vec3 {
	return toVec3(b.Size)
}

// TransformBox returns the center and absolute size of b under m.
func TransformBox(b Box, m mgl32.Mat4) (center, size mgl32.Vec3) {
	center = TransformPoint(m, b.Center())
	size = TransformVector(m, b.Extent())
	for i := range size {
		if size[i] < 0 {
			size[i] = -size[i]
		}
	}
	return center, size
}

// GreedyBoxes covers the occupied voxels of m with disjoint boxes. Each box
// starts at the remaining voxel with the smallest z, then y, then x, grows
// along y, then z, then x while the grown layer is fully occupied by
// remaining voxels, and is then removed from the working set.
func GreedyBoxes(m Map) []Box {
	work := make(map[Coord]struct{}, len(m))
	for c, material := range m {
		if material > 0 {
			work[c] = struct{}{}
		}
	}

	var boxes []Box
	for len(work) > 0 {
		p := minCoordZYX(work)
		size := Coord{1, 1, 1}
		for _, axis := range [3]int{1, 2, 0} {
			for canGrow(work, p, size, axis) {
				size[axis]++
			}
		}
		forEachCell(p, size, func(c Coord) bool {
			delete(work, c)
			return true
		})
		boxes = append(boxes, Box{Min: p, Size: size})
	}
	return boxes
}

func canGrow(work map[Coord]struct{}, p, size Coord, axis int) bool {
	layerMin := p
	layerMin[axis] += size[axis]
	layerSize := size
	layerSize[axis] = 1
	return forEachCell(layerMin, layerSize, func(c Coord) bool {
		_, ok := work[c]
		return ok
	})
}

// forEachCell visits the cells of a box until f returns false.
func forEachCell(p, size Coord, f func(Coord) bool) bool {
	for z := p[2]; z < p[2]+size[2]; z++ {
		for y := p[1]; y < p[1]+size[1]; y++ {
			for x := p[0]; x < p[0]+size[0]; x++ {
				if !f(Coord{x, y, z}) {
					return false
				}
			}
		}
	}
	return true
}

func minCoordZYX(work map[Coord]struct{}) Coord {
	var best Coord
	first := true
	for c := range work {
		if first || c[2] < best[2] ||
			(c[2] == best[2] && (c[1] < best[1] || (c[1] == best[1] && c[0] < best[0]))) {
			best = c
			first = false
		}
	}
	return best
}

// TightBounds returns the smallest box holding every occupied voxel.
func TightBounds(voxels []Voxel) (Box, bool) {
	var lo, hi Coord
	found := false
	for _, v := range voxels {
		if v.Material == 0 {
			continue
		}
		c := v.Coord()
		if !found {
			lo, hi = c, c.Add(Coord{1, 1, 1})
			found = true
			continue
		}
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], c[i])
			hi[i] = max(hi[i], c[i]+1)
		}
	}
	if !found {
		return Box{}, false
	}
	return Box{Min: lo, Size: Coord{hi[0] - lo[0], hi[1] - lo[1], hi[2] - lo[2]}}, true
}

// Cubes returns one unit box per occupied voxel.
func Cubes(voxels []Voxel) []Box {
	boxes := make([]Box, 0, len(voxels))
	for _, v := range voxels {
		if v.Material > 0 {
			boxes = append(boxes, Box{Min: v.Coord(), Size: Coord{1, 1, 1}})
		}
	}
	return boxes
}
