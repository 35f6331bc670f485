package voxel

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxSliceMerges is the default ceiling on quads emitted for one slice.
// A slice needing more merges (a 64x64 checkerboard already does) is cut
// short and reported through Mesh.TruncatedSlices.
const MaxSliceMerges = 1000

// dirSpec describes one face direction. Faces are bucketed by their
// coordinate on axis and keyed by (primary, secondary) inside a slice.
// right runs along primary and up along secondary; cross(right, up)
// equals normal so counter-clockwise triangles face outward.
type dirSpec struct {
	normal    Coord
	axis      int
	primary   int
	secondary int
	right     Coord
	up        Coord
}

var directions = [6]dirSpec{
	{normal: Coord{0, 0, 1}, axis: 2, primary: 0, secondary: 1, right: Coord{1, 0, 0}, up: Coord{0, 1, 0}},
	{normal: Coord{0, 0, -1}, axis: 2, primary: 0, secondary: 1, right: Coord{-1, 0, 0}, up: Coord{0, 1, 0}},
	{normal: Coord{-1, 0, 0}, axis: 0, primary: 2, secondary: 1, right: Coord{0, 0, 1}, up: Coord{0, 1, 0}},
	{normal: Coord{1, 0, 0}, axis: 0, primary: 2, secondary: 1, right: Coord{0, 0, -1}, up: Coord{0, 1, 0}},
	{normal: Coord{0, 1, 0}, axis: 1, primary: 0, secondary: 2, right: Coord{-1, 0, 0}, up: Coord{0, 0, 1}},
	{normal: Coord{0, -1, 0}, axis: 1, primary: 0, secondary: 2, right: Coord{1, 0, 0}, up: Coord{0, 0, 1}},
}

type cellKey [2]int

// quad is a merged rectangle inside a slice, in slice (primary, secondary) space.
type quad struct {
	p, q     int
	w, h     int
	material uint8
}

// Mesher merges exposed voxel faces into quads.
type Mesher struct {
	// MaxSliceMerges caps the quads emitted per slice. Zero selects
	// MaxSliceMerges, a negative value disables the ceiling.
	MaxSliceMerges int
}

// GreedyMesh meshes m with the default Mesher.
func GreedyMesh(m Map, transform mgl32.Mat4) *Mesh {
	return Mesher{}.Mesh(m, transform)
}

// MeshVoxels builds a Map from voxels and meshes it.
func MeshVoxels(voxels []Voxel, transform mgl32.Mat4, filter Filter) *Mesh {
	return GreedyMesh(NewMap(voxels, filter), transform)
}

// Mesh emits one quad per merged rectangle of exposed, same-material faces.
// A face is exposed when the neighbour across it is empty or missing.
// Vertices are transformed by transform; normals get its linear part only
// and are not renormalized.
func (ms Mesher) Mesh(m Map, transform mgl32.Mat4) *Mesh {
	limit := ms.MaxSliceMerges
	if limit == 0 {
		limit = MaxSliceMerges
	}

	mesh := &Mesh{}
	flip := Mirrored(transform)
	linear := transform.Mat3()

	for _, dir := range directions {
		buckets := collectFaces(m, dir)
		keys := sortedKeys(buckets)
		normal := linear.Mul3x1(toVec3(dir.normal))

		for _, slice := range keys {
			quads, truncated := mergeSlice(buckets[slice], limit)
			if truncated {
				mesh.TruncatedSlices++
			}
			for _, q := range quads {
				mesh.addQuad(dir.corners(slice, q, transform), normal, q.material, flip)
			}
		}
	}
	return mesh
}

// collectFaces buckets the exposed faces of direction dir by slice.
func collectFaces(m Map, dir dirSpec) map[int]map[cellKey]uint8 {
	out := make(map[int]map[cellKey]uint8)
	for c, material := range m {
		if material == 0 || m.Solid(c.Add(dir.normal)) {
			continue
		}
		slice := c[dir.axis]
		cells, ok := out[slice]
		if !ok {
			cells = make(map[cellKey]uint8)
			out[slice] = cells
		}
		cells[cellKey{c[dir.primary], c[dir.secondary]}] = material
	}
	return out
}

func sortedKeys(m map[int]map[cellKey]uint8) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// mergeSlice consumes cells into rectangles. The seed of every rectangle is
// the remaining cell with the smallest secondary, then primary coordinate;
// it grows along primary first, then along secondary while whole rows match.
func mergeSlice(cells map[cellKey]uint8, limit int) ([]quad, bool) {
	minP, minQ, maxP, maxQ := cellExtent(cells)
	w := maxP - minP + 1
	h := maxQ - minQ + 1

	mask := make([]uint8, w*h)
	for k, material := range cells {
		mask[(k[1]-minQ)*w+k[0]-minP] = material
	}

	var quads []quad
	remaining := len(cells)
	cursor := 0
	for remaining > 0 {
		if limit > 0 && len(quads) >= limit {
			return quads, true
		}
		for mask[cursor] == 0 {
			cursor++
		}
		q0, p0 := cursor/w, cursor%w
		material := mask[cursor]

		width := 1
		for p0+width < w && mask[q0*w+p0+width] == material {
			width++
		}

		height := 1
	grow:
		for q0+height < h {
			row := (q0 + height) * w
			for p := p0; p < p0+width; p++ {
				if mask[row+p] != material {
					break grow
				}
			}
			height++
		}

		for q := q0; q < q0+height; q++ {
			clear(mask[q*w+p0 : q*w+p0+width])
		}
		remaining -= width * height

		quads = append(quads, quad{p: minP + p0, q: minQ + q0, w: width, h: height, material: material})
	}
	return quads, false
}

func cellExtent(cells map[cellKey]uint8) (minP, minQ, maxP, maxQ int) {
	first := true
	for k := range cells {
		if first {
			minP, maxP, minQ, maxQ = k[0], k[0], k[1], k[1]
			first = false
			continue
		}
		minP, maxP = min(minP, k[0]), max(maxP, k[0])
		minQ, maxQ = min(minQ, k[1]), max(maxQ, k[1])
	}
	return minP, minQ, maxP, maxQ
}

// corners returns the four transformed corners of q: origin, origin+right*w,
// origin+right*w+up*h, origin+up*h.
func (d dirSpec) corners(slice int, q quad, transform mgl32.Mat4) [4]mgl32.Vec3 {
	var o Coord
	o[d.axis] = slice
	if d.normal[d.axis] > 0 {
		o[d.axis]++
	}
	o[d.primary] = q.p
	if d.right[d.primary] < 0 {
		o[d.primary] += q.w
	}
	o[d.secondary] = q.q

	right := scale(d.right, q.w)
	up := scale(d.up, q.h)

	local := [4]Coord{o, o.Add(right), o.Add(right).Add(up), o.Add(up)}
	var out [4]mgl32.Vec3
	for i, c := range local {
		out[i] = TransformPoint(transform, toVec3(c))
	}
	return out
}

func scale(c Coord, s int) Coord {
	return Coord{c[0] * s, c[1] * s, c[2] * s}
}

func toVec3(c Coord) mgl32.Vec3 {
	return mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
}
