// Package voxel turns sparse voxel models into meshes, ray hits and fragments.
//
// Every operation reads a Map built once from a voxel list. A Map is never
// edited in place: edit workflows rebuild it from the updated voxel list.
package voxel

// Voxel is a single cell of a model. Material 0 is empty (air), 1..255
// reference a palette entry.
type Voxel struct {
	X, Y, Z  uint8
	Material uint8
}

// Coord is an integer grid coordinate. It is wider than the voxel
// components so neighbours of border voxels (-1, 256) stay addressable.
type Coord [3]int

// Coord returns the grid coordinate of v.
func (v Voxel) Coord() Coord {
	return Coord{int(v.X), int(v.Y), int(v.Z)}
}

func (c Coord) Add(o Coord) Coord {
	return Coord{c[0] + o[0], c[1] + o[1], c[2] + o[2]}
}

// Filter decides at construction time whether a voxel enters a Map.
type Filter func(c Coord, material uint8) bool

// Map is the sparse voxel map shared by the mesher, the traversal and the
// box merger. A missing key and material 0 both mean empty.
type Map map[Coord]uint8

// NewMap builds a Map from voxels. Later voxels overwrite earlier ones at
// the same coordinate. When filter is non-nil, voxels it rejects are left out.
func NewMap(voxels []Voxel, filter Filter) Map {
	m := make(Map, len(voxels))
	for _, v := range voxels {
		c := v.Coord()
		if filter == nil || filter(c, v.Material) {
			m[c] = v.Material
		}
	}
	return m
}

// Lookup returns the material stored at c.
func (m Map) Lookup(c Coord) (uint8, bool) {
	i, ok := m[c]
	return i, ok
}

// Solid reports whether c holds a non-empty material.
func (m Map) Solid(c Coord) bool {
	return m[c] > 0
}

// Voxels returns the non-empty entries of m, sorted by y, then z, then x.
func (m Map) Voxels() []Voxel {
	out := make([]Voxel, 0, len(m))
	for c, i := range m {
		if i == 0 {
			continue
		}
		out = append(out, Voxel{X: uint8(c[0]), Y: uint8(c[1]), Z: uint8(c[2]), Material: i})
	}
	sortVoxels(out)
	return out
}

// Size is the valid coordinate envelope [0,size) on each axis.
type Size [3]int

// Contains reports whether c lies inside the envelope.
func (s Size) Contains(c Coord) bool {
	return c[0] >= 0 && c[0] < s[0] &&
		c[1] >= 0 && c[1] < s[1] &&
		c[2] >= 0 && c[2] < s[2]
}

// Volume returns the number of cells in the envelope.
func (s Size) Volume() int {
	return s[0] * s[1] * s[2]
}

// MaterialFilter keeps only the listed materials.
func MaterialFilter(materials ...uint8) Filter {
	var keep [256]bool
	for _, i := range materials {
		keep[i] = true
	}
	return func(_ Coord, material uint8) bool {
		return keep[material]
	}
}

// ExcludeFilter drops the listed materials.
func ExcludeFilter(materials ...uint8) Filter {
	var drop [256]bool
	for _, i := range materials {
		drop[i] = true
	}
	return func(_ Coord, material uint8) bool {
		return !drop[material]
	}
}

// BoundsFilter keeps voxels inside size.
func BoundsFilter(size Size) Filter {
	return func(c Coord, _ uint8) bool {
		return size.Contains(c)
	}
}

// AllFilters combines filters; a voxel must pass every one of them.
func AllFilters(filters ...Filter) Filter {
	return func(c Coord, material uint8) bool {
		for _, f := range filters {
			if f != nil && !f(c, material) {
				return false
			}
		}
		return true
	}
}
