// Package vopl reads and writes VOPL voxel containers, VOPLPACK bundles and
// VPE edit streams, and converts them to and from voxel lists.
package vopl

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/voxelsplace/voxkernel/voxel"
)

// MaxDim is the largest extent a VOPL header can describe on one axis.
const MaxDim = 255

// Grid is a dense W x H x D block of materials. Cells are stored in y, z, x
// scan order: Cells[x + W*(z + D*y)].
type Grid struct {
	W, H, D int
	Cells   []uint8
}

// NewGrid returns an empty grid.
func NewGrid(w, h, d int) (*Grid, error) {
	if w < 1 || h < 1 || d < 1 || w > MaxDim || h > MaxDim || d > MaxDim {
		return nil, errors.New("invalid grid size").
			WithType(ErrTypeInvalidContainer).
			WithTag("w", w).
			WithTag("h", h).
			WithTag("d", d)
	}
	return &Grid{W: w, H: h, D: d, Cells: make([]uint8, w*h*d)}, nil
}

// FromVoxels rasterises voxels into a grid of the given size. Later voxels
// overwrite earlier ones; voxels outside the grid are an error.
func FromVoxels(size voxel.Size, voxels []voxel.Voxel) (*Grid, error) {
	g, err := NewGrid(size[0], size[1], size[2])
	if err != nil {
		return nil, err
	}
	for _, v := range voxels {
		if !g.Set(int(v.X), int(v.Y), int(v.Z), v.Material) {
			return nil, errors.New("voxel outside grid").
				WithType(ErrTypeInvalidContainer).
				WithTag("x", v.X).
				WithTag("y", v.Y).
				WithTag("z", v.Z)
		}
	}
	return g, nil
}

func (g *Grid) Size() voxel.Size {
	return voxel.Size{g.W, g.H, g.D}
}

func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.W && y >= 0 && y < g.H && z >= 0 && z < g.D
}

func (g *Grid) index(x, y, z int) int {
	return x + g.W*(z+g.D*y)
}

// Get returns the material at (x,y,z), 0 outside the grid.
func (g *Grid) Get(x, y, z int) uint8 {
	if !g.InBounds(x, y, z) {
		return 0
	}
	return g.Cells[g.index(x, y, z)]
}

// Set stores material at (x,y,z). It reports false when the cell is outside
// the grid.
func (g *Grid) Set(x, y, z int, material uint8) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	g.Cells[g.index(x, y, z)] = material
	return true
}

// Voxels returns the occupied cells in y, z, x scan order.
func (g *Grid) Voxels() []voxel.Voxel {
	voxels := make([]voxel.Voxel, 0, g.Count())
	i := 0
	for y := 0; y < g.H; y++ {
		for z := 0; z < g.D; z++ {
			for x := 0; x < g.W; x++ {
				if m := g.Cells[i]; m != 0 {
					voxels = append(voxels, voxel.Voxel{X: uint8(x), Y: uint8(y), Z: uint8(z), Material: m})
				}
				i++
			}
		}
	}
	return voxels
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	n := 0
	for _, m := range g.Cells {
		if m != 0 {
			n++
		}
	}
	return n
}

// MaxMaterial returns the highest material index in use.
func (g *Grid) MaxMaterial() uint8 {
	var top uint8
	for _, m := range g.Cells {
		top = max(top, m)
	}
	return top
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Cells = append([]uint8(nil), g.Cells...)
	return &c
}
