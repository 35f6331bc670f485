package voxel

import (
	"image/color"
	"iter"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Volume is a model placed in a parent space: the voxel list and palette
// from a container loader plus the placement chosen by the caller.
type Volume struct {
	Size      Size
	Voxels    []Voxel
	Palette   Palette
	Placement Placement

	// Parent maps the volume's space into world space. The zero value is
	// treated as identity.
	Parent mgl32.Mat4

	once sync.Once
	m    Map
}

// NewVolume returns an identity-placed volume using the default palette.
func NewVolume(size Size, voxels []Voxel) *Volume {
	return &Volume{
		Size:      size,
		Voxels:    voxels,
		Palette:   DefaultPalette(),
		Placement: Identity(),
	}
}

// Map returns the sparse map of the volume, building it on first use.
func (v *Volume) Map() Map {
	v.once.Do(func() {
		v.m = NewMap(v.Voxels, nil)
	})
	return v.m
}

// Transform maps grid space into the volume's parent space.
func (v *Volume) Transform() mgl32.Mat4 {
	return v.Placement.Matrix(v.Size)
}

// LocalToWorld maps grid space into world space.
func (v *Volume) LocalToWorld() mgl32.Mat4 {
	parent := v.Parent
	if parent == (mgl32.Mat4{}) {
		parent = mgl32.Ident4()
	}
	return parent.Mul4(v.Transform())
}

// Bounds returns the grid box in grid space.
func (v *Volume) Bounds() Bounds {
	return SizeBounds(v.Size)
}

// Lookup returns the material at c.
func (v *Volume) Lookup(c Coord) (uint8, bool) {
	return v.Map().Lookup(c)
}

// PaletteColor returns the color of material, transparent when out of range.
func (v *Volume) PaletteColor(material int) color.RGBA {
	return v.Palette.Color(material)
}

// Mesh meshes the volume in its parent space.
func (v *Volume) Mesh(ms Mesher) *Mesh {
	return ms.Mesh(v.Map(), v.Transform())
}

// TraverseWorld transforms a world-space ray into grid space and traverses it.
// Rays missing the grid box yield nothing.
func (v *Volume) TraverseWorld(ray Ray) iter.Seq[Hit] {
	local := ray.Transform(v.LocalToWorld().Inv())
	if _, _, ok := v.Bounds().IntersectRay(local); !ok {
		return func(func(Hit) bool) {}
	}
	return Traverse(v.Map(), v.Size, local)
}
