package voxel

import "github.com/go-gl/mathgl/mgl32"

// Mesh is an indexed triangle list. Every emitted quad owns four vertices and
// two triangles; normals and UVs are per vertex.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32

	// TruncatedSlices counts slices whose merge loop hit the merge ceiling.
	// Their remaining faces were dropped.
	TruncatedSlices int
}

// QuadCount returns the number of merged faces.
func (m *Mesh) QuadCount() int {
	return len(m.Positions) / 4
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Empty reports whether the mesh has no geometry.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Positions) == 0
}

// Bounds returns the axis-aligned box around all vertices.
func (m *Mesh) Bounds() Bounds {
	if m.Empty() {
		return Bounds{}
	}
	b := Bounds{Min: m.Positions[0], Max: m.Positions[0]}
	for _, p := range m.Positions[1:] {
		b = b.Grow(p)
	}
	return b
}

func (m *Mesh) addQuad(corners [4]mgl32.Vec3, normal mgl32.Vec3, material uint8, flip bool) {
	base := uint32(len(m.Positions))
	m.Positions = append(m.Positions, corners[:]...)

	if flip {
		m.Indices = append(m.Indices, base, base+2, base+1, base, base+3, base+2)
	} else {
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	m.Normals = append(m.Normals, normal, normal, normal, normal)

	u0, u1 := UV(material)
	m.UVs = append(m.UVs,
		mgl32.Vec2{u0, 0},
		mgl32.Vec2{u1, 0},
		mgl32.Vec2{u1, 1},
		mgl32.Vec2{u0, 1},
	)
}
