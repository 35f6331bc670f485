package voxel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

type face struct {
	coord Coord
	dir   int
}

func axisOf(normal mgl32.Vec3) (int, int) {
	for i := 0; i < 3; i++ {
		if normal[i] > 0.5 {
			return i, 1
		}
		if normal[i] < -0.5 {
			return i, -1
		}
	}
	return -1, 0
}

func dirIndex(axis, sign int) int {
	for i, d := range directions {
		if d.normal[axis] == sign {
			return i
		}
	}
	return -1
}

// bruteForceFaces returns every exposed unit face with its material.
func bruteForceFaces(m Map) map[face]uint8 {
	out := make(map[face]uint8)
	for c, material := range m {
		if material == 0 {
			continue
		}
		for i, d := range directions {
			if !m.Solid(c.Add(d.normal)) {
				out[face{coord: c, dir: i}] = material
			}
		}
	}
	return out
}

// meshFaces expands the quads of an identity-transformed mesh back into unit
// faces. It fails on overlapping quads.
func meshFaces(t *testing.T, mesh *Mesh) map[face]uint8 {
	t.Helper()
	out := make(map[face]uint8)
	for q := 0; q < mesh.QuadCount(); q++ {
		axis, sign := axisOf(mesh.Normals[q*4])
		require.NotEqual(t, -1, axis)
		dir := dirIndex(axis, sign)

		b := Bounds{Min: mesh.Positions[q*4], Max: mesh.Positions[q*4]}
		for _, p := range mesh.Positions[q*4+1 : q*4+4] {
			b = b.Grow(p)
		}
		require.Equal(t, b.Min[axis], b.Max[axis], "quad %d is not planar", q)

		material := uint8(math.Round(float64(mesh.UVs[q*4][0] * PaletteSize)))

		plane := int(b.Min[axis])
		if sign > 0 {
			plane--
		}
		d := directions[dir]
		for p := int(b.Min[d.primary]); p < int(b.Max[d.primary]); p++ {
			for s := int(b.Min[d.secondary]); s < int(b.Max[d.secondary]); s++ {
				var c Coord
				c[axis] = plane
				c[d.primary] = p
				c[d.secondary] = s
				f := face{coord: c, dir: dir}
				_, dup := out[f]
				require.False(t, dup, "face %v covered twice", f)
				out[f] = material
			}
		}
	}
	return out
}

func randomMap(seed int64, n int) Map {
	r := rand.New(rand.NewSource(seed))
	var voxels []Voxel
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				if r.Intn(2) == 0 {
					continue
				}
				voxels = append(voxels, Voxel{X: uint8(x), Y: uint8(y), Z: uint8(z), Material: uint8(1 + r.Intn(3))})
			}
		}
	}
	return NewMap(voxels, nil)
}

func TestGreedyMeshMergesSharedFaces(t *testing.T) {
	mesh := MeshVoxels([]Voxel{
		{X: 0, Y: 0, Z: 0, Material: 5},
		{X: 1, Y: 0, Z: 0, Material: 5},
	}, mgl32.Ident4(), nil)

	require.Equal(t, 6, mesh.QuadCount())
	require.Equal(t, 12, mesh.TriangleCount())
	require.Len(t, mesh.Positions, 24)
	require.Len(t, mesh.Normals, 24)
	require.Len(t, mesh.UVs, 24)
	require.Zero(t, mesh.TruncatedSlices)

	var upQuads int
	for q := 0; q < mesh.QuadCount(); q++ {
		if axis, sign := axisOf(mesh.Normals[q*4]); axis == 1 && sign == 1 {
			upQuads++
			b := Bounds{Min: mesh.Positions[q*4], Max: mesh.Positions[q*4]}
			for _, p := range mesh.Positions[q*4 : q*4+4] {
				b = b.Grow(p)
			}
			require.Equal(t, mgl32.Vec3{0, 1, 0}, b.Min)
			require.Equal(t, mgl32.Vec3{2, 1, 1}, b.Max)
		}
	}
	require.Equal(t, 1, upQuads)
	require.Len(t, meshFaces(t, mesh), 10)
}

func TestGreedyMeshCoverage(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		m := randomMap(seed, 6)
		mesh := GreedyMesh(m, mgl32.Ident4())
		require.Zero(t, mesh.TruncatedSlices)
		require.Equal(t, bruteForceFaces(m), meshFaces(t, mesh))
	}
}

func TestGreedyMeshNoHiddenFaces(t *testing.T) {
	var voxels []Voxel
	for x := uint8(0); x < 3; x++ {
		for y := uint8(0); y < 3; y++ {
			for z := uint8(0); z < 3; z++ {
				voxels = append(voxels, Voxel{X: x, Y: y, Z: z, Material: 1})
			}
		}
	}
	mesh := MeshVoxels(voxels, mgl32.Ident4(), nil)
	require.Equal(t, 6, mesh.QuadCount())

	b := mesh.Bounds()
	require.Equal(t, mgl32.Vec3{0, 0, 0}, b.Min)
	require.Equal(t, mgl32.Vec3{3, 3, 3}, b.Max)
}

func TestGreedyMeshZeroMaterialIsAir(t *testing.T) {
	mesh := MeshVoxels([]Voxel{
		{X: 0, Material: 1},
		{X: 1, Material: 0},
	}, mgl32.Ident4(), nil)
	require.Equal(t, 6, mesh.QuadCount())
}

func TestGreedyMeshEmpty(t *testing.T) {
	mesh := GreedyMesh(Map{}, mgl32.Ident4())
	require.True(t, mesh.Empty())
	require.Zero(t, mesh.TriangleCount())
	require.Equal(t, Bounds{}, mesh.Bounds())
}

func TestGreedyMeshDeterministic(t *testing.T) {
	m := randomMap(42, 8)
	transform := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.3))
	require.Equal(t, GreedyMesh(m, transform), GreedyMesh(m, transform))
}

func TestGreedyMeshWinding(t *testing.T) {
	m := randomMap(7, 4)

	tests := []struct {
		name      string
		transform mgl32.Mat4
	}{
		{name: "identity", transform: mgl32.Ident4()},
		{name: "rotated", transform: mgl32.HomogRotate3DX(0.7).Mul4(mgl32.Translate3D(-2, 0, 1))},
		{name: "mirrored x", transform: mgl32.Scale3D(-1, 1, 1)},
		{name: "mirrored z scaled", transform: mgl32.Scale3D(2, 1, -3)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mesh := GreedyMesh(m, test.transform)
			require.NotZero(t, mesh.TriangleCount())
			for i := 0; i < len(mesh.Indices); i += 3 {
				a := mesh.Positions[mesh.Indices[i]]
				b := mesh.Positions[mesh.Indices[i+1]]
				c := mesh.Positions[mesh.Indices[i+2]]
				n := mesh.Normals[mesh.Indices[i]]
				require.Greater(t, b.Sub(a).Cross(c.Sub(a)).Dot(n), float32(0))
			}
		})
	}
}

func TestGreedyMeshMirrorFlipsWinding(t *testing.T) {
	m := NewMap([]Voxel{{Material: 1}}, nil)
	plain := GreedyMesh(m, mgl32.Ident4())
	mirrored := GreedyMesh(m, mgl32.Scale3D(-1, 1, 1))
	require.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, plain.Indices[:6])
	require.Equal(t, []uint32{0, 2, 1, 0, 3, 2}, mirrored.Indices[:6])
}

func TestGreedyMeshNormalsNotRenormalized(t *testing.T) {
	mesh := GreedyMesh(NewMap([]Voxel{{Material: 1}}, nil), mgl32.Scale3D(2, 1, 1))
	for q := 0; q < mesh.QuadCount(); q++ {
		n := mesh.Normals[q*4]
		if n[0] != 0 {
			require.Equal(t, float32(2), float32(math.Abs(float64(n[0]))))
		}
	}
}

func TestGreedyMeshUVs(t *testing.T) {
	mesh := MeshVoxels([]Voxel{{Material: 3}}, mgl32.Ident4(), nil)
	for q := 0; q < mesh.QuadCount(); q++ {
		require.Equal(t, []mgl32.Vec2{
			{3.0 / 256, 0},
			{4.0 / 256, 0},
			{4.0 / 256, 1},
			{3.0 / 256, 1},
		}, mesh.UVs[q*4:q*4+4])
	}
}

func TestGreedyMeshSliceCeiling(t *testing.T) {
	m := NewMap([]Voxel{
		{X: 0, Material: 1},
		{X: 2, Material: 1},
		{X: 4, Material: 1},
	}, nil)

	mesh := Mesher{MaxSliceMerges: 2}.Mesh(m, mgl32.Ident4())
	// The z and y slices hold three separate faces each; the x slices one.
	require.Equal(t, 4, mesh.TruncatedSlices)
	require.Equal(t, 4*2+6, mesh.QuadCount())

	mesh = Mesher{MaxSliceMerges: -1}.Mesh(m, mgl32.Ident4())
	require.Zero(t, mesh.TruncatedSlices)
	require.Equal(t, 18, mesh.QuadCount())
}

func TestGreedyMeshDirectionTable(t *testing.T) {
	for _, d := range directions {
		require.Equal(t, toVec3(d.normal), toVec3(d.right).Cross(toVec3(d.up)))
		require.NotEqual(t, d.axis, d.primary)
		require.NotEqual(t, d.axis, d.secondary)
		require.NotEqual(t, d.primary, d.secondary)
	}
}
