package api

import (
	"bytes"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/voxkernel/job"
	"github.com/voxelsplace/voxkernel/vopl"
	"github.com/voxelsplace/voxkernel/voxel"
)

func encode(t *testing.T, size voxel.Size, voxels []voxel.Voxel) []byte {
	t.Helper()
	g, err := vopl.FromVoxels(size, voxels)
	require.NoError(t, err)
	data, err := vopl.Encode(g, 0)
	require.NoError(t, err)
	return data
}

func solid(n uint8, material uint8) []voxel.Voxel {
	var voxels []voxel.Voxel
	for y := uint8(0); y < n; y++ {
		for z := uint8(0); z < n; z++ {
			for x := uint8(0); x < n; x++ {
				voxels = append(voxels, voxel.Voxel{X: x, Y: y, Z: z, Material: material})
			}
		}
	}
	return voxels
}

func floor(n uint8) []voxel.Voxel {
	var voxels []voxel.Voxel
	for z := uint8(0); z < n; z++ {
		for x := uint8(0); x < n; x++ {
			voxels = append(voxels, voxel.Voxel{X: x, Z: z, Material: 2})
		}
	}
	return voxels
}

func TestLoadModel(t *testing.T) {
	data := encode(t, voxel.Size{3, 1, 1}, []voxel.Voxel{
		{X: 0, Material: 1},
		{X: 1, Material: 2},
		{X: 2, Material: 3},
	})

	j := job.Default()
	j.Filter.Exclude = []int{2}
	j.Placement.Position = [3]float32{10, 0, 0}

	m, err := LoadModel(data, j)
	require.NoError(t, err)
	require.Len(t, m.Volume.Voxels, 2)
	require.Equal(t, 3, m.Grid.Count())
	require.Equal(t, mgl32.Vec3{10, 0, 0}, m.Volume.Placement.Position)

	_, err = LoadModel([]byte("nope"), j)
	require.True(t, errors.IsType(err, vopl.ErrTypeInvalidContainer))
}

func TestMeshGLB(t *testing.T) {
	data := encode(t, voxel.Size{2, 1, 1}, []voxel.Voxel{
		{X: 0, Material: 5},
		{X: 1, Material: 5},
	})

	res, err := MeshGLB(data, job.Default())
	require.NoError(t, err)
	require.Equal(t, 6, res.Quads)
	require.Equal(t, 12, res.Triangles)
	require.Zero(t, res.TruncatedSlices)
	require.Equal(t, "glTF", string(res.GLB[:4]))
}

func TestFragment(t *testing.T) {
	data := encode(t, voxel.Size{4, 4, 4}, solid(4, 1))
	j := job.Default()
	j.Fragments.Count = 4
	j.Fragments.Workers = 2

	res, err := Fragment(data, j, true, vopl.LayoutCDC, vopl.PackCompZstd)
	require.NoError(t, err)
	require.Equal(t, 4, res.Fragments+res.Empty)
	require.Positive(t, res.Fragments)
	require.Positive(t, res.Quads)

	files, err := Unpack(res.Pack)
	require.NoError(t, err)
	require.Len(t, files, res.Fragments)

	var total int
	for _, f := range files {
		g, _, err := vopl.Decode(f)
		require.NoError(t, err)
		total += g.Count()
	}
	require.Equal(t, 64, total)

	var doc gltf.Document
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(res.GLB)).Decode(&doc))
	require.Len(t, doc.Meshes, res.Fragments)
}

func TestFragmentWithoutGLB(t *testing.T) {
	data := encode(t, voxel.Size{2, 2, 2}, solid(2, 3))
	j := job.Default()
	j.Fragments.Count = 1

	res, err := Fragment(data, j, false, vopl.LayoutRaw, vopl.PackCompNone)
	require.NoError(t, err)
	require.Equal(t, 1, res.Fragments)
	require.Nil(t, res.GLB)
	require.Zero(t, res.Quads)
}

func TestRaycast(t *testing.T) {
	data := encode(t, voxel.Size{4, 1, 1}, []voxel.Voxel{
		{X: 1, Material: 4},
		{X: 3, Material: 6},
	})
	origin := mgl32.Vec3{-1, 0.5, 0.5}
	dir := mgl32.Vec3{1, 0, 0}

	hits, err := Raycast(data, job.Default(), origin, dir, false)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, voxel.Coord{1, 0, 0}, hits[0].Coord)
	require.Equal(t, uint8(4), hits[0].Material)
	require.Equal(t, voxel.Coord{-1, 0, 0}, hits[0].Normal)
	require.Equal(t, [3]float32{1.5, 0.5, 0.5}, hits[0].Center)

	hits, err = Raycast(data, job.Default(), origin, dir, true)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, uint8(6), hits[1].Material)

	hits, err = Raycast(data, job.Default(), mgl32.Vec3{-1, 5, 0.5}, dir, true)
	require.NoError(t, err)
	require.Empty(t, hits)

	_, err = Raycast(data, job.Default(), origin, mgl32.Vec3{}, false)
	require.True(t, errors.IsType(err, job.ErrTypeInvalidJob))
}

func TestRaycastPlaced(t *testing.T) {
	data := encode(t, voxel.Size{1, 1, 1}, []voxel.Voxel{{Material: 1}})
	j := job.Default()
	j.Placement.Position = [3]float32{10, 0, 0}

	hits, err := Raycast(data, j, mgl32.Vec3{0, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, false)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, [3]float32{10.5, 0.5, 0.5}, hits[0].Center)
}

func TestColliders(t *testing.T) {
	data := encode(t, voxel.Size{3, 3, 3}, floor(3))

	tests := []struct {
		mode  job.ColliderMode
		boxes []Collider
		count int
		mesh  bool
	}{
		{mode: job.CollidersNone},
		{
			mode:  job.CollidersBounds,
			boxes: []Collider{{Center: [3]float32{1.5, 1.5, 1.5}, Size: [3]float32{3, 3, 3}}},
			count: 1,
		},
		{
			mode:  job.CollidersTightBounds,
			boxes: []Collider{{Center: [3]float32{1.5, 0.5, 1.5}, Size: [3]float32{3, 1, 3}}},
			count: 1,
		},
		{
			mode:  job.CollidersBoxes,
			boxes: []Collider{{Center: [3]float32{1.5, 0.5, 1.5}, Size: [3]float32{3, 1, 3}}},
			count: 1,
		},
		{mode: job.CollidersCubes, count: 9},
		{mode: job.CollidersMesh, mesh: true},
	}

	for _, test := range tests {
		t.Run(string(test.mode), func(t *testing.T) {
			j := job.Default()
			j.Colliders.Mode = test.mode

			set, err := Colliders(data, j)
			require.NoError(t, err)
			require.Equal(t, test.mode, set.Mode)
			require.Len(t, set.Boxes, test.count)
			if test.boxes != nil {
				require.Equal(t, test.boxes, set.Boxes)
			}
			if test.mesh {
				require.NotNil(t, set.Mesh)
				require.Len(t, set.Mesh.Positions, 24)
				require.Len(t, set.Mesh.Indices, 36)
			} else {
				require.Nil(t, set.Mesh)
			}
		})
	}

	j := job.Default()
	j.Colliders.Mode = "spheres"
	_, err := Colliders(data, j)
	require.True(t, errors.IsType(err, job.ErrTypeInvalidJob))
}

func TestPackUnpack(t *testing.T) {
	files := map[string][]byte{
		"b.vopl": encode(t, voxel.Size{4, 4, 4}, solid(2, 3)),
		"a.vopl": encode(t, voxel.Size{4, 4, 4}, solid(3, 2)),
	}

	for _, comp := range []vopl.PackCompression{vopl.PackCompNone, vopl.PackCompZlib, vopl.PackCompZstd} {
		data, err := Pack(files, vopl.LayoutRaw, comp)
		require.NoError(t, err)

		back, err := Unpack(data)
		require.NoError(t, err)
		require.Equal(t, files, back)
	}

	_, err := Pack(nil, vopl.LayoutRaw, vopl.PackCompNone)
	require.True(t, errors.IsType(err, vopl.ErrTypeInvalidPack))

	files["c.vopl"] = encode(t, voxel.Size{2, 2, 2}, solid(2, 3))
	_, err = Pack(files, vopl.LayoutRaw, vopl.PackCompNone)
	require.True(t, errors.IsType(err, vopl.ErrTypeInvalidPack))
}

func TestPackGLB(t *testing.T) {
	files := map[string][]byte{
		"a.vopl": encode(t, voxel.Size{2, 2, 2}, solid(2, 3)),
		"b.vopl": encode(t, voxel.Size{2, 2, 2}, solid(1, 3)),
		"c.vopl": encode(t, voxel.Size{2, 2, 2}, solid(2, 2)),
	}
	data, err := Pack(files, vopl.LayoutCDC, vopl.PackCompZlib)
	require.NoError(t, err)

	out, err := PackGLB(data, job.Default())
	require.NoError(t, err)

	var doc gltf.Document
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(out)).Decode(&doc))
	require.Len(t, doc.Meshes, 3)

	_, err = PackGLB([]byte("garbage"), job.Default())
	require.True(t, errors.IsType(err, vopl.ErrTypeInvalidPack))
}

func TestApplyEditsAndDiff(t *testing.T) {
	from := encode(t, voxel.Size{3, 3, 3}, floor(3))
	to := encode(t, voxel.Size{3, 3, 3}, []voxel.Voxel{
		{X: 1, Y: 2, Z: 1, Material: 200},
		{X: 0, Y: 0, Z: 0, Material: 2},
	})

	vpe, n, err := Diff(from, to)
	require.NoError(t, err)
	require.Equal(t, 9, n)

	out, applied, err := ApplyEdits(from, vpe)
	require.NoError(t, err)
	require.Equal(t, n, applied)

	got, h, err := vopl.Decode(out)
	require.NoError(t, err)
	want, _, err := vopl.Decode(to)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, uint8(8), h.BPP)

	vpe, n, err = Diff(nil, to)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NotEmpty(t, vpe)

	_, _, err = Diff(encode(t, voxel.Size{2, 2, 2}, nil), to)
	require.True(t, errors.IsType(err, vopl.ErrTypeInvalidEdit))
}

func TestFromRLE(t *testing.T) {
	data, err := FromRLE(2, 2, 2, "1,0,2,7,5,0")
	require.NoError(t, err)

	g, h, err := vopl.Decode(data)
	require.NoError(t, err)
	require.Equal(t, 2, g.Count())
	require.Equal(t, uint8(3), h.BPP)

	_, err = FromRLE(2, 2, 2, "1,0")
	require.True(t, errors.IsType(err, vopl.ErrTypeInvalidContainer))
}
