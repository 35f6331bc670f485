package voxel

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestNewMap(t *testing.T) {
	t.Run("later voxels win", func(t *testing.T) {
		m := NewMap([]Voxel{
			{X: 1, Y: 2, Z: 3, Material: 4},
			{X: 1, Y: 2, Z: 3, Material: 9},
		}, nil)
		require.Len(t, m, 1)
		material, ok := m.Lookup(Coord{1, 2, 3})
		require.True(t, ok)
		require.Equal(t, uint8(9), material)
	})

	t.Run("explicit zero is empty", func(t *testing.T) {
		m := NewMap([]Voxel{{X: 0, Y: 0, Z: 0, Material: 0}}, nil)
		_, ok := m.Lookup(Coord{})
		require.True(t, ok)
		require.False(t, m.Solid(Coord{}))
		require.Empty(t, m.Voxels())
	})

	t.Run("filter", func(t *testing.T) {
		voxels := []Voxel{
			{X: 0, Material: 1},
			{X: 1, Material: 2},
			{X: 2, Material: 3},
		}
		m := NewMap(voxels, ExcludeFilter(2))
		require.Len(t, m, 2)
		require.False(t, m.Solid(Coord{1, 0, 0}))

		m = NewMap(voxels, MaterialFilter(2))
		require.Len(t, m, 1)
		require.True(t, m.Solid(Coord{1, 0, 0}))

		m = NewMap(voxels, AllFilters(BoundsFilter(Size{2, 1, 1}), ExcludeFilter(1)))
		require.Equal(t, Map{{1, 0, 0}: 2}, m)
	})

	t.Run("nil input", func(t *testing.T) {
		require.Empty(t, NewMap(nil, nil))
	})
}

func TestMapVoxelsOrder(t *testing.T) {
	m := NewMap([]Voxel{
		{X: 2, Y: 1, Z: 0, Material: 1},
		{X: 0, Y: 0, Z: 1, Material: 2},
		{X: 1, Y: 0, Z: 1, Material: 3},
		{X: 5, Y: 0, Z: 0, Material: 4},
	}, nil)

	require.Equal(t, []Voxel{
		{X: 5, Y: 0, Z: 0, Material: 4},
		{X: 0, Y: 0, Z: 1, Material: 2},
		{X: 1, Y: 0, Z: 1, Material: 3},
		{X: 2, Y: 1, Z: 0, Material: 1},
	}, m.Voxels())
}

func TestSize(t *testing.T) {
	s := Size{2, 3, 4}
	require.Equal(t, 24, s.Volume())
	require.True(t, s.Contains(Coord{1, 2, 3}))
	require.False(t, s.Contains(Coord{2, 0, 0}))
	require.False(t, s.Contains(Coord{0, -1, 0}))
}

func TestPalette(t *testing.T) {
	p := DefaultPalette()
	require.Equal(t, color.RGBA{}, p[0])
	require.Equal(t, color.RGBA{A: 255}, p[1])
	require.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, p[216])
	require.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, p[255])
	require.Equal(t, color.RGBA{}, p.Color(-1))
	require.Equal(t, color.RGBA{}, p.Color(256))

	img := p.Texture()
	require.Equal(t, 256, img.Bounds().Dx())
	require.Equal(t, 1, img.Bounds().Dy())
	require.Equal(t, p[7], img.RGBAAt(7, 0))

	require.False(t, p.Translucent([]uint8{1, 2, 3}))
	p[2].A = 128
	require.True(t, p.Translucent([]uint8{1, 2, 3}))
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{in: "#ff0000", want: color.RGBA{R: 255, A: 255}},
		{in: "#00ff0080", want: color.RGBA{G: 255, A: 128}},
		{in: "ff0000", wantErr: true},
		{in: "#ff00", wantErr: true},
		{in: "#gg0000", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			c, err := ParseHexColor(test.in)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, c)
		})
	}
}

func TestPaletteFromHex(t *testing.T) {
	p, err := PaletteFromHex([]string{"#102030", "#405060"})
	require.NoError(t, err)
	require.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}, p[1])
	require.Equal(t, color.RGBA{R: 0x40, G: 0x50, B: 0x60, A: 255}, p[2])

	_, err = PaletteFromHex([]string{"#102030", "nope"})
	require.Error(t, err)
}

func TestUV(t *testing.T) {
	u0, u1 := UV(0)
	require.Equal(t, float32(0), u0)
	require.Equal(t, float32(1)/256, u1)

	u0, u1 = UV(255)
	require.Equal(t, float32(255)/256, u0)
	require.Equal(t, float32(1), u1)
}

func TestPlacementMatrix(t *testing.T) {
	require.Equal(t, mgl32.Ident4(), Identity().Matrix(Size{3, 4, 5}))

	p := Identity()
	p.Anchor = mgl32.Vec3{0.5, 0, 0.5}
	got := TransformPoint(p.Matrix(Size{4, 2, 6}), mgl32.Vec3{})
	requireVec3(t, mgl32.Vec3{-2, 0, -3}, got)

	p = Identity()
	p.Rotation = mgl32.Vec3{0, 90, 0}
	p.Position = mgl32.Vec3{10, 0, 0}
	got = TransformPoint(p.Matrix(Size{1, 1, 1}), mgl32.Vec3{1, 0, 0})
	requireVec3(t, mgl32.Vec3{10, 0, -1}, got)

	p = Identity()
	p.Scale = mgl32.Vec3{2, 3, 4}
	got = TransformVector(p.Matrix(Size{1, 1, 1}), mgl32.Vec3{1, 1, 1})
	requireVec3(t, mgl32.Vec3{2, 3, 4}, got)
}

func TestHandedness(t *testing.T) {
	require.Equal(t, 1, Handedness(mgl32.Ident4()))
	require.Equal(t, 1, Handedness(mgl32.HomogRotate3DY(1.2)))
	require.Equal(t, -1, Handedness(mgl32.Scale3D(-1, 1, 1)))
	require.Equal(t, 1, Handedness(mgl32.Scale3D(-1, -1, 1)))
}

func requireVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	require.True(t, want.ApproxEqualThreshold(got, 1e-4), "want %v, got %v", want, got)
}
