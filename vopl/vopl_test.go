package vopl

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/voxkernel/voxel"
)

func noiseGrid(t *testing.T, w, h, d int, fill float64, maxMaterial int, seed int64) *Grid {
	t.Helper()
	g, err := NewGrid(w, h, d)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(seed))
	for i := range g.Cells {
		if r.Float64() < fill {
			g.Cells[i] = uint8(1 + r.Intn(maxMaterial))
		}
	}
	return g
}

func TestNewGrid(t *testing.T) {
	_, err := NewGrid(0, 1, 1)
	require.True(t, errors.IsType(err, ErrTypeInvalidContainer))

	_, err = NewGrid(256, 1, 1)
	require.Error(t, err)

	g, err := NewGrid(3, 4, 5)
	require.NoError(t, err)
	require.Len(t, g.Cells, 60)
	require.Equal(t, voxel.Size{3, 4, 5}, g.Size())
}

func TestGridVoxels(t *testing.T) {
	voxels := []voxel.Voxel{
		{X: 2, Y: 0, Z: 0, Material: 1},
		{X: 0, Y: 1, Z: 0, Material: 2},
		{X: 1, Y: 0, Z: 2, Material: 3},
	}
	g, err := FromVoxels(voxel.Size{3, 2, 3}, voxels)
	require.NoError(t, err)
	require.Equal(t, 3, g.Count())
	require.Equal(t, uint8(3), g.MaxMaterial())
	require.Equal(t, uint8(3), g.Get(1, 0, 2))
	require.Equal(t, uint8(0), g.Get(-1, 0, 0))

	require.Equal(t, []voxel.Voxel{
		{X: 2, Y: 0, Z: 0, Material: 1},
		{X: 1, Y: 0, Z: 2, Material: 3},
		{X: 0, Y: 1, Z: 0, Material: 2},
	}, g.Voxels())

	// Same order as the kernel map.
	require.Equal(t, voxel.NewMap(voxels, nil).Voxels(), g.Voxels())

	_, err = FromVoxels(voxel.Size{2, 2, 2}, []voxel.Voxel{{X: 2, Material: 1}})
	require.True(t, errors.IsType(err, ErrTypeInvalidContainer))
}

func TestMortonOrder(t *testing.T) {
	order := mortonOrder(2, 2, 2)
	// x, then y, then z bit.
	g := &Grid{W: 2, H: 2, D: 2}
	want := []int{
		g.index(0, 0, 0), g.index(1, 0, 0), g.index(0, 1, 0), g.index(1, 1, 0),
		g.index(0, 0, 1), g.index(1, 0, 1), g.index(0, 1, 1), g.index(1, 1, 1),
	}
	require.Equal(t, want, order)

	seen := make(map[int]bool)
	for _, i := range mortonOrder(5, 3, 7) {
		seen[i] = true
	}
	require.Len(t, seen, 5*3*7)
}

func TestMorton3D64(t *testing.T) {
	for _, c := range [][3]uint32{{0, 0, 0}, {1, 2, 3}, {254, 17, 128}} {
		x, y, z := MortonDecode3D64(Morton3D64(c[0], c[1], c[2]))
		require.Equal(t, c, [3]uint32{x, y, z})
	}
	require.Equal(t, 12, MortonBits(16, 16, 16))
	require.Equal(t, 24, MortonBits(255, 2, 2))
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		grid func(t *testing.T) *Grid
		bpp  uint8
	}{
		{name: "empty", grid: func(t *testing.T) *Grid { return noiseGrid(t, 16, 16, 16, 0, 1, 1) }},
		{name: "sparse", grid: func(t *testing.T) *Grid { return noiseGrid(t, 16, 16, 16, 0.01, 63, 2) }},
		{name: "half", grid: func(t *testing.T) *Grid { return noiseGrid(t, 16, 16, 16, 0.5, 63, 3) }},
		{name: "full", grid: func(t *testing.T) *Grid { return noiseGrid(t, 16, 16, 16, 1, 255, 4) }},
		{name: "odd size", grid: func(t *testing.T) *Grid { return noiseGrid(t, 7, 3, 11, 0.3, 5, 5) }},
		{name: "wide bpp", grid: func(t *testing.T) *Grid { return noiseGrid(t, 4, 4, 4, 0.3, 3, 6) }, bpp: 8},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := test.grid(t)
			data, err := Encode(g, test.bpp)
			require.NoError(t, err)

			decoded, h, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, g, decoded)
			require.Equal(t, uint8(version), h.Ver)
			require.Equal(t, uint32(len(data)-headerSize), h.PLen)
			if test.bpp != 0 {
				require.Equal(t, test.bpp, h.BPP)
			}
		})
	}
}

func TestEncodeEveryEncoding(t *testing.T) {
	g := noiseGrid(t, 9, 5, 6, 0.4, 7, 9)
	stream := g.flatten()
	for _, enc := range []uint8{EncDense, EncSparse, EncSparse2} {
		for _, zipped := range []bool{false, true} {
			var payload []byte
			switch enc {
			case EncDense:
				payload = encodeDense(stream, 3)
			case EncSparse:
				payload = encodeSparse(stream, 3)
			case EncSparse2:
				payload = encodeSparse2(stream, 3)
			}
			e := enc
			if zipped {
				payload = zlibCompress(payload)
				e |= EncZlib
			}
			decoded, err := decodePayload(9, 5, 6, 3, e, payload)
			require.NoError(t, err)
			require.Equal(t, g.Cells, decoded.Cells)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	g := noiseGrid(t, 2, 2, 2, 1, 200, 1)
	g.Cells[0] = 200
	_, err := Encode(g, 4)
	require.True(t, errors.IsType(err, ErrTypeInvalidContainer))

	_, err = Encode(g, 9)
	require.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	g := noiseGrid(t, 4, 4, 4, 0.5, 3, 1)
	data, err := Encode(g, 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "short", data: data[:10]},
		{name: "magic", data: append([]byte("XOPL"), data[4:]...)},
		{name: "version", data: patched(data, 4, 2)},
		{name: "truncated payload", data: data[:len(data)-1]},
		{name: "unknown encoding", data: patched(data, 5, 0x7f)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := Decode(test.data)
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeInvalidContainer))
		})
	}
}

func patched(data []byte, i int, v byte) []byte {
	b := append([]byte(nil), data...)
	b[i] = v
	return b
}

func TestSaveLoad(t *testing.T) {
	g := noiseGrid(t, 8, 8, 8, 0.2, 15, 11)
	g.Cells[0] = 15
	path := filepath.Join(t.TempDir(), "model.vopl")
	require.NoError(t, Save(path, g, 0))

	loaded, h, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, g, loaded)
	require.Equal(t, uint8(4), h.BPP)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.vopl"))
	require.Error(t, err)
}
