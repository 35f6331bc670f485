package vopl

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/voxelsplace/voxkernel/voxel"
)

// Edit sets one cell. Material 0 clears it.
type Edit struct {
	X, Y, Z  uint8
	Material uint8
}

// VPE streams are continuous bit sequences of (Morton code, material)
// entries. The code width is MortonBits of the target grid and the material
// takes 8 bits; trailing bits shorter than one entry are padding.

func entryBits(size voxel.Size) (code, entry uint8) {
	code = uint8(MortonBits(size[0], size[1], size[2]))
	return code, code + 8
}

// EncodeEdits writes edits for a grid of the given size.
func EncodeEdits(size voxel.Size, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return nil, nil
	}
	codeBits, _ := entryBits(size)
	bw := newBitWriter(nil)
	for _, e := range edits {
		if !size.Contains(voxel.Coord{int(e.X), int(e.Y), int(e.Z)}) {
			return nil, errors.New("edit outside grid").
				WithType(ErrTypeInvalidEdit).
				WithTag("x", e.X).
				WithTag("y", e.Y).
				WithTag("z", e.Z)
		}
		bw.writeBits(Morton3D64(uint32(e.X), uint32(e.Y), uint32(e.Z)), codeBits)
		bw.writeBits(uint64(e.Material), 8)
	}
	return bw.bytes(), nil
}

// DecodeEdits reads a VPE stream written for a grid of the given size.
func DecodeEdits(size voxel.Size, data []byte) ([]Edit, error) {
	codeBits, width := entryBits(size)
	br := newBitReader(data)

	var edits []Edit
	for br.remaining() >= int(width) {
		code, err := br.readBits(codeBits)
		if err != nil {
			return nil, err
		}
		material, err := br.readBits(8)
		if err != nil {
			return nil, err
		}
		x, y, z := MortonDecode3D64(code)
		if !size.Contains(voxel.Coord{int(x), int(y), int(z)}) {
			return nil, errors.New("edit index out of range").
				WithType(ErrTypeInvalidEdit).
				WithTag("code", code)
		}
		edits = append(edits, Edit{X: uint8(x), Y: uint8(y), Z: uint8(z), Material: uint8(material)})
	}
	return edits, nil
}

// Apply writes edits into g in stream order.
func (g *Grid) Apply(edits []Edit) error {
	for _, e := range edits {
		if !g.Set(int(e.X), int(e.Y), int(e.Z), e.Material) {
			return errors.New("edit outside grid").
				WithType(ErrTypeInvalidEdit).
				WithTag("x", e.X).
				WithTag("y", e.Y).
				WithTag("z", e.Z)
		}
	}
	return nil
}

// ApplyStream decodes a VPE stream and applies it to g.
func (g *Grid) ApplyStream(data []byte) error {
	edits, err := DecodeEdits(g.Size(), data)
	if err != nil {
		return err
	}
	return g.Apply(edits)
}

// Diff returns the edits turning from into to, in y, z, x scan order. A nil
// from diffs against an empty grid.
func Diff(from, to *Grid) ([]Edit, error) {
	if from != nil && (from.W != to.W || from.H != to.H || from.D != to.D) {
		return nil, errors.New("grid sizes differ").
			WithType(ErrTypeInvalidEdit).
			WithTag("from", from.Size()).
			WithTag("to", to.Size())
	}

	var edits []Edit
	i := 0
	for y := 0; y < to.H; y++ {
		for z := 0; z < to.D; z++ {
			for x := 0; x < to.W; x++ {
				var before uint8
				if from != nil {
					before = from.Cells[i]
				}
				if after := to.Cells[i]; after != before {
					edits = append(edits, Edit{X: uint8(x), Y: uint8(y), Z: uint8(z), Material: after})
				}
				i++
			}
		}
	}
	return edits, nil
}
