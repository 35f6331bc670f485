package vopl

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	xxhash "github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// PackCompression indicates the compression used for the pack content section.
type PackCompression uint8

const (
	PackCompNone PackCompression = 0
	PackCompZlib PackCompression = 1
	PackCompZstd PackCompression = 2
)

// PackLayout specifies how the content section stores entry payloads.
type PackLayout uint8

const (
	// LayoutRaw stores entries as independent payload blobs.
	LayoutRaw PackLayout = 0
	// LayoutCDC stores a content-defined chunk dictionary and entries as
	// sequences of chunk refs.
	LayoutCDC PackLayout = 1
)

const (
	packMagic   = "VOPLPACK"
	packVersion = 2

	cdcTarget = 4096
	cdcMin    = 2048
	cdcMax    = 16384
)

// PackEntry is a single grid payload inside a pack.
type PackEntry struct {
	Name    string
	Enc     uint8
	Payload []byte
}

// Pack bundles grids sharing one size and bits per voxel.
type Pack struct {
	Header  Header // Enc and PLen are per entry and unused here
	Entries []PackEntry
}

// NewPack returns an empty pack for w x h x d grids.
func NewPack(w, h, d int, bpp uint8) (*Pack, error) {
	if _, err := NewGrid(w, h, d); err != nil {
		return nil, err
	}
	if bpp < 1 || bpp > 8 {
		return nil, errors.New("bits per voxel out of range").
			WithType(ErrTypeInvalidPack).
			WithTag("bpp", bpp)
	}
	return &Pack{
		Header: Header{Ver: version, BPP: bpp, W: uint8(w), H: uint8(h), D: uint8(d), Pal: 1 << bpp},
	}, nil
}

// Add encodes g and appends it under name.
func (p *Pack) Add(name string, g *Grid) error {
	if g.W != int(p.Header.W) || g.H != int(p.Header.H) || g.D != int(p.Header.D) {
		return errors.New("grid size does not match pack").
			WithType(ErrTypeInvalidPack).
			WithTag("name", name).
			WithTag("size", g.Size())
	}
	hdr, payload, err := encodeGrid(g, p.Header.BPP)
	if err != nil {
		return errors.New("encoding pack entry failed").
			WithType(ErrTypeInvalidPack).
			WithTag("name", name).
			Wrap(err)
	}
	p.Entries = append(p.Entries, PackEntry{Name: name, Enc: hdr.Enc, Payload: payload})
	return nil
}

// AddFile appends a complete .vopl file. Its header must match the pack.
func (p *Pack) AddFile(name string, data []byte) error {
	h, payload, err := ParseHeader(data)
	if err != nil {
		return errors.New("invalid pack entry").
			WithType(ErrTypeInvalidPack).
			WithTag("name", name).
			Wrap(err)
	}
	if h.BPP != p.Header.BPP || h.W != p.Header.W || h.H != p.Header.H || h.D != p.Header.D {
		return errors.New("vopl header does not match pack").
			WithType(ErrTypeInvalidPack).
			WithTag("name", name)
	}
	p.Entries = append(p.Entries, PackEntry{Name: name, Enc: h.Enc, Payload: payload})
	return nil
}

// Grid decodes entry i.
func (p *Pack) Grid(i int) (*Grid, error) {
	e := p.Entries[i]
	g, err := decodePayload(int(p.Header.W), int(p.Header.H), int(p.Header.D), p.Header.BPP, e.Enc, e.Payload)
	if err != nil {
		return nil, errors.New("decoding pack entry failed").
			WithType(ErrTypeInvalidPack).
			WithTag("name", e.Name).
			Wrap(err)
	}
	return g, nil
}

// File rebuilds entry i as a standalone .vopl file.
func (p *Pack) File(i int) []byte {
	h := p.Header
	h.Enc = p.Entries[i].Enc
	return BuildFile(h, p.Entries[i].Payload)
}

// Marshal encodes the pack with the given layout and compression.
func (p *Pack) Marshal(layout PackLayout, comp PackCompression) ([]byte, error) {
	content := []byte{p.Header.Ver, p.Header.BPP, p.Header.W, p.Header.H, p.Header.D}
	content = binary.LittleEndian.AppendUint16(content, p.Header.Pal)
	content = append(content, uint8(layout))

	for _, e := range p.Entries {
		if len(e.Name) > math.MaxUint16 {
			return nil, errors.New("entry name too long").
				WithType(ErrTypeInvalidPack).
				WithTag("length", len(e.Name))
		}
	}

	switch layout {
	case LayoutRaw:
		content = binary.LittleEndian.AppendUint32(content, uint32(len(p.Entries)))
		for _, e := range p.Entries {
			content = appendName(content, e.Name)
			content = append(content, e.Enc)
			content = binary.LittleEndian.AppendUint32(content, uint32(len(e.Payload)))
			content = append(content, e.Payload...)
		}

	case LayoutCDC:
		content = binary.LittleEndian.AppendUint32(content, cdcTarget)
		content = binary.LittleEndian.AppendUint32(content, cdcMin)
		content = binary.LittleEndian.AppendUint32(content, cdcMax)

		dict, sequences := buildCDCIndex(p.Entries, cdcTarget, cdcMin, cdcMax)
		content = binary.LittleEndian.AppendUint32(content, uint32(len(dict)))
		for _, blk := range dict {
			content = binary.LittleEndian.AppendUint32(content, uint32(len(blk)))
			content = append(content, blk...)
		}

		content = binary.LittleEndian.AppendUint32(content, uint32(len(p.Entries)))
		for i, e := range p.Entries {
			content = appendName(content, e.Name)
			content = append(content, e.Enc)
			content = binary.LittleEndian.AppendUint32(content, uint32(len(e.Payload)))
			content = binary.LittleEndian.AppendUint32(content, uint32(len(sequences[i])))
			for _, idx := range sequences[i] {
				content = binary.LittleEndian.AppendUint32(content, uint32(idx))
			}
		}

	default:
		return nil, errors.New("unsupported pack layout").
			WithType(ErrTypeInvalidPack).
			WithTag("layout", layout)
	}

	var err error
	switch comp {
	case PackCompNone:
	case PackCompZlib:
		content = zlibCompress(content)
	case PackCompZstd:
		var enc *zstd.Encoder
		if enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			return nil, errors.New("creating zstd encoder failed").Wrap(err)
		}
		content = enc.EncodeAll(content, nil)
	default:
		return nil, errors.New("unsupported pack compression").
			WithType(ErrTypeInvalidPack).
			WithTag("compression", comp)
	}

	out := make([]byte, 0, len(packMagic)+2+len(content))
	out = append(out, packMagic...)
	out = append(out, packVersion, uint8(comp))
	return append(out, content...), nil
}

func appendName(b []byte, name string) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(name)))
	return append(b, name...)
}

// UnmarshalPack parses a .voplpack and returns the pack with the compression
// it was stored with.
func UnmarshalPack(data []byte) (*Pack, PackCompression, error) {
	if len(data) < len(packMagic)+2 || string(data[:len(packMagic)]) != packMagic {
		return nil, 0, errors.New("not a vopl pack").
			WithType(ErrTypeInvalidPack)
	}
	if v := data[8]; v != packVersion {
		return nil, 0, errors.New("unsupported pack version").
			WithType(ErrTypeInvalidPack).
			WithTag("version", v)
	}

	comp := PackCompression(data[9])
	content, err := decompress(comp, data[10:])
	if err != nil {
		return nil, comp, err
	}

	r := packReader{r: bytes.NewReader(content)}
	var p Pack
	p.Header.Ver = r.u8()
	p.Header.BPP = r.u8()
	p.Header.W = r.u8()
	p.Header.H = r.u8()
	p.Header.D = r.u8()
	p.Header.Pal = r.u16()
	layout := PackLayout(r.u8())
	if r.err != nil {
		return nil, comp, r.fail("reading pack header failed")
	}
	if p.Header.Ver != version {
		return nil, comp, errors.New("unsupported vopl version in pack").
			WithType(ErrTypeInvalidPack).
			WithTag("version", p.Header.Ver)
	}

	switch layout {
	case LayoutRaw:
		n := r.u32()
		for i := uint32(0); i < n && r.err == nil; i++ {
			name := r.name()
			enc := r.u8()
			payload := r.bytes(r.u32())
			p.Entries = append(p.Entries, PackEntry{Name: name, Enc: enc, Payload: payload})
		}

	case LayoutCDC:
		r.u32()
		r.u32()
		maxSz := r.u32()

		nBlocks := r.u32()
		if int64(nBlocks)*4 > int64(r.r.Len()) {
			return nil, comp, errors.New("chunk count exceeds content").
				WithType(ErrTypeInvalidPack).
				WithTag("chunks", nBlocks)
		}
		blocks := make([][]byte, nBlocks)
		for i := range blocks {
			if blocks[i] = r.bytes(r.u32()); r.err != nil {
				break
			}
		}

		n := r.u32()
		for i := uint32(0); i < n && r.err == nil; i++ {
			name := r.name()
			enc := r.u8()
			rawLen := r.u32()
			seqLen := r.u32()

			var payload []byte
			for j := uint32(0); j < seqLen && r.err == nil; j++ {
				idx := r.u32()
				if idx >= uint32(len(blocks)) {
					return nil, comp, errors.New("invalid chunk index").
						WithType(ErrTypeInvalidPack).
						WithTag("index", idx)
				}
				payload = append(payload, blocks[idx]...)
				if uint64(len(payload)) > uint64(rawLen)+uint64(maxSz) {
					return nil, comp, errors.New("inconsistent chunk sequence").
						WithType(ErrTypeInvalidPack).
						WithTag("name", name)
				}
			}
			if uint32(len(payload)) != rawLen {
				return nil, comp, errors.New("entry length mismatch").
					WithType(ErrTypeInvalidPack).
					WithTag("name", name).
					WithTag("expected", rawLen).
					WithTag("actual", len(payload))
			}
			p.Entries = append(p.Entries, PackEntry{Name: name, Enc: enc, Payload: payload})
		}

	default:
		return nil, comp, errors.New("unknown pack layout").
			WithType(ErrTypeInvalidPack).
			WithTag("layout", layout)
	}

	if r.err != nil {
		return nil, comp, r.fail("reading pack entries failed")
	}
	return &p, comp, nil
}

func decompress(comp PackCompression, b []byte) ([]byte, error) {
	switch comp {
	case PackCompNone:
		return b, nil

	case PackCompZlib:
		out, err := zlibDecompress(b)
		if err != nil {
			return nil, errors.New("inflating pack failed").
				WithType(ErrTypeInvalidPack).
				Wrap(err)
		}
		return out, nil

	case PackCompZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.New("creating zstd decoder failed").Wrap(err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, errors.New("zstd decoding pack failed").
				WithType(ErrTypeInvalidPack).
				Wrap(err)
		}
		return out, nil

	default:
		return nil, errors.New("unsupported pack compression").
			WithType(ErrTypeInvalidPack).
			WithTag("compression", comp)
	}
}

// packReader reads little-endian fields and keeps the first error.
type packReader struct {
	r   *bytes.Reader
	err error
}

func (r *packReader) read(v any) {
	if r.err == nil {
		r.err = binary.Read(r.r, binary.LittleEndian, v)
	}
}

func (r *packReader) u8() (v uint8) {
	r.read(&v)
	return v
}

func (r *packReader) u16() (v uint16) {
	r.read(&v)
	return v
}

func (r *packReader) u32() (v uint32) {
	r.read(&v)
	return v
}

func (r *packReader) bytes(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	if int64(n) > int64(r.r.Len()) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	b := make([]byte, n)
	_, r.err = io.ReadFull(r.r, b)
	return b
}

func (r *packReader) name() string {
	return string(r.bytes(uint32(r.u16())))
}

func (r *packReader) fail(msg string) error {
	return errors.New(msg).
		WithType(ErrTypeInvalidPack).
		Wrap(r.err)
}

// buildCDCIndex splits every entry payload at content-defined boundaries and
// returns the unique chunks with, per entry, the sequence of chunk indices.
func buildCDCIndex(entries []PackEntry, target, minSz, maxSz int) ([][]byte, [][]int) {
	gear := gearTable()

	// Boundary mask so the average chunk is about target bytes.
	pow := 1 << int(math.Round(math.Log2(float64(target))))
	mask := uint64(pow - 1)

	blocks := make([][]byte, 0, 256)
	index := make(map[uint64]int, 1024)
	seqs := make([][]int, len(entries))

	addBlock := func(b []byte) int {
		h := xxhash.Sum64(b)
		if idx, ok := index[h]; ok && bytes.Equal(blocks[idx], b) {
			return idx
		}
		idx := len(blocks)
		blocks = append(blocks, append([]byte(nil), b...))
		index[h] = idx
		return idx
	}

	for i, e := range entries {
		data := e.Payload
		var seq []int
		start := 0
		var h uint64
		for pos := 0; pos < len(data); pos++ {
			h = h<<1 + gear[data[pos]]
			if pos-start+1 < minSz {
				continue
			}
			if h&mask == 0 || pos-start+1 >= maxSz {
				seq = append(seq, addBlock(data[start:pos+1]))
				start = pos + 1
				h = 0
			}
		}
		if start < len(data) {
			seq = append(seq, addBlock(data[start:]))
		}
		seqs[i] = seq
	}
	return blocks, seqs
}

// gearTable derives the rolling hash table from xxhash so it is identical on
// every platform.
func gearTable() [256]uint64 {
	var gear [256]uint64
	seed := xxhash.Sum64String("vopl-cdc-gear-seed")
	for i := range gear {
		var b [16]byte
		binary.LittleEndian.PutUint64(b[:8], seed+uint64(i)*0x9E3779B185EBCA87)
		binary.LittleEndian.PutUint64(b[8:], ^(seed + uint64(i)*0xC2B2AE3D27D4EB4F))
		v := xxhash.Sum64(b[:])
		if v == 0 {
			v = 0x9E3779B185EBCA87
		}
		gear[i] = v
	}
	return gear
}
