package vopl

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math/bits"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	magic      = "VOPL"
	version    = 3
	headerSize = 16
)

// Payload encodings. The high bit marks a zlib-compressed payload.
const (
	EncDense   uint8 = 0
	EncSparse  uint8 = 1
	EncSparse2 uint8 = 3 // occupancy bitmap + non-zero values
	EncZlib    uint8 = 0x80
)

// Header is the fixed 16-byte prefix of a .vopl file.
type Header struct {
	Ver  uint8
	Enc  uint8
	BPP  uint8
	W    uint8
	H    uint8
	D    uint8
	Pal  uint16 // palette entries addressable with BPP
	PLen uint32 // payload length
}

// BitsFor returns the smallest bits-per-voxel that can store material.
func BitsFor(material uint8) uint8 {
	if material == 0 {
		return 1
	}
	return uint8(bits.Len8(material))
}

// Encode returns g as a complete .vopl file. A bpp of 0 picks the smallest
// width holding every material of g. The payload is the smallest of the
// dense, sparse and bitmap encodings, raw or zlib compressed.
func Encode(g *Grid, bpp uint8) ([]byte, error) {
	hdr, payload, err := encodeGrid(g, bpp)
	if err != nil {
		return nil, err
	}
	return BuildFile(hdr, payload), nil
}

func encodeGrid(g *Grid, bpp uint8) (Header, []byte, error) {
	top := g.MaxMaterial()
	if bpp == 0 {
		bpp = BitsFor(top)
	}
	if bpp > 8 {
		return Header{}, nil, errors.New("bits per voxel out of range").
			WithType(ErrTypeInvalidContainer).
			WithTag("bpp", bpp)
	}
	if BitsFor(top) > bpp {
		return Header{}, nil, errors.New("material does not fit bits per voxel").
			WithType(ErrTypeInvalidContainer).
			WithTag("bpp", bpp).
			WithTag("material", top)
	}

	enc, payload := bestEncoding(g, bpp)
	hdr := Header{
		Ver: version,
		Enc: enc,
		BPP: bpp,
		W:   uint8(g.W),
		H:   uint8(g.H),
		D:   uint8(g.D),
		Pal: 1 << bpp,
	}
	return hdr, payload, nil
}

// BuildFile assembles a .vopl file from a header and its payload. PLen is
// taken from the payload.
func BuildFile(h Header, payload []byte) []byte {
	out := make([]byte, 0, headerSize+len(payload))
	out = append(out, magic...)
	out = append(out, h.Ver, h.Enc, h.BPP, h.W, h.H, h.D)
	out = binary.LittleEndian.AppendUint16(out, h.Pal)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// ParseHeader splits a .vopl file into its header and payload.
func ParseHeader(data []byte) (Header, []byte, error) {
	if len(data) < headerSize || string(data[:4]) != magic {
		return Header{}, nil, errors.New("not a vopl file").
			WithType(ErrTypeInvalidContainer)
	}
	h := Header{
		Ver:  data[4],
		Enc:  data[5],
		BPP:  data[6],
		W:    data[7],
		H:    data[8],
		D:    data[9],
		Pal:  binary.LittleEndian.Uint16(data[10:]),
		PLen: binary.LittleEndian.Uint32(data[12:]),
	}
	if h.Ver != version {
		return h, nil, errors.New("unsupported vopl version").
			WithType(ErrTypeInvalidContainer).
			WithTag("version", h.Ver)
	}
	if h.BPP < 1 || h.BPP > 8 || h.W == 0 || h.H == 0 || h.D == 0 {
		return h, nil, errors.New("invalid vopl header").
			WithType(ErrTypeInvalidContainer).
			WithTag("bpp", h.BPP).
			WithTag("w", h.W).
			WithTag("h", h.H).
			WithTag("d", h.D)
	}
	if uint64(len(data)-headerSize) != uint64(h.PLen) {
		return h, nil, errors.New("payload length mismatch").
			WithType(ErrTypeInvalidContainer).
			WithTag("expected", h.PLen).
			WithTag("actual", len(data)-headerSize)
	}
	return h, data[headerSize:], nil
}

// Decode parses a complete .vopl file.
func Decode(data []byte) (*Grid, Header, error) {
	h, payload, err := ParseHeader(data)
	if err != nil {
		return nil, h, err
	}
	g, err := decodePayload(int(h.W), int(h.H), int(h.D), h.BPP, h.Enc, payload)
	return g, h, err
}

// Save writes g to path.
func Save(path string, g *Grid, bpp uint8) error {
	data, err := Encode(g, bpp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("writing vopl file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}

// Load reads a .vopl file from path.
func Load(path string) (*Grid, Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, errors.New("reading vopl file failed").
			WithTag("path", path).
			Wrap(err)
	}
	g, h, err := Decode(data)
	if err != nil {
		return nil, h, errors.New("decoding vopl file failed").
			WithType(ErrTypeInvalidContainer).
			WithTag("path", path).
			Wrap(err)
	}
	return g, h, nil
}

func encodeDense(stream []uint8, bpp uint8) []byte {
	bw := newBitWriter(make([]byte, 0, (len(stream)*int(bpp)+7)/8))
	for _, c := range stream {
		bw.writeBits(uint64(c), bpp)
	}
	return bw.bytes()
}

// encodeSparse writes a uvarint count followed by (rank, value) pairs.
func encodeSparse(stream []uint8, bpp uint8) []byte {
	count := 0
	for _, c := range stream {
		if c != 0 {
			count++
		}
	}
	bw := newBitWriter(binary.AppendUvarint(nil, uint64(count)))
	width := indexBits(len(stream))
	for i, c := range stream {
		if c == 0 {
			continue
		}
		bw.writeBits(uint64(i), width)
		bw.writeBits(uint64(c), bpp)
	}
	return bw.bytes()
}

func encodeSparse2(stream []uint8, bpp uint8) []byte {
	bitmapLen := (len(stream) + 7) / 8
	out := make([]byte, bitmapLen)
	for i, v := range stream {
		if v != 0 {
			out[i>>3] |= 1 << (uint(i) & 7)
		}
	}
	bw := newBitWriter(out)
	for _, v := range stream {
		if v != 0 {
			bw.writeBits(uint64(v), bpp)
		}
	}
	return bw.bytes()
}

func zlibCompress(b []byte) []byte {
	var buf bytes.Buffer
	zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	_, _ = zw.Write(b)
	_ = zw.Close()
	return buf.Bytes()
}

func zlibDecompress(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func bestEncoding(g *Grid, bpp uint8) (uint8, []byte) {
	stream := g.flatten()
	candidates := []struct {
		enc     uint8
		payload []byte
	}{
		{EncDense, encodeDense(stream, bpp)},
		{EncSparse, encodeSparse(stream, bpp)},
		{EncSparse2, encodeSparse2(stream, bpp)},
	}

	enc, best := candidates[0].enc, candidates[0].payload
	for _, c := range candidates[1:] {
		if len(c.payload) < len(best) {
			enc, best = c.enc, c.payload
		}
	}
	for _, c := range candidates {
		if zb := zlibCompress(c.payload); len(zb) < len(best) {
			enc, best = c.enc|EncZlib, zb
		}
	}
	return enc, best
}

func decodePayload(w, h, d int, bpp, enc uint8, payload []byte) (*Grid, error) {
	g, err := NewGrid(w, h, d)
	if err != nil {
		return nil, err
	}

	if enc&EncZlib != 0 {
		if payload, err = zlibDecompress(payload); err != nil {
			return nil, errors.New("inflating payload failed").
				WithType(ErrTypeInvalidContainer).
				Wrap(err)
		}
	}

	stream := make([]uint8, len(g.Cells))
	switch enc &^ EncZlib {
	case EncDense:
		br := newBitReader(payload)
		for i := range stream {
			v, err := br.readBits(bpp)
			if err != nil {
				return nil, truncated(err)
			}
			stream[i] = uint8(v)
		}

	case EncSparse:
		count, n := binary.Uvarint(payload)
		if n <= 0 || count > uint64(len(stream)) {
			return nil, errors.New("invalid sparse count").
				WithType(ErrTypeInvalidContainer).
				WithTag("count", count)
		}
		br := newBitReader(payload[n:])
		width := indexBits(len(stream))
		for i := uint64(0); i < count; i++ {
			idx, err := br.readBits(width)
			if err != nil {
				return nil, truncated(err)
			}
			v, err := br.readBits(bpp)
			if err != nil {
				return nil, truncated(err)
			}
			if idx >= uint64(len(stream)) {
				return nil, errors.New("sparse index out of range").
					WithType(ErrTypeInvalidContainer).
					WithTag("index", idx)
			}
			stream[idx] = uint8(v)
		}

	case EncSparse2:
		bitmapLen := (len(stream) + 7) / 8
		if len(payload) < bitmapLen {
			return nil, errors.New("bitmap payload too short").
				WithType(ErrTypeInvalidContainer).
				WithTag("length", len(payload))
		}
		bitmap := payload[:bitmapLen]
		br := newBitReader(payload[bitmapLen:])
		for i := range stream {
			if (bitmap[i>>3]>>(uint(i)&7))&1 == 0 {
				continue
			}
			v, err := br.readBits(bpp)
			if err != nil {
				return nil, truncated(err)
			}
			stream[i] = uint8(v)
		}

	default:
		return nil, errors.New("unknown payload encoding").
			WithType(ErrTypeInvalidContainer).
			WithTag("encoding", enc)
	}

	g.applyOrder(stream)
	return g, nil
}

func truncated(err error) error {
	return errors.New("payload truncated").
		WithType(ErrTypeInvalidContainer).
		Wrap(err)
}
