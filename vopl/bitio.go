package vopl

import "io"

// bitWriter packs values LSB first.
type bitWriter struct {
	buf []byte
	acc uint64
	n   uint8
}

func newBitWriter(buf []byte) *bitWriter { return &bitWriter{buf: buf} }

func (w *bitWriter) writeBits(v uint64, bits uint8) {
	for bits > 32 {
		w.writeBits(v, 32)
		v >>= 32
		bits -= 32
	}
	w.acc |= (v & ((1 << bits) - 1)) << w.n
	w.n += bits
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

// bytes flushes the pending bits, zero padded to a whole byte.
func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc = 0
		w.n = 0
	}
	return w.buf
}

type bitReader struct {
	data []byte
	acc  uint64
	n    uint8
	pos  int
}

func newBitReader(b []byte) *bitReader { return &bitReader{data: b} }

func (r *bitReader) readBits(bits uint8) (uint64, error) {
	if bits > 32 {
		lo, err := r.readBits(32)
		if err != nil {
			return 0, err
		}
		hi, err := r.readBits(bits - 32)
		if err != nil {
			return 0, err
		}
		return lo | hi<<32, nil
	}
	for r.n < bits {
		if r.pos >= len(r.data) {
			return 0, io.ErrUnexpectedEOF
		}
		r.acc |= uint64(r.data[r.pos]) << r.n
		r.n += 8
		r.pos++
	}
	v := r.acc & ((1 << bits) - 1)
	r.acc >>= bits
	r.n -= bits
	return v, nil
}

// remaining returns the number of unread bits.
func (r *bitReader) remaining() int {
	return int(r.n) + 8*(len(r.data)-r.pos)
}
