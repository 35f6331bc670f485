package vopl

import (
	"cmp"
	"math/bits"
	"slices"
	"sync"
)

func expand3(v uint32) uint32 {
	v = (v | (v << 16)) & 0x030000FF
	v = (v | (v << 8)) & 0x0300F00F
	v = (v | (v << 4)) & 0x030C30C3
	v = (v | (v << 2)) & 0x09249249
	return v
}

func morton3D(x, y, z uint32) uint32 {
	return expand3(x) | (expand3(y) << 1) | (expand3(z) << 2)
}

// orders caches Morton orders by grid size.
var orders sync.Map

// mortonOrder returns the cell indices of a w x h x d grid sorted by their
// Morton code. The result is shared and must not be modified.
func mortonOrder(w, h, d int) []int {
	key := [3]int{w, h, d}
	if o, ok := orders.Load(key); ok {
		return o.([]int)
	}

	type kv struct {
		key uint32
		i   int
	}
	idx := make([]kv, 0, w*h*d)
	i := 0
	for y := 0; y < h; y++ {
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				idx = append(idx, kv{morton3D(uint32(x), uint32(y), uint32(z)), i})
				i++
			}
		}
	}
	slices.SortFunc(idx, func(a, b kv) int {
		return cmp.Compare(a.key, b.key)
	})

	order := make([]int, len(idx))
	for i := range idx {
		order[i] = idx[i].i
	}
	o, _ := orders.LoadOrStore(key, order)
	return o.([]int)
}

// flatten returns the cells of g in Morton order.
func (g *Grid) flatten() []uint8 {
	order := mortonOrder(g.W, g.H, g.D)
	stream := make([]uint8, len(order))
	for i, src := range order {
		stream[i] = g.Cells[src]
	}
	return stream
}

// applyOrder stores a Morton-ordered stream back into g.
func (g *Grid) applyOrder(stream []uint8) {
	for i, dst := range mortonOrder(g.W, g.H, g.D) {
		g.Cells[dst] = stream[i]
	}
}

// Morton3D64 interleaves the bits of x, y and z (x lowest).
func Morton3D64(x, y, z uint32) uint64 {
	return part1By2(uint64(x)) |
		(part1By2(uint64(y)) << 1) |
		(part1By2(uint64(z)) << 2)
}

func MortonDecode3D64(index uint64) (x, y, z uint32) {
	x = uint32(compact1By2(index))
	y = uint32(compact1By2(index >> 1))
	z = uint32(compact1By2(index >> 2))
	return
}

func part1By2(x uint64) uint64 {
	x &= 0x1fffff
	x = (x | (x << 32)) & 0x1f00000000ffff
	x = (x | (x << 16)) & 0x1f0000ff0000ff
	x = (x | (x << 8)) & 0x100f00f00f00f00f
	x = (x | (x << 4)) & 0x10c30c30c30c30c3
	x = (x | (x << 2)) & 0x1249249249249249
	return x
}

func compact1By2(x uint64) uint64 {
	x &= 0x1249249249249249
	x = (x ^ (x >> 2)) & 0x10c30c30c30c30c3
	x = (x ^ (x >> 4)) & 0x100f00f00f00f00f
	x = (x ^ (x >> 8)) & 0x1f0000ff0000ff
	x = (x ^ (x >> 16)) & 0x1f00000000ffff
	x = (x ^ (x >> 32)) & 0x1fffff
	return x
}

// MortonBits returns the number of bits a Morton code needs to address every
// cell of a w x h x d grid.
func MortonBits(w, h, d int) int {
	return bits.Len(uint(max(w, h, d)-1)) * 3
}

// indexBits returns the width of a plain cell index into n cells.
func indexBits(n int) uint8 {
	if n <= 1 {
		return 1
	}
	return uint8(bits.Len(uint(n - 1)))
}
