package vopl

import (
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ParseRLE parses a comma separated run list such as "10,0,4,1". Surrounding
// brackets are ignored.
func ParseRLE(s string) ([]int, error) {
	s = strings.Trim(s, "[] \n")
	if s == "" {
		return nil, errors.New("empty rle").WithType(ErrTypeInvalidContainer)
	}

	var rle []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.New("parsing rle value failed").
				WithType(ErrTypeInvalidContainer).
				WithTag("value", p).
				Wrap(err)
		}
		rle = append(rle, i)
	}
	return rle, nil
}

// ExpandRLE builds a w x h x d grid from (count, material) pairs laid out in
// grid scan order. The runs must cover every cell exactly.
func ExpandRLE(w, h, d int, rle []int) (*Grid, error) {
	if len(rle)%2 != 0 {
		return nil, errors.New("rle must hold count/material pairs").
			WithType(ErrTypeInvalidContainer).
			WithTag("len", len(rle))
	}
	g, err := NewGrid(w, h, d)
	if err != nil {
		return nil, err
	}

	idx := 0
	for i := 0; i < len(rle); i += 2 {
		count, material := rle[i], rle[i+1]
		if count < 0 || material < 0 || material > 255 {
			return nil, errors.New("invalid rle run").
				WithType(ErrTypeInvalidContainer).
				WithTag("count", count).
				WithTag("material", material)
		}
		if idx+count > len(g.Cells) {
			return nil, errors.New("rle overflows grid").
				WithType(ErrTypeInvalidContainer).
				WithTag("cells", len(g.Cells))
		}
		for j := 0; j < count; j++ {
			g.Cells[idx] = uint8(material)
			idx++
		}
	}
	if idx != len(g.Cells) {
		return nil, errors.New("rle does not fill grid").
			WithType(ErrTypeInvalidContainer).
			WithTag("filled", idx).
			WithTag("cells", len(g.Cells))
	}
	return g, nil
}

// RLE returns the grid as (count, material) pairs in scan order.
func (g *Grid) RLE() []int {
	var rle []int
	for i := 0; i < len(g.Cells); {
		j := i
		for j < len(g.Cells) && g.Cells[j] == g.Cells[i] {
			j++
		}
		rle = append(rle, j-i, int(g.Cells[i]))
		i = j
	}
	return rle
}
