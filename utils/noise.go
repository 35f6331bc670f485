package utils

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/vopl"
	"github.com/voxelsplace/voxkernel/voxel"
)

// NoiseOptions describes a batch of random models.
type NoiseOptions struct {
	Size        voxel.Size
	FillMin     float64 // percent
	FillMax     float64 // percent
	MaxMaterial int
	Amount      int
	Seed        int64
}

// NoiseGrid fills percentage percent of a grid with random materials in
// [1, maxMaterial]. The rest stays empty.
func NoiseGrid(size voxel.Size, percentage float64, maxMaterial int, r *rand.Rand) (*vopl.Grid, error) {
	g, err := vopl.NewGrid(size[0], size[1], size[2])
	if err != nil {
		return nil, err
	}
	percentage = min(max(percentage, 0), 100)
	maxMaterial = min(max(maxMaterial, 1), 255)

	total := len(g.Cells)
	want := min(int(float64(total)*(percentage/100)+0.5), total)

	// Partial Fisher-Yates: only the first want positions are drawn.
	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < want; i++ {
		j := i + r.Intn(total-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	for _, i := range idx[:want] {
		g.Cells[i] = uint8(1 + r.Intn(maxMaterial))
	}
	return g, nil
}

// RunGenerateNoiseVOPL writes opts.Amount random models named 0.vopl,
// 1.vopl, ... into outDir. Each file gets a fill percentage drawn from
// [FillMin, FillMax].
func RunGenerateNoiseVOPL(opts NoiseOptions, outDir string) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("noise", start, err) }()

	if opts.Amount < 0 {
		return errors.New("negative amount").WithTag("amount", opts.Amount)
	}
	if outDir == "" {
		outDir = "."
	}
	lo, hi := opts.FillMin, opts.FillMax
	if hi < lo {
		lo, hi = hi, lo
	}

	for i := 0; i < opts.Amount; i++ {
		// Weyl sequence keeps per-file seeds distinct for a given base seed.
		const weyl = uint64(0x9e3779b97f4a7c15)
		seed := uint64(opts.Seed) ^ (uint64(i)+1)*weyl
		r := rand.New(rand.NewSource(int64(seed & 0x7fffffffffffffff)))

		perc := lo
		if hi > lo {
			perc = lo + r.Float64()*(hi-lo)
		}
		g, err := NoiseGrid(opts.Size, perc, opts.MaxMaterial, r)
		if err != nil {
			return err
		}
		data, err := vopl.Encode(g, 0)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(outDir, fmt.Sprintf("%d.vopl", i)), data); err != nil {
			return err
		}
	}

	logs.WithTag("out", outDir).
		WithTag("amount", opts.Amount).
		WithTag("size", opts.Size).
		Info("noise models generated")
	return nil
}
