package utils

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/voxel"
)

// RunRLE2VOPL builds a .vopl file from a "count,material,..." run list.
func RunRLE2VOPL(size voxel.Size, rle, outPath string) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("rle", start, err) }()

	data, err := api.FromRLE(size[0], size[1], size[2], rle)
	if err != nil {
		return err
	}
	if err := writeFile(outPath, data); err != nil {
		return err
	}

	logs.WithTag("out", outPath).
		WithTag("bytes", len(data)).
		Info("vopl saved")
	return nil
}
