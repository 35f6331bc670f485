package utils

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/job"
)

// RunVOPLPACK2GLB converts a .voplpack into a .glb with one node per entry,
// entries laid out side by side.
func RunVOPLPACK2GLB(inPackPath, outGlbPath string, j job.Job) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("packglb", start, err) }()

	data, err := readFile(inPackPath)
	if err != nil {
		return err
	}
	out, err := api.PackGLB(data, j)
	if err != nil {
		return errors.New("meshing voplpack failed").
			WithTag("path", inPackPath).
			Wrap(err)
	}
	if err := writeFile(outGlbPath, out); err != nil {
		return err
	}

	logs.WithTag("in", inPackPath).
		WithTag("out", outGlbPath).
		WithTag("bytes", len(out)).
		Info("voplpack meshed")
	return nil
}
