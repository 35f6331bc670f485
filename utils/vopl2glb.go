package utils

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/job"
)

// RunVOPL2GLB greedy meshes a .vopl file into a .glb.
func RunVOPL2GLB(inPath, outPath string, j job.Job) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("mesh", start, err) }()

	data, err := readFile(inPath)
	if err != nil {
		return err
	}
	res, err := api.MeshGLB(data, j)
	if err != nil {
		return errors.New("meshing vopl failed").
			WithTag("path", inPath).
			Wrap(err)
	}
	if err := writeFile(outPath, res.GLB); err != nil {
		return err
	}

	instrumentMesh(res.Quads, res.TruncatedSlices)
	if res.TruncatedSlices > 0 {
		logs.WithTag("path", inPath).
			WithTag("truncated_slices", res.TruncatedSlices).
			WithTag("max_slice_merges", j.Mesher.MaxSliceMerges).
			Warn("merge ceiling reached, faces were dropped")
	}
	logs.WithTag("in", inPath).
		WithTag("out", outPath).
		WithTag("quads", res.Quads).
		WithTag("triangles", res.Triangles).
		Info("vopl meshed")
	return nil
}
