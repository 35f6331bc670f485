package utils

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/job"
	"github.com/voxelsplace/voxkernel/vopl"
)

// RunFragment splits a .vopl model into k-means clusters and writes them as
// a .voplpack. When glbPath is set the fragments are also meshed into a .glb
// with one node per fragment.
func RunFragment(inPath, packPath, glbPath string, j job.Job, layout vopl.PackLayout, comp vopl.PackCompression) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("fragment", start, err) }()

	data, err := readFile(inPath)
	if err != nil {
		return err
	}
	res, err := api.Fragment(data, j, glbPath != "", layout, comp)
	if err != nil {
		return errors.New("fragmenting vopl failed").
			WithTag("path", inPath).
			Wrap(err)
	}
	if err := writeFile(packPath, res.Pack); err != nil {
		return err
	}
	if glbPath != "" {
		if err := writeFile(glbPath, res.GLB); err != nil {
			return err
		}
		instrumentMesh(res.Quads, 0)
	}
	instrumentFragments(res.Fragments, res.Empty)

	logs.WithTag("in", inPath).
		WithTag("pack", packPath).
		WithTag("glb", glbPath).
		WithTag("fragments", res.Fragments).
		WithTag("empty_fragments", res.Empty).
		WithTag("seed", j.Fragments.Seed).
		Info("vopl fragmented")
	return nil
}
