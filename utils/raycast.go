package utils

import (
	"io"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/job"
)

// RunRaycast casts a world-space ray through a placed .vopl model and writes
// the hits to w as JSON.
func RunRaycast(inPath string, j job.Job, origin, dir mgl32.Vec3, all bool, w io.Writer) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("raycast", start, err) }()

	data, err := readFile(inPath)
	if err != nil {
		return err
	}
	hits, err := api.Raycast(data, j, origin, dir, all)
	if err != nil {
		return errors.New("ray cast failed").
			WithTag("path", inPath).
			Wrap(err)
	}
	if err := writeJSON(w, hits); err != nil {
		return err
	}
	traversalHits.Add(float64(len(hits)))

	logs.WithTag("in", inPath).
		WithTag("origin", origin).
		WithTag("direction", dir).
		WithTag("hits", len(hits)).
		Debug("ray cast")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New("encoding json failed").Wrap(err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return errors.New("writing json failed").Wrap(err)
	}
	return nil
}
