package utils

import (
	"io"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/job"
)

// RunColliders derives collision geometry from a .vopl model with the job's
// collider mode and writes it to w as JSON.
func RunColliders(inPath string, j job.Job, w io.Writer) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("boxes", start, err) }()

	data, err := readFile(inPath)
	if err != nil {
		return err
	}
	set, err := api.Colliders(data, j)
	if err != nil {
		return errors.New("building colliders failed").
			WithTag("path", inPath).
			Wrap(err)
	}
	if err := writeJSON(w, set); err != nil {
		return err
	}

	logs.WithTag("in", inPath).
		WithTag("mode", set.Mode).
		WithTag("boxes", len(set.Boxes)).
		Info("colliders built")
	return nil
}
