package utils

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
)

// RunUpdateVOPL applies a VPE edit stream to a .vopl file and writes the
// result to outputPath.
func RunUpdateVOPL(inputPath, editsPath, outputPath string) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("edit", start, err) }()

	data, err := readFile(inputPath)
	if err != nil {
		return err
	}
	vpe, err := readFile(editsPath)
	if err != nil {
		return err
	}
	out, n, err := api.ApplyEdits(data, vpe)
	if err != nil {
		return err
	}
	if err := writeFile(outputPath, out); err != nil {
		return err
	}

	logs.WithTag("in", inputPath).
		WithTag("edits", n).
		WithTag("out", outputPath).
		WithTag("bytes", len(out)).
		Info("vopl updated")
	return nil
}

// RunDiffVOPL writes the VPE stream turning fromPath into toPath. An empty
// fromPath diffs against an empty grid.
func RunDiffVOPL(fromPath, toPath, outputPath string) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("diff", start, err) }()

	var from []byte
	if fromPath != "" {
		if from, err = readFile(fromPath); err != nil {
			return err
		}
	}
	to, err := readFile(toPath)
	if err != nil {
		return err
	}
	vpe, n, err := api.Diff(from, to)
	if err != nil {
		return err
	}
	if err := writeFile(outputPath, vpe); err != nil {
		return err
	}

	logs.WithTag("from", fromPath).
		WithTag("to", toPath).
		WithTag("edits", n).
		WithTag("out", outputPath).
		Info("vpe diff written")
	return nil
}
