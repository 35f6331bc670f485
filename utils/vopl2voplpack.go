package utils

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/vopl"
)

// CreatePack reads .vopl files and writes a .voplpack to outputFile. Entries
// are named after the input file names.
func CreatePack(inputFiles []string, outputFile string, layout vopl.PackLayout, comp vopl.PackCompression) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("pack", start, err) }()

	if len(inputFiles) == 0 {
		return errors.New("no .vopl files provided").WithType(vopl.ErrTypeInvalidPack)
	}

	blobs := make([][]byte, len(inputFiles))
	errs := make([]error, len(inputFiles))

	pool := pond.NewPool(len(inputFiles))
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for i, path := range inputFiles {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			blobs[i], errs[i] = readFile(path)
		})
	}
	wg.Wait()

	files := make(map[string][]byte, len(inputFiles))
	for i, path := range inputFiles {
		if errs[i] != nil {
			return errs[i]
		}
		name := filepath.Base(path)
		if _, dup := files[name]; dup {
			return errors.New("duplicate entry name").
				WithType(vopl.ErrTypeInvalidPack).
				WithTag("name", name)
		}
		files[name] = blobs[i]
	}

	data, err := api.Pack(files, layout, comp)
	if err != nil {
		return err
	}
	if err := writeFile(outputFile, data); err != nil {
		return err
	}

	logs.WithTag("out", outputFile).
		WithTag("entries", len(files)).
		WithTag("bytes", len(data)).
		WithTag("duration", time.Since(start).String()).
		Info("voplpack created")
	return nil
}

// UnpackToDir writes the .vopl files of a .voplpack into outputDir.
func UnpackToDir(packFile, outputDir string) (err error) {
	start := time.Now()
	defer func() { instrumentCommand("unpack", start, err) }()

	files, err := UnpackToMemory(packFile)
	if err != nil {
		return err
	}

	pool := pond.NewPool(4)
	defer pool.StopAndWait()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for name, data := range files {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if err := writeFile(filepath.Join(outputDir, filepath.Base(name)), data); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	logs.WithTag("in", packFile).
		WithTag("out", outputDir).
		WithTag("entries", len(files)).
		Info("voplpack unpacked")
	return nil
}

// UnpackToMemory returns the .vopl files of a .voplpack by entry name without
// writing to disk.
func UnpackToMemory(packFile string) (map[string][]byte, error) {
	data, err := readFile(packFile)
	if err != nil {
		return nil, err
	}
	files, err := api.Unpack(data)
	if err != nil {
		return nil, errors.New("reading voplpack failed").
			WithTag("path", packFile).
			Wrap(err)
	}
	return files, nil
}
