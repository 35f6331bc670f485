package utils

import (
	"os"
	"path/filepath"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New("creating output directory failed").
				WithTag("dir", dir).
				Wrap(err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("writing file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}
