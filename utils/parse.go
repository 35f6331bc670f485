package utils

import (
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/voxelsplace/voxkernel/vopl"
	"github.com/voxelsplace/voxkernel/voxel"
)

// ErrTypeInvalidArgument is the type of errors caused by a malformed command
// line value.
const ErrTypeInvalidArgument = "invalid-argument"

// ParseVec3 parses "x,y,z".
func ParseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, errors.New("expected x,y,z").
			WithType(ErrTypeInvalidArgument).
			WithTag("value", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, errors.New("parsing vector component failed").
				WithType(ErrTypeInvalidArgument).
				WithTag("value", s).
				Wrap(err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// ParseSize parses "w,h,d".
func ParseSize(s string) (voxel.Size, error) {
	v, err := ParseVec3(s)
	if err != nil {
		return voxel.Size{}, err
	}
	var size voxel.Size
	for i, f := range v {
		if f != float32(int(f)) || f < 1 || f > vopl.MaxDim {
			return voxel.Size{}, errors.New("invalid size").
				WithType(ErrTypeInvalidArgument).
				WithTag("value", s)
		}
		size[i] = int(f)
	}
	return size, nil
}

// ParseLayout parses raw|cdc.
func ParseLayout(s string) (vopl.PackLayout, error) {
	switch s {
	case "", "raw":
		return vopl.LayoutRaw, nil
	case "cdc":
		return vopl.LayoutCDC, nil
	default:
		return 0, errors.New("unknown pack layout").
			WithType(ErrTypeInvalidArgument).
			WithTag("layout", s)
	}
}

// ParseCompression parses none|zlib|zstd.
func ParseCompression(s string) (vopl.PackCompression, error) {
	switch s {
	case "none":
		return vopl.PackCompNone, nil
	case "", "zlib":
		return vopl.PackCompZlib, nil
	case "zstd":
		return vopl.PackCompZstd, nil
	default:
		return 0, errors.New("unknown pack compression").
			WithType(ErrTypeInvalidArgument).
			WithTag("compression", s)
	}
}
