// Package job loads the YAML job files that parameterise the CLI commands.
package job

import (
	_ "embed"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/segmentio/encoding/json"
	"github.com/voxelsplace/voxkernel/voxel"
	"gopkg.in/yaml.v3"
)

// ErrTypeInvalidJob is the type of errors caused by a malformed job file.
const ErrTypeInvalidJob = "invalid-job"

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("job.schema.json", schemaJSON)

// ColliderMode selects how colliders are derived from a model.
type ColliderMode string

const (
	CollidersNone        ColliderMode = "none"
	CollidersBounds      ColliderMode = "bounds"
	CollidersTightBounds ColliderMode = "tight_bounds"
	CollidersBoxes       ColliderMode = "boxes"
	CollidersCubes       ColliderMode = "cubes"
	CollidersMesh        ColliderMode = "mesh"
)

type Job struct {
	Placement Placement `yaml:"placement"`
	Fragments Fragments `yaml:"fragments"`
	Mesher    Mesher    `yaml:"mesher"`
	Colliders Colliders `yaml:"colliders"`
	Filter    Filter    `yaml:"filter"`
}

type Placement struct {
	Anchor   [3]float32 `yaml:"anchor"`
	Position [3]float32 `yaml:"position"`
	Rotation [3]float32 `yaml:"rotation"`
	Scale    [3]float32 `yaml:"scale"`
}

type Fragments struct {
	Count   int   `yaml:"count"`
	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers"`
}

type Mesher struct {
	MaxSliceMerges int `yaml:"max_slice_merges"`
}

type Colliders struct {
	Mode ColliderMode `yaml:"mode"`
}

type Filter struct {
	Materials []int `yaml:"materials"`
	Exclude   []int `yaml:"exclude"`
}

// Default returns the job used when no file is given.
func Default() Job {
	return Job{
		Placement: Placement{Scale: [3]float32{1, 1, 1}},
		Fragments: Fragments{Count: voxel.DefaultFragments, Seed: voxel.DefaultSeed},
		Mesher:    Mesher{MaxSliceMerges: voxel.MaxSliceMerges},
		Colliders: Colliders{Mode: CollidersBoxes},
	}
}

// Load reads a job file. An empty path returns Default.
func Load(path string) (Job, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, errors.New("reading job file failed").
			WithTag("path", path).
			Wrap(err)
	}
	j, err := Parse(data)
	if err != nil {
		return Job{}, errors.New("invalid job file").
			WithType(ErrTypeInvalidJob).
			WithTag("path", path).
			Wrap(err)
	}
	return j, nil
}

// Parse validates a YAML job against the job schema and decodes it over
// Default.
func Parse(data []byte) (Job, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Job{}, errors.New("parsing job yaml failed").
			WithType(ErrTypeInvalidJob).
			Wrap(err)
	}
	if raw == nil {
		return Default(), nil
	}

	// The validator expects JSON values, so round-trip through JSON.
	b, err := json.Marshal(raw)
	if err != nil {
		return Job{}, errors.New("converting job to json failed").
			WithType(ErrTypeInvalidJob).
			Wrap(err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return Job{}, errors.New("converting job to json failed").
			WithType(ErrTypeInvalidJob).
			Wrap(err)
	}
	if err := schema.Validate(doc); err != nil {
		return Job{}, errors.New("job does not match schema").
			WithType(ErrTypeInvalidJob).
			Wrap(err)
	}

	j := Default()
	if err := yaml.Unmarshal(data, &j); err != nil {
		return Job{}, errors.New("decoding job failed").
			WithType(ErrTypeInvalidJob).
			Wrap(err)
	}
	return j, nil
}

// Value returns the kernel placement.
func (p Placement) Value() voxel.Placement {
	return voxel.Placement{
		Anchor:   mgl32.Vec3(p.Anchor),
		Position: mgl32.Vec3(p.Position),
		Rotation: mgl32.Vec3(p.Rotation),
		Scale:    mgl32.Vec3(p.Scale),
	}
}

// Value returns the kernel mesher.
func (m Mesher) Value() voxel.Mesher {
	return voxel.Mesher{MaxSliceMerges: m.MaxSliceMerges}
}

// Value builds the voxel filter, nil when the job filters nothing.
func (f Filter) Value() voxel.Filter {
	var filters []voxel.Filter
	if len(f.Materials) > 0 {
		filters = append(filters, voxel.MaterialFilter(toMaterials(f.Materials)...))
	}
	if len(f.Exclude) > 0 {
		filters = append(filters, voxel.ExcludeFilter(toMaterials(f.Exclude)...))
	}
	switch len(filters) {
	case 0:
		return nil
	case 1:
		return filters[0]
	default:
		return voxel.AllFilters(filters...)
	}
}

func toMaterials(v []int) []uint8 {
	out := make([]uint8, len(v))
	for i, m := range v {
		out[i] = uint8(m)
	}
	return out
}
