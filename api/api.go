// Package api exposes the kernel as in-memory operations on container bytes.
// It is shared by the CLI commands and the wasm bridge.
package api

import (
	"fmt"
	"math"
	"slices"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/voxelsplace/voxkernel/glb"
	"github.com/voxelsplace/voxkernel/job"
	"github.com/voxelsplace/voxkernel/vopl"
	"github.com/voxelsplace/voxkernel/voxel"
)

// Model is a decoded container placed by a job.
type Model struct {
	Header vopl.Header
	Grid   *vopl.Grid
	Volume *voxel.Volume
}

// LoadModel decodes a .vopl file and applies the job's filter and placement.
func LoadModel(voplBytes []byte, j job.Job) (*Model, error) {
	g, h, err := vopl.Decode(voplBytes)
	if err != nil {
		return nil, err
	}

	voxels := g.Voxels()
	if f := j.Filter.Value(); f != nil {
		voxels = voxel.NewMap(voxels, f).Voxels()
	}
	vol := voxel.NewVolume(g.Size(), voxels)
	vol.Placement = j.Placement.Value()

	return &Model{Header: h, Grid: g, Volume: vol}, nil
}

// MeshResult is a model meshed into a .glb.
type MeshResult struct {
	GLB             []byte
	Quads           int
	Triangles       int
	TruncatedSlices int
}

// MeshGLB greedy meshes a .vopl file and returns it as a .glb.
func MeshGLB(voplBytes []byte, j job.Job) (MeshResult, error) {
	m, err := LoadModel(voplBytes, j)
	if err != nil {
		return MeshResult{}, err
	}

	mesh := m.Volume.Mesh(j.Mesher.Value())
	out, err := glb.Encode(&m.Volume.Palette, mesh)
	if err != nil {
		return MeshResult{}, err
	}
	return MeshResult{
		GLB:             out,
		Quads:           mesh.QuadCount(),
		Triangles:       mesh.TriangleCount(),
		TruncatedSlices: mesh.TruncatedSlices,
	}, nil
}

// FragmentResult holds the fragments of a model. Pack stores one entry per
// non-empty cluster; GLB, when requested, one node per non-empty cluster.
type FragmentResult struct {
	Pack      []byte
	GLB       []byte
	Fragments int
	Empty     int
	Quads     int
}

// Fragment splits a model into spatial clusters with k-means.
func Fragment(voplBytes []byte, j job.Job, withGLB bool, layout vopl.PackLayout, comp vopl.PackCompression) (FragmentResult, error) {
	m, err := LoadModel(voplBytes, j)
	if err != nil {
		return FragmentResult{}, err
	}

	size := m.Volume.Size
	clusters := voxel.Fragment(
		m.Volume.Voxels,
		mgl32.Vec3{},
		mgl32.Vec3{float32(size[0]), float32(size[1]), float32(size[2])},
		j.Fragments.Count,
		j.Fragments.Seed,
	)

	pack, err := vopl.NewPack(size[0], size[1], size[2], m.Header.BPP)
	if err != nil {
		return FragmentResult{}, err
	}

	var res FragmentResult
	for i, c := range clusters {
		if len(c) == 0 {
			res.Empty++
			continue
		}
		g, err := vopl.FromVoxels(size, c)
		if err != nil {
			return FragmentResult{}, err
		}
		if err := pack.Add(fmt.Sprintf("fragment_%03d.vopl", i), g); err != nil {
			return FragmentResult{}, err
		}
		res.Fragments++
	}

	if res.Pack, err = pack.Marshal(layout, comp); err != nil {
		return FragmentResult{}, err
	}

	if withGLB {
		meshes := voxel.MeshFragments(clusters, m.Volume.Transform(), j.Mesher.Value(), j.Fragments.Workers)
		for _, mesh := range meshes {
			if mesh != nil {
				res.Quads += mesh.QuadCount()
			}
		}
		if res.GLB, err = glb.Encode(&m.Volume.Palette, meshes...); err != nil {
			return FragmentResult{}, err
		}
	}
	return res, nil
}

// RayHit is an occupied voxel crossed by a world-space ray.
type RayHit struct {
	Coord    voxel.Coord `json:"coord"`
	Material uint8       `json:"material"`
	Normal   voxel.Coord `json:"normal"`
	Distance float32     `json:"distance"`
	Center   [3]float32  `json:"center"`
}

// Raycast casts a world-space ray through a placed model. Only the first hit
// is returned unless all is set.
func Raycast(voplBytes []byte, j job.Job, origin, dir mgl32.Vec3, all bool) ([]RayHit, error) {
	if dir.Len() == 0 {
		return nil, errors.New("ray direction is zero").
			WithType(job.ErrTypeInvalidJob)
	}
	m, err := LoadModel(voplBytes, j)
	if err != nil {
		return nil, err
	}

	toWorld := m.Volume.LocalToWorld()
	hits := []RayHit{}
	for h := range m.Volume.TraverseWorld(voxel.Ray{Origin: origin, Direction: dir}) {
		center := mgl32.Vec3{float32(h.Coord[0]) + 0.5, float32(h.Coord[1]) + 0.5, float32(h.Coord[2]) + 0.5}
		hits = append(hits, RayHit{
			Coord:    h.Coord,
			Material: h.Material,
			Normal:   h.Normal,
			Distance: h.Distance,
			Center:   voxel.TransformPoint(toWorld, center),
		})
		if !all {
			break
		}
	}
	return hits, nil
}

// Collider is a placed box.
type Collider struct {
	Center [3]float32 `json:"center"`
	Size   [3]float32 `json:"size"`
}

// MeshCollider is a triangle soup in parent space.
type MeshCollider struct {
	Positions [][3]float32 `json:"positions"`
	Indices   []uint32     `json:"indices"`
}

// ColliderSet is the collision geometry of a model for one collider mode.
type ColliderSet struct {
	Mode  job.ColliderMode `json:"mode"`
	Boxes []Collider       `json:"boxes,omitempty"`
	Mesh  *MeshCollider    `json:"mesh,omitempty"`
}

// Colliders derives collision geometry using the job's collider mode.
func Colliders(voplBytes []byte, j job.Job) (ColliderSet, error) {
	m, err := LoadModel(voplBytes, j)
	if err != nil {
		return ColliderSet{}, err
	}

	set := ColliderSet{Mode: j.Colliders.Mode}
	var boxes []voxel.Box

	switch j.Colliders.Mode {
	case job.CollidersNone:
	case job.CollidersBounds:
		boxes = []voxel.Box{{Size: voxel.Coord(m.Volume.Size)}}
	case job.CollidersTightBounds:
		if b, ok := voxel.TightBounds(m.Volume.Voxels); ok {
			boxes = []voxel.Box{b}
		}
	case job.CollidersBoxes:
		boxes = voxel.GreedyBoxes(m.Volume.Map())
	case job.CollidersCubes:
		boxes = voxel.Cubes(m.Volume.Voxels)
	case job.CollidersMesh:
		mesh := m.Volume.Mesh(j.Mesher.Value())
		mc := &MeshCollider{Indices: mesh.Indices}
		for _, p := range mesh.Positions {
			mc.Positions = append(mc.Positions, p)
		}
		set.Mesh = mc
	default:
		return ColliderSet{}, errors.New("unknown collider mode").
			WithType(job.ErrTypeInvalidJob).
			WithTag("mode", j.Colliders.Mode)
	}

	transform := m.Volume.Transform()
	for _, b := range boxes {
		center, size := voxel.TransformBox(b, transform)
		set.Boxes = append(set.Boxes, Collider{Center: center, Size: size})
	}
	return set, nil
}

// Pack bundles .vopl files into a .voplpack. Entries are stored in name order
// and must share size and bits per voxel.
func Pack(files map[string][]byte, layout vopl.PackLayout, comp vopl.PackCompression) ([]byte, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to pack").WithType(vopl.ErrTypeInvalidPack)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	h, _, err := vopl.ParseHeader(files[names[0]])
	if err != nil {
		return nil, errors.New("invalid pack entry").
			WithType(vopl.ErrTypeInvalidPack).
			WithTag("name", names[0]).
			Wrap(err)
	}
	pack, err := vopl.NewPack(int(h.W), int(h.H), int(h.D), h.BPP)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := pack.AddFile(name, files[name]); err != nil {
			return nil, err
		}
	}
	return pack.Marshal(layout, comp)
}

// Unpack returns the .vopl files of a .voplpack by entry name.
func Unpack(packBytes []byte) (map[string][]byte, error) {
	pack, _, err := vopl.UnmarshalPack(packBytes)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(pack.Entries))
	for i, e := range pack.Entries {
		out[e.Name] = pack.File(i)
	}
	return out, nil
}

// PackGLB meshes every entry of a .voplpack into one .glb. Entries are laid
// out side by side on a square grid in the XZ plane.
func PackGLB(packBytes []byte, j job.Job) ([]byte, error) {
	pack, _, err := vopl.UnmarshalPack(packBytes)
	if err != nil {
		return nil, err
	}
	n := len(pack.Entries)
	if n == 0 {
		return nil, errors.New("pack has no entries").WithType(vopl.ErrTypeInvalidPack)
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	step := mgl32.Vec3{float32(pack.Header.W), 0, float32(pack.Header.D)}
	filter := j.Filter.Value()
	mesher := j.Mesher.Value()
	palette := voxel.DefaultPalette()

	meshes := make([]*voxel.Mesh, n)
	for i := range pack.Entries {
		g, err := pack.Grid(i)
		if err != nil {
			return nil, err
		}
		offset := mgl32.Translate3D(float32(i%cols)*step[0], 0, float32(i/cols)*step[2])
		meshes[i] = mesher.Mesh(voxel.NewMap(g.Voxels(), filter), offset)
	}
	return glb.Encode(&palette, meshes...)
}

// ApplyEdits applies a VPE stream to a .vopl file and re-encodes it with the
// same bits per voxel when the result still fits.
func ApplyEdits(voplBytes, vpe []byte) ([]byte, int, error) {
	g, h, err := vopl.Decode(voplBytes)
	if err != nil {
		return nil, 0, err
	}
	edits, err := vopl.DecodeEdits(g.Size(), vpe)
	if err != nil {
		return nil, 0, err
	}
	if err := g.Apply(edits); err != nil {
		return nil, 0, err
	}

	bpp := max(h.BPP, vopl.BitsFor(g.MaxMaterial()))
	out, err := vopl.Encode(g, bpp)
	if err != nil {
		return nil, 0, err
	}
	return out, len(edits), nil
}

// Diff returns the VPE stream turning from into to. A nil from stands for an
// empty grid of the same size as to.
func Diff(from, to []byte) ([]byte, int, error) {
	target, _, err := vopl.Decode(to)
	if err != nil {
		return nil, 0, err
	}
	var source *vopl.Grid
	if from != nil {
		if source, _, err = vopl.Decode(from); err != nil {
			return nil, 0, err
		}
	}

	edits, err := vopl.Diff(source, target)
	if err != nil {
		return nil, 0, err
	}
	out, err := vopl.EncodeEdits(target.Size(), edits)
	if err != nil {
		return nil, 0, err
	}
	return out, len(edits), nil
}

// FromRLE builds a .vopl file from a (count, material) run list covering a
// w x h x d grid.
func FromRLE(w, h, d int, rle string) ([]byte, error) {
	runs, err := vopl.ParseRLE(rle)
	if err != nil {
		return nil, err
	}
	g, err := vopl.ExpandRLE(w, h, d, runs)
	if err != nil {
		return nil, err
	}
	return vopl.Encode(g, 0)
}
