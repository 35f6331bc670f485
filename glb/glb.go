// Package glb exports voxel meshes as binary glTF.
package glb

import (
	"bytes"
	"fmt"
	"image/png"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/voxelsplace/voxkernel/voxel"
)

// Generator is written into the asset header.
const Generator = "voxkernel"

// Document builds a glTF document with one node per non-empty mesh. All
// meshes share one material sampling the palette texture; the texture is
// nearest filtered so each material's UV strip maps to a single texel.
func Document(palette *voxel.Palette, meshes ...*voxel.Mesh) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = Generator

	var img bytes.Buffer
	if err := png.Encode(&img, palette.Texture()); err != nil {
		return nil, errors.New("encoding palette texture failed").Wrap(err)
	}
	imgIdx, err := modeler.WriteImage(doc, "palette", "image/png", &img)
	if err != nil {
		return nil, errors.New("writing palette texture failed").Wrap(err)
	}
	doc.Samplers = []*gltf.Sampler{{
		MagFilter: gltf.MagNearest,
		MinFilter: gltf.MinNearest,
		WrapS:     gltf.WrapClampToEdge,
		WrapT:     gltf.WrapClampToEdge,
	}}
	doc.Textures = []*gltf.Texture{{Sampler: gltf.Index(0), Source: gltf.Index(imgIdx)}}

	material := &gltf.Material{
		Name: "palette",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
			MetallicFactor:   gltf.Float(0),
			RoughnessFactor:  gltf.Float(1),
		},
		AlphaMode: gltf.AlphaOpaque,
	}
	doc.Materials = []*gltf.Material{material}

	var used []uint8
	for i, m := range meshes {
		if m.Empty() {
			continue
		}
		used = append(used, materials(m)...)

		prim := &gltf.Primitive{
			Attributes: map[string]int{
				gltf.POSITION:   modeler.WritePosition(doc, toArrays(m.Positions)),
				gltf.NORMAL:     modeler.WriteNormal(doc, unitNormals(m.Normals)),
				gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, toUVs(m.UVs)),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, m.Indices)),
			Material: gltf.Index(0),
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       fmt.Sprintf("mesh_%d", i),
			Primitives: []*gltf.Primitive{prim},
		})
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: fmt.Sprintf("node_%d", i),
			Mesh: gltf.Index(len(doc.Meshes) - 1),
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}

	if palette.Translucent(used) {
		material.AlphaMode = gltf.AlphaBlend
	}
	return doc, nil
}

// Encode returns meshes as a .glb byte stream.
func Encode(palette *voxel.Palette, meshes ...*voxel.Mesh) ([]byte, error) {
	doc, err := Document(palette, meshes...)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, errors.New("encoding glb failed").Wrap(err)
	}
	return buf.Bytes(), nil
}

// Save writes meshes to a .glb file.
func Save(path string, palette *voxel.Palette, meshes ...*voxel.Mesh) error {
	doc, err := Document(palette, meshes...)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return errors.New("writing glb failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}

func toArrays(v []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i, p := range v {
		out[i] = p
	}
	return out
}

func toUVs(v []mgl32.Vec2) [][2]float32 {
	out := make([][2]float32, len(v))
	for i, p := range v {
		out[i] = p
	}
	return out
}

// unitNormals renormalizes normals; non-uniform scale leaves them
// unnormalized and glTF requires unit length.
func unitNormals(v []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i, n := range v {
		if n.Len() == 0 {
			continue
		}
		out[i] = n.Normalize()
	}
	return out
}

// materials returns the material of every quad, read back from its UV strip.
func materials(m *voxel.Mesh) []uint8 {
	out := make([]uint8, 0, m.QuadCount())
	for q := 0; q < m.QuadCount(); q++ {
		out = append(out, uint8(math.Round(float64(m.UVs[q*4][0]*voxel.PaletteSize))))
	}
	return out
}
