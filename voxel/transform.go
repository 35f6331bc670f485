package voxel

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Placement positions a model in its parent space. Anchor is a fraction of
// the model size (0.5,0,0.5 puts the pivot at the bottom center), Rotation
// holds Euler angles in degrees.
type Placement struct {
	Anchor   mgl32.Vec3
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

// Identity returns a placement that maps grid space onto itself.
func Identity() Placement {
	return Placement{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix composes T(position) * R(rotation) * S(scale) * T(-anchor*size).
// Rotation is applied around Z, then X, then Y.
func (p Placement) Matrix(size Size) mgl32.Mat4 {
	pivot := mgl32.Translate3D(
		-p.Anchor[0]*float32(size[0]),
		-p.Anchor[1]*float32(size[1]),
		-p.Anchor[2]*float32(size[2]),
	)
	rot := mgl32.HomogRotate3DY(mgl32.DegToRad(p.Rotation[1])).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(p.Rotation[0]))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(p.Rotation[2])))

	return mgl32.Translate3D(p.Position[0], p.Position[1], p.Position[2]).
		Mul4(rot).
		Mul4(mgl32.Scale3D(p.Scale[0], p.Scale[1], p.Scale[2])).
		Mul4(pivot)
}

// Handedness returns 1 for transforms that keep orientation and -1 for
// mirrored ones.
func Handedness(m mgl32.Mat4) int {
	if Mirrored(m) {
		return -1
	}
	return 1
}

// Mirrored reports whether the linear part of m has a negative determinant.
// Mirrored transforms turn faces inside out unless their winding is flipped.
func Mirrored(m mgl32.Mat4) bool {
	return m.Mat3().Det() < 0
}

// TransformPoint applies m to a position (w = 1).
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformVector applies the linear part of m to a direction (w = 0).
func TransformVector(m mgl32.Mat4, v mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}
