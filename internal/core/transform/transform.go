// Package transform implements translation/rotation/scale value types.
//
// Composition follows the engine convention used by the spatial hierarchy:
//
//	world.Translation = parent.Translation + parent.Rotation * (parent.Scale ∘ local.Translation)
//	world.Rotation    = parent.Rotation * local.Rotation
//	world.Scale       = parent.Scale ∘ local.Scale
//
// where ∘ is the component-wise product. Keeping scale as a per-axis vector
// (rather than folding into a matrix) makes Delta an exact inverse of Compose.
package transform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type Vec3 = mgl64.Vec3
type Quat = mgl64.Quat

// Epsilon is the tolerance used by ApproxEqual.
const Epsilon = 1e-6

type Transform struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    Vec3{1, 1, 1},
	}
}

func New(translation Vec3, rotation Quat, scale Vec3) Transform {
	return Transform{Translation: translation, Rotation: rotation.Normalize(), Scale: scale}
}

func FromTranslation(translation Vec3) Transform {
	t := Identity()
	t.Translation = translation
	return t
}

// EulerToQuat converts XYZ euler angles in radians.
func EulerToQuat(euler Vec3) Quat {
	return mgl64.AnglesToQuat(euler.X(), euler.Y(), euler.Z(), mgl64.XYZ).Normalize()
}

// EulerDegreesToQuat converts XYZ euler angles in degrees.
func EulerDegreesToQuat(euler Vec3) Quat {
	return EulerToQuat(Vec3{mgl64.DegToRad(euler.X()), mgl64.DegToRad(euler.Y()), mgl64.DegToRad(euler.Z())})
}

// Compose returns parent ⊕ local.
func Compose(parent, local Transform) Transform {
	scaled := mulComponents(parent.Scale, local.Translation)
	return Transform{
		Translation: parent.Translation.Add(parent.Rotation.Rotate(scaled)),
		Rotation:    parent.Rotation.Mul(local.Rotation).Normalize(),
		Scale:       mulComponents(parent.Scale, local.Scale),
	}
}

// Delta solves Compose(parent, local) == world for local.
func Delta(parent, world Transform) Transform {
	inv := parent.Rotation.Inverse()
	offset := inv.Rotate(world.Translation.Sub(parent.Translation))
	return Transform{
		Translation: divComponents(offset, parent.Scale),
		Rotation:    inv.Mul(world.Rotation).Normalize(),
		Scale:       divComponents(world.Scale, parent.Scale),
	}
}

// Inverse returns t⁻¹ such that Compose(t, t⁻¹) is the identity.
func (t Transform) Inverse() Transform {
	return Delta(t, Identity())
}

// Mul is shorthand for Compose(t, local).
func (t Transform) Mul(local Transform) Transform {
	return Compose(t, local)
}

// TransformPoint maps a point from t's local space into its parent space.
func (t Transform) TransformPoint(p Vec3) Vec3 {
	return t.Translation.Add(t.Rotation.Rotate(mulComponents(t.Scale, p)))
}

func (t Transform) WithTranslation(v Vec3) Transform {
	t.Translation = v
	return t
}

func (t Transform) WithRotation(q Quat) Transform {
	t.Rotation = q.Normalize()
	return t
}

func (t Transform) WithScale(s Vec3) Transform {
	t.Scale = s
	return t
}

func (t Transform) ApproxEqual(o Transform) bool {
	return t.ApproxEqualThreshold(o, Epsilon)
}

// ApproxEqualThreshold treats q and -q as the same rotation.
func (t Transform) ApproxEqualThreshold(o Transform, eps float64) bool {
	if !t.Translation.ApproxEqualThreshold(o.Translation, eps) {
		return false
	}
	if !t.Scale.ApproxEqualThreshold(o.Scale, eps) {
		return false
	}
	if t.Rotation.ApproxEqualThreshold(o.Rotation, eps) {
		return true
	}
	neg := mgl64.Quat{W: -o.Rotation.W, V: o.Rotation.V.Mul(-1)}
	return t.Rotation.ApproxEqualThreshold(neg, eps)
}

func (t Transform) String() string {
	return fmt.Sprintf("T(%.4g,%.4g,%.4g) R(%.4g,%.4g,%.4g,%.4g) S(%.4g,%.4g,%.4g)",
		t.Translation.X(), t.Translation.Y(), t.Translation.Z(),
		t.Rotation.W, t.Rotation.V.X(), t.Rotation.V.Y(), t.Rotation.V.Z(),
		t.Scale.X(), t.Scale.Y(), t.Scale.Z())
}

func mulComponents(a, b Vec3) Vec3 {
	return Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

func divComponents(a, b Vec3) Vec3 {
	return Vec3{safeDiv(a.X(), b.X()), safeDiv(a.Y(), b.Y()), safeDiv(a.Z(), b.Z())}
}

// a degenerate (zero) scale axis cannot be solved for; collapse it to zero
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
