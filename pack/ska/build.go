package ska

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// BoneBind is the rest pose transform keyframes are stored relative
// to: stored values are bind-space, sampled values are bone-local.
type BoneBind struct {
	Rotation mgl32.Quat
	Location mgl32.Vec3
}

// Sample is one bone-local keyframe at a normalized time. For
// location channels W of Value is unused; for rotation channels
// Value is a quaternion as (x,y,z,w).
type Sample struct {
	Time    float32
	Value   mgl32.Vec4
	Tangent mgl32.Vec4
}

// Channel extracts one header's samples into bone-local space,
// sorted by time. Stored rotations carry a negated scalar part,
// which is undone here.
func (f *File) Channel(h Header, bind BoneBind) ([]Sample, error) {
	if int(h.Tick)+int(h.Interval) > len(f.Times) || int(h.Tick)+int(h.Interval) > len(f.Keyframes) {
		return nil, errors.Errorf("Channel range [%d:%d] exceeds stream length %d",
			h.Tick, h.Tick+h.Interval, len(f.Times))
	}
	inv := bind.Rotation.Conjugate()

	samples := make([]Sample, h.Interval)
	for i := range samples {
		t := f.Times[int(h.Tick)+i]
		kf := &f.Keyframes[int(h.Tick)+i]
		s := Sample{Time: t}
		switch h.Type {
		case FRAME_TYPE_LOCATION:
			v := inv.Rotate(mgl32.Vec3{kf.Value[0], kf.Value[1], kf.Value[2]}.Sub(bind.Location))
			m := inv.Rotate(mgl32.Vec3{kf.Tangent[0], kf.Tangent[1], kf.Tangent[2]})
			s.Value = mgl32.Vec4{v[0], v[1], v[2], 1}
			s.Tangent = mgl32.Vec4{m[0], m[1], m[2], 0}
		case FRAME_TYPE_ROTATION:
			q := inv.Mul(mgl32.Quat{W: -kf.Value[3], V: mgl32.Vec3{kf.Value[0], kf.Value[1], kf.Value[2]}})
			m := inv.Mul(mgl32.Quat{W: -kf.Tangent[3], V: mgl32.Vec3{kf.Tangent[0], kf.Tangent[1], kf.Tangent[2]}})
			s.Value = mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
			s.Tangent = mgl32.Vec4{m.V[0], m.V[1], m.V[2], m.W}
		default:
			return nil, errors.Errorf("Unknown channel type %d", h.Type)
		}
		samples[i] = s
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
	return samples, nil
}

// BezierHandles converts the Hermite tangents of two adjacent samples
// into cubic Bézier handle values per component: the right handle of
// s0 and the left handle of s1. Sample times are normalized, so the
// frame rate cancels out of the handle offset.
func BezierHandles(s0, s1 Sample) (right, left mgl32.Vec4) {
	scale := (s1.Time - s0.Time) / 3
	right = s0.Value.Add(s0.Tangent.Mul(scale))
	left = s1.Value.Sub(s1.Tangent.Mul(scale))
	return right, left
}

// Curve is one bone channel prepared for export: bone-local samples
// with their outgoing Bézier right handles, times normalized to
// [0,1]. Values and handles are (x,y,z,1) for location channels and
// quaternion (x,y,z,w) for rotation channels.
type Curve struct {
	Times        []float32
	Values       []mgl32.Vec4
	RightHandles []mgl32.Vec4
}

// BoneChannels pairs a bone's channels with its bind transform.
type BoneChannels struct {
	BoneID   int32
	Bind     BoneBind
	Location Curve
	Rotation Curve
}

// hermiteTangent recovers the outgoing Hermite tangent of sample i
// from its Bézier right handle. The last sample of a curve and any
// sample at time zero get a zero tangent.
func hermiteTangent(c *Curve, i int) mgl32.Vec4 {
	if i+1 >= len(c.Times) || c.Times[i] == 0 {
		return mgl32.Vec4{}
	}
	dt := c.Times[i+1] - c.Times[i]
	if dt == 0 {
		return mgl32.Vec4{}
	}
	return c.RightHandles[i].Sub(c.Values[i]).Mul(3 / dt)
}

// Build assembles a keyframed animation from per-bone local curves.
// Channels are emitted location first then rotation per bone, sharing
// one time/keyframe stream in emission order.
func Build(bones []BoneChannels, duration float32) *File {
	f := &File{
		Type:        TYPE_KEYFRAMED,
		Duration:    duration,
		Repeat:      1,
		StutterMode: 2,
	}

	tick := uint32(0)
	emit := func(boneID int32, bind BoneBind, c *Curve, frameType uint32) {
		if len(c.Times) == 0 {
			return
		}
		f.Headers = append(f.Headers, Header{
			Tick:     tick,
			Interval: uint32(len(c.Times)),
			Type:     frameType,
			BoneID:   boneID,
		})
		tick += uint32(len(c.Times))

		for i, t := range c.Times {
			f.Times = append(f.Times, t)
			tan := hermiteTangent(c, i)
			var kf Keyframe
			switch frameType {
			case FRAME_TYPE_LOCATION:
				v := bind.Rotation.Rotate(mgl32.Vec3{c.Values[i][0], c.Values[i][1], c.Values[i][2]}).Add(bind.Location)
				m := bind.Rotation.Rotate(mgl32.Vec3{tan[0], tan[1], tan[2]})
				kf.Value = mgl32.Vec4{v[0], v[1], v[2], 1}
				kf.Tangent = mgl32.Vec4{m[0], m[1], m[2], 0}
			case FRAME_TYPE_ROTATION:
				q := bind.Rotation.Mul(mgl32.Quat{W: c.Values[i][3], V: mgl32.Vec3{c.Values[i][0], c.Values[i][1], c.Values[i][2]}})
				m := bind.Rotation.Mul(mgl32.Quat{W: tan[3], V: mgl32.Vec3{tan[0], tan[1], tan[2]}})
				kf.Value = mgl32.Vec4{q.V[0], q.V[1], q.V[2], -q.W}
				kf.Tangent = mgl32.Vec4{m.V[0], m.V[1], m.V[2], -m.W}
			}
			f.Keyframes = append(f.Keyframes, kf)
		}
	}

	for i := range bones {
		b := &bones[i]
		emit(b.BoneID, b.Bind, &b.Location, FRAME_TYPE_LOCATION)
		emit(b.BoneID, b.Bind, &b.Rotation, FRAME_TYPE_ROTATION)
	}
	return f
}
