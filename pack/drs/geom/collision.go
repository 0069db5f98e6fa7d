package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

type CGeoAABox struct {
	LowerLeftCorner  mgl32.Vec3
	UpperRightCorner mgl32.Vec3
}

type BoxShape struct {
	CoordSystem CMatCoordinateSystem
	GeoAABox    CGeoAABox
}

type CGeoSphere struct {
	Radius float32
	Center mgl32.Vec3
}

type SphereShape struct {
	CoordSystem CMatCoordinateSystem
	GeoSphere   CGeoSphere
}

type CGeoCylinder struct {
	Center mgl32.Vec3
	Height float32
	Radius float32
}

type CylinderShape struct {
	CoordSystem CMatCoordinateSystem
	GeoCylinder CGeoCylinder
}

const (
	boxShapeSize      = CMAT_COORDINATE_SYSTEM_SIZE + 24
	sphereShapeSize   = CMAT_COORDINATE_SYSTEM_SIZE + 16
	cylinderShapeSize = CMAT_COORDINATE_SYSTEM_SIZE + 20
)

// CollisionShape is the physics proxy: any number of oriented boxes,
// spheres and cylinders.
type CollisionShape struct {
	Version   uint8
	Boxes     []BoxShape
	Spheres   []SphereShape
	Cylinders []CylinderShape
}

func UnmarshalCollisionShape(data []byte) (*CollisionShape, error) {
	r := bstream.NewReader(data)
	s := &CollisionShape{}
	s.Version = r.ReadU8()

	boxCount := r.ReadU32()
	if int(boxCount)*boxShapeSize > r.Remaining() {
		return nil, errors.Errorf("Bad box count %d", boxCount)
	}
	s.Boxes = make([]BoxShape, boxCount)
	for i := range s.Boxes {
		b := &s.Boxes[i]
		b.CoordSystem.UnmarshalReader(r)
		b.GeoAABox.LowerLeftCorner = r.ReadVec3()
		b.GeoAABox.UpperRightCorner = r.ReadVec3()
	}

	sphereCount := r.ReadU32()
	if int(sphereCount)*sphereShapeSize > r.Remaining() {
		return nil, errors.Errorf("Bad sphere count %d", sphereCount)
	}
	s.Spheres = make([]SphereShape, sphereCount)
	for i := range s.Spheres {
		sp := &s.Spheres[i]
		sp.CoordSystem.UnmarshalReader(r)
		sp.GeoSphere.Radius = r.ReadF32()
		sp.GeoSphere.Center = r.ReadVec3()
	}

	cylinderCount := r.ReadU32()
	if int(cylinderCount)*cylinderShapeSize > r.Remaining() {
		return nil, errors.Errorf("Bad cylinder count %d", cylinderCount)
	}
	s.Cylinders = make([]CylinderShape, cylinderCount)
	for i := range s.Cylinders {
		c := &s.Cylinders[i]
		c.CoordSystem.UnmarshalReader(r)
		c.GeoCylinder.Center = r.ReadVec3()
		c.GeoCylinder.Height = r.ReadF32()
		c.GeoCylinder.Radius = r.ReadF32()
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse collisionShape")
	}
	return s, nil
}

func (s *CollisionShape) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteU8(s.Version)

	w.WriteU32(uint32(len(s.Boxes)))
	for i := range s.Boxes {
		b := &s.Boxes[i]
		b.CoordSystem.MarshalWriter(w)
		w.WriteVec3(b.GeoAABox.LowerLeftCorner)
		w.WriteVec3(b.GeoAABox.UpperRightCorner)
	}

	w.WriteU32(uint32(len(s.Spheres)))
	for i := range s.Spheres {
		sp := &s.Spheres[i]
		sp.CoordSystem.MarshalWriter(w)
		w.WriteF32(sp.GeoSphere.Radius)
		w.WriteVec3(sp.GeoSphere.Center)
	}

	w.WriteU32(uint32(len(s.Cylinders)))
	for i := range s.Cylinders {
		c := &s.Cylinders[i]
		c.CoordSystem.MarshalWriter(w)
		w.WriteVec3(c.GeoCylinder.Center)
		w.WriteF32(c.GeoCylinder.Height)
		w.WriteF32(c.GeoCylinder.Radius)
	}

	return w.Bytes()
}

func (s *CollisionShape) ByteSize() int {
	return 13 + boxShapeSize*len(s.Boxes) + sphereShapeSize*len(s.Spheres) +
		cylinderShapeSize*len(s.Cylinders)
}

// CGeoPrimitiveContainer never carries payload bytes; only its node entry
// exists in the container.
type CGeoPrimitiveContainer struct{}

func UnmarshalCGeoPrimitiveContainer(data []byte) (*CGeoPrimitiveContainer, error) {
	if len(data) != 0 {
		return nil, errors.Errorf("CGeoPrimitiveContainer with %d payload bytes", len(data))
	}
	return &CGeoPrimitiveContainer{}, nil
}

func (p *CGeoPrimitiveContainer) Marshal() []byte { return nil }
func (p *CGeoPrimitiveContainer) ByteSize() int   { return 0 }
