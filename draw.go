package kinetic

import (
	"fmt"

	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// Draw flags
const (
	DrawShapes = 1 << iota
	DrawJoints
	DrawContactPoints
	DrawAABBs
	DrawCenterOfMass
)

// FColor is an RGBA color with components in [0, 1].
type FColor struct {
	R, G, B, A float32
}

// Drawer renders the primitives of a debug view. Points are in world
// coordinates.
type Drawer interface {
	DrawCircle(center vec.Vec2, angle, radius float64, outline, fill FColor, data any)
	DrawSegment(a, b vec.Vec2, fill FColor, data any)
	DrawPolygon(verts []vec.Vec2, radius float64, outline, fill FColor, data any)
	DrawDot(size float64, pos vec.Vec2, fill FColor, data any)

	Flags() uint
	OutlineColor() FColor
	FixtureColor(f *Fixture, data any) FColor
	JointColor() FColor
	ContactPointColor() FColor
	BBColor() FColor
	Data() any
}

// DrawFixture draws the shape of a fixture at its body transform.
func DrawFixture(f *Fixture, drawer Drawer) {
	body := f.body
	data := drawer.Data()

	outline := drawer.OutlineColor()
	fill := drawer.FixtureColor(f, data)

	switch shape := f.shape.(type) {
	case *geom.Circle:
		drawer.DrawCircle(body.xf.Apply(shape.Center()), body.Angle(), shape.Radius(), outline, fill, data)
	case *geom.Polygon:
		verts := make([]vec.Vec2, shape.Count())
		for i := range verts {
			verts[i] = body.xf.Apply(shape.Vertex(i))
		}
		drawer.DrawPolygon(verts, shape.Radius(), outline, fill, data)
	default:
		panic(fmt.Sprintf("kinetic: cannot draw %T", f.shape))
	}
}

var springVerts = []vec.Vec2{
	{X: 0.00, Y: 0.0},
	{X: 0.20, Y: 0.0},
	{X: 0.25, Y: 3.0},
	{X: 0.30, Y: -6.0},
	{X: 0.35, Y: 6.0},
	{X: 0.40, Y: -6.0},
	{X: 0.45, Y: 6.0},
	{X: 0.50, Y: -6.0},
	{X: 0.55, Y: 6.0},
	{X: 0.60, Y: -6.0},
	{X: 0.65, Y: 6.0},
	{X: 0.70, Y: -3.0},
	{X: 0.75, Y: 6.0},
	{X: 0.80, Y: 0.0},
	{X: 1.00, Y: 0.0},
}

// DrawJoint draws joints with the drawer implementation
func DrawJoint(j Joint, drawer Drawer) {
	data := drawer.Data()
	color := drawer.JointColor()

	a := j.AnchorA()
	b := j.AnchorB()

	switch joint := j.(type) {
	case *DistanceJoint:
		drawer.DrawDot(5, a, color, data)
		drawer.DrawDot(5, b, color, data)
		if joint.FrequencyHz() == 0 {
			drawer.DrawSegment(a, b, color, data)
			return
		}

		delta := b.Sub(a)
		cos := delta.X
		sin := delta.Y
		s := 1.0 / delta.Mag()

		r1 := vec.Vec2{X: cos, Y: -sin * s}
		r2 := vec.Vec2{X: sin, Y: cos * s}

		verts := make([]vec.Vec2, len(springVerts))
		for i, vt := range springVerts {
			verts[i] = vec.Vec2{X: vt.Dot(r1) + a.X, Y: vt.Dot(r2) + a.Y}
		}
		for i := 0; i < len(verts)-1; i++ {
			drawer.DrawSegment(verts[i], verts[i+1], color, data)
		}
	case *RopeJoint:
		drawer.DrawDot(5, a, color, data)
		drawer.DrawDot(5, b, color, data)
		drawer.DrawSegment(a, b, color, data)
	case *RevoluteJoint, *WeldJoint:
		drawer.DrawSegment(joint.BodyA().Position(), a, color, data)
		drawer.DrawSegment(a, b, color, data)
		drawer.DrawSegment(joint.BodyB().Position(), b, color, data)
	case *PrismaticJoint:
		drawer.DrawDot(5, a, color, data)
		drawer.DrawDot(5, b, color, data)
		drawer.DrawSegment(joint.BodyA().Position(), a, color, data)
		drawer.DrawSegment(a, b, color, data)
	case *MouseJoint:
		drawer.DrawDot(4, a, color, data)
		drawer.DrawDot(4, b, color, data)
		drawer.DrawSegment(a, b, color, data)
	case *GearJoint, *RotarySpringJoint:
		drawer.DrawDot(3, a, color, data)
		drawer.DrawDot(3, b, color, data)
		drawer.DrawSegment(a, b, color, data)
	default:
		panic(fmt.Sprintf("kinetic: cannot draw %T", j))
	}
}

// DrawWorld draws the parts of the world selected by the drawer flags.
func DrawWorld(w *World, drawer Drawer) {
	flags := drawer.Flags()
	data := drawer.Data()

	if flags&DrawShapes != 0 {
		for _, body := range w.bodies {
			for _, f := range body.fixtures {
				DrawFixture(f, drawer)
			}
		}
	}

	if flags&DrawJoints != 0 {
		for _, j := range w.joints {
			DrawJoint(j, drawer)
		}
	}

	if flags&DrawAABBs != 0 {
		color := drawer.BBColor()
		for _, body := range w.bodies {
			for _, f := range body.fixtures {
				bb := f.FatBB()
				verts := []vec.Vec2{
					{X: bb.L, Y: bb.B},
					{X: bb.R, Y: bb.B},
					{X: bb.R, Y: bb.T},
					{X: bb.L, Y: bb.T},
				}
				for i := range verts {
					drawer.DrawSegment(verts[i], verts[(i+1)%len(verts)], color, data)
				}
			}
		}
	}

	if flags&DrawCenterOfMass != 0 {
		color := drawer.OutlineColor()
		for _, body := range w.bodies {
			drawer.DrawDot(3, body.WorldCenter(), color, data)
		}
	}

	if flags&DrawContactPoints != 0 {
		color := drawer.ContactPointColor()
		for _, c := range w.contactManager.contacts {
			if !c.touching || c.IsSensor() {
				continue
			}
			wm := c.WorldManifold()
			n := wm.Normal
			for i := 0; i < c.manifold.PointCount; i++ {
				p := wm.Points[i]
				drawer.DrawSegment(p, p.Add(n.Scale(0.2)), color, data)
			}
		}
	}
}
