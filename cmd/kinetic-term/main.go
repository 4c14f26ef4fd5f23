// Command kinetic-term runs a small kinetic scene in the terminal.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/setanarut/kinetic"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

const (
	viewWidth = 32.0 // meters across the screen
	stepHz    = 60
)

// termDrawer rasterizes debug primitives to terminal cells. Cells are about
// twice as tall as they are wide, so the vertical scale is halved.
type termDrawer struct {
	screen        tcell.Screen
	width, height int
	scale         float64
	flags         uint
}

func (d *termDrawer) resize() {
	d.width, d.height = d.screen.Size()
	d.scale = float64(d.width) / viewWidth
}

func (d *termDrawer) toCell(p vec.Vec2) (int, int) {
	x := float64(d.width)/2 + p.X*d.scale
	y := float64(d.height-2) - p.Y*d.scale/2
	return int(math.Round(x)), int(math.Round(y))
}

func (d *termDrawer) toWorld(x, y int) vec.Vec2 {
	return vec.Vec2{
		X: (float64(x) - float64(d.width)/2) / d.scale,
		Y: (float64(d.height-2) - float64(y)) * 2 / d.scale,
	}
}

func style(c kinetic.FColor) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R*255), int32(c.G*255), int32(c.B*255)))
}

func (d *termDrawer) plot(x, y int, r rune, st tcell.Style) {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return
	}
	d.screen.SetContent(x, y, r, nil, st)
}

// line plots a Bresenham line between two cells.
func (d *termDrawer) line(x0, y0, x1, y1 int, r rune, st tcell.Style) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		d.plot(x0, y0, r, st)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (d *termDrawer) DrawCircle(center vec.Vec2, angle, radius float64, outline, fill kinetic.FColor, data any) {
	st := style(fill)
	n := max(8, int(radius*d.scale*4))
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		x, y := d.toCell(center.Add(vec.Vec2{X: math.Cos(a), Y: math.Sin(a)}.Scale(radius)))
		d.plot(x, y, 'o', st)
	}
	x0, y0 := d.toCell(center)
	x1, y1 := d.toCell(center.Add(vec.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(radius)))
	d.line(x0, y0, x1, y1, '.', style(outline))
}

func (d *termDrawer) DrawSegment(a, b vec.Vec2, fill kinetic.FColor, data any) {
	x0, y0 := d.toCell(a)
	x1, y1 := d.toCell(b)
	d.line(x0, y0, x1, y1, '.', style(fill))
}

func (d *termDrawer) DrawPolygon(verts []vec.Vec2, radius float64, outline, fill kinetic.FColor, data any) {
	st := style(fill)
	for i := range verts {
		x0, y0 := d.toCell(verts[i])
		x1, y1 := d.toCell(verts[(i+1)%len(verts)])
		d.line(x0, y0, x1, y1, '#', st)
	}
}

func (d *termDrawer) DrawDot(size float64, pos vec.Vec2, fill kinetic.FColor, data any) {
	x, y := d.toCell(pos)
	d.plot(x, y, '*', style(fill))
}

func (d *termDrawer) Flags() uint { return d.flags }

func (d *termDrawer) OutlineColor() kinetic.FColor {
	return kinetic.FColor{R: 0.8, G: 0.8, B: 0.8, A: 1}
}

func (d *termDrawer) FixtureColor(f *kinetic.Fixture, data any) kinetic.FColor {
	body := f.Body()
	switch {
	case f.IsSensor():
		return kinetic.FColor{R: 1, G: 1, A: 1}
	case body.Type() == kinetic.Static:
		return kinetic.FColor{R: 0.5, G: 0.5, B: 0.5, A: 1}
	case body.Type() == kinetic.Kinematic:
		return kinetic.FColor{R: 0.5, G: 0.5, B: 1, A: 1}
	case !body.IsAwake():
		return kinetic.FColor{R: 0.3, G: 0.5, B: 0.3, A: 1}
	case body.IsBullet():
		return kinetic.FColor{R: 1, G: 0.4, B: 0.2, A: 1}
	}
	return kinetic.FColor{R: 0.4, G: 1, B: 0.4, A: 1}
}

func (d *termDrawer) JointColor() kinetic.FColor {
	return kinetic.FColor{R: 0.5, G: 0.8, B: 0.8, A: 1}
}

func (d *termDrawer) ContactPointColor() kinetic.FColor { return kinetic.FColor{R: 1, A: 1} }

func (d *termDrawer) BBColor() kinetic.FColor {
	return kinetic.FColor{R: 0.3, G: 0.3, B: 0.6, A: 1}
}

func (d *termDrawer) Data() any { return nil }

type demo struct {
	world  *kinetic.World
	drawer *termDrawer
	paused bool
}

func newScene(settings kinetic.Settings) *kinetic.World {
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithSettings(settings))

	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(ground, geom.NewBox(15, 0.5), 0)
	w.CreateFixtureFromShape(ground, geom.NewOrientedBox(0.5, 8, vec.Vec2{X: -15, Y: 8}, 0), 0)
	w.CreateFixtureFromShape(ground, geom.NewOrientedBox(0.5, 8, vec.Vec2{X: 15, Y: 8}, 0), 0)

	// Pyramid
	const rows = 6
	for row := range rows {
		for i := range rows - row {
			def := kinetic.NewBodyDef(kinetic.Dynamic)
			def.Position = vec.Vec2{
				X: 4 + float64(i)*1.05 + float64(row)*0.525,
				Y: 1 + float64(row)*1.0,
			}
			crate := w.CreateBody(def)
			fd := kinetic.NewFixtureDef(geom.NewBox(0.5, 0.5))
			fd.Density = 1
			fd.Friction = 0.6
			w.CreateFixture(crate, fd)
		}
	}

	// Pendulum
	pivot := vec.Vec2{X: -6, Y: 12}
	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Position = vec.Vec2{X: -2, Y: 12}
	bob := w.CreateBody(def)
	w.CreateFixtureFromShape(bob, geom.NewCircle(vec.Vec2{}, 0.75), 2)
	w.CreateJoint(kinetic.NewRevoluteJointDef(ground, bob, pivot))

	// Elevator
	lift := kinetic.NewBodyDef(kinetic.Kinematic)
	lift.Position = vec.Vec2{X: -10, Y: 2}
	lift.LinearVelocity = vec.Vec2{Y: 1}
	w.CreateFixtureFromShape(w.CreateBody(lift), geom.NewBox(2, 0.25), 0)

	return w
}

func (d *demo) dropBall(x float64) {
	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Position = vec.Vec2{X: x, Y: 14}
	ball := d.world.CreateBody(def)
	fd := kinetic.NewFixtureDef(geom.NewCircle(vec.Vec2{}, 0.5))
	fd.Density = 1
	fd.Restitution = 0.3
	d.world.CreateFixture(ball, fd)
}

func (d *demo) fireBullet() {
	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Position = vec.Vec2{X: -13, Y: 3}
	def.LinearVelocity = vec.Vec2{X: 120, Y: 2}
	def.Bullet = true
	bullet := d.world.CreateBody(def)
	d.world.CreateFixtureFromShape(bullet, geom.NewCircle(vec.Vec2{}, 0.2), 10)
}

func (d *demo) update() {
	// Reverse the elevator at the ends of its track.
	d.world.EachBody(func(b *kinetic.Body) {
		if b.Type() != kinetic.Kinematic {
			return
		}
		y := b.Position().Y
		if (y > 8 && b.Velocity().Y > 0) || (y < 1 && b.Velocity().Y < 0) {
			b.SetVelocity(b.Velocity().Neg())
		}
	})

	// Remove bodies that left the scene once the step is over.
	d.world.EachBody(func(b *kinetic.Body) {
		if b.Position().Y < -20 || math.Abs(b.Position().X) > 40 {
			d.world.AddPostStepCallback(func(w *kinetic.World, key any) {
				w.DestroyBody(key.(*kinetic.Body))
			}, b)
		}
	})
	if !d.paused {
		d.world.Step(1.0/stepHz, 0, 0)
	}
}

func (d *demo) draw() {
	s := d.drawer.screen
	s.Clear()
	kinetic.DrawWorld(d.world, d.drawer)

	info := strings.Split(kinetic.DebugInfo(d.world), "\n")
	info = append(info, "space: ball  b: bullet  a: aabbs  c: contacts  p: pause  q: quit")
	for row, text := range info {
		for col, r := range text {
			d.drawer.plot(col, row, r, tcell.StyleDefault)
		}
	}
	s.Show()
}

func (d *demo) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			d.dropBall(float64(d.world.StepCount()%20) - 10)
		case 'b':
			d.fireBullet()
		case 'a':
			d.drawer.flags ^= kinetic.DrawAABBs
		case 'c':
			d.drawer.flags ^= kinetic.DrawContactPoints
		case 'p':
			d.paused = !d.paused
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			d.dropBall(d.drawer.toWorld(ev.Position()).X)
		}
	case *tcell.EventResize:
		d.drawer.resize()
		d.drawer.screen.Sync()
	}
	return true
}

func (d *demo) run() {
	ticker := time.NewTicker(time.Second / stepHz)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			events <- d.drawer.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-events:
			if !d.handleInput(ev) {
				return
			}
		case <-ticker.C:
			d.update()
			d.draw()
		}
	}
}

func main() {
	configPath := flag.String("config", "", "YAML settings file")
	workers := flag.Int("workers", 1, "island solver goroutines")
	flag.Parse()

	settings := kinetic.DefaultSettings()
	if *configPath != "" {
		var err error
		if settings, err = kinetic.LoadSettings(*configPath); err != nil {
			log.Fatalf("kinetic-term: %v", err)
		}
	}
	settings.Workers = *workers
	if err := settings.Validate(); err != nil {
		log.Fatalf("kinetic-term: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()
	screen.EnableMouse()

	drawer := &termDrawer{screen: screen, flags: kinetic.DrawShapes | kinetic.DrawJoints}
	drawer.resize()

	d := &demo{world: newScene(settings), drawer: drawer}
	d.run()
}
