package mobility

import (
	"math"
	"math/rand"

	"gitlab.com/akita/akita/v3/sim"
)

// A Velocity is a 2D velocity vector in meters per second.
type Velocity struct {
	X float64
	Y float64
}

// Bounds is the rectangle walkers stay inside.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Contains reports whether the position lies inside the rectangle.
func (b Bounds) Contains(p Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

func (b Bounds) clamp(p Position) Position {
	p.X = math.Min(math.Max(p.X, b.MinX), b.MaxX)
	p.Y = math.Min(math.Max(p.Y, b.MinY), b.MaxY)
	return p
}

// A courseChangeEvent fires when a walker finishes its pause and must pick a
// new direction.
type courseChangeEvent struct {
	time    sim.VTimeInSec
	handler sim.Handler
	name    string
}

func (e courseChangeEvent) Time() sim.VTimeInSec {
	return e.time
}

func (e courseChangeEvent) Handler() sim.Handler {
	return e.handler
}

func (e courseChangeEvent) IsSecondary() bool {
	return false
}

type walker struct {
	name string
	pos  Position
}

// A RandomDirectionModel moves nodes in straight legs at constant speed: pick
// a direction uniformly, walk until the bounds rectangle is hit, pause, pick
// again. Every event it schedules stays below the horizon so the event queue
// drains at the stop time.
type RandomDirectionModel struct {
	sim.EventScheduler
	sim.TimeTeller

	registry *Registry
	rng      *rand.Rand

	bounds  Bounds
	speed   float64
	pause   sim.VTimeInSec
	horizon sim.VTimeInSec

	walkers map[string]*walker

	courseChangeHooks []func(
		now sim.VTimeInSec, name string, pos Position, velocity Velocity)
}

// NewRandomDirectionModel creates a new RandomDirectionModel.
func NewRandomDirectionModel(
	es sim.EventScheduler,
	tt sim.TimeTeller,
	registry *Registry,
	rng *rand.Rand,
	bounds Bounds,
	speedMps float64,
	pause sim.VTimeInSec,
	horizon sim.VTimeInSec,
) *RandomDirectionModel {
	m := &RandomDirectionModel{
		EventScheduler: es,
		TimeTeller:     tt,
		registry:       registry,
		rng:            rng,
		bounds:         bounds,
		speed:          speedMps,
		pause:          pause,
		horizon:        horizon,
		walkers:        make(map[string]*walker),
	}

	return m
}

// OnCourseChange registers a hook invoked at every direction pick.
func (m *RandomDirectionModel) OnCourseChange(
	hook func(now sim.VTimeInSec, name string, pos Position, velocity Velocity),
) {
	m.courseChangeHooks = append(m.courseChangeHooks, hook)
}

// Add registers a node at its initial position and schedules its first
// course pick.
func (m *RandomDirectionModel) Add(name string, pos Position) {
	if !m.bounds.Contains(pos) {
		panic("initial position outside the bounds rectangle")
	}

	now := m.CurrentTime()
	m.walkers[name] = &walker{name: name, pos: pos}
	m.registry.Place(name, now, pos)

	if now >= m.horizon {
		return
	}

	m.Schedule(courseChangeEvent{time: now, handler: m, name: name})
}

// Handle advances walkers when their course picks come due.
func (m *RandomDirectionModel) Handle(e sim.Event) error {
	switch e := e.(type) {
	case courseChangeEvent:
		return m.handleCourseChangeEvent(e)
	default:
		panic("unknown event type")
	}
}

func (m *RandomDirectionModel) handleCourseChangeEvent(
	e courseChangeEvent,
) error {
	w := m.walkers[e.name]
	now := e.time

	velocity, tHit := m.pickLeg(w.pos)

	m.registry.Place(w.name, now, w.pos)
	for _, hook := range m.courseChangeHooks {
		hook(now, w.name, w.pos, velocity)
	}

	legEnd := now + sim.VTimeInSec(tHit)
	if legEnd >= m.horizon {
		// the run ends mid-leg; close the track at the horizon
		dt := float64(m.horizon - now)
		w.pos = m.bounds.clamp(Position{
			X: w.pos.X + velocity.X*dt,
			Y: w.pos.Y + velocity.Y*dt,
		})
		m.registry.Place(w.name, m.horizon, w.pos)
		return nil
	}

	w.pos = m.bounds.clamp(Position{
		X: w.pos.X + velocity.X*tHit,
		Y: w.pos.Y + velocity.Y*tHit,
	})
	m.registry.Place(w.name, legEnd, w.pos)

	next := legEnd + m.pause
	if next >= m.horizon {
		return nil
	}

	m.Schedule(courseChangeEvent{time: next, handler: m, name: w.name})

	return nil
}

// pickLeg draws directions until one yields a leg of positive length and
// returns the velocity together with the time to the bounds.
func (m *RandomDirectionModel) pickLeg(pos Position) (Velocity, float64) {
	for {
		theta := 2 * math.Pi * m.rng.Float64()
		velocity := Velocity{
			X: m.speed * math.Cos(theta),
			Y: m.speed * math.Sin(theta),
		}

		tHit := m.timeToBounds(pos, velocity)
		if tHit > 0 {
			return velocity, tHit
		}
	}
}

func (m *RandomDirectionModel) timeToBounds(pos Position, v Velocity) float64 {
	tX := math.Inf(1)
	if v.X > 0 {
		tX = (m.bounds.MaxX - pos.X) / v.X
	} else if v.X < 0 {
		tX = (m.bounds.MinX - pos.X) / v.X
	}

	tY := math.Inf(1)
	if v.Y > 0 {
		tY = (m.bounds.MaxY - pos.Y) / v.Y
	} else if v.Y < 0 {
		tY = (m.bounds.MinY - pos.Y) / v.Y
	}

	return math.Min(tX, tY)
}
