package mobility

import (
	"math/rand"
	"sort"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sim "gitlab.com/akita/akita/v3/sim"
)

type strangeEvent struct {
	courseChangeEvent
}

// testEngine drains scheduled events in time order and remembers the latest
// event time it ever saw.
type testEngine struct {
	queue        []sim.Event
	now          sim.VTimeInSec
	maxScheduled sim.VTimeInSec
	numHandled   int
}

func (e *testEngine) Schedule(ev sim.Event) {
	if ev.Time() > e.maxScheduled {
		e.maxScheduled = ev.Time()
	}
	e.queue = append(e.queue, ev)
}

func (e *testEngine) CurrentTime() sim.VTimeInSec {
	return e.now
}

func (e *testEngine) run() {
	for len(e.queue) > 0 {
		sort.SliceStable(e.queue, func(i, j int) bool {
			return e.queue[i].Time() < e.queue[j].Time()
		})

		ev := e.queue[0]
		e.queue = e.queue[1:]
		e.now = ev.Time()
		e.numHandled++

		if err := ev.Handler().Handle(ev); err != nil {
			panic(err)
		}
	}
}

var _ = Describe("RandomDirectionModel", func() {
	var (
		mockCtrl       *gomock.Controller
		eventScheduler *MockEventScheduler
		timeTeller     *MockTimeTeller
		registry       *Registry
		bounds         Bounds
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		eventScheduler = NewMockEventScheduler(mockCtrl)
		timeTeller = NewMockTimeTeller(mockCtrl)
		registry = NewRegistry()
		bounds = Bounds{MinX: -500, MaxX: 500, MinY: -500, MaxY: 500}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule the first pick when a node is added", func() {
		model := NewRandomDirectionModel(
			eventScheduler, timeTeller, registry,
			rand.New(rand.NewSource(1)), bounds, 2, 0.2, 20,
		)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(0.0))
		eventScheduler.EXPECT().Schedule(courseChangeEvent{
			time:    sim.VTimeInSec(0.0),
			handler: model,
			name:    "c0n0",
		})

		model.Add("c0n0", Position{X: 50, Y: 20})

		x, y := registry.PositionAt("c0n0", 0)
		Expect(x).To(Equal(50.0))
		Expect(y).To(Equal(20.0))
	})

	It("should not schedule picks at or past the horizon", func() {
		model := NewRandomDirectionModel(
			eventScheduler, timeTeller, registry,
			rand.New(rand.NewSource(1)), bounds, 2, 0.2, 0,
		)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(0.0))

		model.Add("c0n0", Position{X: 50, Y: 20})
	})

	It("should panic on an initial position outside the bounds", func() {
		model := NewRandomDirectionModel(
			eventScheduler, timeTeller, registry,
			rand.New(rand.NewSource(1)), bounds, 2, 0.2, 20,
		)

		Expect(func() {
			model.Add("c0n0", Position{X: 800, Y: 0})
		}).To(Panic())
	})

	It("should panic on unknown event types", func() {
		model := NewRandomDirectionModel(
			eventScheduler, timeTeller, registry,
			rand.New(rand.NewSource(1)), bounds, 2, 0.2, 20,
		)

		Expect(func() {
			_ = model.Handle(strangeEvent{})
		}).To(Panic())
	})

	Context("when walking to the horizon", func() {
		var (
			engine *testEngine
			model  *RandomDirectionModel
			picks  int
		)

		BeforeEach(func() {
			engine = &testEngine{}
			model = NewRandomDirectionModel(
				engine, engine, registry,
				rand.New(rand.NewSource(7)),
				Bounds{MinX: 40, MaxX: 80, MinY: 10, MaxY: 50},
				2, 0.2, 20,
			)
			picks = 0
			model.OnCourseChange(func(
				now sim.VTimeInSec, name string, pos Position, velocity Velocity,
			) {
				picks++
			})

			model.Add("c0n0", Position{X: 50, Y: 20})
			model.Add("c0n1", Position{X: 55, Y: 20})
			engine.run()
		})

		It("should keep every waypoint inside the bounds", func() {
			for name, track := range registry.tracks {
				for _, wp := range track {
					Expect(model.bounds.Contains(wp.pos)).To(
						BeTrue(), "node %s at %v", name, wp.pos)
				}
			}
		})

		It("should never schedule past the horizon", func() {
			Expect(float64(engine.maxScheduled)).
				To(BeNumerically("<=", 20.0))
		})

		It("should close every track at or before the horizon", func() {
			for _, track := range registry.tracks {
				last := track[len(track)-1]
				Expect(float64(last.time)).To(BeNumerically("<=", 20.0))
			}
		})

		It("should fire the course-change hook on every pick", func() {
			Expect(picks).To(Equal(engine.numHandled))
			Expect(picks).To(BeNumerically(">", 0))
		})

		It("should reproduce the same tracks under the same seed", func() {
			otherRegistry := NewRegistry()
			otherEngine := &testEngine{}
			other := NewRandomDirectionModel(
				otherEngine, otherEngine, otherRegistry,
				rand.New(rand.NewSource(7)),
				Bounds{MinX: 40, MaxX: 80, MinY: 10, MaxY: 50},
				2, 0.2, 20,
			)

			other.Add("c0n0", Position{X: 50, Y: 20})
			other.Add("c0n1", Position{X: 55, Y: 20})
			otherEngine.run()

			Expect(otherRegistry.tracks).To(Equal(registry.tracks))
		})
	})
})
