// Package simdriver validates the simulated window and drives the engine
// through one run.
package simdriver

import (
	"errors"
	"fmt"

	"github.com/syifan/clustersim"
	"gitlab.com/akita/akita/v3/sim"
)

// MinStopTime is the shortest stop time a run accepts. Shorter windows end
// before the routing protocol would have converged and measure nothing.
const MinStopTime = sim.VTimeInSec(10)

// ErrStopTimeTooSmall rejects stop times under MinStopTime.
var ErrStopTimeTooSmall = errors.New(
	"use a simulation stop time >= 10 seconds")

// ValidateStopTime checks the stop time before any simulation state is
// built.
func ValidateStopTime(stopTime sim.VTimeInSec) error {
	if stopTime < MinStopTime {
		return fmt.Errorf("%w, got %.2f", ErrStopTimeTooSmall,
			float64(stopTime))
	}

	return nil
}

// A stopEvent closes the simulated window. It is the run's last event:
// every component bounds its own events below the stop time, so the queue
// drains exactly when this event fires.
type stopEvent struct {
	time    sim.VTimeInSec
	handler sim.Handler
}

func (e stopEvent) Time() sim.VTimeInSec {
	return e.time
}

func (e stopEvent) Handler() sim.Handler {
	return e.handler
}

func (e stopEvent) IsSecondary() bool {
	return false
}

// A Driver runs an assembled topology to its stop time.
type Driver struct {
	engine sim.Engine

	stopSeen bool
}

// NewDriver creates a new Driver over the engine.
func NewDriver(engine sim.Engine) *Driver {
	return &Driver{engine: engine}
}

// Run schedules the stop event and runs the engine until the event queue
// drains. It returns the final virtual time, which equals the stop time on a
// healthy run.
func (d *Driver) Run(
	t *clustersim.Topology,
	stopTime sim.VTimeInSec,
) (sim.VTimeInSec, error) {
	if err := ValidateStopTime(stopTime); err != nil {
		return 0, err
	}
	if t == nil || t.NodeCount() == 0 {
		return 0, fmt.Errorf("topology has no nodes")
	}

	d.stopSeen = false
	d.engine.Schedule(stopEvent{time: stopTime, handler: d})

	if err := d.engine.Run(); err != nil {
		return 0, fmt.Errorf("run engine: %w", err)
	}

	final := d.engine.CurrentTime()
	if !d.stopSeen {
		return final, fmt.Errorf(
			"event queue drained at %.2f before the stop time %.2f",
			float64(final), float64(stopTime))
	}

	return final, nil
}

// Handle implements sim.Handler.
func (d *Driver) Handle(e sim.Event) error {
	switch e.(type) {
	case stopEvent:
		d.stopSeen = true
	default:
		panic("unknown event type")
	}

	return nil
}
