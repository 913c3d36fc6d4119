package netmodel

import (
	"gitlab.com/akita/akita/v3/sim"
)

// A CsmaBusModel is the wired multi-drop bus joining cluster representatives.
// Frames serialize at the bus rate, shared fairly among in-flight frames, and
// then propagate for a fixed delay.
type CsmaBusModel struct {
	sharedMedium

	delay sim.VTimeInSec
}

// NewCsmaBusModel creates a new CsmaBusModel.
func NewCsmaBusModel(
	es sim.EventScheduler,
	tt sim.TimeTeller,
	bytePerSecond float64,
	delay sim.VTimeInSec,
) *CsmaBusModel {
	m := &CsmaBusModel{
		sharedMedium: newSharedMedium(es, tt, bytePerSecond),
		delay:        delay,
	}
	m.self = m

	return m
}

// Send admits a message to the bus. The destination port must be attached to
// this bus.
func (m *CsmaBusModel) Send(msg sim.Msg) *sim.SendError {
	m.mustBeAttached(msg.Meta().Dst)

	m.startFrame(msg, m.delay)

	return nil
}

// Handle checks if in-flight frames have arrived.
func (m *CsmaBusModel) Handle(e sim.Event) error {
	switch e := e.(type) {
	case frameDeliveryEvent:
		return m.handleFrameDeliveryEvent(e)
	default:
		panic("unknown event type")
	}
}
