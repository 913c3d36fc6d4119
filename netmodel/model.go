// Package netmodel provides delivery-time models for the shared media that
// connect cluster nodes. The models estimate when frames arrive instead of
// simulating the physical layer.
package netmodel

import (
	"gitlab.com/akita/akita/v3/sim"
)

// A PositionSource reports node positions used to derive propagation
// distances. The mobility registry satisfies it.
type PositionSource interface {
	PositionAt(name string, now sim.VTimeInSec) (x, y float64)
}

// A frame is one in-flight message on a medium, together with its
// serialization progress.
type frame struct {
	msg         sim.Msg
	propagation sim.VTimeInSec

	bytesLeft  float64
	share      float64        // byte per second granted at the last update
	updateTime sim.VTimeInSec // when bytesLeft was last advanced
	deliverAt  sim.VTimeInSec // currently scheduled delivery time
}

// A frameDeliveryEvent is scheduled when a frame is likely to arrive at its
// destination port.
type frameDeliveryEvent struct {
	time    sim.VTimeInSec
	handler sim.Handler
	msg     sim.Msg
}

func (e frameDeliveryEvent) Time() sim.VTimeInSec {
	return e.time
}

func (e frameDeliveryEvent) Handler() sim.Handler {
	return e.handler
}

func (e frameDeliveryEvent) IsSecondary() bool {
	return false
}

// A channelModel is both the connection the ports see and the handler that
// delivery events fire on.
type channelModel interface {
	sim.Connection
	sim.Handler
}

// sharedMedium carries the machinery common to the wireless channels and the
// wired bus: attached ports, fair sharing of the medium rate among in-flight
// frames, and deferred delivery to busy ports.
type sharedMedium struct {
	sim.HookableBase
	sim.EventScheduler
	sim.TimeTeller

	self          channelModel
	bytePerSecond float64

	ports  map[string]sim.Port
	owners map[string]string // port name -> owning node name

	frames map[string]*frame // keyed by message ID

	busyPorts       map[string]bool
	pendingDelivery map[string][]sim.Msg
}

func newSharedMedium(
	es sim.EventScheduler,
	tt sim.TimeTeller,
	bytePerSecond float64,
) sharedMedium {
	return sharedMedium{
		EventScheduler:  es,
		TimeTeller:      tt,
		bytePerSecond:   bytePerSecond,
		ports:           make(map[string]sim.Port),
		owners:          make(map[string]string),
		frames:          make(map[string]*frame),
		busyPorts:       make(map[string]bool),
		pendingDelivery: make(map[string][]sim.Msg),
	}
}

// PlugIn plugs a port into the medium.
func (m *sharedMedium) PlugIn(port sim.Port, bufSize int) {
	m.attachPort(port, port.Name())
}

// PlugInWithOwner plugs a port into the medium and records the node that owns
// it. Owner names key position lookups.
func (m *sharedMedium) PlugInWithOwner(port sim.Port, bufSize int, owner string) {
	m.attachPort(port, owner)
}

func (m *sharedMedium) attachPort(port sim.Port, owner string) {
	m.ports[port.Name()] = port
	m.owners[port.Name()] = owner
	port.SetConnection(m.self)
}

// Unplug removes a port from the medium.
func (m *sharedMedium) Unplug(port sim.Port) {
	delete(m.ports, port.Name())
	delete(m.owners, port.Name())
}

// CanSend checks if the medium can accept a message from the port.
func (m *sharedMedium) CanSend(src sim.Port) bool {
	return true
}

// NotifyAvailable notifies the medium that the port can receive messages
// again. Deferred frames are redelivered in arrival order.
func (m *sharedMedium) NotifyAvailable(now sim.VTimeInSec, port sim.Port) {
	pendingDelivery := m.pendingDelivery[port.Name()]

	for len(pendingDelivery) > 0 {
		msg := pendingDelivery[0]
		msg.Meta().RecvTime = now
		err := port.Recv(msg)
		if err != nil {
			break
		}

		pendingDelivery = pendingDelivery[1:]
	}

	m.pendingDelivery[port.Name()] = pendingDelivery

	if len(pendingDelivery) == 0 {
		delete(m.busyPorts, port.Name())
	}
}

func (m *sharedMedium) mustBeAttached(port sim.Port) {
	if _, ok := m.ports[port.Name()]; !ok {
		panic("port " + port.Name() + " is not attached to this medium")
	}
}

// startFrame admits a message to the medium and schedules its delivery.
func (m *sharedMedium) startFrame(msg sim.Msg, propagation sim.VTimeInSec) {
	now := m.CurrentTime()

	f := &frame{
		msg:         msg,
		propagation: propagation,
		bytesLeft:   float64(msg.Meta().TrafficBytes),
		updateTime:  now,
	}
	m.frames[msg.Meta().ID] = f

	if f.bytesLeft <= 0 {
		f.deliverAt = now + propagation
		m.Schedule(frameDeliveryEvent{
			time:    f.deliverAt,
			handler: m.self,
			msg:     msg,
		})
		return
	}

	m.updateShares(now)
}

// updateShares advances the serialization progress of every frame to now,
// splits the medium rate among the frames that still have bytes to push, and
// reschedules their deliveries. Events rendered stale by a reschedule are
// skipped when they fire.
func (m *sharedMedium) updateShares(now sim.VTimeInSec) {
	active := 0
	for _, f := range m.frames {
		f.bytesLeft -= float64(now-f.updateTime) * f.share
		f.updateTime = now
		if f.bytesLeft > 0 {
			active++
		} else {
			f.bytesLeft = 0
			f.share = 0
		}
	}

	if active == 0 {
		return
	}

	share := m.bytePerSecond / float64(active)
	for _, f := range m.frames {
		if f.bytesLeft <= 0 {
			continue
		}

		f.share = share
		f.deliverAt = now + sim.VTimeInSec(f.bytesLeft/share) + f.propagation
		m.Schedule(frameDeliveryEvent{
			time:    f.deliverAt,
			handler: m.self,
			msg:     f.msg,
		})
	}
}

func (m *sharedMedium) handleFrameDeliveryEvent(e frameDeliveryEvent) error {
	msg := e.msg

	f, found := m.frames[msg.Meta().ID]
	if !found || f.deliverAt != e.time {
		return nil
	}

	now := m.CurrentTime()
	delete(m.frames, msg.Meta().ID)

	if _, busy := m.busyPorts[msg.Meta().Dst.Name()]; busy {
		m.pendingDelivery[msg.Meta().Dst.Name()] = append(
			m.pendingDelivery[msg.Meta().Dst.Name()],
			msg,
		)
		m.updateShares(now)
		return nil
	}

	msg.Meta().RecvTime = now
	err := msg.Meta().Dst.Recv(msg)

	if err != nil {
		m.busyPorts[msg.Meta().Dst.Name()] = true
		m.pendingDelivery[msg.Meta().Dst.Name()] = append(
			m.pendingDelivery[msg.Meta().Dst.Name()],
			msg,
		)
	}

	m.updateShares(now)

	return nil
}
