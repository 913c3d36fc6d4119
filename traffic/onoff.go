// Package traffic provides the optional constant-rate application layer: an
// on/off packet source and the sink counting what arrives.
package traffic

import (
	"net/netip"

	"github.com/syifan/clustersim"
	"gitlab.com/akita/akita/v3/sim"
)

// A phaseEvent toggles an application between its on and off phases.
type phaseEvent struct {
	time    sim.VTimeInSec
	handler sim.Handler
	on      bool
}

func (e phaseEvent) Time() sim.VTimeInSec {
	return e.time
}

func (e phaseEvent) Handler() sim.Handler {
	return e.handler
}

func (e phaseEvent) IsSecondary() bool {
	return false
}

// An emitPacketEvent paces the packets of an on phase.
type emitPacketEvent struct {
	time    sim.VTimeInSec
	handler sim.Handler
}

func (e emitPacketEvent) Time() sim.VTimeInSec {
	return e.time
}

func (e emitPacketEvent) Handler() sim.Handler {
	return e.handler
}

func (e emitPacketEvent) IsSecondary() bool {
	return false
}

// An OnOffApp alternates on and off phases and, while on, emits fixed-size
// packets at a constant rate from one interface toward another on the same
// medium. Every event it schedules stays below the horizon so the event
// queue drains at the stop time.
type OnOffApp struct {
	sim.EventScheduler
	sim.TimeTeller

	name    string
	src     sim.Port
	dst     sim.Port
	srcAddr netip.Addr
	dstAddr netip.Addr

	packetBytes   int
	bytePerSecond float64
	onDuration    sim.VTimeInSec
	offDuration   sim.VTimeInSec
	horizon       sim.VTimeInSec

	on       bool
	phaseEnd sim.VTimeInSec
	seq      int
	emitted  int
}

// NewOnOffApp creates an application from the scenario's traffic parameters.
// Connect must point it at two interfaces before Start.
func NewOnOffApp(
	name string,
	es sim.EventScheduler,
	tt sim.TimeTeller,
	cfg clustersim.TrafficConfig,
	horizon sim.VTimeInSec,
) *OnOffApp {
	if cfg.PacketSizeBytes <= 0 || cfg.DataRateBps <= 0 || cfg.OnSec <= 0 {
		panic("traffic parameters must be positive")
	}

	return &OnOffApp{
		EventScheduler: es,
		TimeTeller:     tt,
		name:           name,
		packetBytes:    cfg.PacketSizeBytes,
		bytePerSecond:  cfg.DataRateBps / 8,
		onDuration:     sim.VTimeInSec(cfg.OnSec),
		offDuration:    sim.VTimeInSec(cfg.OffSec),
		horizon:        horizon,
	}
}

// Connect points the application from one interface to another. Both must be
// plugged into the same medium.
func (a *OnOffApp) Connect(src, dst *clustersim.Interface) {
	a.src = src.Port
	a.dst = dst.Port
	a.srcAddr = src.Addr
	a.dstAddr = dst.Addr
}

// Name returns the application name carried by its packets.
func (a *OnOffApp) Name() string {
	return a.name
}

// Emitted returns how many packets the application has sent.
func (a *OnOffApp) Emitted() int {
	return a.emitted
}

// Start schedules the first on phase.
func (a *OnOffApp) Start(at sim.VTimeInSec) {
	if a.src == nil || a.dst == nil {
		panic("application started before Connect")
	}
	if at >= a.horizon {
		return
	}

	a.Schedule(phaseEvent{time: at, handler: a, on: true})
}

// Handle flips phases and emits packets when their events come due.
func (a *OnOffApp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case phaseEvent:
		return a.handlePhaseEvent(e)
	case emitPacketEvent:
		return a.handleEmitPacketEvent(e)
	default:
		panic("unknown event type")
	}
}

func (a *OnOffApp) handlePhaseEvent(e phaseEvent) error {
	now := e.time
	a.on = e.on

	if !e.on {
		if next := now + a.offDuration; next < a.horizon {
			a.Schedule(phaseEvent{time: next, handler: a, on: true})
		}
		return nil
	}

	a.phaseEnd = now + a.onDuration
	if a.phaseEnd > a.horizon {
		a.phaseEnd = a.horizon
	}

	a.Schedule(emitPacketEvent{time: now, handler: a})

	if next := now + a.onDuration; next < a.horizon {
		a.Schedule(phaseEvent{time: next, handler: a, on: false})
	}

	return nil
}

func (a *OnOffApp) handleEmitPacketEvent(e emitPacketEvent) error {
	if !a.on {
		return nil
	}

	a.emit(e.time)

	if next := e.time + a.interval(); next < a.phaseEnd {
		a.Schedule(emitPacketEvent{time: next, handler: a})
	}

	return nil
}

func (a *OnOffApp) emit(now sim.VTimeInSec) {
	msg := &clustersim.PacketMsg{
		MsgMeta: sim.MsgMeta{
			ID:           sim.GetIDGenerator().Generate(),
			Src:          a.src,
			Dst:          a.dst,
			SendTime:     now,
			TrafficBytes: a.packetBytes,
		},
		SrcAddr: a.srcAddr,
		DstAddr: a.dstAddr,
		Seq:     a.seq,
		App:     a.name,
	}

	if err := a.src.Send(msg); err != nil {
		// keep the sequence number for the next attempt
		return
	}

	a.seq++
	a.emitted++
}

func (a *OnOffApp) interval() sim.VTimeInSec {
	return sim.VTimeInSec(float64(a.packetBytes) / a.bytePerSecond)
}
