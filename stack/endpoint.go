// Package stack installs the IPv4 stack on nodes: the engine-facing endpoint
// that receives packets, the routing protocol marker, and the hop-count
// routing tables computed over the assembled adjacency.
package stack

import (
	"reflect"

	"github.com/syifan/clustersim"
	"gitlab.com/akita/akita/v3/sim"
)

// An Endpoint is the engine-facing side of one node's installed stack. It
// owns the node's interface ports and hands every delivered packet to the
// registered receivers.
type Endpoint struct {
	*sim.ComponentBase

	numDelivered int
	packetHooks  []func(now sim.VTimeInSec, msg *clustersim.PacketMsg)
}

// NewEndpoint creates an endpoint named after its node.
func NewEndpoint(name string) *Endpoint {
	ep := &Endpoint{}
	ep.ComponentBase = sim.NewComponentBase(name)

	return ep
}

// AddInterfacePort creates the port for one interface of the given kind,
// registers it on the endpoint, and returns it for the medium to plug in.
func (ep *Endpoint) AddInterfacePort(kind clustersim.DeviceKind) sim.Port {
	label := portLabel(kind)
	port := sim.NewLimitNumMsgPort(ep, 1, ep.Name()+"."+label)
	ep.AddPort(label, port)

	return port
}

func portLabel(kind clustersim.DeviceKind) string {
	switch kind {
	case clustersim.DeviceAdhocWifi:
		return "WifiPort"
	case clustersim.DeviceCsma:
		return "CsmaPort"
	default:
		panic("unknown device kind " + string(kind))
	}
}

// OnPacket registers a receiver invoked for every packet delivered to this
// endpoint.
func (ep *Endpoint) OnPacket(
	hook func(now sim.VTimeInSec, msg *clustersim.PacketMsg),
) {
	ep.packetHooks = append(ep.packetHooks, hook)
}

// Delivered returns how many packets reached this endpoint.
func (ep *Endpoint) Delivered() int {
	return ep.numDelivered
}

// Handle implements sim.Handler. Endpoints schedule no events of their own.
func (ep *Endpoint) Handle(e sim.Event) error {
	panic("Endpoint cannot handle this event type " +
		reflect.TypeOf(e).String())
}

// NotifyRecv retrieves the arrived message and dispatches it to the
// registered receivers. The port is drained on every arrival, so its buffer
// never fills up.
func (ep *Endpoint) NotifyRecv(now sim.VTimeInSec, port sim.Port) {
	msg := port.Retrieve(now)

	switch msg := msg.(type) {
	case *clustersim.PacketMsg:
		ep.numDelivered++
		for _, hook := range ep.packetHooks {
			hook(now, msg)
		}
	default:
		panic("Endpoint cannot handle this message type " +
			reflect.TypeOf(msg).String())
	}
}

// NotifyPortFree implements sim.Component. Endpoints never queue outbound
// messages on their ports, so there is nothing to resume.
func (ep *Endpoint) NotifyPortFree(now sim.VTimeInSec, port sim.Port) {
}
