package traffic

import (
	"github.com/syifan/clustersim"
	"github.com/syifan/clustersim/stack"
	"gitlab.com/akita/akita/v3/sim"
)

// A PacketSink counts the packets one node's stack endpoint delivers, overall
// and per application.
type PacketSink struct {
	node string

	received int
	bytes    int
	lastSeq  map[string]int
	perApp   map[string]int
}

// NewPacketSink creates a sink and hooks it into the endpoint's receive path.
func NewPacketSink(ep *stack.Endpoint) *PacketSink {
	s := &PacketSink{
		node:    ep.Name(),
		lastSeq: make(map[string]int),
		perApp:  make(map[string]int),
	}
	ep.OnPacket(s.record)

	return s
}

func (s *PacketSink) record(now sim.VTimeInSec, msg *clustersim.PacketMsg) {
	s.received++
	s.bytes += msg.TrafficBytes
	s.perApp[msg.App]++
	s.lastSeq[msg.App] = msg.Seq
}

// Node returns the name of the node the sink listens on.
func (s *PacketSink) Node() string {
	return s.node
}

// Received returns the total number of packets delivered.
func (s *PacketSink) Received() int {
	return s.received
}

// Bytes returns the total payload bytes delivered.
func (s *PacketSink) Bytes() int {
	return s.bytes
}

// ReceivedFrom returns the packets delivered from one application.
func (s *PacketSink) ReceivedFrom(app string) int {
	return s.perApp[app]
}

// LastSeq returns the sequence number of the most recently delivered packet
// from one application, or -1 when nothing arrived yet.
func (s *PacketSink) LastSeq(app string) int {
	if _, ok := s.lastSeq[app]; !ok {
		return -1
	}
	return s.lastSeq[app]
}
