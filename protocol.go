package clustersim

import (
	"net/netip"

	"gitlab.com/akita/akita/v3/sim"
)

// A PacketMsg represents one application packet crossing a channel. The
// TrafficBytes meta field carries the on-wire size used by the channel models.
type PacketMsg struct {
	sim.MsgMeta
	SrcAddr netip.Addr
	DstAddr netip.Addr
	Seq     int
	App     string
}

// Meta returns the meta data of the message.
func (m *PacketMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}
