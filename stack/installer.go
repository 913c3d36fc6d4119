package stack

import (
	"github.com/syifan/clustersim"
)

// An Installer installs the IPv4 stack on nodes. It marks each node with the
// chosen routing protocol; the routing tables themselves are filled by
// PopulateRoutes once the whole topology is assembled, since only then is the
// adjacency the protocol converges over known.
type Installer struct {
	Protocol clustersim.RoutingProtocol
}

// Install marks the node's stack with the routing protocol. The node's
// routing table stays empty until PopulateRoutes runs.
func (ins *Installer) Install(node *clustersim.Node) {
	switch ins.Protocol {
	case clustersim.RoutingOLSR, clustersim.RoutingStatic:
	default:
		panic("unknown routing protocol " + string(ins.Protocol))
	}

	node.Protocol = ins.Protocol
	node.Routes = nil
}
