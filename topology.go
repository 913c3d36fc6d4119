// Package clustersim provides the domain model for assembling hierarchical
// mixed wired/wireless network topologies on top of a discrete-event
// simulation engine.
package clustersim

import (
	"net/netip"

	"gitlab.com/akita/akita/v3/sim"
)

// A DeviceKind tells what kind of device backs a network interface.
type DeviceKind string

const (
	// DeviceAdhocWifi is a wireless ad hoc device on a cluster channel.
	DeviceAdhocWifi DeviceKind = "adhoc-wifi"
	// DeviceCsma is a wired device on the backbone bus.
	DeviceCsma DeviceKind = "csma"
)

// A RoutingProtocol selects the routing protocol installed with the stack.
type RoutingProtocol string

const (
	RoutingOLSR   RoutingProtocol = "olsr"
	RoutingStatic RoutingProtocol = "static"
)

// An Interface is a device attached to a node together with the IPv4 address
// assigned to it and the engine port bound to the device.
type Interface struct {
	Kind   DeviceKind
	Addr   netip.Addr
	Prefix netip.Prefix
	Port   sim.Port
}

// A Route is one next-hop entry in a node's routing table.
type Route struct {
	Dst     netip.Prefix
	NextHop string
	Hops    int
}

// A Node is an addressable simulation participant. A node belongs to exactly
// one cluster; a representative additionally carries a backbone interface.
type Node struct {
	Name    string
	Index   int // position within the owning cluster
	Cluster int // owning cluster index

	Ifaces   []*Interface
	Protocol RoutingProtocol // set when the stack is installed
	Routes   []Route
}

// AddrIn returns the node's address inside the given prefix, if it has one.
func (n *Node) AddrIn(p netip.Prefix) (netip.Addr, bool) {
	for _, iface := range n.Ifaces {
		if p.Contains(iface.Addr) {
			return iface.Addr, true
		}
	}
	return netip.Addr{}, false
}

// InterfaceOf returns the node's interface of the given kind, or nil.
func (n *Node) InterfaceOf(kind DeviceKind) *Interface {
	for _, iface := range n.Ifaces {
		if iface.Kind == kind {
			return iface
		}
	}
	return nil
}

// A Medium connects node ports and estimates frame delivery times. Both the
// per-cluster wireless channels and the backbone bus satisfy it.
type Medium interface {
	PlugIn(port sim.Port, bufSize int)
	Unplug(port sim.Port)
}

// A Cluster is a group of nodes sharing one private wireless medium and one
// IPv4 subnet. Representative is an index into Nodes and stays -1 until the
// selector has run.
type Cluster struct {
	Index          int
	Size           int
	Nodes          []*Node
	Subnet         netip.Prefix
	Channel        Medium
	Representative int
}

// Rep returns the cluster's representative node, or nil if none was selected.
func (c *Cluster) Rep() *Node {
	if c.Representative < 0 || c.Representative >= len(c.Nodes) {
		return nil
	}
	return c.Nodes[c.Representative]
}

// A Backbone is the wired network joining all cluster representatives, in
// selection order.
type Backbone struct {
	Reps   []*Node
	Subnet netip.Prefix
	Bus    Medium
}

// A Topology aggregates all clusters plus the backbone. It is fully built
// before the simulation driver starts and never mutated afterwards.
type Topology struct {
	Clusters []*Cluster
	Backbone *Backbone
}

// Nodes returns all member nodes in cluster order.
func (t *Topology) Nodes() []*Node {
	var nodes []*Node
	for _, c := range t.Clusters {
		nodes = append(nodes, c.Nodes...)
	}
	return nodes
}

// NodeCount returns the total number of nodes across all clusters.
func (t *Topology) NodeCount() int {
	n := 0
	for _, c := range t.Clusters {
		n += len(c.Nodes)
	}
	return n
}

// Representatives returns one node per cluster, in cluster order. Clusters
// without a selected representative are skipped.
func (t *Topology) Representatives() []*Node {
	var reps []*Node
	for _, c := range t.Clusters {
		if rep := c.Rep(); rep != nil {
			reps = append(reps, rep)
		}
	}
	return reps
}

// FindNode returns the node with the given name, or nil.
func (t *Topology) FindNode(name string) *Node {
	for _, c := range t.Clusters {
		for _, n := range c.Nodes {
			if n.Name == name {
				return n
			}
		}
	}
	return nil
}
