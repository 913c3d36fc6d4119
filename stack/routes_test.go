package stack

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/syifan/clustersim"
)

// routesTestTopology builds two already-addressed clusters joined by a
// backbone: c0 = {c0n0, c0n1, c0n2} with representative c0n1, and
// c1 = {c1n0, c1n1} with representative c1n0.
func routesTestTopology() *clustersim.Topology {
	wifi := func(addr string) *clustersim.Interface {
		a := netip.MustParseAddr(addr)
		return &clustersim.Interface{
			Kind:   clustersim.DeviceAdhocWifi,
			Addr:   a,
			Prefix: netip.PrefixFrom(a, 24).Masked(),
		}
	}
	csma := func(addr string) *clustersim.Interface {
		a := netip.MustParseAddr(addr)
		return &clustersim.Interface{
			Kind:   clustersim.DeviceCsma,
			Addr:   a,
			Prefix: netip.PrefixFrom(a, 24).Masked(),
		}
	}

	c0 := &clustersim.Cluster{
		Index:          0,
		Size:           3,
		Subnet:         netip.MustParsePrefix("192.167.0.0/24"),
		Representative: 1,
		Nodes: []*clustersim.Node{
			{Name: "c0n0", Index: 0, Cluster: 0,
				Ifaces: []*clustersim.Interface{wifi("192.167.0.1")}},
			{Name: "c0n1", Index: 1, Cluster: 0,
				Ifaces: []*clustersim.Interface{
					wifi("192.167.0.2"), csma("172.16.0.1")}},
			{Name: "c0n2", Index: 2, Cluster: 0,
				Ifaces: []*clustersim.Interface{wifi("192.167.0.3")}},
		},
	}
	c1 := &clustersim.Cluster{
		Index:          1,
		Size:           2,
		Subnet:         netip.MustParsePrefix("192.168.0.0/24"),
		Representative: 0,
		Nodes: []*clustersim.Node{
			{Name: "c1n0", Index: 0, Cluster: 1,
				Ifaces: []*clustersim.Interface{
					wifi("192.168.0.1"), csma("172.16.0.2")}},
			{Name: "c1n1", Index: 1, Cluster: 1,
				Ifaces: []*clustersim.Interface{wifi("192.168.0.2")}},
		},
	}

	return &clustersim.Topology{
		Clusters: []*clustersim.Cluster{c0, c1},
		Backbone: &clustersim.Backbone{
			Reps:   []*clustersim.Node{c0.Nodes[1], c1.Nodes[0]},
			Subnet: netip.MustParsePrefix("172.16.0.0/24"),
		},
	}
}

func routeTo(node *clustersim.Node, prefix string) clustersim.Route {
	dst := netip.MustParsePrefix(prefix)
	for _, r := range node.Routes {
		if r.Dst == dst {
			return r
		}
	}
	Fail("node " + node.Name + " has no route to " + prefix)
	return clustersim.Route{}
}

var _ = Describe("AdjacencyGraph", func() {
	It("should connect cluster members pairwise and reps over the backbone",
		func() {
			topo := routesTestTopology()

			g, err := AdjacencyGraph(topo)

			Expect(err).To(BeNil())
			Expect(g.VertexCount()).To(Equal(5))
			Expect(g.HasEdge("c0n0", "c0n1")).To(BeTrue())
			Expect(g.HasEdge("c0n0", "c0n2")).To(BeTrue())
			Expect(g.HasEdge("c1n0", "c1n1")).To(BeTrue())
			Expect(g.HasEdge("c0n1", "c1n0")).To(BeTrue())
			Expect(g.HasEdge("c0n0", "c1n1")).To(BeFalse())
			Expect(g.HasEdge("c0n0", "c1n0")).To(BeFalse())
		})

	It("should keep a single-node cluster as an isolated vertex", func() {
		topo := &clustersim.Topology{
			Clusters: []*clustersim.Cluster{{
				Index: 0,
				Size:  1,
				Nodes: []*clustersim.Node{{Name: "c0n0", Cluster: 0}},
			}},
		}

		g, err := AdjacencyGraph(topo)

		Expect(err).To(BeNil())
		Expect(g.VertexCount()).To(Equal(1))
		Expect(g.HasVertex("c0n0")).To(BeTrue())
	})
})

var _ = Describe("PopulateRoutes", func() {
	var (
		installer *Installer
		topo      *clustersim.Topology
	)

	BeforeEach(func() {
		installer = &Installer{Protocol: clustersim.RoutingOLSR}
		topo = routesTestTopology()

		err := installer.PopulateRoutes(topo)
		Expect(err).To(BeNil())
	})

	It("should give every node one route per subnet", func() {
		for _, node := range topo.Nodes() {
			Expect(node.Routes).To(HaveLen(3))
		}
	})

	It("should mark directly connected subnets with zero hops", func() {
		member := topo.FindNode("c0n0")
		rep := topo.FindNode("c0n1")

		Expect(routeTo(member, "192.167.0.0/24").Hops).To(Equal(0))
		Expect(routeTo(member, "192.167.0.0/24").NextHop).To(BeEmpty())
		Expect(routeTo(rep, "172.16.0.0/24").Hops).To(Equal(0))
	})

	It("should route members to the backbone through their representative",
		func() {
			member := topo.FindNode("c0n0")

			route := routeTo(member, "172.16.0.0/24")

			Expect(route.NextHop).To(Equal("c0n1"))
			Expect(route.Hops).To(Equal(1))
		})

	It("should route members to other clusters through their representative",
		func() {
			member := topo.FindNode("c0n2")

			route := routeTo(member, "192.168.0.0/24")

			Expect(route.NextHop).To(Equal("c0n1"))
			Expect(route.Hops).To(Equal(2))
		})

	It("should route representatives to other clusters over the backbone",
		func() {
			rep := topo.FindNode("c0n1")

			route := routeTo(rep, "192.168.0.0/24")

			Expect(route.NextHop).To(Equal("c1n0"))
			Expect(route.Hops).To(Equal(1))
		})

	It("should fail when a subnet is unreachable", func() {
		cutOff := routesTestTopology()
		cutOff.Backbone.Reps = nil

		err := installer.PopulateRoutes(cutOff)

		Expect(err).To(HaveOccurred())
	})
})
