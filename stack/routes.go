package stack

import (
	"fmt"
	"net/netip"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
	"github.com/syifan/clustersim"
)

// AdjacencyGraph builds the node adjacency the routing protocol converges
// over: a clique among each cluster's members, who share one wireless medium,
// and a clique among the representatives attached to the backbone bus.
func AdjacencyGraph(t *clustersim.Topology) (*core.Graph, error) {
	g := core.NewGraph()

	for _, c := range t.Clusters {
		for _, n := range c.Nodes {
			if err := g.AddVertex(n.Name); err != nil {
				return nil, fmt.Errorf("add vertex %s: %w", n.Name, err)
			}
		}

		for i := 0; i < len(c.Nodes); i++ {
			for j := i + 1; j < len(c.Nodes); j++ {
				_, err := g.AddEdge(c.Nodes[i].Name, c.Nodes[j].Name, 0)
				if err != nil {
					return nil, fmt.Errorf("add cluster edge: %w", err)
				}
			}
		}
	}

	if t.Backbone != nil {
		reps := t.Backbone.Reps
		for i := 0; i < len(reps); i++ {
			for j := i + 1; j < len(reps); j++ {
				_, err := g.AddEdge(reps[i].Name, reps[j].Name, 0)
				if err != nil {
					return nil, fmt.Errorf("add backbone edge: %w", err)
				}
			}
		}
	}

	return g, nil
}

// PopulateRoutes fills every node's routing table with the routes the
// protocol would converge to: one entry per subnet in the topology, carrying
// the next hop on a shortest path toward a holder of that subnet and the hop
// count to it. Directly connected subnets get a zero-hop entry.
func (ins *Installer) PopulateRoutes(t *clustersim.Topology) error {
	g, err := AdjacencyGraph(t)
	if err != nil {
		return err
	}

	dests := destinations(t)

	for _, node := range t.Nodes() {
		res, err := bfs.BFS(g, node.Name)
		if err != nil {
			return fmt.Errorf("walk adjacency from %s: %w", node.Name, err)
		}

		routes := make([]clustersim.Route, 0, len(dests))
		for _, d := range dests {
			route, err := routeToward(node, d, res)
			if err != nil {
				return err
			}
			routes = append(routes, route)
		}
		node.Routes = routes
	}

	return nil
}

// A destination is one subnet together with the nodes holding an address in
// it.
type destination struct {
	prefix  netip.Prefix
	holders []string
}

func destinations(t *clustersim.Topology) []destination {
	var dests []destination

	for _, c := range t.Clusters {
		d := destination{prefix: c.Subnet}
		for _, n := range c.Nodes {
			d.holders = append(d.holders, n.Name)
		}
		dests = append(dests, d)
	}

	if t.Backbone != nil {
		d := destination{prefix: t.Backbone.Subnet}
		for _, n := range t.Backbone.Reps {
			d.holders = append(d.holders, n.Name)
		}
		dests = append(dests, d)
	}

	return dests
}

func routeToward(
	node *clustersim.Node,
	d destination,
	res *bfs.BFSResult,
) (clustersim.Route, error) {
	if _, ok := node.AddrIn(d.prefix); ok {
		return clustersim.Route{Dst: d.prefix}, nil
	}

	nearest := ""
	for _, holder := range d.holders {
		depth, reached := res.Depth[holder]
		if !reached {
			continue
		}
		if nearest == "" || depth < res.Depth[nearest] {
			nearest = holder
		}
	}
	if nearest == "" {
		return clustersim.Route{},
			fmt.Errorf("no route from %s to %s", node.Name, d.prefix)
	}

	path, err := res.PathTo(nearest)
	if err != nil {
		return clustersim.Route{},
			fmt.Errorf("no route from %s to %s: %w", node.Name, d.prefix, err)
	}
	if len(path) < 2 {
		return clustersim.Route{Dst: d.prefix}, nil
	}

	return clustersim.Route{
		Dst:     d.prefix,
		NextHop: path[1],
		Hops:    res.Depth[nearest],
	}, nil
}
