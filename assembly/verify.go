package assembly

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/syifan/clustersim"
	"github.com/syifan/clustersim/stack"
)

// ErrNotConnected reports a topology whose adjacency splits into more than
// one component.
var ErrNotConnected = errors.New("topology is not connected")

// VerifyConnectivity checks that the assembled topology forms one connected
// component and that cluster members reach the rest of the topology only by
// relaying through their representative.
func VerifyConnectivity(t *clustersim.Topology) error {
	nodes := t.Nodes()
	if len(nodes) == 0 {
		return fmt.Errorf("topology has no nodes")
	}

	g, err := stack.AdjacencyGraph(t)
	if err != nil {
		return err
	}

	res, err := bfs.BFS(g, nodes[0].Name)
	if err != nil {
		return fmt.Errorf("walk adjacency: %w", err)
	}
	if len(res.Order) != len(nodes) {
		return fmt.Errorf("%w: reached %d of %d nodes from %s",
			ErrNotConnected, len(res.Order), len(nodes), nodes[0].Name)
	}

	return verifyRelaying(t)
}

// verifyRelaying checks that removing a cluster's representative cuts the
// remaining members off from every other cluster.
func verifyRelaying(t *clustersim.Topology) error {
	g, err := stack.AdjacencyGraph(t)
	if err != nil {
		return err
	}

	for _, c := range t.Clusters {
		rep := c.Rep()
		if rep == nil {
			return fmt.Errorf("cluster %d has no representative", c.Index)
		}

		for _, n := range c.Nodes {
			if n == rep {
				continue
			}

			res, err := bfs.BFS(g, n.Name, bfs.WithFilterNeighbor(
				func(curr, neighbor string) bool {
					return neighbor != rep.Name
				}))
			if err != nil {
				return fmt.Errorf("walk adjacency: %w", err)
			}

			for _, name := range res.Order {
				if t.FindNode(name).Cluster != c.Index {
					return fmt.Errorf(
						"%s reaches %s without relaying through %s",
						n.Name, name, rep.Name)
				}
			}
		}
	}

	return nil
}

// RoutingDepths returns every node's hop distance to the nearest backbone
// member. Representatives sit at depth zero, their cluster members at one.
func RoutingDepths(t *clustersim.Topology) (map[string]int, error) {
	reps := t.Representatives()
	if len(reps) == 0 {
		return nil, fmt.Errorf("no representatives selected")
	}

	g, err := stack.AdjacencyGraph(t)
	if err != nil {
		return nil, err
	}

	depths := make(map[string]int)
	for _, rep := range reps {
		res, err := bfs.BFS(g, rep.Name)
		if err != nil {
			return nil, fmt.Errorf("walk adjacency: %w", err)
		}

		for name, d := range res.Depth {
			if cur, ok := depths[name]; !ok || d < cur {
				depths[name] = d
			}
		}
	}

	return depths, nil
}
