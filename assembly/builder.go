// Package assembly turns a scenario into a live topology: it builds each
// cluster on its own wireless channel, selects the cluster representatives,
// and joins them with the wired backbone bus.
package assembly

import (
	"fmt"
	"math/rand"

	"github.com/syifan/clustersim"
	"github.com/syifan/clustersim/addressing"
	"github.com/syifan/clustersim/delaymodel"
	"github.com/syifan/clustersim/mobility"
	"github.com/syifan/clustersim/netmodel"
	"github.com/syifan/clustersim/stack"
	"gitlab.com/akita/akita/v3/sim"
)

const portBufSize = 1

// A Builder assembles the topology a scenario describes. All randomness is
// drawn from the one shared source, so two builders seeded alike produce
// identical topologies.
type Builder struct {
	es sim.EventScheduler
	tt sim.TimeTeller

	scenario  *clustersim.Scenario
	rng       *rand.Rand
	allocator *addressing.Allocator
	installer *stack.Installer
	estimator delaymodel.DelayEstimator
	registry  *mobility.Registry
	motion    *mobility.RandomDirectionModel
	endpoints map[string]*stack.Endpoint
}

// NewBuilder creates a builder over the scenario. The event scheduler and
// time teller are shared with every channel and mobility model the builder
// creates.
func NewBuilder(
	es sim.EventScheduler,
	tt sim.TimeTeller,
	scenario *clustersim.Scenario,
	rng *rand.Rand,
) (*Builder, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	clusterPools, err := scenario.ClusterPoolPrefixes()
	if err != nil {
		return nil, err
	}

	backbonePool, err := scenario.BackbonePrefix()
	if err != nil {
		return nil, err
	}

	allocator, err := addressing.NewAllocator(clusterPools, backbonePool)
	if err != nil {
		return nil, err
	}

	registry := mobility.NewRegistry()
	bounds := mobility.Bounds{
		MinX: scenario.Mobility.Bounds[0],
		MaxX: scenario.Mobility.Bounds[1],
		MinY: scenario.Mobility.Bounds[2],
		MaxY: scenario.Mobility.Bounds[3],
	}
	motion := mobility.NewRandomDirectionModel(
		es, tt,
		registry,
		rng,
		bounds,
		scenario.Mobility.SpeedMps,
		sim.VTimeInSec(scenario.Mobility.PauseSec),
		sim.VTimeInSec(scenario.StopTime),
	)

	return &Builder{
		es:        es,
		tt:        tt,
		scenario:  scenario,
		rng:       rng,
		allocator: allocator,
		installer: &stack.Installer{Protocol: scenario.Routing},
		estimator: &delaymodel.ConstantSpeedDelayEstimator{},
		registry:  registry,
		motion:    motion,
		endpoints: make(map[string]*stack.Endpoint),
	}, nil
}

// Registry returns the position registry shared by the channels the builder
// creates.
func (b *Builder) Registry() *mobility.Registry {
	return b.registry
}

// Motion returns the mobility model driving the builder's nodes.
func (b *Builder) Motion() *mobility.RandomDirectionModel {
	return b.motion
}

// Endpoint returns the stack endpoint of the named node.
func (b *Builder) Endpoint(name string) *stack.Endpoint {
	return b.endpoints[name]
}

// Assemble builds the whole topology in one call: every cluster the scenario
// sizes, one representative per cluster, and the backbone joining the
// representatives.
func (b *Builder) Assemble() (*clustersim.Topology, error) {
	topo := &clustersim.Topology{}

	var reps []*clustersim.Node
	for i, size := range b.scenario.ClusterSizes {
		cluster, err := b.BuildCluster(i, size)
		if err != nil {
			return nil, err
		}

		topo.Clusters = append(topo.Clusters, cluster)
		reps = append(reps, b.SelectRepresentative(cluster))
	}

	backbone, err := b.AssembleBackbone(reps)
	if err != nil {
		return nil, err
	}
	topo.Backbone = backbone

	if err := b.installer.PopulateRoutes(topo); err != nil {
		return nil, err
	}

	return topo, nil
}

// BuildCluster builds one self-contained cluster: its nodes with their stack
// endpoints, a private wireless channel every member is plugged into, one
// subnet from the cluster's pool, and grid placement under the shared
// mobility model.
func (b *Builder) BuildCluster(idx, size int) (*clustersim.Cluster, error) {
	if size < 1 {
		return nil, fmt.Errorf("cluster %d: size must be >= 1, got %d",
			idx, size)
	}

	cluster := &clustersim.Cluster{
		Index:          idx,
		Size:           size,
		Representative: -1,
	}

	for j := 0; j < size; j++ {
		node := &clustersim.Node{
			Name:    fmt.Sprintf("c%dn%d", idx, j),
			Index:   j,
			Cluster: idx,
		}
		b.endpoints[node.Name] = stack.NewEndpoint(node.Name)
		cluster.Nodes = append(cluster.Nodes, node)
	}

	for _, node := range cluster.Nodes {
		b.installer.Install(node)
	}

	channel := netmodel.NewAdhocChannelModel(
		b.es, b.tt,
		b.scenario.WirelessBytePerSecond(),
		b.estimator,
		b.registry,
	)
	cluster.Channel = channel

	ifaces := make([]*clustersim.Interface, 0, size)
	for _, node := range cluster.Nodes {
		port := b.endpoints[node.Name].
			AddInterfacePort(clustersim.DeviceAdhocWifi)
		iface := &clustersim.Interface{
			Kind: clustersim.DeviceAdhocWifi,
			Port: port,
		}
		node.Ifaces = append(node.Ifaces, iface)
		ifaces = append(ifaces, iface)

		channel.PlugInWithOwner(port, portBufSize, node.Name)
	}

	cluster.Subnet = b.allocator.ClusterPool(idx).AssignAndAdvance(ifaces)

	grid := mobility.GridAllocator{
		MinX:      b.scenario.Mobility.OriginStepX * float64(idx+1),
		MinY:      b.scenario.Mobility.OriginStepY * float64(idx+1),
		DeltaX:    b.scenario.Mobility.DeltaX,
		DeltaY:    b.scenario.Mobility.DeltaY,
		GridWidth: b.scenario.Mobility.GridWidth,
		RowFirst:  true,
	}
	for k, node := range cluster.Nodes {
		b.motion.Add(node.Name, grid.Position(k))
	}

	return cluster, nil
}

// SelectRepresentative draws the cluster's representative uniformly from its
// members and records the pick on the cluster.
func (b *Builder) SelectRepresentative(c *clustersim.Cluster) *clustersim.Node {
	c.Representative = b.rng.Intn(c.Size)
	return c.Nodes[c.Representative]
}

// AssembleBackbone gives every representative a wired interface on the
// backbone bus and assigns the backbone subnet.
func (b *Builder) AssembleBackbone(
	reps []*clustersim.Node,
) (*clustersim.Backbone, error) {
	if len(reps) == 0 {
		return nil, fmt.Errorf("no representatives to join")
	}

	bus := netmodel.NewCsmaBusModel(
		b.es, b.tt,
		b.scenario.BackboneBytePerSecond(),
		sim.VTimeInSec(b.scenario.BackboneDelaySec()),
	)

	ifaces := make([]*clustersim.Interface, 0, len(reps))
	for _, rep := range reps {
		port := b.endpoints[rep.Name].
			AddInterfacePort(clustersim.DeviceCsma)
		iface := &clustersim.Interface{
			Kind: clustersim.DeviceCsma,
			Port: port,
		}
		rep.Ifaces = append(rep.Ifaces, iface)
		ifaces = append(ifaces, iface)

		bus.PlugInWithOwner(port, portBufSize, rep.Name)
	}

	subnet := b.allocator.BackbonePool().AssignAndAdvance(ifaces)

	return &clustersim.Backbone{
		Reps:   reps,
		Subnet: subnet,
		Bus:    bus,
	}, nil
}
