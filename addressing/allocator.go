// Package addressing hands out successive, non-overlapping IPv4 subnets from
// a fixed set of base pools.
package addressing

import (
	"fmt"
	"net/netip"

	"github.com/syifan/clustersim"
)

// A Pool issues successive /24 blocks below one base address. The cursor
// starts at the base network and moves by one third-octet step per Advance,
// so blocks from one pool never overlap each other.
type Pool struct {
	base   netip.Prefix
	cursor int
}

func newPool(base netip.Prefix) (*Pool, error) {
	if !base.Addr().Is4() {
		return nil, fmt.Errorf("pool %s: only IPv4 pools are supported", base)
	}
	if base.Bits() != 24 {
		return nil, fmt.Errorf("pool %s: only /24 pools are supported", base)
	}
	return &Pool{base: base.Masked()}, nil
}

// Allocate returns the block at the pool's cursor without advancing it.
// Repeated calls return the same block until Advance is called.
func (p *Pool) Allocate() netip.Prefix {
	a4 := p.base.Addr().As4()
	third := int(a4[2]) + p.cursor
	if third > 255 {
		panic(fmt.Sprintf("address pool %s exhausted", p.base))
	}
	a4[2] = byte(third)
	a4[3] = 0
	return netip.PrefixFrom(netip.AddrFrom4(a4), 24)
}

// Advance moves the cursor to the next non-overlapping block. Exhaustion is
// only detected by the Allocate that would step past the pool.
func (p *Pool) Advance() {
	p.cursor++
}

// AssignAndAdvance allocates the pool's current block, gives each interface
// the next host address within it (.1, .2, ...), records the prefix on the
// interfaces, and advances the cursor. This is the one-call path cluster and
// backbone assembly use.
func (p *Pool) AssignAndAdvance(ifaces []*clustersim.Interface) netip.Prefix {
	subnet := p.Allocate()
	if len(ifaces) > 254 {
		panic(fmt.Sprintf("subnet %s: more than 254 interfaces requested", subnet))
	}

	a4 := subnet.Addr().As4()
	for i, iface := range ifaces {
		a4[3] = byte(i + 1)
		iface.Addr = netip.AddrFrom4(a4)
		iface.Prefix = subnet
	}

	p.Advance()
	return subnet
}

// An Allocator owns the cluster pools and the backbone pool. Cluster i draws
// from pool i mod len(clusterPools); the backbone pool is disjoint from every
// cluster pool by construction.
type Allocator struct {
	clusterPools []*Pool
	backbone     *Pool
}

// NewAllocator builds an allocator over the given base addresses. It fails if
// any base is not an IPv4 /24 or if any two bases overlap.
func NewAllocator(clusterBases []netip.Prefix, backboneBase netip.Prefix) (*Allocator, error) {
	if len(clusterBases) == 0 {
		return nil, fmt.Errorf("no cluster pools given")
	}

	all := make([]netip.Prefix, 0, len(clusterBases)+1)
	all = append(all, clusterBases...)
	all = append(all, backboneBase)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Overlaps(all[j]) {
				return nil, fmt.Errorf("address pools %s and %s overlap", all[i], all[j])
			}
		}
	}

	a := &Allocator{}
	for _, base := range clusterBases {
		pool, err := newPool(base)
		if err != nil {
			return nil, err
		}
		a.clusterPools = append(a.clusterPools, pool)
	}

	pool, err := newPool(backboneBase)
	if err != nil {
		return nil, err
	}
	a.backbone = pool

	return a, nil
}

// ClusterPool returns the pool cluster i draws from.
func (a *Allocator) ClusterPool(i int) *Pool {
	return a.clusterPools[i%len(a.clusterPools)]
}

// BackbonePool returns the backbone's dedicated pool.
func (a *Allocator) BackbonePool() *Pool {
	return a.backbone
}
