package addressing

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/syifan/clustersim"
)

var _ = Describe("Allocator", func() {
	var (
		allocator *Allocator
	)

	BeforeEach(func() {
		var err error
		allocator, err = NewAllocator(
			[]netip.Prefix{
				netip.MustParsePrefix("192.167.0.0/24"),
				netip.MustParsePrefix("192.168.0.0/24"),
				netip.MustParsePrefix("192.169.0.0/24"),
			},
			netip.MustParsePrefix("172.16.0.0/24"),
		)
		Expect(err).To(BeNil())
	})

	It("should reject overlapping pools", func() {
		_, err := NewAllocator(
			[]netip.Prefix{
				netip.MustParsePrefix("192.167.0.0/24"),
				netip.MustParsePrefix("192.167.0.0/24"),
			},
			netip.MustParsePrefix("172.16.0.0/24"),
		)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a backbone pool inside a cluster pool", func() {
		_, err := NewAllocator(
			[]netip.Prefix{netip.MustParsePrefix("192.167.0.0/24")},
			netip.MustParsePrefix("192.167.0.0/24"),
		)
		Expect(err).To(HaveOccurred())
	})

	It("should reject non /24 pools", func() {
		_, err := NewAllocator(
			[]netip.Prefix{netip.MustParsePrefix("192.167.0.0/16")},
			netip.MustParsePrefix("172.16.0.0/24"),
		)
		Expect(err).To(HaveOccurred())
	})

	It("should allocate the base block first", func() {
		subnet := allocator.ClusterPool(0).Allocate()
		Expect(subnet.String()).To(Equal("192.167.0.0/24"))
	})

	It("should return the same block until advanced", func() {
		pool := allocator.ClusterPool(0)
		Expect(pool.Allocate()).To(Equal(pool.Allocate()))
	})

	It("should advance to the next block below the same base", func() {
		pool := allocator.ClusterPool(0)
		pool.Advance()
		Expect(pool.Allocate().String()).To(Equal("192.167.1.0/24"))
	})

	It("should cycle cluster pools by index", func() {
		Expect(allocator.ClusterPool(0).Allocate().String()).
			To(Equal("192.167.0.0/24"))
		Expect(allocator.ClusterPool(1).Allocate().String()).
			To(Equal("192.168.0.0/24"))
		Expect(allocator.ClusterPool(2).Allocate().String()).
			To(Equal("192.169.0.0/24"))
		Expect(allocator.ClusterPool(3)).To(BeIdenticalTo(allocator.ClusterPool(0)))
	})

	It("should keep the backbone pool disjoint from cluster pools", func() {
		backbone := allocator.BackbonePool().Allocate()
		for i := 0; i < 3; i++ {
			Expect(backbone.Overlaps(allocator.ClusterPool(i).Allocate())).
				To(BeFalse())
		}
	})

	It("should never issue overlapping blocks from one pool", func() {
		pool := allocator.ClusterPool(0)
		seen := []netip.Prefix{}
		for i := 0; i < 16; i++ {
			subnet := pool.Allocate()
			for _, prev := range seen {
				Expect(subnet.Overlaps(prev)).To(BeFalse())
			}
			seen = append(seen, subnet)
			pool.Advance()
		}
	})

	It("should panic when a pool is exhausted", func() {
		pool, err := newPool(netip.MustParsePrefix("10.0.255.0/24"))
		Expect(err).To(BeNil())
		pool.Advance()
		Expect(func() { pool.Allocate() }).To(Panic())
	})

	Context("when assigning interfaces", func() {
		It("should give each interface the next host address", func() {
			ifaces := []*clustersim.Interface{
				{Kind: clustersim.DeviceAdhocWifi},
				{Kind: clustersim.DeviceAdhocWifi},
				{Kind: clustersim.DeviceAdhocWifi},
			}

			subnet := allocator.ClusterPool(0).AssignAndAdvance(ifaces)

			Expect(subnet.String()).To(Equal("192.167.0.0/24"))
			Expect(ifaces[0].Addr.String()).To(Equal("192.167.0.1"))
			Expect(ifaces[1].Addr.String()).To(Equal("192.167.0.2"))
			Expect(ifaces[2].Addr.String()).To(Equal("192.167.0.3"))
			for _, iface := range ifaces {
				Expect(iface.Prefix).To(Equal(subnet))
			}
		})

		It("should advance the cursor after assignment", func() {
			pool := allocator.ClusterPool(0)
			pool.AssignAndAdvance([]*clustersim.Interface{{}})
			Expect(pool.Allocate().String()).To(Equal("192.167.1.0/24"))
		})

		It("should panic when a subnet cannot hold the interfaces", func() {
			ifaces := make([]*clustersim.Interface, 255)
			for i := range ifaces {
				ifaces[i] = &clustersim.Interface{}
			}
			pool := allocator.ClusterPool(0)
			Expect(func() { pool.AssignAndAdvance(ifaces) }).To(Panic())
		})
	})
})
