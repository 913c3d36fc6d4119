package clustersim

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
)

var _ = Describe("Snapshot", func() {
	var snap *Snapshot

	BeforeEach(func() {
		snap = testTopology().Snapshot("two-cluster", 42)
	})

	It("should capture the scenario label and seed", func() {
		Expect(snap.Scenario).To(Equal("two-cluster"))
		Expect(snap.Seed).To(Equal(int64(42)))
	})

	It("should describe every cluster with its nodes and addresses", func() {
		Expect(snap.Clusters).To(HaveLen(2))

		c0 := snap.Clusters[0]
		Expect(c0.Subnet).To(Equal("192.167.0.0/24"))
		Expect(c0.Representative).To(Equal(0))
		Expect(c0.Nodes).To(HaveLen(2))
		Expect(c0.Nodes[0].Name).To(Equal("c0n0"))
		Expect(c0.Nodes[0].Addrs).To(Equal([]string{"192.167.0.1", "172.16.0.1"}))
		Expect(c0.Nodes[1].Addrs).To(Equal([]string{"192.167.0.2"}))
	})

	It("should describe the backbone membership", func() {
		Expect(snap.Backbone.Subnet).To(Equal("172.16.0.0/24"))
		Expect(snap.Backbone.Members).To(Equal([]string{"c0n0", "c1n0"}))
	})

	It("should leave the backbone empty when none was assembled", func() {
		topo := testTopology()
		topo.Backbone = nil

		bare := topo.Snapshot("two-cluster", 42)

		Expect(bare.Backbone.Subnet).To(BeEmpty())
		Expect(bare.Backbone.Members).To(BeEmpty())
	})

	Describe("WriteToFile", func() {
		It("should round-trip through YAML", func() {
			path := filepath.Join(GinkgoT().TempDir(), "topo.yaml")

			Expect(snap.WriteToFile(path)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())

			var loaded Snapshot
			Expect(yaml.Unmarshal(data, &loaded)).To(Succeed())
			Expect(loaded).To(Equal(*snap))
		})

		It("should round-trip through JSON", func() {
			path := filepath.Join(GinkgoT().TempDir(), "topo.json")

			Expect(snap.WriteToFile(path)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())

			var loaded Snapshot
			Expect(json.Unmarshal(data, &loaded)).To(Succeed())
			Expect(loaded).To(Equal(*snap))
		})

		It("should reject an unsupported extension", func() {
			path := filepath.Join(GinkgoT().TempDir(), "topo.txt")

			err := snap.WriteToFile(path)

			Expect(err).To(MatchError(ContainSubstring("unsupported extension")))
		})
	})
})
