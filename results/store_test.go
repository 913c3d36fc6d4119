package results

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *Store
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, err = Open(":memory:")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("should assign an ID and a creation time on save", func() {
		rec := &RunRecord{Scenario: "default", Seed: 42, StopTime: 10}

		Expect(store.SaveRun(ctx, rec)).To(Succeed())

		Expect(rec.ID).ToNot(BeEmpty())
		Expect(rec.CreatedAt).ToNot(BeZero())
	})

	It("should round-trip a record", func() {
		created := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
		rec := &RunRecord{
			ID:               "run-1",
			Scenario:         "scenarios/dense.toml",
			Seed:             42,
			StopTime:         20,
			ClusterCount:     3,
			NodeCount:        12,
			RepIndices:       "2,0,1",
			PacketsDelivered: 57,
			FinalTime:        20,
			WallMillis:       85,
			CreatedAt:        created,
		}

		Expect(store.SaveRun(ctx, rec)).To(Succeed())

		recs, err := store.ListRuns(ctx, 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].CreatedAt.Equal(created)).To(BeTrue())

		recs[0].CreatedAt = rec.CreatedAt
		Expect(recs[0]).To(Equal(*rec))
	})

	It("should list runs newest first and honor the limit", func() {
		base := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			rec := &RunRecord{
				ID:        fmt.Sprintf("run-%d", i),
				Scenario:  "default",
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			Expect(store.SaveRun(ctx, rec)).To(Succeed())
		}

		recs, err := store.ListRuns(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].ID).To(Equal("run-2"))
		Expect(recs[1].ID).To(Equal("run-1"))
	})

	It("should reject duplicate run IDs", func() {
		Expect(store.SaveRun(ctx, &RunRecord{ID: "dup"})).To(Succeed())

		err := store.SaveRun(ctx, &RunRecord{ID: "dup"})

		Expect(err).To(MatchError(ContainSubstring("save run dup")))
	})

	It("should persist runs across reopening a file database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "runs.db")

		first, err := Open(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(first.SaveRun(ctx, &RunRecord{ID: "run-1"})).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := Open(path)
		Expect(err).ToNot(HaveOccurred())
		defer second.Close()

		recs, err := second.ListRuns(ctx, 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].ID).To(Equal("run-1"))
	})

	It("should fail to open an unreachable path", func() {
		path := filepath.Join(GinkgoT().TempDir(), "missing", "runs.db")

		_, err := Open(path)

		Expect(err).To(MatchError(ContainSubstring("migrate results database")))
	})
})
