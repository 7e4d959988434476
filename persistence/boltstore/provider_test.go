package boltstore_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
	. "github.com/permaweb/cu/persistence/boltstore"
)

func openTemp() (*Store, func()) {
	dir, err := os.MkdirTemp("", "boltstore")
	Expect(err).NotTo(HaveOccurred())

	s, err := Open(context.Background(), filepath.Join(dir, "cu.boltdb"), 0)
	Expect(err).NotTo(HaveOccurred())

	return s, func() {
		s.Close()
		os.RemoveAll(dir)
	}
}

var _ = Describe("type Store", func() {
	var (
		ctx     context.Context
		store   *Store
		cleanup func()
	)

	BeforeEach(func() {
		ctx = context.Background()
		store, cleanup = openTemp()
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("processes", func() {
		It("round-trips a saved process", func() {
			p := domain.Process{ID: "p1", Owner: "owner-a", ModuleID: "mod1"}

			Expect(store.SaveProcess(ctx, p)).To(Succeed())

			got, err := store.FindProcess(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(p))
		})

		It("returns NotFound for an unknown process", func() {
			_, err := store.FindProcess(ctx, "missing")
			Expect(cuerr.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("modules", func() {
		It("round-trips a module's nested tags and options", func() {
			m := domain.Module{
				ID:           "mod1",
				Owner:        "owner-a",
				Tags:         []domain.Tag{{Name: "Format", Value: "wasm64"}, {Name: "Variant", Value: "ao"}},
				ModuleFormat: "wasm64-unknown-emscripten",
				ModuleOptions: domain.ModuleOptions{
					MemoryLimit:  1 << 30,
					ComputeLimit: 9_000_000_000_000,
					Extensions:   []string{"WeaveDrive"},
					SupportedExtra: map[string]string{
						"Input-Encoding": "JSON-1",
					},
				},
			}

			Expect(store.SaveModule(ctx, m)).To(Succeed())

			got, err := store.FindModule(ctx, "mod1")
			Expect(err).NotTo(HaveOccurred())

			if diff := cmp.Diff(m, got); diff != "" {
				Fail("module round trip did not preserve every field:\n" + diff)
			}
		})
	})

	Describe("evaluations", func() {
		It("orders a ranged query by ordinate", func() {
			for _, ord := range []ordinate.Ordinate{"3", "1", "2"} {
				e := domain.Evaluation{
					EvaluationIdentity: domain.EvaluationIdentity{ProcessID: "p1", Ordinate: ord},
					MessageID:          "m",
				}
				Expect(store.SaveEvaluation(ctx, e)).To(Succeed())
			}

			out, err := store.FindEvaluations(ctx, persistence.EvaluationQuery{
				ProcessID: "p1",
				Sort:      persistence.Ascending,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(3))
			Expect(out[0].Ordinate).To(Equal(ordinate.Ordinate("1")))
			Expect(out[2].Ordinate).To(Equal(ordinate.Ordinate("3")))
		})
	})

	Describe("checkpoint records", func() {
		It("finds the latest record at or before a target ordinate", func() {
			Expect(store.WriteCheckpointRecord(ctx, domain.CheckpointRecord{ProcessID: "p1", Ordinate: "5"})).To(Succeed())
			Expect(store.WriteCheckpointRecord(ctx, domain.CheckpointRecord{ProcessID: "p1", Ordinate: "50"})).To(Succeed())

			got, err := store.FindCheckpointRecordBefore(ctx, persistence.CheckpointQuery{
				ProcessID: "p1",
				Before:    domain.EvaluationPosition{Ordinate: "10"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Ordinate).To(Equal(ordinate.Ordinate("5")))
		})
	})
})
