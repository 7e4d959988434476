package checkpoint_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/permaweb/cu/checkpoint"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence/memstore"
)

var _ = Describe("type Pipeline", func() {
	var (
		ctx   context.Context
		store *memstore.Store
		files LocalFiles
		pipe  *Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memstore.New()
		files = LocalFiles{Dir: GinkgoT().TempDir()}

		pipe = &Pipeline{
			Cache: &memcache.Cache{},
			Store: store,
			Files: files,
		}
	})

	Describe("func FindLatestProcessMemoryBefore()", func() {
		It("returns cold-start memory when nothing is cached, recorded, or remote", func() {
			mem, err := pipe.FindLatestProcessMemoryBefore(ctx, "p1", "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Evaluation.Ordinate).To(Equal(ordinate.Zero))
			Expect(mem.Memory.Bytes).To(BeEmpty())
		})

		It("prefers the memory cache over the local record", func() {
			pipe.Cache.Set(ctx, "p1", domain.ProcessMemory{
				Memory:     domain.MemoryRef{Bytes: []byte("cached")},
				Evaluation: domain.EvaluationPosition{ProcessID: "p1", Ordinate: "5"},
			})

			mem, err := pipe.FindLatestProcessMemoryBefore(ctx, "p1", "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Memory.Bytes).To(Equal([]byte("cached")))
		})

		It("falls back to a local checkpoint record when the cache misses", func() {
			file, err := files.WriteProcessMemoryFile(
				domain.EvaluationPosition{ProcessID: "p1", Ordinate: "10"},
				[]byte("from-disk"),
			)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.WriteCheckpointRecord(ctx, domain.CheckpointRecord{
				ProcessID: "p1",
				Ordinate:  "10",
				File:      file,
			})).To(Succeed())

			mem, err := pipe.FindLatestProcessMemoryBefore(ctx, "p1", "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Memory.Bytes).To(Equal([]byte("from-disk")))
			Expect(mem.Evaluation.Ordinate).To(Equal(ordinate.Ordinate("10")))
		})
	})

	Describe("func SaveCheckpoint()", func() {
		It("records a local file reference without uploading when disabled", func() {
			pipe.Disable = true

			err := pipe.SaveCheckpoint(ctx, domain.ProcessMemory{
				Memory:     domain.MemoryRef{Bytes: []byte("data")},
				Evaluation: domain.EvaluationPosition{ProcessID: "p1", Ordinate: "1"},
			})
			Expect(err).NotTo(HaveOccurred())

			matches, err := filepath.Glob(filepath.Join(files.Dir, "p1_*.mem"))
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})

		It("serializes concurrent saves for the same process", func() {
			var inFlight, maxInFlight int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxInFlight)
					if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
						break
					}
				}
				atomic.AddInt32(&inFlight, -1)

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "tx-1"})
			}))
			defer server.Close()

			key, err := rsa.GenerateKey(rand.Reader, 2048)
			Expect(err).NotTo(HaveOccurred())

			pipe.Wallet = Wallet{Key: key}
			pipe.Upload = Uploader{URL: server.URL}

			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()

					err := pipe.SaveCheckpoint(ctx, domain.ProcessMemory{
						Memory:     domain.MemoryRef{Bytes: []byte("data")},
						Evaluation: domain.EvaluationPosition{ProcessID: "p1", Ordinate: "1"},
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(atomic.LoadInt32(&maxInFlight)).To(Equal(int32(1)))
		})
	})
})
