package readapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/permaweb/cu/checkpoint"
	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence/memstore"
	. "github.com/permaweb/cu/readapi"
	"github.com/permaweb/cu/suclient"
	"github.com/permaweb/cu/wasmeval"
)

var _ = Describe("func CheckpointAll()", func() {
	It("checkpoints every cached process and swallows individual failures", func() {
		ctx := context.Background()
		store := memstore.New()
		cache := &memcache.Cache{}

		cache.Set(ctx, "p1", domain.ProcessMemory{
			Evaluation: domain.EvaluationPosition{ProcessID: "p1", Ordinate: ordinate.Ordinate("1")},
			Memory:     domain.MemoryRef{Bytes: []byte("one")},
		})
		cache.Set(ctx, "p2", domain.ProcessMemory{
			Evaluation: domain.EvaluationPosition{ProcessID: "p2", Ordinate: ordinate.Ordinate("1")},
			Memory:     domain.MemoryRef{Bytes: []byte("two")},
		})

		checkpoints := &checkpoint.Pipeline{
			Store: store,
			Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
		}

		api := &API{Cache: cache, Checkpoints: checkpoints}

		err := api.CheckpointAll(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("lets concurrent callers attach to the sweep already running", func() {
		ctx := context.Background()
		cache := &memcache.Cache{}
		cache.Set(ctx, "p1", domain.ProcessMemory{
			Evaluation: domain.EvaluationPosition{ProcessID: "p1", Ordinate: ordinate.Ordinate("1")},
			Memory:     domain.MemoryRef{Bytes: []byte("one")},
		})

		checkpoints := &checkpoint.Pipeline{
			Store: memstore.New(),
			Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
		}

		api := &API{Cache: cache, Checkpoints: checkpoints}

		var wg sync.WaitGroup
		errs := make([]error, 3)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = api.CheckpointAll(ctx)
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
	})
})

var _ = Describe("func Healthcheck()", func() {
	It("reports the wallet address and store reachability", func() {
		store := memstore.New()
		api := &API{Store: store, Checkpoints: &checkpoint.Pipeline{}}

		h := api.Healthcheck(context.Background())
		Expect(h.PersistenceReachable).To(BeTrue())
		Expect(h.CheckpointsReachable).To(BeTrue())
	})

	It("reports unreachable when no store is wired", func() {
		api := &API{}

		h := api.Healthcheck(context.Background())
		Expect(h.PersistenceReachable).To(BeFalse())
		Expect(h.CheckpointsReachable).To(BeFalse())
	})
})

var _ = Describe("func Stats()", func() {
	It("reports cache usage even with no pools wired", func() {
		cache := &memcache.Cache{}
		cache.Set(context.Background(), "p1", domain.ProcessMemory{
			Evaluation: domain.EvaluationPosition{ProcessID: "p1"},
			Memory:     domain.MemoryRef{Bytes: []byte("abc")},
		})

		api := &API{Cache: cache}

		s := api.Stats()
		Expect(s.CacheEntries).To(Equal(1))
		Expect(s.CacheBytes).To(Equal(int64(3)))
		Expect(s.RSSBytes).To(BeNumerically(">", 0))
	})
})

var _ = Describe("func DryRun()", func() {
	It("forwards to the pipeline's DryRun without persisting the overlay evaluation", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
		})
		mux.HandleFunc("/messages/msg-1", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(suclient.MessageMeta{ProcessID: "p1", Ordinate: ordinate.Ordinate("1")})
		})
		mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"messages": []suclient.Message{}, "hasMore": false})
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		api := newTestAPI(server)

		result, err := api.DryRun(context.Background(), "p1", "msg-1", wasmeval.Message{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.GasUsed).To(Equal(uint64(1)))
	})
})

var _ = Describe("func MetricsHandler()", func() {
	It("serves the Prometheus text exposition format", func() {
		api := &API{}
		server := httptest.NewServer(api.MetricsHandler())
		defer server.Close()

		resp, err := server.Client().Get(server.URL)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(200))
	})
})

var _ = Describe("cuerr.Overloaded", func() {
	It("is a distinct error kind admission can surface", func() {
		err := cuerr.Overloaded("dry-run")
		Expect(cuerr.IsOverloaded(err)).To(BeTrue())
	})
})
