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
	"github.com/permaweb/cu/config"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/evalpipeline"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence/memstore"
	. "github.com/permaweb/cu/readapi"
	"github.com/permaweb/cu/suclient"
	"github.com/permaweb/cu/wasmeval"
	"github.com/permaweb/cu/wasmmodule"
	"github.com/permaweb/cu/workerpool"
)

type stubFetcher struct{ binary []byte }

func (f stubFetcher) Fetch(context.Context, string) ([]byte, error) { return f.binary, nil }

func newTestAPI(server *httptest.Server) *API {
	store := memstore.New()

	pipeline := &evalpipeline.Pipeline{
		Store: store,
		Checkpoints: &checkpoint.Pipeline{
			Store: store,
			Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
		},
		Modules: &wasmmodule.Loader{Fetch: stubFetcher{binary: []byte("wasm")}},
		SU:      &suclient.Client{BaseURL: server.URL},
		Pools:   workerpool.NewPools(config.Config{MaxWorkers: 2, PrimaryWorkersPct: 50}, workerpool.WorkerInit{}),
		Evaluator: wasmeval.EvaluatorFunc(func(_ context.Context, args wasmeval.Args) (wasmeval.Result, error) {
			return wasmeval.Result{Memory: domain.MemoryRef{Bytes: args.Memory.Bytes}, GasUsed: 1}, nil
		}),
		Config: config.Config{EagerCheckpointAccumulatedGasLimit: 1 << 40},
	}

	return &API{
		Store:    store,
		Pipeline: pipeline,
		SU:       pipeline.SU,
	}
}

var _ = Describe("type API", func() {
	Describe("func ReadState()", func() {
		var server *httptest.Server

		AfterEach(func() {
			if server != nil {
				server.Close()
			}
		})

		It("runs the pipeline once and reports the terminal evaluation", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
			})
			mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"messages": []suclient.Message{{Ordinate: "1", MessageID: "msg-1"}},
					"hasMore":  false,
				})
			})
			server = httptest.NewServer(mux)

			api := newTestAPI(server)

			eval, err := api.ReadState(context.Background(), "p1", ordinate.Ordinate("100"))
			Expect(err).NotTo(HaveOccurred())
			Expect(eval.Ordinate).To(Equal(ordinate.Ordinate("1")))
		})

		It("lets concurrent callers for the same process share one run", func() {
			var requests int
			var mu sync.Mutex

			mux := http.NewServeMux()
			mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
			})
			mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				requests++
				mu.Unlock()
				_ = json.NewEncoder(w).Encode(map[string]any{
					"messages": []suclient.Message{{Ordinate: "1", MessageID: "msg-1"}},
					"hasMore":  false,
				})
			})
			server = httptest.NewServer(mux)

			api := newTestAPI(server)

			var wg sync.WaitGroup
			errs := make([]error, 4)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = api.ReadState(context.Background(), "p1", ordinate.Ordinate("100"))
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			mu.Lock()
			defer mu.Unlock()
			Expect(requests).To(Equal(1))
		})
	})

	Describe("func PendingReadStates()", func() {
		It("is empty when nothing is in flight", func() {
			api := &API{}
			Expect(api.PendingReadStates()).To(BeEmpty())
		})
	})
})
