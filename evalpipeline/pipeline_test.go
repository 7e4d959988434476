package evalpipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/permaweb/cu/checkpoint"
	"github.com/permaweb/cu/config"
	"github.com/permaweb/cu/domain"
	. "github.com/permaweb/cu/evalpipeline"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence/memstore"
	"github.com/permaweb/cu/suclient"
	"github.com/permaweb/cu/wasmeval"
	"github.com/permaweb/cu/wasmmodule"
	"github.com/permaweb/cu/workerpool"
)

// appendingEvaluator simulates a deterministic WASM evaluation: it appends
// the message's data to the memory buffer and reports one unit of gas per
// byte appended.
func appendingEvaluator() wasmeval.Evaluator {
	return wasmeval.EvaluatorFunc(func(_ context.Context, args wasmeval.Args) (wasmeval.Result, error) {
		mem := append(append([]byte{}, args.Memory.Bytes...), args.Message.Data...)
		return wasmeval.Result{
			Memory:  domain.MemoryRef{Bytes: mem},
			GasUsed: uint64(len(args.Message.Data)),
		}, nil
	})
}

type stubFetcher struct{ binary []byte }

func (f stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.binary, nil
}

var _ = Describe("type Pipeline", func() {
	Describe("func Run()", func() {
		var server *httptest.Server

		AfterEach(func() {
			if server != nil {
				server.Close()
			}
		})

		It("replays every message in order and persists an evaluation for each", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
			})
			mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
				from := r.URL.Query().Get("from")

				var msgs []suclient.Message
				if from == "0" {
					msgs = []suclient.Message{
						{Ordinate: "1", MessageID: "msg-1", Data: []byte("a")},
						{Ordinate: "2", MessageID: "msg-2", Data: []byte("bb")},
					}
				}
				_ = json.NewEncoder(w).Encode(map[string]any{"messages": msgs, "hasMore": false})
			})
			server = httptest.NewServer(mux)

			store := memstore.New()
			pipeline := &Pipeline{
				Store: store,
				Cache: &memcache.Cache{},
				Checkpoints: &checkpoint.Pipeline{
					Store: store,
					Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
				},
				Modules:   &wasmmodule.Loader{Fetch: stubFetcher{binary: []byte("wasm")}},
				SU:        &suclient.Client{BaseURL: server.URL},
				Pools:     workerpool.NewPools(config.Config{MaxWorkers: 2, PrimaryWorkersPct: 50}, workerpool.WorkerInit{}),
				Evaluator: appendingEvaluator(),
				Config:    config.Config{EagerCheckpointAccumulatedGasLimit: 1 << 40},
			}

			eval, err := pipeline.Run(context.Background(), "p1", "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(eval.Ordinate).To(Equal(ordinate.Ordinate("2")))
			Expect(eval.GasUsed).To(Equal(uint64(2)))

			first, err := store.FindEvaluation(context.Background(), "p1", "1", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.MessageID).To(Equal("msg-1"))

			second, err := store.FindEvaluation(context.Background(), "p1", "2", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.MessageID).To(Equal("msg-2"))
			Expect(second.Output.Data).To(BeNil())
		})

		It("skips a message that was already applied, per findMessageBefore", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
			})
			mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"messages": []suclient.Message{{Ordinate: "1", MessageID: "msg-1", Data: []byte("a")}},
					"hasMore":  false,
				})
			})
			server = httptest.NewServer(mux)

			store := memstore.New()
			Expect(store.SaveEvaluation(context.Background(), domain.Evaluation{
				EvaluationIdentity: domain.EvaluationIdentity{ProcessID: "p1", Ordinate: "1"},
				MessageID:          "msg-1",
			})).To(Succeed())

			evaluator := appendingEvaluator()
			calls := 0
			countingEvaluator := wasmeval.EvaluatorFunc(func(ctx context.Context, args wasmeval.Args) (wasmeval.Result, error) {
				calls++
				return evaluator.Evaluate(ctx, args)
			})

			pipeline := &Pipeline{
				Store: store,
				Cache: &memcache.Cache{},
				Checkpoints: &checkpoint.Pipeline{
					Store: store,
					Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
				},
				Modules:   &wasmmodule.Loader{Fetch: stubFetcher{binary: []byte("wasm")}},
				SU:        &suclient.Client{BaseURL: server.URL},
				Pools:     workerpool.NewPools(config.Config{MaxWorkers: 2, PrimaryWorkersPct: 50}, workerpool.WorkerInit{}),
				Evaluator: countingEvaluator,
				Config:    config.Config{EagerCheckpointAccumulatedGasLimit: 1 << 40},
			}

			_, err := pipeline.Run(context.Background(), "p1", "100")
			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal(0))
		})
	})

	Describe("func DryRun()", func() {
		It("evaluates the overlay without persisting the overlay evaluation", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
			})
			mux.HandleFunc("/messages/msg-1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(suclient.MessageMeta{ProcessID: "p1", Ordinate: "1"})
			})
			mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"messages": []suclient.Message{}, "hasMore": false})
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			store := memstore.New()
			pipeline := &Pipeline{
				Store: store,
				Checkpoints: &checkpoint.Pipeline{
					Store: store,
					Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
				},
				Modules:   &wasmmodule.Loader{Fetch: stubFetcher{binary: []byte("wasm")}},
				SU:        &suclient.Client{BaseURL: server.URL},
				Pools:     workerpool.NewPools(config.Config{MaxWorkers: 2, PrimaryWorkersPct: 50}, workerpool.WorkerInit{}),
				Evaluator: appendingEvaluator(),
			}

			result, err := pipeline.DryRun(context.Background(), "p1", "msg-1", wasmeval.Message{Data: []byte("xyz")})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Memory.Bytes).To(Equal([]byte("xyz")))

			_, err = store.FindEvaluation(context.Background(), "p1", "1", false)
			Expect(err).To(HaveOccurred())
		})

		It("replays messages persisted between cold start and messageId before evaluating the overlay", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/processes/p1", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(domain.Process{ID: "p1", ModuleID: "m1"})
			})
			mux.HandleFunc("/messages/msg-2", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(suclient.MessageMeta{ProcessID: "p1", Ordinate: "2"})
			})
			mux.HandleFunc("/processes/p1/messages", func(w http.ResponseWriter, r *http.Request) {
				from := r.URL.Query().Get("from")

				var msgs []suclient.Message
				if from == "0" {
					msgs = []suclient.Message{{Ordinate: "1", MessageID: "msg-1", Data: []byte("a")}}
				}
				_ = json.NewEncoder(w).Encode(map[string]any{"messages": msgs, "hasMore": false})
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			store := memstore.New()
			pipeline := &Pipeline{
				Store: store,
				Checkpoints: &checkpoint.Pipeline{
					Store: store,
					Files: checkpoint.LocalFiles{Dir: GinkgoT().TempDir()},
				},
				Modules:   &wasmmodule.Loader{Fetch: stubFetcher{binary: []byte("wasm")}},
				SU:        &suclient.Client{BaseURL: server.URL},
				Pools:     workerpool.NewPools(config.Config{MaxWorkers: 2, PrimaryWorkersPct: 50}, workerpool.WorkerInit{}),
				Evaluator: appendingEvaluator(),
			}

			result, err := pipeline.DryRun(context.Background(), "p1", "msg-2", wasmeval.Message{Data: []byte("xyz")})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Memory.Bytes).To(Equal([]byte("axyz")))

			replayed, err := store.FindEvaluation(context.Background(), "p1", "1", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(replayed.MessageID).To(Equal("msg-1"))

			_, err = store.FindEvaluation(context.Background(), "p1", "2", false)
			Expect(err).To(HaveOccurred())
		})
	})
})
