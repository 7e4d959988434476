package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
	"github.com/permaweb/cu/readapi"
	"github.com/permaweb/cu/wasmeval"
)

// routes builds the read API's HTTP surface. Routing and wire format are
// this binary's own concern, not the evaluation core's: every handler
// here is a thin JSON adapter over an *readapi.API method.
func routes(api *readapi.API) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.Healthcheck(r.Context()))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.Stats())
	})

	mux.Handle("/metrics", api.MetricsHandler())

	mux.HandleFunc("/checkpoint-all", func(w http.ResponseWriter, r *http.Request) {
		if err := api.CheckpointAll(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/result", func(w http.ResponseWriter, r *http.Request) {
		processID := r.URL.Query().Get("process-id")
		messageID := r.URL.Query().Get("message-id")

		eval, err := api.ReadResult(r.Context(), processID, messageID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eval)
	})

	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		results, err := api.ReadResults(r.Context(), persistence.EvaluationQuery{
			ProcessID: q.Get("process-id"),
			From:      ordinate.Ordinate(q.Get("from")),
			To:        ordinate.Ordinate(q.Get("to")),
			OnlyCron:  q.Get("cron") == "true",
			Limit:     queryInt(q, "limit", 0),
			Sort:      querySort(q),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	})

	mux.HandleFunc("/cron-results", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		results, err := api.ReadCronResults(
			r.Context(),
			q.Get("process-id"),
			ordinate.Ordinate(q.Get("from")),
			ordinate.Ordinate(q.Get("to")),
			queryInt(q, "limit", 0),
		)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	})

	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		eval, err := api.ReadState(r.Context(), q.Get("process-id"), ordinate.Ordinate(q.Get("to")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eval)
	})

	mux.HandleFunc("/dry-run", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var overlay wasmeval.Message
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&overlay); err != nil {
				writeError(w, cuerr.Invalid("malformed dry-run overlay body: "+err.Error()))
				return
			}
		}

		result, err := api.DryRun(r.Context(), q.Get("process-id"), q.Get("message-id"), overlay)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return mux
}

func queryInt(q map[string][]string, key string, def int) int {
	v := ""
	if vs, ok := q[key]; ok && len(vs) > 0 {
		v = vs[0]
	}
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func querySort(q map[string][]string) persistence.Sort {
	if vs, ok := q["sort"]; ok && len(vs) > 0 && vs[0] == "descending" {
		return persistence.Descending
	}
	return persistence.Ascending
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a cuerr classification onto an HTTP status, following
// the status codes spec'd for the read API's error cases.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case cuerr.IsNotFound(err):
		status = http.StatusNotFound
	case cuerr.IsInvalid(err):
		status = http.StatusBadRequest
	case cuerr.IsOverloaded(err):
		status = http.StatusTooManyRequests
	case cuerr.IsTransient(err):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
