package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaelgw/realtime-gateway/internal/llmclient"
	"github.com/kaelgw/realtime-gateway/internal/router"
	"github.com/kaelgw/realtime-gateway/internal/trace"
	"github.com/kaelgw/realtime-gateway/internal/ttsclient"
)

// defaultTraceConnectionLimit is how many trace connections are returned when
// the caller omits the ?limit= query parameter.
const defaultTraceConnectionLimit = 20

type deps struct {
	wsHandler  http.Handler
	ttsRouter  *router.Router[ttsclient.Provider]
	llmRouter  *llmclient.AgentClient
	traceStore *trace.Store
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/realtime", d.wsHandler)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/engines", d.handleEngines)
	mux.Handle("GET /metrics", promhttp.Handler())
	registerTraceRoutes(mux, d.traceStore)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleEngines(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"llm": d.llmRouter.Engines(),
		"tts": d.ttsRouter.Engines(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func registerTraceRoutes(mux *http.ServeMux, store *trace.Store) {
	mux.HandleFunc("GET /api/traces/connections", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		limit := queryInt(r, "limit", defaultTraceConnectionLimit)
		offset := queryInt(r, "offset", 0)
		conns, total, err := store.ListConnections(limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"connections": conns, "total": total})
	})

	mux.HandleFunc("GET /api/traces/connections/{id}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		conn, turns, err := store.GetConnection(r.PathValue("id"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"connection": conn, "turns": turns})
	})

	mux.HandleFunc("GET /api/traces/connections/{id}/turns/{turnId}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		turn, stages, err := store.GetTurn(r.PathValue("id"), r.PathValue("turnId"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"turn": turn, "stages": stages})
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
