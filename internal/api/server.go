// Package api serves the station dataset over REST.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fcc_stations/internal/station"
	"fcc_stations/internal/storage"
)

// Server exposes read-only station queries over HTTP.
type Server struct {
	store storage.StationStore
	port  int
}

// NewServer creates an API server over the given store.
func NewServer(store storage.StationStore, port int) *Server {
	return &Server{store: store, port: port}
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("station API starting at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Router())
}

// Router returns the configured chi router, exported for tests and
// embedding.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stations", s.handleSearch)
		r.Get("/stations/{callSign}", s.handleGet)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch answers GET /api/v1/stations?q=&service=&limit=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	stations, err := s.store.Search(r.Context(), q, limit)
	if err != nil {
		log.Printf("search %q failed: %v", q, err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	// Service filtering is narrow enough to do here rather than pushing a
	// second query shape into every backend.
	if svc := station.Service(r.URL.Query().Get("service")); svc != "" {
		filtered := stations[:0]
		for _, st := range stations {
			if st.Service == svc {
				filtered = append(filtered, st)
			}
		}
		stations = filtered
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: q, Count: len(stations), Stations: stations})
}

// handleGet answers GET /api/v1/stations/{callSign}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	callSign := chi.URLParam(r, "callSign")

	st, err := s.store.Get(r.Context(), callSign)
	if err != nil {
		log.Printf("get %q failed: %v", callSign, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "station not found")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// handleStats answers GET /api/v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		log.Printf("stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Total:      stats.Total,
		FM:         stats.FMCount,
		AM:         stats.AMCount,
		Classified: stats.Classified,
		ByStatus:   toCountMap(stats.ByStatus),
		TopStates:  toCountMap(stats.TopStates),
	})
}

type searchResponse struct {
	Query    string            `json:"query"`
	Count    int               `json:"count"`
	Stations []station.Station `json:"stations"`
}

type statsResponse struct {
	Total      int            `json:"total"`
	FM         int            `json:"fm"`
	AM         int            `json:"am"`
	Classified int            `json:"classified"`
	ByStatus   map[string]int `json:"by_status"`
	TopStates  map[string]int `json:"top_states"`
}

func toCountMap(counts []storage.LabelCount) map[string]int {
	out := make(map[string]int, len(counts))
	for _, lc := range counts {
		out[lc.Label] = lc.Count
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
