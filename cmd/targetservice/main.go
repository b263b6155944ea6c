// Command targetservice is a small HTTP service to point stress runs at.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PeladoCollado/stress/logger"
)

type sumResponse struct {
	A   int `json:"a"`
	B   int `json:"b"`
	Sum int `json:"sum"`
}

type searchHits struct {
	Total int      `json:"total"`
	Terms []string `json:"terms"`
}

type searchResponse struct {
	Took int        `json:"took"`
	Hits searchHits `json:"hits"`
}

func main() {
	log, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           newMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("Serving target", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Target service failed", "error", err)
		os.Exit(1)
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/sum", sumHandler)
	mux.HandleFunc("/search", searchHandler)
	mux.HandleFunc("/status/{code}", statusHandler)
	mux.HandleFunc("/healthz", healthHandler)
	return mux
}

func sumHandler(w http.ResponseWriter, r *http.Request) {
	a, err := parseIntQuery(r, "a")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := parseIntQuery(r, "b")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, sumResponse{
		A:   a,
		B:   b,
		Sum: a + b,
	})
}

// searchHandler reports one hit per query term, so an empty query answers hits.total 0.
// An optional delay in milliseconds slows the answer down.
func searchHandler(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("delay"); raw != "" {
		delay, err := parseIntQuery(r, "delay")
		if err != nil || delay < 0 {
			http.Error(w, fmt.Sprintf("invalid delay %q", raw), http.StatusBadRequest)
			return
		}
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}
	terms := strings.Fields(r.URL.Query().Get("q"))
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, searchResponse{
		Took: rand.Intn(10),
		Hits: searchHits{Total: len(terms), Terms: terms},
	})
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, fmt.Sprintf("invalid status code %q", r.PathValue("code")), http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func parseIntQuery(r *http.Request, key string) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, fmt.Errorf("missing query parameter %q", key)
	}
	number, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %q: %s", key, value)
	}
	return number, nil
}
