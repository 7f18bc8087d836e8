// Package httpserver exposes metrics, health and top-pattern statistics over
// HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/pattern"
	"github.com/keshon/autoreply/internal/stats"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100
	shutdownTimeout = 5 * time.Second
)

// TopSource ranks patterns.
type TopSource interface {
	TopPatterns(limit int) []stats.Ranked
	TotalPatterns() int
}

// Deps are the collaborators served over HTTP. Nil fields disable their routes.
type Deps struct {
	Gatherer prometheus.Gatherer
	Stats    TopSource
	Holder   *pattern.Holder
	Log      logging.Logger
}

type health struct {
	Status          string `json:"status"`
	Patterns        int    `json:"patterns"`
	TrackedPatterns int    `json:"tracked_patterns"`
}

// Handler builds the route table.
func Handler(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}

	mux := http.NewServeMux()

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		h := health{Status: "ok"}
		if d.Holder != nil {
			h.Patterns = d.Holder.Load().Size()
		}
		if d.Stats != nil {
			h.TrackedPatterns = d.Stats.TotalPatterns()
		}
		writeJSON(w, log, http.StatusOK, h)
	})

	if d.Stats != nil {
		mux.HandleFunc("GET /stats/top", func(w http.ResponseWriter, r *http.Request) {
			limit := defaultTopLimit
			if v := r.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
					return
				}
				limit = min(n, maxTopLimit)
			}
			writeJSON(w, log, http.StatusOK, d.Stats.TopPatterns(limit))
		})
	}

	return mux
}

func writeJSON(w http.ResponseWriter, log logging.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response", "err", err)
	}
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, log logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
