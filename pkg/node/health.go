package node

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthStatus is the /health response body: the cursors a human or an
// orchestrator cares about when deciding whether this core is making
// progress (SPEC_FULL ambient stack -- minimal health surface).
type healthStatus struct {
	LastScannedL1Height uint64 `json:"last_scanned_l1_height"`
	HasScanned          bool   `json:"has_scanned"`
	NextL2Height        uint64 `json:"next_l2_height"`
}

// HTTPHandler returns the /health and /metrics mux for this node. It is
// deliberately minimal: the spec's RPC/JSON-RPC surface is out of scope
// (spec.md §1), but ambient observability is carried regardless.
func (n *Node) HTTPHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		l1, ok, err := n.ledger.LastScannedL1Height()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		l2, err := n.ledger.NextL2Height()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthStatus{
			LastScannedL1Height: uint64(l1),
			HasScanned:          ok,
			NextL2Height:        uint64(l2),
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// ServeHTTP runs the health/metrics server until ctx is cancelled, then
// shuts it down with a bounded grace period.
func (n *Node) ServeHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: n.HTTPHandler()}

	errCh := make(chan error, 1)
	go func() {
		n.logger.Printf("health/metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
