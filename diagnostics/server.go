// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diagnostics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/finroc/finroc-go/rtti"
	"github.com/finroc/finroc-go/scheduler"
)

// Status is the set of live objects the diagnostics endpoint reports
// on. All fields are read-only from this package's perspective.
type Status struct {
	Containers []*scheduler.Container
	Registry   *rtti.Registry
}

// NewRouter builds the diagnostics HTTP handler: /healthz, /scheduler
// (per-container task order and last cycle duration),
// /scheduler/alerts (retained watchdog alerts) and /registry (type
// count). Grounded on blampe/rreading-glasses/handler.go's middleware
// composition (request ID, panic recovery) over a mux of small,
// single-purpose handlers.
func NewRouter(status *Status) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/scheduler", func(w http.ResponseWriter, r *http.Request) {
		type containerStatus struct {
			Name              string   `json:"name"`
			TaskOrder         []string `json:"task_order"`
			LastCycleDuration string   `json:"last_cycle_duration"`
		}
		out := make([]containerStatus, len(status.Containers))
		for i, c := range status.Containers {
			out[i] = containerStatus{
				Name:              c.GetQualifiedName(),
				TaskOrder:         c.TaskOrder(),
				LastCycleDuration: c.LastCycleDuration().String(),
			}
		}
		writeJSON(w, out)
	})

	r.Get("/scheduler/alerts", func(w http.ResponseWriter, r *http.Request) {
		type containerAlerts struct {
			Name   string   `json:"name"`
			Alerts []string `json:"alerts"`
		}
		out := make([]containerAlerts, len(status.Containers))
		for i, c := range status.Containers {
			out[i] = containerAlerts{Name: c.GetQualifiedName(), Alerts: c.Alerts()}
		}
		writeJSON(w, out)
	})

	r.Get("/registry", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{"type_count": status.Registry.Count()})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
