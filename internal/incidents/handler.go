package incidents

import (
	"encoding/json"
	"net/http"

	"log/slog"
)

type ListHandler struct {
	Source Source
	Logger *slog.Logger
}

func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	incs, err := h.Source.Incidents(r.Context())
	if err != nil {
		h.Logger.Error("list incidents", "err", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	// Optional filters mirror the dashboard's status/severity pickers.
	q := r.URL.Query()
	status := Status(q.Get("status"))
	severity := Severity(q.Get("severity"))
	res := make([]Incident, 0, len(incs))
	for _, inc := range incs {
		if status != "" && inc.Status != status {
			continue
		}
		if severity != "" && inc.Severity != severity {
			continue
		}
		res = append(res, inc)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

// WorkflowHandler serves the grouped RCA workflow view.
type WorkflowHandler struct {
	Source Source
	Logger *slog.Logger
}

func (h *WorkflowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	incs, err := h.Source.Incidents(r.Context())
	if err != nil {
		h.Logger.Error("load incidents for workflows", "err", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	steps, err := h.Source.Steps(r.Context())
	if err != nil {
		h.Logger.Error("load rca steps", "err", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Aggregate(incs, steps))
}
