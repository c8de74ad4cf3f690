package web

import (
	"encoding/json"
	"net/http"

	"github.com/sweeney/wifi-outlet/internal/control"
)

type scheduleRequest struct {
	Enabled *bool `json:"enabled"`
}

type acceptedResponse struct {
	Accepted string `json:"accepted"`
	Cycle    *int   `json:"cycle,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func accepted(cmd control.Command) acceptedResponse {
	resp := acceptedResponse{Accepted: string(cmd.Kind)}
	if cmd.Kind == control.KindSetCycle {
		cycle := cmd.Cycle
		resp.Cycle = &cycle
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
