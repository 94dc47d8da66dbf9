package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "dsviz API",
		Version:     "v1",
		Description: "Priority CPU scheduling simulator with Gantt chart derivation",
		Endpoints: []endpointInfo{
			{"/api/v1/scheduler/processes", []string{"GET", "POST", "DELETE"}, "List, add, or reset the session's processes"},
			{"/api/v1/scheduler/schedule", []string{"POST"}, "Compute the schedule over the session's processes"},
			{"/api/v1/scheduler/runs", []string{"GET"}, "Previously computed schedules, newest first (?limit=N)"},
			{"/api/priority_scheduler", []string{"POST"}, "Action dispatch: add_process, calculate_schedule, reset_scheduler, get_processes"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
