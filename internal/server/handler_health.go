package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Sessions  int    `json:"sessions"`
	Policy    string `json:"policy"`
	Janitor   string `json:"janitor"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	janitor := "disabled"
	if s.janitor != nil {
		janitor = "enabled"
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Sessions:  s.sessions.Len(),
		Policy:    s.config.Policy,
		Janitor:   janitor,
	})
}
