package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/me/dsviz/pkg/model"
)

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected integer, got %s", b)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", s)
	}
	*f = flexInt(n)
	return nil
}

type priorityActionRequest struct {
	Action      string  `json:"action"`
	ProcessID   string  `json:"process_id"`
	ArrivalTime flexInt `json:"arrival_time"`
	BurstTime   flexInt `json:"burst_time"`
	Priority    flexInt `json:"priority"`
}

// handlePriorityScheduler serves the action-dispatch contract:
// add_process, calculate_schedule, reset_scheduler and get_processes.
func (s *Server) handlePriorityScheduler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionFromContext(ctx)

	var req priorityActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondLegacy(w, legacyError(fmt.Errorf("invalid JSON body: %w", err)))
		return
	}

	switch req.Action {
	case "add_process":
		p, err := s.sessions.AddProcess(ctx, sid, model.Process{
			ID:          req.ProcessID,
			ArrivalTime: int(req.ArrivalTime),
			BurstTime:   int(req.BurstTime),
			Priority:    int(req.Priority),
		})
		if err != nil {
			respondLegacy(w, legacyError(err))
			return
		}
		respondLegacy(w, model.LegacyResponse{
			Result:  model.ResultSuccess,
			Message: fmt.Sprintf("Process %s added", p.ID),
			Data:    p,
		})

	case "calculate_schedule":
		sched, err := s.sessions.Compute(ctx, sid)
		if err != nil {
			respondLegacy(w, legacyError(err))
			return
		}
		respondLegacy(w, model.LegacyResponse{Result: model.ResultSuccess, Data: sched})

	case "reset_scheduler":
		if err := s.sessions.Reset(ctx, sid); err != nil {
			respondLegacy(w, legacyError(err))
			return
		}
		respondLegacy(w, model.LegacyResponse{Result: model.ResultSuccess, Message: "Scheduler reset"})

	case "get_processes":
		procs, err := s.sessions.Processes(ctx, sid)
		if err != nil {
			respondLegacy(w, legacyError(err))
			return
		}
		if procs == nil {
			procs = []model.ProcessStatus{}
		}
		respondLegacy(w, model.LegacyResponse{Result: model.ResultSuccess, Data: procs})

	default:
		respondLegacy(w, model.LegacyResponse{Result: model.ResultError, Message: "Invalid action"})
	}
}

func legacyError(err error) model.LegacyResponse {
	return model.LegacyResponse{Result: model.ResultError, Message: err.Error()}
}
