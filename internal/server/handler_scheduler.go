package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/me/dsviz/pkg/model"
)

type addProcessRequest struct {
	ID          string `json:"id"`
	ArrivalTime int    `json:"arrival_time"`
	BurstTime   int    `json:"burst_time"`
	Priority    int    `json:"priority"`
}

func (s *Server) handleAddProcess(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req addProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrCodeValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}

	p, err := s.sessions.AddProcess(r.Context(), SessionFromContext(r.Context()), model.Process{
		ID:          req.ID,
		ArrivalTime: req.ArrivalTime,
		BurstTime:   req.BurstTime,
		Priority:    req.Priority,
	})
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondCreated(w, reqID, p)
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	procs, err := s.sessions.Processes(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	if procs == nil {
		procs = []model.ProcessStatus{}
	}
	respondOK(w, reqID, procs)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if err := s.sessions.Reset(r.Context(), SessionFromContext(r.Context())); err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, map[string]any{"reset": true})
}

func (s *Server) handleComputeSchedule(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	sched, err := s.sessions.Compute(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, sched)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	limit := s.config.RunHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid limit",
				model.FieldError{Field: "limit", Message: "must be a positive integer"}))
			return
		}
		limit = n
	}

	runs, err := s.sessions.Runs(r.Context(), SessionFromContext(r.Context()), limit)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	respondOK(w, reqID, runs)
}
