// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version,omitempty"`
	NativeConnected bool   `json:"nativeConnected"`
	Uptime          string `json:"uptime"`
}

type credentialRequest struct {
	APIKey string `json:"apiKey"`
}

type metadataRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type answerRequest struct {
	Accept bool `json:"accept"`
}

// handleHealth reports liveness. A disconnected native module degrades the
// status but the process itself stays healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:          "ok",
		Version:         s.cfg.Version,
		NativeConnected: true,
		Uptime:          time.Since(s.started).Truncate(time.Second).String(),
	}
	if s.health != nil && !s.health.Connected() {
		resp.Status = "degraded"
		resp.NativeConnected = false
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.presenter.View())
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.presenter.SubmitCredential(r.Context(), req.APIKey); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter.View())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.presenter.Start(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.presenter.Stop(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.presenter.SubmitMetadata(r.Context(), req.Key, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePrompts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.prompts.Pending())
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.prompts.Answer(chi.URLParam(r, "id"), req.Accept); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody decodes a bounded JSON body into v and writes 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}
