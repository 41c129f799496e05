package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/nikhilbhutani/voiceover/internal/pipeline"
)

// maxBodyBytes bounds request bodies; interaction events can be large.
const maxBodyBytes = 8 << 20

type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type ProcessHandler struct {
	pipeline Processor
	maxChars int
}

func NewProcessHandler(p Processor, maxTranscriptChars int) *ProcessHandler {
	return &ProcessHandler{pipeline: p, maxChars: maxTranscriptChars}
}

// processRequest accepts both snake_case and the camelCase field names older
// clients send.
type processRequest struct {
	Transcript        *string           `json:"transcript"`
	DomEvents         []json.RawMessage `json:"dom_events"`
	DomEventsAlias    []json.RawMessage `json:"domEvents"`
	TargetLanguage    string            `json:"target_language"`
	TargetLangAlias   string            `json:"targetLanguage"`
	InteractionEvents []json.RawMessage `json:"interaction_events"`
}

func (p processRequest) pipelineRequest() pipeline.Request {
	req := pipeline.Request{TargetLanguage: p.TargetLanguage}
	if req.TargetLanguage == "" {
		req.TargetLanguage = p.TargetLangAlias
	}
	switch {
	case p.DomEvents != nil:
		req.InteractionEvents = p.DomEvents
	case p.DomEventsAlias != nil:
		req.InteractionEvents = p.DomEventsAlias
	default:
		req.InteractionEvents = p.InteractionEvents
	}
	if p.Transcript != nil {
		req.Transcript = *p.Transcript
	}
	return req
}

type processResponse struct {
	Success bool `json:"success"`
	*pipeline.Result
}

type errorResponse struct {
	Success  bool                     `json:"success"`
	Error    string                   `json:"error"`
	Stage    pipeline.Stage           `json:"stage,omitempty"`
	Attempts []pipeline.FailureReport `json:"attempts,omitempty"`
}

func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProcessRequest(w, r, h.maxChars)
	if !ok {
		return
	}

	result, err := h.pipeline.Process(r.Context(), req)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{Success: true, Result: result})
}

// decodeProcessRequest writes a 400 and returns false when the body is not a
// usable pipeline request.
func decodeProcessRequest(w http.ResponseWriter, r *http.Request, maxChars int) (pipeline.Request, bool) {
	var body processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return pipeline.Request{}, false
	}
	if body.Transcript == nil {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return pipeline.Request{}, false
	}
	if maxChars > 0 && utf8.RuneCountInString(*body.Transcript) > maxChars {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("transcript exceeds %d characters", maxChars))
		return pipeline.Request{}, false
	}
	return body.pipelineRequest(), true
}

// writePipelineError maps a Process failure to a response. Stage failures
// carry the per-provider attempts.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	stage, attempts := pipeline.Report(err)
	resp := errorResponse{Error: err.Error(), Stage: stage, Attempts: attempts}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, resp)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		slog.Info("request cancelled", "path", r.URL.Path, "stage", stage)
		writeJSON(w, http.StatusServiceUnavailable, resp)
	case stage != "":
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		slog.Error("pipeline error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
