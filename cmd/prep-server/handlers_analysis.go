package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rkapur/ai-interview-prep/internal/crew"
	"github.com/rkapur/ai-interview-prep/internal/jsonutil"
	"github.com/rkapur/ai-interview-prep/internal/store"
)

// analysisRequest carries the user-supplied inputs for one resume analysis.
type analysisRequest struct {
	ResumeText string `json:"resume_text"`
	TargetRole string `json:"target_role"`
	JobURL     string `json:"job_url"`
	Company    string `json:"company"`
}

// inputs builds the crew kickoff inputs map, omitting empty optional fields.
func (r *analysisRequest) inputs() map[string]any {
	in := map[string]any{
		"resume_text": r.ResumeText,
		"target_role": r.TargetRole,
	}
	if r.JobURL != "" {
		in["job_url"] = r.JobURL
	}
	if r.Company != "" {
		in["company"] = r.Company
	}
	return in
}

// decodeAnalysisRequest parses and validates the request body.
func decodeAnalysisRequest(w http.ResponseWriter, r *http.Request) (*analysisRequest, bool) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.ResumeText == "" {
		httpError(w, http.StatusBadRequest, "resume_text is required")
		return nil, false
	}
	if req.TargetRole == "" {
		httpError(w, http.StatusBadRequest, "target_role is required")
		return nil, false
	}
	return &req, true
}

// crewErrorMessage maps crew client/poller errors to the messages surfaced
// to the UI. Everything here is a hard failure (HTTP 500); parsing problems
// never reach this path because extraction degrades to raw_output instead.
func crewErrorMessage(err error) string {
	var ke *crew.KickoffError
	var se *crew.StatusCheckError
	switch {
	case errors.Is(err, crew.ErrNotConfigured):
		return "analysis service is not configured"
	case errors.Is(err, crew.ErrMissingKickoffID):
		return "analysis service did not return a job id"
	case errors.Is(err, crew.ErrJobFailed):
		return "analysis processing failed"
	case errors.Is(err, crew.ErrPollTimeout):
		return "analysis timed out; please try again"
	case errors.Is(err, crew.ErrEmptyOutput):
		return "analysis completed without producing output"
	case errors.As(err, &ke):
		return "failed to submit analysis to the crew service"
	case errors.As(err, &se):
		return "failed to check analysis status"
	default:
		return "analysis request failed"
	}
}

// shapeResult merges a normalized payload into the response map. Detailed
// analysis payloads are spread at the top level; anything else nests under
// "analysis" so the UI always has a predictable place to look.
func shapeResult(resp map[string]any, payload map[string]any) {
	if crew.IsDetailedAnalysis(payload) {
		for k, v := range payload {
			resp[k] = v
		}
		return
	}
	resp["analysis"] = payload
}

// handleAnalysisStart kicks off an analysis and returns immediately with the
// kickoff id. The browser polls /api/analysis/status/{id} for progress.
func handleAnalysisStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	cfg := crew.ResolveConfig()
	client := crew.NewClient(cfg)

	kickoffID, err := client.Kickoff(r.Context(), req.inputs())
	if err != nil {
		log.Error().Err(err).Msg("Kickoff failed")
		httpError(w, http.StatusInternalServerError, crewErrorMessage(err))
		return
	}

	resp := map[string]any{
		"success":    true,
		"kickoff_id": kickoffID,
		"status":     crew.StateStarted,
	}
	if sessionStore != nil {
		session := store.NewSession(kickoffID, req.inputs())
		if err := sessionStore.PutSession(r.Context(), session); err != nil {
			log.Warn().Err(err).Str("kickoffId", kickoffID).Msg("Failed to persist session")
		} else {
			resp["session_id"] = session.ID
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleAnalysisStatus performs a single status check for a kickoff id taken
// from the path. On SUCCESS the normalized output is included in the
// response; the session record, when persistence is on, is updated to match.
func handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kickoffID := strings.TrimPrefix(r.URL.Path, "/api/analysis/status/")
	if kickoffID == "" || strings.Contains(kickoffID, "/") {
		httpError(w, http.StatusBadRequest, "invalid kickoff id")
		return
	}

	cfg := crew.ResolveConfig()
	client := crew.NewClient(cfg)

	status, err := client.FetchStatus(r.Context(), kickoffID)
	if err != nil {
		log.Error().Err(err).Str("kickoffId", kickoffID).Msg("Status check failed")
		httpError(w, http.StatusInternalServerError, crewErrorMessage(err))
		return
	}

	resp := map[string]any{
		"kickoff_id": kickoffID,
		"status":     status.State,
	}

	switch status.State {
	case crew.StateSuccess:
		out, ok := status.Output()
		if !ok {
			log.Error().Str("kickoffId", kickoffID).Msg("Job succeeded with no output")
			httpError(w, http.StatusInternalServerError, crewErrorMessage(crew.ErrEmptyOutput))
			return
		}
		payload := jsonutil.Normalize(out)
		shapeResult(resp, payload)
		persistResult(r.Context(), kickoffID, status.State, payload)
	case crew.StateFailed:
		persistStatus(r.Context(), kickoffID, status.State)
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleAnalysisRun is the blocking variant: kickoff, poll to a terminal
// state, and return the shaped final payload in one request. The server's
// write timeout is sized to tolerate the full poll budget.
func handleAnalysisRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	cfg := crew.ResolveConfig()
	client := crew.NewClient(cfg)

	kickoffID, err := client.Kickoff(r.Context(), req.inputs())
	if err != nil {
		log.Error().Err(err).Msg("Kickoff failed")
		httpError(w, http.StatusInternalServerError, crewErrorMessage(err))
		return
	}

	if sessionStore != nil {
		if err := sessionStore.PutSession(r.Context(), store.NewSession(kickoffID, req.inputs())); err != nil {
			log.Warn().Err(err).Str("kickoffId", kickoffID).Msg("Failed to persist session")
		}
	}

	poller := crew.NewPoller(client)
	payload, err := poller.Wait(r.Context(), kickoffID)
	if err != nil {
		log.Error().Err(err).Str("kickoffId", kickoffID).Msg("Poll failed")
		persistError(r.Context(), kickoffID, crewErrorMessage(err))
		httpError(w, http.StatusInternalServerError, crewErrorMessage(err))
		return
	}

	resp := map[string]any{
		"kickoff_id": kickoffID,
		"status":     crew.StateSuccess,
	}
	shapeResult(resp, payload)
	persistResult(r.Context(), kickoffID, crew.StateSuccess, payload)

	respondJSON(w, http.StatusOK, resp)
}

// --- Best-effort persistence helpers ---

func persistResult(ctx context.Context, kickoffID, status string, payload map[string]any) {
	if sessionStore == nil {
		return
	}
	if err := sessionStore.SetResultByKickoffID(ctx, kickoffID, status, payload); err != nil {
		log.Warn().Err(err).Str("kickoffId", kickoffID).Msg("Failed to persist result")
	}
}

func persistStatus(ctx context.Context, kickoffID, status string) {
	if sessionStore == nil {
		return
	}
	if err := sessionStore.UpdateStatusByKickoffID(ctx, kickoffID, status); err != nil {
		log.Warn().Err(err).Str("kickoffId", kickoffID).Msg("Failed to persist status")
	}
}

func persistError(ctx context.Context, kickoffID, msg string) {
	if sessionStore == nil {
		return
	}
	if err := sessionStore.SetErrorByKickoffID(ctx, kickoffID, msg); err != nil {
		log.Warn().Err(err).Str("kickoffId", kickoffID).Msg("Failed to persist error")
	}
}
