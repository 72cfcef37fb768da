package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediaforge/internal/domain"
	"mediaforge/internal/orchestrator"
)

type taskCreateRequest struct {
	Prompt        string            `json:"prompt"`
	Mode          string            `json:"mode"`
	Duration      string            `json:"duration"`
	AspectRatio   string            `json:"aspect_ratio"`
	Resolution    string            `json:"resolution"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model"`
	TranslateToEn bool              `json:"translate_to_en"`
	References    []domain.AssetRef `json:"references"`
	Cost          int               `json:"cost"`
	Funding       string            `json:"funding"`
}

type storyboardCreateRequest struct {
	taskCreateRequest
	Beats []string `json:"beats"`
}

type framesCreateRequest struct {
	taskCreateRequest
	Keyframes []domain.AssetRef `json:"keyframes"`
}

type taskResponse struct {
	ID          string            `json:"id"`
	RemoteJobID string            `json:"remote_job_id,omitempty"`
	Status      string            `json:"status"`
	Prompt      string            `json:"prompt"`
	Mode        string            `json:"mode"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	References  []domain.AssetRef `json:"references,omitempty"`
	Cost        int               `json:"cost"`
	Funding     string            `json:"funding"`
	Refunded    bool              `json:"refunded"`
	ResultURL   string            `json:"result_url,omitempty"`
	Progress    int               `json:"progress"`
	CreatedAt   time.Time         `json:"created_at"`
	DateKey     string            `json:"date_key"`
}

func toTaskResponse(t domain.GenerationTask) taskResponse {
	return taskResponse{
		ID:          t.ID,
		RemoteJobID: t.RemoteJobID,
		Status:      string(t.Status),
		Prompt:      t.Spec.Prompt,
		Mode:        t.Spec.Mode,
		Provider:    t.Engine.Provider,
		Model:       t.Engine.Model,
		References:  t.Spec.References,
		Cost:        t.Cost,
		Funding:     string(t.Funding),
		Refunded:    t.Refunded,
		ResultURL:   t.ResultURL,
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt,
		DateKey:     t.DateKey(),
	}
}

func toTaskResponses(tasks []domain.GenerationTask) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func (r taskCreateRequest) orchestratorRequest() orchestrator.TaskRequest {
	funding := domain.FundingMode(r.Funding)
	if funding != domain.FundingPersonalKey {
		funding = domain.FundingCredits
	}
	return orchestrator.TaskRequest{
		Spec: domain.CreativeSpec{
			Prompt:        r.Prompt,
			Mode:          r.Mode,
			Duration:      r.Duration,
			AspectRatio:   r.AspectRatio,
			Resolution:    r.Resolution,
			References:    r.References,
			TranslateToEn: r.TranslateToEn,
		},
		Engine: domain.EngineConfig{
			Provider: r.Provider,
			Model:    r.Model,
		},
		Cost:    r.Cost,
		Funding: funding,
	}
}

func (r taskCreateRequest) validate() string {
	if r.Provider == "" {
		return "provider is required"
	}
	if r.Cost < 0 {
		return "cost must not be negative"
	}
	return ""
}

// TasksCreate submits one generation unit. A backend rejection still answers
// 202: the outcome lives in the returned task's status, not in the HTTP
// code.
func (a *App) TasksCreate(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if msg := req.validate(); msg != "" {
		a.error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}
	task, err := a.Orchestrator.Submit(r.Context(), req.orchestratorRequest())
	if err != nil {
		a.submitError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, toTaskResponse(task))
}

// TasksStoryboard fans a storyboard out into one task per non-empty beat.
// Cost on the request is the per-beat unit cost.
func (a *App) TasksStoryboard(w http.ResponseWriter, r *http.Request) {
	var req storyboardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		a.error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}
	units := orchestrator.BatchFromBeats(req.Beats, req.orchestratorRequest())
	if len(units) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one non-empty beat is required")
		return
	}
	tasks, err := a.Orchestrator.SubmitBatch(r.Context(), units)
	if err != nil {
		a.submitError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"tasks": toTaskResponses(tasks)})
}

// TasksFrames fans N keyframes out into N-1 interpolation segments. Cost on
// the request is the per-segment unit cost.
func (a *App) TasksFrames(w http.ResponseWriter, r *http.Request) {
	var req framesCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		a.error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}
	units := orchestrator.BatchFromKeyframes(req.Keyframes, req.orchestratorRequest())
	if len(units) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least two keyframes are required")
		return
	}
	tasks, err := a.Orchestrator.SubmitBatch(r.Context(), units)
	if err != nil {
		a.submitError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"tasks": toTaskResponses(tasks)})
}

// TasksList returns every task newest first; ?group=day buckets them by
// creation day.
func (a *App) TasksList(w http.ResponseWriter, r *http.Request) {
	store := a.Orchestrator.Store()
	if r.URL.Query().Get("group") == "day" {
		groups := store.GroupByDay()
		out := make([]map[string]any, 0, len(groups))
		for _, g := range groups {
			out = append(out, map[string]any{"date": g.Date, "tasks": toTaskResponses(g.Tasks)})
		}
		a.json(w, http.StatusOK, map[string]any{"groups": out})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"tasks": toTaskResponses(store.List())})
}

func (a *App) TaskGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := a.Orchestrator.Store().Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	a.json(w, http.StatusOK, toTaskResponse(task))
}

func (a *App) TaskDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Orchestrator.Delete(id); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) TaskRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := a.Orchestrator.Retry(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			a.error(w, http.StatusNotFound, "not_found", "task not found")
		case errors.Is(err, domain.ErrTaskNotRetryable):
			a.error(w, http.StatusConflict, "conflict", "only failed tasks can be retried")
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.error(w, http.StatusPaymentRequired, "insufficient_credits", "credit balance does not cover this task")
		default:
			a.error(w, http.StatusInternalServerError, "internal", "retry failed")
		}
		return
	}
	a.json(w, http.StatusAccepted, toTaskResponse(task))
}

func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]int{"balance": a.Ledger.Balance()})
}

func (a *App) submitError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInsufficientCredits) {
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "credit balance does not cover this request")
		return
	}
	a.Logger.Error().Err(err).Msg("handlers: submission failed")
	a.error(w, http.StatusInternalServerError, "internal", "submission failed")
}
