package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leadfactory/leadscore/internal/domain"
	"github.com/leadfactory/leadscore/internal/rules"
	"github.com/leadfactory/leadscore/internal/scoring"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	facade  *scoring.Facade
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	version string
}

// NewHandler creates a new API handler.
func NewHandler(facade *scoring.Facade, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		facade:  facade,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// ScoreRequest is the request body for POST /score.
type ScoreRequest struct {
	BusinessID  string         `json:"businessId"`
	Vertical    string         `json:"vertical,omitempty"`
	Metrics     map[string]any `json:"metrics"`
	CompletedAt time.Time      `json:"completedAt,omitempty"`
}

// ScoreResponse is the response for POST /score.
type ScoreResponse struct {
	*domain.ScoreResult
	QuickWin string `json:"quickWin,omitempty"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Score handles POST /score requests.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	// Parse request
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate required fields
	if req.BusinessID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "businessId is required",
		})
		return
	}
	if req.Metrics == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "metrics is required",
		})
		return
	}

	assessment := &domain.Assessment{
		BusinessID:  req.BusinessID,
		Vertical:    req.Vertical,
		Metrics:     req.Metrics,
		CompletedAt: req.CompletedAt,
	}

	result, err := h.facade.Score(ctx, assessment)
	if err != nil {
		if errors.Is(err, rules.ErrNoRuleSet) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "no rule set loaded",
			})
			return
		}
		slog.Error("scoring failed", "business_id", req.BusinessID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring failed",
		})
		return
	}

	resp := ScoreResponse{ScoreResult: result}
	if win, ok := result.QuickWin(); ok {
		resp.QuickWin = win
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetScore retrieves a stored score result by ID.
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scoreID := chi.URLParam(r, "id")

	if scoreID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "score id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	result, err := h.repo.GetScoreResult(ctx, scoreID)
	if err != nil {
		slog.Error("failed to get score result", "id", scoreID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "score not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListBusinessScores retrieves score history for one business.
func (h *Handler) ListBusinessScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businessID := chi.URLParam(r, "id")

	if businessID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "business id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	since := time.Time{}
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be RFC3339",
			})
			return
		}
		since = parsed
	}

	results, err := h.repo.ListScoresByBusiness(ctx, businessID, since)
	if err != nil {
		slog.Error("failed to list scores", "business_id", businessID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list scores",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scores": results,
		"count":  len(results),
	})
}

// GetRules returns the currently active rule set.
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	rs := h.facade.ActiveRuleSet()
	if rs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no rule set loaded",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rulesVersion":      rs.SourceChecksum,
		"loadedAt":          rs.LoadedAt,
		"rules":             rs.Rules,
		"tiers":             rs.Tiers,
		"normalizedWeights": rs.NormalizedWeights,
		"count":             len(rs.Rules),
	})
}

// ReloadRules triggers an explicit reload of the rule file.
// A rejected document returns 422 with the full validation error list;
// the previously active rule set stays in effect.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	outcome := h.facade.Reload(r.Context())

	if !outcome.Success {
		writeJSON(w, http.StatusUnprocessableEntity, outcome)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// ListReloadAudits returns recent reload attempts, newest first.
func (h *Handler) ListReloadAudits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	audits, err := h.repo.ListReloadAudits(ctx, limit)
	if err != nil {
		slog.Error("failed to list reload audits", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list reload audits",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"audits": audits,
		"count":  len(audits),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept scoring traffic.
// Not ready until a validated rule set has been published.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.facade.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
			"error": "no rule set loaded",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
