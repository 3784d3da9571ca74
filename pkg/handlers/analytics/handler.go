package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tokenatlas/tokenatlas/pkg/adapters"
	"github.com/tokenatlas/tokenatlas/pkg/models/api"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	analyticssvc "github.com/tokenatlas/tokenatlas/pkg/services/analytics"
	"github.com/tokenatlas/tokenatlas/pkg/services/filters"
	"github.com/tokenatlas/tokenatlas/pkg/services/ingest"
	"github.com/tokenatlas/tokenatlas/pkg/store/usagelog"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100
	defaultLimit   = 10
)

type Handler struct {
	analytics analyticssvc.Controller
	recorder  *ingest.Recorder
}

func NewHandler(controller analyticssvc.Controller, recorder *ingest.Recorder) *Handler {
	return &Handler{analytics: controller, recorder: recorder}
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.GetSummary(r.Context(), rawFilters(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, report)
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.GetTrend(r.Context(), rawFilters(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, report)
}

func (h *Handler) GetModelDistribution(w http.ResponseWriter, r *http.Request) {
	h.getDistribution(w, r, analyticssvc.DimensionModel)
}

func (h *Handler) GetEndpointDistribution(w http.ResponseWriter, r *http.Request) {
	h.getDistribution(w, r, analyticssvc.DimensionEndpoint)
}

func (h *Handler) getDistribution(w http.ResponseWriter, r *http.Request, dim analyticssvc.Dimension) {
	metric := analyticssvc.MetricTokens
	switch r.URL.Query().Get("metric") {
	case "", "tokens":
	case "cost":
		metric = analyticssvc.MetricCost
	default:
		h.respondError(w, r, domain.NewInvalidFilterError("metric", "must be one of tokens, cost"))
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, r, domain.NewInvalidFilterError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	report, err := h.analytics.GetDistribution(r.Context(), rawFilters(r), dim, metric, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, report)
}

func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.GetRecommendations(r.Context(), rawFilters(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, report)
}

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := usagelog.Page{Number: 1, Size: defaultPerPage}
	if raw := query.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, r, domain.NewInvalidFilterError("page", "must be a positive integer"))
			return
		}
		page.Number = n
	}
	if raw := query.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, r, domain.NewInvalidFilterError("per_page", "must be a positive integer"))
			return
		}
		page.Size = min(n, maxPerPage)
	}

	sort := usagelog.Sort{Field: "timestamp", Desc: true}
	if raw := query.Get("sort_by"); raw != "" {
		if !usagelog.SortableField(raw) {
			h.respondError(w, r, domain.NewInvalidFilterError("sort_by",
				"must be one of timestamp, total_cost, total_tokens, latency_ms"))
			return
		}
		sort.Field = raw
	}
	if raw := query.Get("sort_desc"); raw != "" {
		sort.Desc = raw == "true"
	}

	logs, err := h.analytics.GetLogs(r.Context(), rawFilters(r), page, sort)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, logs)
}

func (h *Handler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.analytics.GetFilterOptions(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, options)
}

func (h *Handler) LogUsage(w http.ResponseWriter, r *http.Request) {
	var req api.LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, errorBody{Error: "invalid JSON payload"})
		return
	}

	ev, err := h.recorder.Record(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrPricingNotFound):
			h.respondJSON(w, r, http.StatusNotFound, errorBody{Error: err.Error()})
		default:
			h.respondError(w, r, err)
		}
		return
	}

	h.respondJSON(w, r, http.StatusCreated, api.LogResponse{
		Message: "token usage logged successfully",
		Log:     adapters.MapStoreEventToApi(ev),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *domain.InvalidFilterError
	if errors.As(err, &invalid) {
		h.respondJSON(w, r, http.StatusBadRequest, errorBody{Error: invalid.Message, Field: invalid.Field})
		return
	}
	h.respondJSON(w, r, http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	logger := zerolog.Ctx(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// rawFilters lifts the filter query parameters, both historical spellings
// included, into the normalizer's input shape.
func rawFilters(r *http.Request) filters.Raw {
	query := r.URL.Query()
	return filters.Raw{
		StartDate:   query.Get("start_date"),
		EndDate:     query.Get("end_date"),
		Model:       query["model"],
		Models:      query["models"],
		Endpoint:    query["endpoint"],
		Endpoints:   query["endpoints"],
		Provider:    query["provider"],
		Providers:   query["providers"],
		Granularity: query.Get("granularity"),
	}
}
