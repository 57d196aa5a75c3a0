package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/promptcraft/voteguard/internal/database"
	"github.com/promptcraft/voteguard/internal/database/service"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/rest/middleware/auth"
	restTypes "github.com/promptcraft/voteguard/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// Detection-rate percentages that flip the dashboard status.
	degradedDetectionRate = 5.0
	criticalDetectionRate = 15.0
)

// timeRanges maps the statistics query parameter to lookback windows.
var timeRanges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// AbuseHandler handles the admin abuse-monitoring endpoints.
type AbuseHandler struct {
	db     database.Client
	logger *zap.Logger
}

// NewAbuseHandler creates a new abuse handler.
func NewAbuseHandler(db database.Client, logger *zap.Logger) *AbuseHandler {
	return &AbuseHandler{
		db:     db,
		logger: logger,
	}
}

// GetSystemHealth reports live pipeline health plus a derived status for the
// admin dashboard.
func (h *AbuseHandler) GetSystemHealth(w http.ResponseWriter, req bunrouter.Request) error {
	health, err := h.db.Service().Monitor().GetSystemHealth(req.Context())
	if err != nil {
		h.logger.Error("Failed to get system health", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, restTypes.SystemHealthResponse{
		SystemHealth: *health,
		SystemStatus: deriveStatus(health.SystemLoad.AbuseDetectionRate),
		LastUpdated:  time.Now().UTC(),
	})
}

// GetStatistics aggregates abuse statistics over the requested time range.
func (h *AbuseHandler) GetStatistics(w http.ResponseWriter, req bunrouter.Request) error {
	rangeParam := req.URL.Query().Get("timeRange")
	if rangeParam == "" {
		rangeParam = "24h"
	}

	lookback, ok := timeRanges[rangeParam]
	if !ok {
		http.Error(w, "Invalid time range", http.StatusBadRequest)
		return nil
	}

	stats, err := h.db.Service().Monitor().GetAbuseStatistics(req.Context(), lookback)
	if err != nil {
		h.logger.Error("Failed to get abuse statistics", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, stats)
}

// ListDetections returns a filtered, paginated page of detections.
func (h *AbuseHandler) ListDetections(w http.ResponseWriter, req bunrouter.Request) error {
	query := req.URL.Query()

	page := parsePositiveInt(query.Get("page"), 1)

	limit := parsePositiveInt(query.Get("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter, err := parseDetectionFilter(query.Get("type"), query.Get("severity"), query.Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	detections, total, err := h.db.Model().Detection().List(req.Context(), filter, page, limit)
	if err != nil {
		h.logger.Error("Failed to list detections", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, restTypes.DetectionListResponse{
		Detections: detections,
		Pagination: types.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// Investigate applies an admin action to a detection.
func (h *AbuseHandler) Investigate(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.InvestigateRequest
	if err := sonic.ConfigDefault.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil
	}

	if body.DetectionID == "" {
		http.Error(w, "Missing detection ID", http.StatusBadRequest)
		return nil
	}

	investigator := auth.FromContext(req.Context())
	if investigator == nil {
		http.Error(w, "Missing API key", http.StatusUnauthorized)
		return nil
	}

	detection, err := h.db.Service().Monitor().InvestigateAbuse(
		req.Context(), body.DetectionID, investigator.ID, &service.InvestigationRequest{
			Action:     body.Action,
			Notes:      body.Notes,
			Resolution: body.Resolution,
			Evidence:   body.Evidence,
		})
	if err != nil {
		return h.investigateError(w, body.DetectionID, err)
	}

	return bunrouter.JSON(w, detection)
}

// investigateError maps investigation failures to their status codes.
func (h *AbuseHandler) investigateError(w http.ResponseWriter, detectionID string, err error) error {
	switch {
	case errors.Is(err, enum.ErrUnknownEnumValue), errors.Is(err, types.ErrResolutionRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, types.ErrDetectionNotFound):
		http.Error(w, "Detection not found", http.StatusNotFound)
	case errors.Is(err, types.ErrInvalidTransition):
		http.Error(w, "Invalid status transition", http.StatusConflict)
	default:
		h.logger.Error("Failed to investigate detection",
			zap.String("detectionID", detectionID),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}

	return nil
}

// deriveStatus classifies the abuse detection rate for the dashboard.
func deriveStatus(detectionRate float64) restTypes.SystemStatus {
	switch {
	case detectionRate >= criticalDetectionRate:
		return restTypes.SystemStatusCritical
	case detectionRate >= degradedDetectionRate:
		return restTypes.SystemStatusDegraded
	default:
		return restTypes.SystemStatusHealthy
	}
}

// parseDetectionFilter validates the optional enum query parameters.
func parseDetectionFilter(typeParam, severityParam, statusParam string) (types.DetectionFilter, error) {
	var filter types.DetectionFilter

	if typeParam != "" {
		abuseType, err := enum.ParseAbuseType(typeParam)
		if err != nil {
			return filter, err
		}

		filter.AbuseType = &abuseType
	}

	if severityParam != "" {
		severity, err := enum.ParseAbuseSeverity(severityParam)
		if err != nil {
			return filter, err
		}

		filter.Severity = &severity
	}

	if statusParam != "" {
		status, err := enum.ParseAbuseStatus(statusParam)
		if err != nil {
			return filter, err
		}

		filter.Status = &status
	}

	return filter, nil
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}

	return value
}
