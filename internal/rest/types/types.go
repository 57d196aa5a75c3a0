// Package types defines the REST API request and response payloads.
package types

import (
	"time"

	"github.com/promptcraft/voteguard/internal/database/types"
)

// SystemStatus classifies overall pipeline health for the admin dashboard.
type SystemStatus string

const (
	SystemStatusHealthy  SystemStatus = "healthy"
	SystemStatusDegraded SystemStatus = "degraded"
	SystemStatusCritical SystemStatus = "critical"
)

// VoteRequest is the body of POST /v1/prompts/:id/vote.
type VoteRequest struct {
	Value int `json:"value"`
}

// VoteResponse reports the persisted vote and the reward outcome.
type VoteResponse struct {
	ID             uint64 `json:"id,omitempty"`
	UserID         uint64 `json:"userId"`
	PromptID       uint64 `json:"promptId"`
	Value          int    `json:"value,omitempty"`
	Removed        bool   `json:"removed,omitempty"`
	CreditsAwarded int    `json:"creditsAwarded"`
	AbuseDetected  bool   `json:"abuseDetected"`
	Reason         string `json:"reason,omitempty"`
}

// SystemHealthResponse is the body of GET /v1/admin/abuse/system-health.
type SystemHealthResponse struct {
	types.SystemHealth

	SystemStatus SystemStatus `json:"systemStatus"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// DetectionListResponse is the body of GET /v1/admin/abuse/detections.
type DetectionListResponse struct {
	Detections []*types.VoteAbuseDetection `json:"detections"`
	Pagination types.Pagination            `json:"pagination"`
}

// InvestigateRequest is the body of POST /v1/admin/abuse/investigate.
type InvestigateRequest struct {
	DetectionID string         `json:"detectionId"`
	Action      string         `json:"action"`
	Notes       string         `json:"notes,omitempty"`
	Resolution  string         `json:"resolution,omitempty"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}
