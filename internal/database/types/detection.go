package types

import (
	"errors"
	"time"

	"github.com/promptcraft/voteguard/internal/database/types/enum"
)

var (
	// ErrDetectionNotFound indicates a lookup for a detection that does not exist.
	ErrDetectionNotFound = errors.New("abuse detection not found")
	// ErrInvalidTransition indicates an investigation action that the status
	// state machine does not permit, such as re-opening a resolved case.
	ErrInvalidTransition = errors.New("invalid detection status transition")
	// ErrResolutionRequired indicates a resolve action without a resolution sub-reason.
	ErrResolutionRequired = errors.New("resolution is required to resolve a detection")
)

// VoteAbuseDetection classifies why a vote or reward was rejected. Rows are
// never deleted; only the status and investigation fields mutate.
type VoteAbuseDetection struct {
	ID         string             `bun:",pk"        json:"id"` // UUID
	UserID     uint64             `bun:",notnull"   json:"userId"`
	PromptID   uint64             `bun:",notnull"   json:"promptId"`
	AbuseType  enum.AbuseType     `bun:",notnull"   json:"abuseType"`
	Severity   enum.AbuseSeverity `bun:",notnull"   json:"severity"`
	Status     enum.AbuseStatus   `bun:",notnull"   json:"status"`
	Reason     string             `bun:",notnull"   json:"reason"`
	IPAddress  string             `bun:",notnull"   json:"-"`
	Evidence   Evidence           `bun:"type:jsonb" json:"evidence"`
	RiskScore  float64            `bun:",notnull"   json:"riskScore"`
	CreatedAt  time.Time          `bun:",notnull"   json:"createdAt"`
	UpdatedAt  time.Time          `bun:",notnull"   json:"updatedAt"`
	ResolvedAt *time.Time         `bun:",nullzero"  json:"resolvedAt,omitempty"`

	// Investigation fields, written by admin actions only.
	InvestigatorID     uint64 `bun:",nullzero" json:"investigatorId,omitempty"`
	InvestigationNotes string `bun:",type:text" json:"investigationNotes,omitempty"`
	Resolution         string `bun:",nullzero" json:"resolution,omitempty"`
}

// Evidence is the typed payload persisted with a detection, keyed by the
// abuse type that produced it. Exactly one branch is set.
type Evidence struct {
	SelfVote       *SelfVoteEvidence       `json:"selfVote,omitempty"`
	AccountAge     *AccountAgeEvidence     `json:"accountAge,omitempty"`
	RateLimit      *RateLimitEvidence      `json:"rateLimit,omitempty"`
	IPCluster      *IPClusterEvidence      `json:"ipCluster,omitempty"`
	Coordinated    *CoordinatedEvidence    `json:"coordinated,omitempty"`
	Temporal       *TemporalEvidence       `json:"temporal,omitempty"`
	AuthorAffinity *AuthorAffinityEvidence `json:"authorAffinity,omitempty"`
	Device         *DeviceEvidence         `json:"device,omitempty"`
}

// SelfVoteEvidence records a vote on the voter's own prompt.
type SelfVoteEvidence struct {
	PromptID uint64 `json:"promptId"`
}

// AccountAgeEvidence records a voter account younger than the minimum age.
type AccountAgeEvidence struct {
	AccountAgeHours float64 `json:"accountAgeHours"`
	MinAgeHours     float64 `json:"minAgeHours"`
}

// RateLimitEvidence records an exceeded vote-rate cap.
type RateLimitEvidence struct {
	Count         int `json:"count"`
	WindowSeconds int `json:"windowSeconds"`
	Threshold     int `json:"threshold"`
}

// IPClusterEvidence records excessive vote volume from a single IP.
type IPClusterEvidence struct {
	IPAddress string `json:"ipAddress"`
	Count     int    `json:"count"`
	Threshold int    `json:"threshold"`
}

// CoordinatedEvidence records too many distinct voters behind one IP.
type CoordinatedEvidence struct {
	IPAddress     string `json:"ipAddress"`
	DistinctUsers int    `json:"distinctUsers"`
	Threshold     int    `json:"threshold"`
}

// TemporalEvidence records bot-like vote spacing.
type TemporalEvidence struct {
	IntervalsSeconds   []float64 `json:"intervalsSeconds"`
	MinIntervalSeconds float64   `json:"minIntervalSeconds"`
}

// AuthorAffinityEvidence records repeated targeting of one author.
type AuthorAffinityEvidence struct {
	AuthorID  uint64 `json:"authorId"`
	Count     int    `json:"count"`
	Threshold int    `json:"threshold"`
}

// DeviceEvidence records too many distinct users behind one device signature.
type DeviceEvidence struct {
	UserAgent     string `json:"userAgent"`
	DistinctUsers int    `json:"distinctUsers"`
	Threshold     int    `json:"threshold"`
}

// DetectionFilter narrows admin detection listings.
type DetectionFilter struct {
	AbuseType *enum.AbuseType
	Severity  *enum.AbuseSeverity
	Status    *enum.AbuseStatus
}

// Pagination describes a page of admin listing results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
