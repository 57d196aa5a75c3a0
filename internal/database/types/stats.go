package types

import (
	"time"

	"github.com/promptcraft/voteguard/internal/database/types/enum"
)

// AbuseStatistics is the admin statistics aggregation over a time range.
type AbuseStatistics struct {
	TotalDetections int                        `json:"totalDetections"`
	ByType          map[enum.AbuseType]int     `json:"byType"`
	BySeverity      map[enum.AbuseSeverity]int `json:"bySeverity"`
	ByStatus        map[enum.AbuseStatus]int   `json:"byStatus"`
	RecentTrends    AbuseTrends                `json:"recentTrends"`
	TopOffenders    []TopOffender              `json:"topOffenders"`
}

// AbuseTrends holds rolling detection counts.
type AbuseTrends struct {
	Last7Days  int `json:"last7d"`
	Last30Days int `json:"last30d"`
}

// TopOffender ranks a user by detection count.
type TopOffender struct {
	UserID     uint64 `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Detections int    `json:"detections"`
}

// SystemHealth is the admin health snapshot. Every rate is computed with a
// zero-denominator guard so empty systems report 0 rather than NaN.
type SystemHealth struct {
	ActiveAbuseCases      int        `json:"activeAbuseCases"`
	PendingInvestigations int        `json:"pendingInvestigations"`
	FalsePositiveRate     float64    `json:"falsePositiveRate"`
	AverageResolutionTime float64    `json:"averageResolutionTime"` // Hours
	SystemLoad            SystemLoad `json:"systemLoad"`
}

// SystemLoad holds point-in-time volume rates.
type SystemLoad struct {
	VotesPerHour       int     `json:"votesPerHour"`
	RewardsPerHour     int     `json:"rewardsPerHour"`
	AbuseDetectionRate float64 `json:"abuseDetectionRate"` // Percentage of recent votes flagged
}

// ResolutionStats backs the false-positive and resolution-time health fields.
type ResolutionStats struct {
	ResolvedCases        int
	FalsePositives       int
	TotalResolutionHours float64
}

// HourlyStats is a persisted snapshot of system volume, written by the
// report worker once per hour.
type HourlyStats struct {
	Timestamp  time.Time `bun:",pk"      json:"timestamp"`
	Votes      int64     `bun:",notnull" json:"votes"`
	Rewards    int64     `bun:",notnull" json:"rewards"`
	Detections int64     `bun:",notnull" json:"detections"`
}
