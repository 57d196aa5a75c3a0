package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// DetectionModel handles database operations for abuse detections and the
// grouped counts behind the admin statistics surface.
type DetectionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewDetection creates a new detection model.
func NewDetection(db *bun.DB, logger *zap.Logger) *DetectionModel {
	return &DetectionModel{
		db:     db,
		logger: logger.Named("db_detection"),
	}
}

// Create persists a new detection in PENDING status.
func (r *DetectionModel) Create(ctx context.Context, detection *types.VoteAbuseDetection) error {
	now := time.Now()
	detection.ID = uuid.New().String()
	detection.Status = enum.AbuseStatusPending
	detection.CreatedAt = now
	detection.UpdatedAt = now

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(detection).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create detection: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a detection by its ID.
func (r *DetectionModel) GetByID(ctx context.Context, id string) (*types.VoteAbuseDetection, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.VoteAbuseDetection, error) {
		var detection types.VoteAbuseDetection

		err := r.db.NewSelect().
			Model(&detection).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrDetectionNotFound
			}

			return nil, fmt.Errorf("failed to get detection: %w", err)
		}

		return &detection, nil
	})
}

// List returns a filtered, paginated page of detections, newest first.
func (r *DetectionModel) List(
	ctx context.Context, filter types.DetectionFilter, page, limit int,
) ([]*types.VoteAbuseDetection, int, error) {
	type pageResult struct {
		detections []*types.VoteAbuseDetection
		total      int
	}

	result, err := dbretry.Operation(ctx, func(ctx context.Context) (pageResult, error) {
		var detections []*types.VoteAbuseDetection

		q := r.db.NewSelect().Model(&detections)
		if filter.AbuseType != nil {
			q = q.Where("abuse_type = ?", *filter.AbuseType)
		}

		if filter.Severity != nil {
			q = q.Where("severity = ?", *filter.Severity)
		}

		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}

		total, err := q.Count(ctx)
		if err != nil {
			return pageResult{}, fmt.Errorf("failed to count detections: %w", err)
		}

		err = q.Order("created_at DESC").
			Limit(limit).
			Offset((page - 1) * limit).
			Scan(ctx)
		if err != nil {
			return pageResult{}, fmt.Errorf("failed to list detections: %w", err)
		}

		return pageResult{detections: detections, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	return result.detections, result.total, nil
}

// Transition applies an investigation action. The allowed source statuses are
// enforced in the WHERE clause so a concurrent admin cannot double-apply a
// transition; zero rows affected means the state machine rejected the move.
func (r *DetectionModel) Transition(
	ctx context.Context, detection *types.VoteAbuseDetection, next enum.AbuseStatus,
) error {
	if !detection.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, detection.Status, next)
	}

	now := time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		q := r.db.NewUpdate().
			Model((*types.VoteAbuseDetection)(nil)).
			Set("status = ?", next).
			Set("investigator_id = ?", detection.InvestigatorID).
			Set("investigation_notes = ?", detection.InvestigationNotes).
			Set("resolution = ?", detection.Resolution).
			Set("updated_at = ?", now).
			Where("id = ?", detection.ID).
			Where("status = ?", detection.Status)

		if next.Terminal() {
			q = q.Set("resolved_at = ?", now)
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to transition detection: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, detection.Status, next)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if next.Terminal() {
		detection.ResolvedAt = &now
	}

	detection.Status = next
	detection.UpdatedAt = now

	return nil
}

// countGroupedBy runs a grouped count over one column since the cutoff.
func countGroupedBy[T comparable](
	ctx context.Context, db *bun.DB, column string, since time.Time, parse func(string) (T, error),
) (map[T]int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (map[T]int, error) {
		var rows []struct {
			Key   string `bun:"key"`
			Count int    `bun:"count"`
		}

		err := db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			ColumnExpr("? AS key", bun.Ident(column)).
			ColumnExpr("COUNT(*) AS count").
			Where("created_at > ?", since).
			GroupExpr("?", bun.Ident(column)).
			Scan(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("failed to group detections by %s: %w", column, err)
		}

		out := make(map[T]int, len(rows))

		for _, row := range rows {
			key, err := parse(row.Key)
			if err != nil {
				return nil, err
			}

			out[key] = row.Count
		}

		return out, nil
	})
}

// CountByType groups detections by abuse type since the cutoff.
func (r *DetectionModel) CountByType(ctx context.Context, since time.Time) (map[enum.AbuseType]int, error) {
	return countGroupedBy(ctx, r.db, "abuse_type", since, enum.ParseAbuseType)
}

// CountBySeverity groups detections by severity since the cutoff.
func (r *DetectionModel) CountBySeverity(ctx context.Context, since time.Time) (map[enum.AbuseSeverity]int, error) {
	return countGroupedBy(ctx, r.db, "severity", since, enum.ParseAbuseSeverity)
}

// CountByStatus groups detections by status since the cutoff.
func (r *DetectionModel) CountByStatus(ctx context.Context, since time.Time) (map[enum.AbuseStatus]int, error) {
	return countGroupedBy(ctx, r.db, "status", since, enum.ParseAbuseStatus)
}

// CountSince counts all detections after the cutoff.
func (r *DetectionModel) CountSince(ctx context.Context, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count detections: %w", err)
		}

		return count, nil
	})
}

// CountByIPSince counts detections attributed to one IP after the cutoff.
// Used by the coordinated-attack escalation.
func (r *DetectionModel) CountByIPSince(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			Where("ip_address = ?", ipAddress).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count detections by IP: %w", err)
		}

		return count, nil
	})
}

// CountByTypeSince counts same-type detections system-wide after the cutoff.
// Used by the systematic-pattern escalation.
func (r *DetectionModel) CountByTypeSince(
	ctx context.Context, abuseType enum.AbuseType, since time.Time,
) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			Where("abuse_type = ?", abuseType).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count detections by type: %w", err)
		}

		return count, nil
	})
}

// CountByStatusCurrent counts detections currently in a status regardless of age.
func (r *DetectionModel) CountByStatusCurrent(ctx context.Context, status enum.AbuseStatus) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			Where("status = ?", status).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count detections by status: %w", err)
		}

		return count, nil
	})
}

// TopOffenders ranks users by detection count since the cutoff, joining in
// name and email for the admin dashboard.
func (r *DetectionModel) TopOffenders(ctx context.Context, since time.Time, limit int) ([]types.TopOffender, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.TopOffender, error) {
		var offenders []types.TopOffender

		err := r.db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			ColumnExpr("vote_abuse_detection.user_id AS user_id").
			ColumnExpr("u.name AS name").
			ColumnExpr("u.email AS email").
			ColumnExpr("COUNT(*) AS detections").
			Join("JOIN users AS u ON u.id = vote_abuse_detection.user_id").
			Where("vote_abuse_detection.created_at > ?", since).
			GroupExpr("vote_abuse_detection.user_id, u.name, u.email").
			OrderExpr("detections DESC").
			Limit(limit).
			Scan(ctx, &offenders)
		if err != nil {
			return nil, fmt.Errorf("failed to rank top offenders: %w", err)
		}

		return offenders, nil
	})
}

// ResolutionStats aggregates resolved-case data for the health snapshot.
func (r *DetectionModel) ResolutionStats(ctx context.Context, since time.Time) (*types.ResolutionStats, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ResolutionStats, error) {
		var row struct {
			ResolvedCases        int     `bun:"resolved_cases"`
			FalsePositives       int     `bun:"false_positives"`
			TotalResolutionHours float64 `bun:"total_resolution_hours"`
		}

		err := r.db.NewSelect().
			Model((*types.VoteAbuseDetection)(nil)).
			ColumnExpr("COUNT(*) FILTER (WHERE resolved_at IS NOT NULL) AS resolved_cases").
			ColumnExpr("COUNT(*) FILTER (WHERE status = ?) AS false_positives", enum.AbuseStatusFalsePositive).
			ColumnExpr("COALESCE(SUM(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 3600) FILTER (WHERE resolved_at IS NOT NULL), 0) AS total_resolution_hours").
			Where("created_at > ?", since).
			Scan(ctx, &row)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate resolution stats: %w", err)
		}

		return &types.ResolutionStats{
			ResolvedCases:        row.ResolvedCases,
			FalsePositives:       row.FalsePositives,
			TotalResolutionHours: row.TotalResolutionHours,
		}, nil
	})
}
