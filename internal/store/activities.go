package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

// InsertActivity appends an activity record. ID and CreatedAt are assigned
// when empty.
func InsertActivity(ctx context.Context, db sqlx.ExtContext, a *model.Activity) error {
	if a.ID == "" {
		a.ID = model.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	if a.Details == nil {
		a.Details = model.JSONMap{}
	}

	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO activities (id, user_id, resource_type, resource_id, action, details, ip, user_agent, created_at)
		 VALUES (:id, :user_id, :resource_type, :resource_id, :action, :details, :ip, :user_agent, :created_at)`, a)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// ActivityFilter selects activity records. UserID is always applied.
type ActivityFilter struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Action       string
	From         *time.Time
	To           *time.Time
	Pagination
}

func (f ActivityFilter) where() (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.ResourceType != "" {
		clauses = append(clauses, "resource_type = ?")
		args = append(args, f.ResourceType)
	}
	if f.ResourceID != "" {
		clauses = append(clauses, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	if f.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, f.Action)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	return strings.Join(clauses, " AND "), args
}

// ListActivities returns one page of matching activity, newest first, and
// the total number of matches. Records inserted within the same instant
// keep their insertion order.
func ListActivities(ctx context.Context, db sqlx.QueryerContext, f ActivityFilter) ([]model.Activity, int, error) {
	where, args := f.where()
	page := f.Pagination.Normalize()

	var total int
	if err := sqlx.GetContext(ctx, db, &total, `SELECT COUNT(*) FROM activities WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting activities: %w", err)
	}

	activities := []model.Activity{}
	err := sqlx.SelectContext(ctx, db, &activities,
		`SELECT id, user_id, resource_type, resource_id, action, details, ip, user_agent, created_at
		 FROM activities WHERE `+where+`
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing activities: %w", err)
	}
	return activities, total, nil
}

// ActivityStats aggregates a user's activity since a point in time.
type ActivityStats struct {
	Total    int                   `json:"total"`
	ByAction []model.ActivityCount `json:"byAction"`
	ByDay    []model.ActivityCount `json:"byDay"`
}

// GetActivityStats counts a user's activity by action and by UTC day.
func GetActivityStats(ctx context.Context, db sqlx.QueryerContext, userID string, since time.Time) (*ActivityStats, error) {
	stats := &ActivityStats{ByAction: []model.ActivityCount{}, ByDay: []model.ActivityCount{}}
	since = since.UTC()

	if err := sqlx.SelectContext(ctx, db, &stats.ByAction,
		`SELECT action AS "key", COUNT(*) AS "count" FROM activities
		 WHERE user_id = ? AND created_at >= ?
		 GROUP BY action ORDER BY "count" DESC, "key"`, userID, since); err != nil {
		return nil, fmt.Errorf("counting activity by action: %w", err)
	}

	if err := sqlx.SelectContext(ctx, db, &stats.ByDay,
		`SELECT substr(created_at, 1, 10) AS "key", COUNT(*) AS "count" FROM activities
		 WHERE user_id = ? AND created_at >= ?
		 GROUP BY "key" ORDER BY "key"`, userID, since); err != nil {
		return nil, fmt.Errorf("counting activity by day: %w", err)
	}

	for _, c := range stats.ByAction {
		stats.Total += c.Count
	}
	return stats, nil
}
