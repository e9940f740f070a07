package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

const openAlertStatuses = `('active', 'read')`

// InsertAlert inserts a new alert. ID, status and timestamps are assigned
// when empty.
func InsertAlert(ctx context.Context, db sqlx.ExtContext, a *model.Alert) error {
	ts := now()
	if a.ID == "" {
		a.ID = model.NewID()
	}
	if a.Status == "" {
		a.Status = model.AlertActive
	}
	if a.Priority == "" {
		a.Priority = model.PriorityMedium
	}
	if a.Details == nil {
		a.Details = model.JSONMap{}
	}
	a.CreatedAt = ts
	a.UpdatedAt = ts

	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO alerts (id, user_id, kind, status, priority, title, message, item_id, folder_id,
		                     details, created_at, updated_at)
		 VALUES (:id, :user_id, :kind, :status, :priority, :title, :message, :item_id, :folder_id,
		         :details, :created_at, :updated_at)`, a)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// EnsureItemAlert makes sure exactly one open alert of a's kind exists for
// a.ItemID. An existing open alert is refreshed with a's title, message,
// priority and details; otherwise a is inserted. It reports whether a new
// alert was created.
func EnsureItemAlert(ctx context.Context, db *sqlx.DB, a *model.Alert) (bool, error) {
	if a.ItemID == nil {
		return false, fmt.Errorf("ensuring alert: missing item reference")
	}

	created := false
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		existing, err := getOpenItemAlert(ctx, tx, *a.ItemID, a.Kind)
		if err != nil {
			return err
		}
		if existing == nil {
			err := InsertAlert(ctx, tx, a)
			if err == nil {
				created = true
				return nil
			}
			if !errors.Is(err, ErrDuplicate) {
				return err
			}
			if existing, err = getOpenItemAlert(ctx, tx, *a.ItemID, a.Kind); err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("ensuring alert: open alert vanished")
			}
		}

		ts := now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE alerts SET title = ?, message = ?, priority = ?, details = ?, updated_at = ? WHERE id = ?`,
			a.Title, a.Message, a.Priority, a.Details, ts, existing.ID); err != nil {
			return fmt.Errorf("refreshing alert: %w", err)
		}
		a.ID = existing.ID
		a.Status = existing.Status
		a.CreatedAt = existing.CreatedAt
		a.UpdatedAt = ts
		return nil
	})
	return created, err
}

func getOpenItemAlert(ctx context.Context, db sqlx.QueryerContext, itemID, kind string) (*model.Alert, error) {
	a := &model.Alert{}
	err := sqlx.GetContext(ctx, db, a,
		`SELECT * FROM alerts WHERE item_id = ? AND kind = ? AND status IN `+openAlertStatuses+`
		 ORDER BY created_at LIMIT 1`, itemID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting open alert: %w", err)
	}
	return a, nil
}

// GetOpenItemAlert returns the open alert of the given kind for an item.
func GetOpenItemAlert(ctx context.Context, db sqlx.QueryerContext, itemID, kind string) (*model.Alert, error) {
	return getOpenItemAlert(ctx, db, itemID, kind)
}

// ResolveItemAlerts resolves open alerts referencing an item. When kind is
// empty every kind is resolved. It returns the number of alerts resolved.
func ResolveItemAlerts(ctx context.Context, db sqlx.ExecerContext, itemID, kind string) (int64, error) {
	return resolveAlerts(ctx, db, "item_id", itemID, kind)
}

// ResolveFolderAlerts resolves open folder activity alerts for a folder.
// Item alerts that carry the folder stay open; they follow their item.
func ResolveFolderAlerts(ctx context.Context, db sqlx.ExecerContext, folderID string) (int64, error) {
	return resolveAlerts(ctx, db, "folder_id", folderID, model.AlertFolderActivity)
}

func resolveAlerts(ctx context.Context, db sqlx.ExecerContext, column, id, kind string) (int64, error) {
	ts := now()
	query := `UPDATE alerts SET status = 'resolved', resolved_at = ?, updated_at = ?
	          WHERE ` + column + ` = ? AND status IN ` + openAlertStatuses
	args := []any{ts, ts, id}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("resolving alerts: %w", err)
	}
	return rowsAffected(res), nil
}

// GetAlert returns an alert by ID.
func GetAlert(ctx context.Context, db sqlx.QueryerContext, id string) (*model.Alert, error) {
	if !model.ValidID(id) {
		return nil, nil
	}
	a := &model.Alert{}
	err := sqlx.GetContext(ctx, db, a, `SELECT * FROM alerts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting alert: %w", err)
	}
	return a, nil
}

// AlertFilter selects a user's alerts.
type AlertFilter struct {
	UserID string
	Status string
	Kind   string
	ItemID string
	Pagination
}

// ListAlerts returns one page of a user's alerts, newest first, and the
// total number of matches.
func ListAlerts(ctx context.Context, db sqlx.QueryerContext, f AlertFilter) ([]model.Alert, int, error) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.ItemID != "" {
		clauses = append(clauses, "item_id = ?")
		args = append(args, f.ItemID)
	}
	where := strings.Join(clauses, " AND ")
	page := f.Pagination.Normalize()

	var total int
	if err := sqlx.GetContext(ctx, db, &total, `SELECT COUNT(*) FROM alerts WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting alerts: %w", err)
	}

	alerts := []model.Alert{}
	err := sqlx.SelectContext(ctx, db, &alerts,
		`SELECT * FROM alerts WHERE `+where+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, total, nil
}

// CountUnreadAlerts returns the number of a user's active alerts.
func CountUnreadAlerts(ctx context.Context, db sqlx.QueryerContext, userID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, db, &n,
		`SELECT COUNT(*) FROM alerts WHERE user_id = ? AND status = 'active'`, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread alerts: %w", err)
	}
	return n, nil
}

// MarkAlertRead moves an active alert to read. Alerts in any other status
// are left untouched.
func MarkAlertRead(ctx context.Context, db sqlx.ExecerContext, id string) error {
	ts := now()
	_, err := db.ExecContext(ctx,
		`UPDATE alerts SET status = 'read', read_at = ?, updated_at = ? WHERE id = ? AND status = 'active'`,
		ts, ts, id)
	if err != nil {
		return fmt.Errorf("marking alert read: %w", err)
	}
	return nil
}

// MarkAllAlertsRead marks every active alert of a user read.
func MarkAllAlertsRead(ctx context.Context, db sqlx.ExecerContext, userID string) (int64, error) {
	ts := now()
	res, err := db.ExecContext(ctx,
		`UPDATE alerts SET status = 'read', read_at = ?, updated_at = ? WHERE user_id = ? AND status = 'active'`,
		ts, ts, userID)
	if err != nil {
		return 0, fmt.Errorf("marking alerts read: %w", err)
	}
	return rowsAffected(res), nil
}

// CloseAlert moves an open alert to a terminal status (resolved or
// dismissed). It reports false when the alert was not open.
func CloseAlert(ctx context.Context, db sqlx.ExecerContext, id, status string) (bool, error) {
	var column string
	switch status {
	case model.AlertResolved:
		column = "resolved_at"
	case model.AlertDismissed:
		column = "dismissed_at"
	default:
		return false, fmt.Errorf("closing alert: %q is not a terminal status", status)
	}

	ts := now()
	res, err := db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, `+column+` = ?, updated_at = ?
		 WHERE id = ? AND status IN `+openAlertStatuses, status, ts, ts, id)
	if err != nil {
		return false, fmt.Errorf("closing alert: %w", err)
	}
	return rowsAffected(res) == 1, nil
}

// DeleteAlert deletes an alert.
func DeleteAlert(ctx context.Context, db sqlx.ExecerContext, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAlertsBefore removes alerts created before cutoff, whatever their
// status.
func DeleteAlertsBefore(ctx context.Context, db sqlx.ExecerContext, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting old alerts: %w", err)
	}
	return rowsAffected(res), nil
}
