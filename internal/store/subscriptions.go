package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

// Subscribe adds an email to the newsletter, or re-activates a previous
// subscription. It reports whether the address was already subscribed.
func Subscribe(ctx context.Context, db *sqlx.DB, email, name, source string) (*model.Subscription, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		sub     *model.Subscription
		already bool
	)
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		existing, err := getSubscription(ctx, tx, `email = ?`, email)
		if err != nil {
			return err
		}
		ts := now()
		if existing != nil {
			sub = existing
			if existing.Status == model.SubscriptionSubscribed {
				already = true
				return nil
			}
			sub.Status = model.SubscriptionSubscribed
			sub.SubscribedAt = ts
			sub.UnsubscribedAt = nil
			if name != "" {
				sub.Name = name
			}
			_, err := tx.ExecContext(ctx,
				`UPDATE subscriptions SET status = ?, name = ?, subscribed_at = ?, unsubscribed_at = NULL WHERE id = ?`,
				sub.Status, sub.Name, ts, sub.ID)
			if err != nil {
				return fmt.Errorf("resubscribing: %w", err)
			}
			return nil
		}

		sub = &model.Subscription{
			ID:           model.NewID(),
			Email:        email,
			Name:         name,
			Status:       model.SubscriptionSubscribed,
			Token:        uuid.NewString(),
			Source:       source,
			SubscribedAt: ts,
		}
		_, err = sqlx.NamedExecContext(ctx, tx,
			`INSERT INTO subscriptions (id, email, name, status, token, source, subscribed_at)
			 VALUES (:id, :email, :name, :status, :token, :source, :subscribed_at)`, sub)
		if err != nil {
			return fmt.Errorf("creating subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return sub, already, nil
}

// Unsubscribe ends the subscription matching email or, when email is
// empty, token.
func Unsubscribe(ctx context.Context, db sqlx.ExtContext, email, token string) (*model.Subscription, error) {
	var sub *model.Subscription
	var err error
	if email != "" {
		sub, err = getSubscription(ctx, db, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
	} else {
		sub, err = getSubscription(ctx, db, `token = ?`, token)
	}
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	if sub.Status == model.SubscriptionUnsubscribed {
		return sub, nil
	}

	ts := now()
	if _, err := db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, unsubscribed_at = ? WHERE id = ?`,
		model.SubscriptionUnsubscribed, ts, sub.ID); err != nil {
		return nil, fmt.Errorf("unsubscribing: %w", err)
	}
	sub.Status = model.SubscriptionUnsubscribed
	sub.UnsubscribedAt = &ts
	return sub, nil
}

func getSubscription(ctx context.Context, db sqlx.QueryerContext, where string, arg any) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := sqlx.GetContext(ctx, db, sub, `SELECT * FROM subscriptions WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns one page of subscriptions, optionally filtered
// by status, newest first.
func ListSubscriptions(ctx context.Context, db sqlx.QueryerContext, status string, page Pagination) ([]model.Subscription, int, error) {
	where := "1 = 1"
	args := []any{}
	if status != "" {
		where = "status = ?"
		args = append(args, status)
	}
	page = page.Normalize()

	var total int
	if err := sqlx.GetContext(ctx, db, &total, `SELECT COUNT(*) FROM subscriptions WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting subscriptions: %w", err)
	}

	subs := []model.Subscription{}
	err := sqlx.SelectContext(ctx, db, &subs,
		`SELECT * FROM subscriptions WHERE `+where+` ORDER BY subscribed_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing subscriptions: %w", err)
	}
	return subs, total, nil
}

// SubscriptionStats counts subscriptions by status.
type SubscriptionStats struct {
	Total        int `db:"total" json:"total"`
	Subscribed   int `db:"subscribed" json:"subscribed"`
	Unsubscribed int `db:"unsubscribed" json:"unsubscribed"`
}

// GetSubscriptionStats counts subscriptions by status.
func GetSubscriptionStats(ctx context.Context, db sqlx.QueryerContext) (*SubscriptionStats, error) {
	stats := &SubscriptionStats{}
	err := sqlx.GetContext(ctx, db, stats,
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(status = 'subscribed'), 0) AS subscribed,
		        COALESCE(SUM(status = 'unsubscribed'), 0) AS unsubscribed
		 FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("counting subscriptions: %w", err)
	}
	return stats, nil
}
