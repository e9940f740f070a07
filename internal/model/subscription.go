package model

import "time"

// Subscription is a newsletter subscription. It is not tied to a user
// account.
type Subscription struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Name           string     `db:"name" json:"name,omitempty"`
	Status         string     `db:"status" json:"status"`
	Token          string     `db:"token" json:"-"`
	Source         string     `db:"source" json:"source,omitempty"`
	SubscribedAt   time.Time  `db:"subscribed_at" json:"subscribedAt"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribedAt,omitempty"`
}

// Subscription statuses.
const (
	SubscriptionSubscribed   = "subscribed"
	SubscriptionUnsubscribed = "unsubscribed"
)
