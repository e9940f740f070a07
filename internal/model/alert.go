package model

import "time"

// Alert is a derived, status-bearing record of a condition needing
// attention.
type Alert struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	Kind        string     `db:"kind" json:"kind"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	Title       string     `db:"title" json:"title"`
	Message     string     `db:"message" json:"message"`
	ItemID      *string    `db:"item_id" json:"itemId,omitempty"`
	FolderID    *string    `db:"folder_id" json:"folderId,omitempty"`
	Details     JSONMap    `db:"details" json:"details"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	ReadAt      *time.Time `db:"read_at" json:"readAt,omitempty"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
	DismissedAt *time.Time `db:"dismissed_at" json:"dismissedAt,omitempty"`
}

// Alert kinds.
const (
	AlertLowQuantity    = "low_quantity"
	AlertItemActivity   = "item_activity"
	AlertFolderActivity = "folder_activity"
	AlertBulkOperation  = "bulk_operation"
	AlertSystem         = "system"
)

// Alert statuses. Active and read alerts are open; resolved and dismissed
// are terminal.
const (
	AlertActive    = "active"
	AlertRead      = "read"
	AlertResolved  = "resolved"
	AlertDismissed = "dismissed"
)

// Alert priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidAlertKind reports whether kind is a known alert kind.
func ValidAlertKind(kind string) bool {
	switch kind {
	case AlertLowQuantity, AlertItemActivity, AlertFolderActivity, AlertBulkOperation, AlertSystem:
		return true
	}
	return false
}

// ValidAlertStatus reports whether status is a known alert status.
func ValidAlertStatus(status string) bool {
	switch status {
	case AlertActive, AlertRead, AlertResolved, AlertDismissed:
		return true
	}
	return false
}

// Open reports whether the alert is still active or read.
func (a *Alert) Open() bool {
	return a.Status == AlertActive || a.Status == AlertRead
}
