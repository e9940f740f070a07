package model

import "time"

// Activity is an append-only audit record of one user action on one resource.
type Activity struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	ResourceType string    `db:"resource_type" json:"resourceType"`
	ResourceID   string    `db:"resource_id" json:"resourceId"`
	Action       string    `db:"action" json:"action"`
	Details      JSONMap   `db:"details" json:"details"`
	IP           string    `db:"ip" json:"ip,omitempty"`
	UserAgent    string    `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Resource types.
const (
	ResourceItem     = "item"
	ResourceFolder   = "folder"
	ResourceTag      = "tag"
	ResourceUser     = "user"
	ResourceSettings = "settings"
)

// Activity actions.
const (
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionQuantityChange = "quantity_change"
	ActionMove           = "move"
	ActionImageAdd       = "image_add"
	ActionImageRemove    = "image_remove"
	ActionBarcodeChange  = "barcode_change"
	ActionBulkDelete     = "bulk_delete"
	ActionBulkMove       = "bulk_move"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionRegister       = "register"
	ActionPasswordChange = "password_change"
	ActionProfileUpdate  = "profile_update"
	ActionSettingsUpdate = "settings_update"
	ActionSettingsReset  = "settings_reset"
)

// ActivityCount is one bucket of an activity aggregation.
type ActivityCount struct {
	Key   string `db:"key" json:"key"`
	Count int    `db:"count" json:"count"`
}
