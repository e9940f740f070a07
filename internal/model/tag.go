package model

import "time"

// Tag is a per-user label. Items reference tags by name.
type Tag struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Name        string    `db:"name" json:"name"`
	Color       string    `db:"color" json:"color"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	ItemCount int `db:"item_count" json:"itemCount"`
}

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#6b7280"
