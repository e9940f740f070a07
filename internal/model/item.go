package model

import "time"

// Item is the primary inventory unit, owned by exactly one user.
type Item struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"userId"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	Quantity       int            `db:"quantity" json:"quantity"`
	Price          float64        `db:"price" json:"price"`
	MinLevel       int            `db:"min_level" json:"minLevel"`
	Unit           string         `db:"unit" json:"unit,omitempty"`
	Tags           StringList     `db:"tags" json:"tags"`
	FolderID       *string        `db:"folder_id" json:"folderId"`
	Images         StringList     `db:"images" json:"images"`
	Barcode        string         `db:"barcode" json:"barcode,omitempty"`
	BarcodeFormat  string         `db:"barcode_format" json:"barcodeFormat,omitempty"`
	BarcodeHistory BarcodeHistory `db:"barcode_history" json:"barcodeHistory"`
	Version        int64          `db:"version" json:"version"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// LowStock reports whether quantity is at or below the reorder threshold.
func (i *Item) LowStock() bool {
	return IsLowStock(i.Quantity, i.MinLevel)
}

// IsLowStock is the low-quantity condition.
func IsLowStock(quantity, minLevel int) bool {
	return quantity <= minLevel
}

// Value returns quantity times unit price.
func (i *Item) Value() float64 {
	return float64(i.Quantity) * i.Price
}

// Clone returns a deep copy, so event payloads do not alias handler state.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Tags = append(StringList{}, i.Tags...)
	cp.Images = append(StringList{}, i.Images...)
	cp.BarcodeHistory = append(BarcodeHistory{}, i.BarcodeHistory...)
	if i.FolderID != nil {
		f := *i.FolderID
		cp.FolderID = &f
	}
	return &cp
}

// FolderIDValue returns the folder ID or "" for root items.
func (i *Item) FolderIDValue() string {
	if i.FolderID == nil {
		return ""
	}
	return *i.FolderID
}

// Barcode formats accepted on input.
var BarcodeFormats = map[string]bool{
	"":        true,
	"EAN13":   true,
	"EAN8":    true,
	"UPC":     true,
	"CODE128": true,
	"CODE39":  true,
	"QR":      true,
}
