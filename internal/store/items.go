package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

// maxVersionRetries bounds optimistic retries for absolute quantity sets.
const maxVersionRetries = 3

// RootFolder as ItemFilter.FolderID selects items that are in no folder.
const RootFolder = "root"

// ItemFilter selects items for listing.
type ItemFilter struct {
	UserID   string
	FolderID string
	Tag      string
	Query    string
	LowStock bool
	Sort     string
	Order    string
	Pagination
}

var itemSortColumns = map[string]string{
	"name":      "name COLLATE NOCASE",
	"quantity":  "quantity",
	"price":     "price",
	"minLevel":  "min_level",
	"value":     "quantity * price",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ValidItemSort reports whether sort is an accepted sort key.
func ValidItemSort(sort string) bool {
	_, ok := itemSortColumns[sort]
	return sort == "" || ok
}

// CreateItem inserts a new item. ID, version and timestamps are assigned.
func CreateItem(ctx context.Context, db sqlx.ExtContext, item *model.Item) error {
	ts := now()
	item.ID = model.NewID()
	item.Version = 1
	item.CreatedAt = ts
	item.UpdatedAt = ts
	if item.Tags == nil {
		item.Tags = model.StringList{}
	}
	if item.Images == nil {
		item.Images = model.StringList{}
	}
	if item.BarcodeHistory == nil {
		item.BarcodeHistory = model.BarcodeHistory{}
	}

	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO items (id, user_id, name, description, quantity, price, min_level, unit, tags,
		                    folder_id, images, barcode, barcode_format, barcode_history, version,
		                    created_at, updated_at)
		 VALUES (:id, :user_id, :name, :description, :quantity, :price, :min_level, :unit, :tags,
		         :folder_id, :images, :barcode, :barcode_format, :barcode_history, :version,
		         :created_at, :updated_at)`, item)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db sqlx.QueryerContext, id string) (*model.Item, error) {
	if !model.ValidID(id) {
		return nil, nil
	}
	item := &model.Item{}
	err := sqlx.GetContext(ctx, db, item, `SELECT * FROM items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemOwner returns the owner of an item, or "" if it does not exist.
func GetItemOwner(ctx context.Context, db sqlx.QueryerContext, id string) (string, error) {
	return getOwner(ctx, db, "items", id)
}

func getOwner(ctx context.Context, db sqlx.QueryerContext, table, id string) (string, error) {
	if !model.ValidID(id) {
		return "", nil
	}
	var owner string
	err := sqlx.GetContext(ctx, db, &owner, `SELECT user_id FROM `+table+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting %s owner: %w", strings.TrimSuffix(table, "s"), err)
	}
	return owner, nil
}

// GetItemByBarcode finds a user's item by its current or a former barcode.
func GetItemByBarcode(ctx context.Context, db sqlx.QueryerContext, userID, code string) (*model.Item, error) {
	item := &model.Item{}
	err := sqlx.GetContext(ctx, db, item,
		`SELECT * FROM items
		 WHERE user_id = ? AND (barcode = ? OR EXISTS (
		     SELECT 1 FROM json_each(items.barcode_history) h
		     WHERE json_extract(h.value, '$.barcode') = ?))
		 ORDER BY barcode = ? DESC, updated_at DESC
		 LIMIT 1`, userID, code, code, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by barcode: %w", err)
	}
	return item, nil
}

func (f ItemFilter) where() (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}

	switch f.FolderID {
	case "":
	case RootFolder:
		clauses = append(clauses, "folder_id IS NULL")
	default:
		clauses = append(clauses, "folder_id = ?")
		args = append(args, f.FolderID)
	}
	if f.Tag != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(items.tags) t WHERE t.value = ?)")
		args = append(args, f.Tag)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		clauses = append(clauses, "(name LIKE ? OR description LIKE ? OR barcode LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.LowStock {
		clauses = append(clauses, "quantity <= min_level")
	}
	return strings.Join(clauses, " AND "), args
}

func (f ItemFilter) orderBy() string {
	col, ok := itemSortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir + ", id " + dir
}

// ListItems returns one page of items matching the filter and the total
// number of matches.
func ListItems(ctx context.Context, db sqlx.QueryerContext, f ItemFilter) ([]model.Item, int, error) {
	where, args := f.where()
	page := f.Pagination.Normalize()

	var total int
	if err := sqlx.GetContext(ctx, db, &total, `SELECT COUNT(*) FROM items WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	items := []model.Item{}
	err := sqlx.SelectContext(ctx, db, &items,
		`SELECT * FROM items WHERE `+where+` ORDER BY `+f.orderBy()+` LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	return items, total, nil
}

// UpdateItem writes every mutable field of item, provided the stored
// version still matches item.Version. On success the version is bumped.
func UpdateItem(ctx context.Context, db sqlx.ExtContext, item *model.Item) error {
	ts := now()
	res, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, quantity = ?, price = ?, min_level = ?, unit = ?,
		        tags = ?, folder_id = ?, images = ?, barcode = ?, barcode_format = ?,
		        barcode_history = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		item.Name, item.Description, item.Quantity, item.Price, item.MinLevel, item.Unit,
		item.Tags, item.FolderID, item.Images, item.Barcode, item.BarcodeFormat,
		item.BarcodeHistory, ts, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if rowsAffected(res) == 0 {
		existing, err := GetItem(ctx, db, item.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	item.Version++
	item.UpdatedAt = ts
	return nil
}

// DeleteItem deletes an item.
func DeleteItem(ctx context.Context, db sqlx.ExecerContext, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustItemQuantity adds delta to an item's quantity in a single statement,
// so concurrent adjustments never lose an update. A change that would take
// the quantity below zero fails with ErrNegativeQuantity. It returns the
// updated item and the quantity it had immediately before this change.
func AdjustItemQuantity(ctx context.Context, db *sqlx.DB, id string, delta int) (*model.Item, int, error) {
	var (
		item     *model.Item
		previous int
	)
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		var next int
		err := tx.QueryRowxContext(ctx,
			`UPDATE items SET quantity = quantity + ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND quantity + ? >= 0
			 RETURNING quantity`, delta, now(), id, delta).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			existing, err := GetItem(ctx, tx, id)
			if err != nil {
				return err
			}
			if existing == nil {
				return ErrNotFound
			}
			return ErrNegativeQuantity
		}
		if err != nil {
			return fmt.Errorf("adjusting item quantity: %w", err)
		}
		previous = next - delta
		item, err = GetItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return item, previous, nil
}

// SetItemQuantity sets an absolute quantity using an optimistic version
// check, retrying a bounded number of times when another writer wins.
func SetItemQuantity(ctx context.Context, db sqlx.ExtContext, id string, quantity int) (*model.Item, int, error) {
	if quantity < 0 {
		return nil, 0, ErrNegativeQuantity
	}
	for range maxVersionRetries {
		current, err := GetItem(ctx, db, id)
		if err != nil {
			return nil, 0, err
		}
		if current == nil {
			return nil, 0, ErrNotFound
		}

		ts := now()
		res, err := db.ExecContext(ctx,
			`UPDATE items SET quantity = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`, quantity, ts, id, current.Version)
		if err != nil {
			return nil, 0, fmt.Errorf("setting item quantity: %w", err)
		}
		if rowsAffected(res) == 1 {
			updated := current.Clone()
			updated.Quantity = quantity
			updated.Version++
			updated.UpdatedAt = ts
			return updated, current.Quantity, nil
		}
	}
	return nil, 0, ErrVersionConflict
}

// DeleteItems deletes the listed items owned by userID and returns the
// items that were deleted. IDs that are malformed or not owned are skipped.
func DeleteItems(ctx context.Context, db *sqlx.DB, userID string, ids []string) ([]model.Item, error) {
	ids = validIDs(ids)
	deleted := []model.Item{}
	if len(ids) == 0 {
		return deleted, nil
	}

	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(`SELECT * FROM items WHERE user_id = ? AND id IN (?)`, userID, ids)
		if err != nil {
			return fmt.Errorf("building bulk delete query: %w", err)
		}
		if err := tx.SelectContext(ctx, &deleted, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("selecting items to delete: %w", err)
		}
		if len(deleted) == 0 {
			return nil
		}

		query, args, err = sqlx.In(`DELETE FROM items WHERE user_id = ? AND id IN (?)`, userID, ids)
		if err != nil {
			return fmt.Errorf("building bulk delete query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("bulk deleting items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// MoveItems moves the listed items owned by userID into folderID (nil for
// the root) and returns the moved items as they were before the move.
func MoveItems(ctx context.Context, db *sqlx.DB, userID string, ids []string, folderID *string) ([]model.Item, error) {
	ids = validIDs(ids)
	moved := []model.Item{}
	if len(ids) == 0 {
		return moved, nil
	}

	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(`SELECT * FROM items WHERE user_id = ? AND id IN (?)`, userID, ids)
		if err != nil {
			return fmt.Errorf("building bulk move query: %w", err)
		}
		if err := tx.SelectContext(ctx, &moved, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("selecting items to move: %w", err)
		}
		if len(moved) == 0 {
			return nil
		}

		query, args, err = sqlx.In(
			`UPDATE items SET folder_id = ?, version = version + 1, updated_at = ?
			 WHERE user_id = ? AND id IN (?)`, folderID, now(), userID, ids)
		if err != nil {
			return fmt.Errorf("building bulk move query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("bulk moving items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func validIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if model.ValidID(id) && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ItemStats summarises a user's inventory.
type ItemStats struct {
	TotalItems    int           `db:"total_items" json:"totalItems"`
	TotalQuantity int           `db:"total_quantity" json:"totalQuantity"`
	TotalValue    float64       `db:"total_value" json:"totalValue"`
	LowStock      int           `db:"low_stock" json:"lowStockCount"`
	OutOfStock    int           `db:"out_of_stock" json:"outOfStockCount"`
	ByFolder      []FolderStats `db:"-" json:"byFolder"`
}

// FolderStats is the per-folder slice of ItemStats. FolderID is nil for
// items in the root.
type FolderStats struct {
	FolderID *string `db:"folder_id" json:"folderId"`
	Items    int     `db:"items" json:"items"`
	Quantity int     `db:"quantity" json:"quantity"`
	Value    float64 `db:"value" json:"value"`
}

// GetItemStats aggregates a user's items.
func GetItemStats(ctx context.Context, db sqlx.QueryerContext, userID string) (*ItemStats, error) {
	stats := &ItemStats{}
	err := sqlx.GetContext(ctx, db, stats,
		`SELECT COUNT(*) AS total_items,
		        COALESCE(SUM(quantity), 0) AS total_quantity,
		        COALESCE(SUM(quantity * price), 0.0) AS total_value,
		        COALESCE(SUM(quantity <= min_level), 0) AS low_stock,
		        COALESCE(SUM(quantity = 0), 0) AS out_of_stock
		 FROM items WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregating items: %w", err)
	}

	stats.ByFolder = []FolderStats{}
	err = sqlx.SelectContext(ctx, db, &stats.ByFolder,
		`SELECT folder_id, COUNT(*) AS items,
		        COALESCE(SUM(quantity), 0) AS quantity,
		        COALESCE(SUM(quantity * price), 0.0) AS value
		 FROM items WHERE user_id = ?
		 GROUP BY folder_id ORDER BY items DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregating items by folder: %w", err)
	}
	return stats, nil
}
