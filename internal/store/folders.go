package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

const folderColumns = `f.id, f.user_id, f.name, f.description, f.color, f.parent_id, f.created_at, f.updated_at,
	(SELECT COUNT(*) FROM items i WHERE i.folder_id = f.id) AS item_count`

// CreateFolder inserts a new folder. ID and timestamps are assigned.
func CreateFolder(ctx context.Context, db sqlx.ExtContext, folder *model.Folder) error {
	ts := now()
	folder.ID = model.NewID()
	folder.CreatedAt = ts
	folder.UpdatedAt = ts

	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO folders (id, user_id, name, description, color, parent_id, created_at, updated_at)
		 VALUES (:id, :user_id, :name, :description, :color, :parent_id, :created_at, :updated_at)`, folder)
	if err != nil {
		return fmt.Errorf("creating folder: %w", err)
	}
	return nil
}

// GetFolder returns a folder by ID, with its item count.
func GetFolder(ctx context.Context, db sqlx.QueryerContext, id string) (*model.Folder, error) {
	if !model.ValidID(id) {
		return nil, nil
	}
	folder := &model.Folder{}
	err := sqlx.GetContext(ctx, db, folder, `SELECT `+folderColumns+` FROM folders f WHERE f.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting folder: %w", err)
	}
	return folder, nil
}

// GetFolderOwner returns the owner of a folder, or "" if it does not exist.
func GetFolderOwner(ctx context.Context, db sqlx.QueryerContext, id string) (string, error) {
	return getOwner(ctx, db, "folders", id)
}

// ListFolders returns all of a user's folders ordered by name.
func ListFolders(ctx context.Context, db sqlx.QueryerContext, userID string) ([]model.Folder, error) {
	folders := []model.Folder{}
	err := sqlx.SelectContext(ctx, db, &folders,
		`SELECT `+folderColumns+` FROM folders f WHERE f.user_id = ? ORDER BY f.name COLLATE NOCASE, f.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

// UpdateFolder writes a folder's mutable fields.
func UpdateFolder(ctx context.Context, db sqlx.ExecerContext, folder *model.Folder) error {
	ts := now()
	res, err := db.ExecContext(ctx,
		`UPDATE folders SET name = ?, description = ?, color = ?, parent_id = ?, updated_at = ?
		 WHERE id = ?`,
		folder.Name, folder.Description, folder.Color, folder.ParentID, ts, folder.ID)
	if err != nil {
		return fmt.Errorf("updating folder: %w", err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	folder.UpdatedAt = ts
	return nil
}

// IsFolderWithin reports whether folderID is ancestorID or one of its
// descendants. Used to reject moves that would create a cycle.
func IsFolderWithin(ctx context.Context, db sqlx.QueryerContext, folderID, ancestorID string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, db, &n,
		`WITH RECURSIVE chain(id, parent_id) AS (
		     SELECT id, parent_id FROM folders WHERE id = ?
		     UNION
		     SELECT f.id, f.parent_id FROM folders f JOIN chain c ON f.id = c.parent_id
		 )
		 SELECT COUNT(*) FROM chain WHERE id = ?`, folderID, ancestorID)
	if err != nil {
		return false, fmt.Errorf("walking folder ancestry: %w", err)
	}
	return n > 0, nil
}

// DeleteFolder deletes a folder. Its child folders move up to its parent and
// its items move to the root. It returns the IDs of the items that were
// unfiled.
func DeleteFolder(ctx context.Context, db *sqlx.DB, folder *model.Folder) ([]string, error) {
	unfiled := []string{}
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		ts := now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET parent_id = ?, updated_at = ? WHERE parent_id = ?`,
			folder.ParentID, ts, folder.ID); err != nil {
			return fmt.Errorf("re-parenting child folders: %w", err)
		}

		if err := tx.SelectContext(ctx, &unfiled, `SELECT id FROM items WHERE folder_id = ?`, folder.ID); err != nil {
			return fmt.Errorf("listing folder items: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET folder_id = NULL, version = version + 1, updated_at = ? WHERE folder_id = ?`,
			ts, folder.ID); err != nil {
			return fmt.Errorf("unfiling folder items: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folder.ID)
		if err != nil {
			return fmt.Errorf("deleting folder: %w", err)
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unfiled, nil
}
