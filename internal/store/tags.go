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

const tagColumns = `t.id, t.user_id, t.name, t.color, t.description, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM items i WHERE i.user_id = t.user_id
	   AND EXISTS (SELECT 1 FROM json_each(i.tags) j WHERE j.value = t.name)) AS item_count`

// CreateTag inserts a new tag. Tag names are unique per user.
func CreateTag(ctx context.Context, db sqlx.ExtContext, tag *model.Tag) error {
	ts := now()
	tag.ID = model.NewID()
	tag.CreatedAt = ts
	tag.UpdatedAt = ts
	if tag.Color == "" {
		tag.Color = model.DefaultTagColor
	}

	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO tags (id, user_id, name, color, description, created_at, updated_at)
		 VALUES (:id, :user_id, :name, :color, :description, :created_at, :updated_at)`, tag)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating tag: %w", err)
	}
	return nil
}

// EnsureTags creates any of the named tags the user does not have yet.
func EnsureTags(ctx context.Context, db sqlx.ExecerContext, userID string, names []string) error {
	ts := now()
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (id, user_id, name, color, description, created_at, updated_at)
			 VALUES (?, ?, ?, ?, '', ?, ?)`,
			model.NewID(), userID, name, model.DefaultTagColor, ts, ts)
		if err != nil {
			return fmt.Errorf("ensuring tag: %w", err)
		}
	}
	return nil
}

// GetTag returns a tag by ID, with its item count.
func GetTag(ctx context.Context, db sqlx.QueryerContext, id string) (*model.Tag, error) {
	if !model.ValidID(id) {
		return nil, nil
	}
	tag := &model.Tag{}
	err := sqlx.GetContext(ctx, db, tag, `SELECT `+tagColumns+` FROM tags t WHERE t.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag: %w", err)
	}
	return tag, nil
}

// GetTagOwner returns the owner of a tag, or "" if it does not exist.
func GetTagOwner(ctx context.Context, db sqlx.QueryerContext, id string) (string, error) {
	return getOwner(ctx, db, "tags", id)
}

// ListTags returns a user's tags ordered by name, with item counts.
func ListTags(ctx context.Context, db sqlx.QueryerContext, userID string) ([]model.Tag, error) {
	tags := []model.Tag{}
	err := sqlx.SelectContext(ctx, db, &tags,
		`SELECT `+tagColumns+` FROM tags t WHERE t.user_id = ? ORDER BY t.name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// UpdateTag writes a tag. When the name changed from oldName, every item of
// the owner carrying oldName is relabelled in the same transaction. It
// returns the number of items relabelled.
func UpdateTag(ctx context.Context, db *sqlx.DB, tag *model.Tag, oldName string) (int, error) {
	var relabelled int
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		ts := now()
		res, err := tx.ExecContext(ctx,
			`UPDATE tags SET name = ?, color = ?, description = ?, updated_at = ? WHERE id = ?`,
			tag.Name, tag.Color, tag.Description, ts, tag.ID)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("updating tag: %w", err)
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		tag.UpdatedAt = ts

		if oldName == tag.Name {
			return nil
		}
		relabelled, err = rewriteItemTags(ctx, tx, tag.UserID, oldName, func(tags model.StringList) model.StringList {
			out := model.StringList{}
			for _, t := range tags {
				if t == oldName {
					t = tag.Name
				}
				if !out.Contains(t) {
					out = append(out, t)
				}
			}
			return out
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return relabelled, nil
}

// DeleteTag deletes a tag and removes its name from every item of the
// owner. It returns the number of items changed.
func DeleteTag(ctx context.Context, db *sqlx.DB, tag *model.Tag) (int, error) {
	var changed int
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tag.ID)
		if err != nil {
			return fmt.Errorf("deleting tag: %w", err)
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		changed, err = rewriteItemTags(ctx, tx, tag.UserID, tag.Name, func(tags model.StringList) model.StringList {
			out := model.StringList{}
			for _, t := range tags {
				if t != tag.Name {
					out = append(out, t)
				}
			}
			return out
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func rewriteItemTags(ctx context.Context, tx *sqlx.Tx, userID, name string, rewrite func(model.StringList) model.StringList) (int, error) {
	var rows []struct {
		ID   string           `db:"id"`
		Tags model.StringList `db:"tags"`
	}
	err := tx.SelectContext(ctx, &rows,
		`SELECT id, tags FROM items
		 WHERE user_id = ? AND EXISTS (SELECT 1 FROM json_each(items.tags) j WHERE j.value = ?)`,
		userID, name)
	if err != nil {
		return 0, fmt.Errorf("selecting tagged items: %w", err)
	}

	ts := now()
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET tags = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			rewrite(r.Tags), ts, r.ID); err != nil {
			return 0, fmt.Errorf("rewriting item tags: %w", err)
		}
	}
	return len(rows), nil
}
