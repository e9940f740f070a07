package store

import (
	"context"
	"errors"
	"testing"

	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func TestTagRenamePropagates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	tag := &model.Tag{UserID: user.ID, Name: "tools"}
	if err := CreateTag(ctx, database, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.Color != model.DefaultTagColor {
		t.Errorf("expected default color, got %q", tag.Color)
	}

	item := mustItem(t, database, user.ID, "Hammer", 1, 0)
	item.Tags = model.StringList{"tools", "heavy"}
	UpdateItem(ctx, database, item)

	got, _ := GetTag(ctx, database, tag.ID)
	if got.ItemCount != 1 {
		t.Errorf("expected item count 1, got %d", got.ItemCount)
	}

	tag.Name = "hand-tools"
	n, err := UpdateTag(ctx, database, tag, "tools")
	if err != nil {
		t.Fatalf("UpdateTag: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 item relabelled, got %d", n)
	}

	gotItem, _ := GetItem(ctx, database, item.ID)
	if !gotItem.Tags.Contains("hand-tools") || gotItem.Tags.Contains("tools") {
		t.Errorf("unexpected tags after rename: %v", gotItem.Tags)
	}
}

func TestTagDeleteRemovesFromItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	tag := &model.Tag{UserID: user.ID, Name: "fragile"}
	CreateTag(ctx, database, tag)
	item := mustItem(t, database, user.ID, "Vase", 1, 0)
	item.Tags = model.StringList{"fragile", "glass"}
	UpdateItem(ctx, database, item)

	n, err := DeleteTag(ctx, database, tag)
	if err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 item changed, got %d", n)
	}
	gotItem, _ := GetItem(ctx, database, item.ID)
	if len(gotItem.Tags) != 1 || gotItem.Tags[0] != "glass" {
		t.Errorf("unexpected tags after delete: %v", gotItem.Tags)
	}
}

func TestTagNamesUniquePerUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	other := mustUser(t, database, "other@example.com")

	CreateTag(ctx, database, &model.Tag{UserID: user.ID, Name: "dup"})
	if err := CreateTag(ctx, database, &model.Tag{UserID: user.ID, Name: "dup"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := CreateTag(ctx, database, &model.Tag{UserID: other.ID, Name: "dup"}); err != nil {
		t.Errorf("expected other user's tag to be accepted, got %v", err)
	}

	if err := EnsureTags(ctx, database, user.ID, []string{"dup", "new", " "}); err != nil {
		t.Fatalf("EnsureTags: %v", err)
	}
	tags, _ := ListTags(ctx, database, user.ID)
	if len(tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(tags))
	}
}
