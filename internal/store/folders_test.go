package store

import (
	"context"
	"testing"

	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func TestDeleteFolderReparentsAndUnfiles(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	parent := &model.Folder{UserID: user.ID, Name: "Parent"}
	CreateFolder(ctx, database, parent)
	middle := &model.Folder{UserID: user.ID, Name: "Middle", ParentID: &parent.ID}
	CreateFolder(ctx, database, middle)
	child := &model.Folder{UserID: user.ID, Name: "Child", ParentID: &middle.ID}
	CreateFolder(ctx, database, child)

	item := mustItem(t, database, user.ID, "Boxed", 1, 0)
	item.FolderID = &middle.ID
	UpdateItem(ctx, database, item)

	got, _ := GetFolder(ctx, database, middle.ID)
	if got.ItemCount != 1 {
		t.Errorf("expected item count 1, got %d", got.ItemCount)
	}

	unfiled, err := DeleteFolder(ctx, database, middle)
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if len(unfiled) != 1 || unfiled[0] != item.ID {
		t.Errorf("expected item to be unfiled, got %v", unfiled)
	}

	gotChild, _ := GetFolder(ctx, database, child.ID)
	if gotChild.ParentID == nil || *gotChild.ParentID != parent.ID {
		t.Errorf("expected child to move under parent, got %v", gotChild.ParentID)
	}
	gotItem, _ := GetItem(ctx, database, item.ID)
	if gotItem.FolderID != nil {
		t.Errorf("expected item at root, got %v", *gotItem.FolderID)
	}
}

func TestIsFolderWithin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	root := &model.Folder{UserID: user.ID, Name: "Root"}
	CreateFolder(ctx, database, root)
	leaf := &model.Folder{UserID: user.ID, Name: "Leaf", ParentID: &root.ID}
	CreateFolder(ctx, database, leaf)

	tests := []struct {
		folder, ancestor string
		want             bool
	}{
		{leaf.ID, root.ID, true},
		{root.ID, root.ID, true},
		{root.ID, leaf.ID, false},
	}
	for _, tt := range tests {
		got, err := IsFolderWithin(ctx, database, tt.folder, tt.ancestor)
		if err != nil {
			t.Fatalf("IsFolderWithin: %v", err)
		}
		if got != tt.want {
			t.Errorf("IsFolderWithin(%s, %s) = %v, want %v", tt.folder, tt.ancestor, got, tt.want)
		}
	}
}

func TestListFoldersScopedToUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	other := mustUser(t, database, "other@example.com")

	CreateFolder(ctx, database, &model.Folder{UserID: user.ID, Name: "b"})
	CreateFolder(ctx, database, &model.Folder{UserID: user.ID, Name: "A"})
	CreateFolder(ctx, database, &model.Folder{UserID: other.ID, Name: "x"})

	folders, err := ListFolders(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(folders) != 2 || folders[0].Name != "A" {
		t.Errorf("unexpected folders: %+v", folders)
	}
}
