package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	item := &model.Item{UserID: user.ID, Name: "Laptop", Quantity: 3, Price: 999.5, Tags: model.StringList{"electronics"}}
	if err := CreateItem(ctx, database, item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !model.ValidID(item.ID) || item.Version != 1 {
		t.Errorf("expected assigned id and version 1, got %q v%d", item.ID, item.Version)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Name != "Laptop" || got.Quantity != 3 || !got.Tags.Contains("electronics") {
		t.Errorf("unexpected item: %+v", got)
	}
	if got.FolderID != nil {
		t.Errorf("expected root item, got folder %v", *got.FolderID)
	}

	owner, err := GetItemOwner(ctx, database, item.ID)
	if err != nil || owner != user.ID {
		t.Errorf("GetItemOwner = %q, %v", owner, err)
	}
}

func TestGetItemMalformedOrMissing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"", "abc", model.NewID()} {
		got, err := GetItem(ctx, database, id)
		if err != nil {
			t.Errorf("GetItem(%q): %v", id, err)
		}
		if got != nil {
			t.Errorf("GetItem(%q): expected nil", id)
		}
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	other := mustUser(t, database, "other@example.com")

	folder := &model.Folder{UserID: user.ID, Name: "Shelf"}
	if err := CreateFolder(ctx, database, folder); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	screws := mustItem(t, database, user.ID, "Screws", 2, 5)
	screws.Tags = model.StringList{"hardware"}
	screws.FolderID = &folder.ID
	if err := UpdateItem(ctx, database, screws); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	mustItem(t, database, user.ID, "Bolts", 50, 5)
	mustItem(t, database, other.ID, "Foreign", 1, 5)

	tests := []struct {
		name   string
		filter ItemFilter
		want   int
	}{
		{"all", ItemFilter{}, 2},
		{"folder", ItemFilter{FolderID: folder.ID}, 1},
		{"root", ItemFilter{FolderID: RootFolder}, 1},
		{"tag", ItemFilter{Tag: "hardware"}, 1},
		{"query", ItemFilter{Query: "bol"}, 1},
		{"low stock", ItemFilter{LowStock: true}, 1},
		{"no match", ItemFilter{Tag: "missing"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.UserID = user.ID
			items, total, err := ListItems(ctx, database, tt.filter)
			if err != nil {
				t.Fatalf("ListItems: %v", err)
			}
			if total != tt.want || len(items) != tt.want {
				t.Errorf("expected %d items, got %d (total %d)", tt.want, len(items), total)
			}
		})
	}
}

func TestListItemsSortAndPage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	mustItem(t, database, user.ID, "b", 1, 0)
	mustItem(t, database, user.ID, "a", 3, 0)
	mustItem(t, database, user.ID, "c", 2, 0)

	items, total, err := ListItems(ctx, database, ItemFilter{UserID: user.ID, Sort: "name", Order: "asc", Pagination: Pagination{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(items), total)
	}
	if items[0].Name != "a" || items[1].Name != "b" {
		t.Errorf("unexpected order: %s, %s", items[0].Name, items[1].Name)
	}

	items, _, _ = ListItems(ctx, database, ItemFilter{UserID: user.ID, Sort: "quantity", Order: "desc"})
	if items[0].Name != "a" {
		t.Errorf("expected highest quantity first, got %s", items[0].Name)
	}
}

func TestUpdateItemVersionConflict(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	item := mustItem(t, database, user.ID, "Widget", 1, 0)

	stale := item.Clone()
	item.Name = "Widget v2"
	if err := UpdateItem(ctx, database, item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if item.Version != 2 {
		t.Errorf("expected version 2, got %d", item.Version)
	}

	stale.Name = "Stale"
	if err := UpdateItem(ctx, database, stale); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	stale.ID = model.NewID()
	if err := UpdateItem(ctx, database, stale); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustItemQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	item := mustItem(t, database, user.ID, "Widget", 5, 0)

	updated, previous, err := AdjustItemQuantity(ctx, database, item.ID, -3)
	if err != nil {
		t.Fatalf("AdjustItemQuantity: %v", err)
	}
	if previous != 5 || updated.Quantity != 2 {
		t.Errorf("expected 5 -> 2, got %d -> %d", previous, updated.Quantity)
	}

	if _, _, err := AdjustItemQuantity(ctx, database, item.ID, -3); !errors.Is(err, ErrNegativeQuantity) {
		t.Errorf("expected ErrNegativeQuantity, got %v", err)
	}
	if _, _, err := AdjustItemQuantity(ctx, database, model.NewID(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustItemQuantityConcurrent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	item := mustItem(t, database, user.ID, "Widget", 0, 0)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := AdjustItemQuantity(ctx, database, item.ID, 1); err != nil {
				t.Errorf("AdjustItemQuantity: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", got.Quantity)
	}
}

func TestSetItemQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	item := mustItem(t, database, user.ID, "Widget", 7, 0)

	updated, previous, err := SetItemQuantity(ctx, database, item.ID, 4)
	if err != nil {
		t.Fatalf("SetItemQuantity: %v", err)
	}
	if previous != 7 || updated.Quantity != 4 || updated.Version != 2 {
		t.Errorf("unexpected result: previous %d, item %+v", previous, updated)
	}

	if _, _, err := SetItemQuantity(ctx, database, item.ID, -1); !errors.Is(err, ErrNegativeQuantity) {
		t.Errorf("expected ErrNegativeQuantity, got %v", err)
	}
}

func TestGetItemByBarcode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	item := mustItem(t, database, user.ID, "Scanner", 1, 0)

	item.Barcode = "222"
	item.BarcodeHistory = model.BarcodeHistory{{Barcode: "111", Format: "EAN13", ChangedAt: "2024-01-01T00:00:00Z"}}
	if err := UpdateItem(ctx, database, item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	for _, code := range []string{"222", "111"} {
		got, err := GetItemByBarcode(ctx, database, user.ID, code)
		if err != nil {
			t.Fatalf("GetItemByBarcode(%s): %v", code, err)
		}
		if got == nil || got.ID != item.ID {
			t.Errorf("GetItemByBarcode(%s): expected item", code)
		}
	}

	got, _ := GetItemByBarcode(ctx, database, user.ID, "333")
	if got != nil {
		t.Error("expected no match for unknown barcode")
	}
}

func TestDeleteAndMoveItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")
	other := mustUser(t, database, "other@example.com")

	a := mustItem(t, database, user.ID, "a", 1, 0)
	b := mustItem(t, database, user.ID, "b", 1, 0)
	foreign := mustItem(t, database, other.ID, "foreign", 1, 0)

	folder := &model.Folder{UserID: user.ID, Name: "Bin"}
	CreateFolder(ctx, database, folder)

	moved, err := MoveItems(ctx, database, user.ID, []string{a.ID, foreign.ID, "bogus"}, &folder.ID)
	if err != nil {
		t.Fatalf("MoveItems: %v", err)
	}
	if len(moved) != 1 || moved[0].ID != a.ID {
		t.Errorf("expected only own item moved, got %+v", moved)
	}
	got, _ := GetItem(ctx, database, a.ID)
	if got.FolderIDValue() != folder.ID {
		t.Errorf("expected item in folder, got %q", got.FolderIDValue())
	}

	deleted, err := DeleteItems(ctx, database, user.ID, []string{a.ID, b.ID, foreign.ID})
	if err != nil {
		t.Fatalf("DeleteItems: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("expected 2 deleted, got %d", len(deleted))
	}
	if still, _ := GetItem(ctx, database, foreign.ID); still == nil {
		t.Error("foreign item must survive bulk delete")
	}
}

func TestGetItemStats(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "owner@example.com")

	a := mustItem(t, database, user.ID, "a", 2, 5)
	a.Price = 10
	UpdateItem(ctx, database, a)
	mustItem(t, database, user.ID, "b", 0, 0)
	mustItem(t, database, user.ID, "c", 8, 1)

	stats, err := GetItemStats(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetItemStats: %v", err)
	}
	if stats.TotalItems != 3 || stats.TotalQuantity != 10 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if stats.TotalValue != 20 {
		t.Errorf("expected value 20, got %v", stats.TotalValue)
	}
	if stats.LowStock != 2 || stats.OutOfStock != 1 {
		t.Errorf("expected 2 low and 1 out, got %d and %d", stats.LowStock, stats.OutOfStock)
	}
	if len(stats.ByFolder) != 1 || stats.ByFolder[0].FolderID != nil {
		t.Errorf("expected a single root bucket, got %+v", stats.ByFolder)
	}
}
