package store

import (
	"context"
	"testing"

	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestUserSettingsRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "settings@example.com")

	doc, err := GetUserSettings(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("expected empty document, got %v", doc)
	}

	stored := model.JSONMap{"display": map[string]any{"theme": "dark"}}
	if err := PutUserSettings(ctx, database, user.ID, stored); err != nil {
		t.Fatalf("PutUserSettings: %v", err)
	}
	stored["display"] = map[string]any{"theme": "light"}
	if err := PutUserSettings(ctx, database, user.ID, stored); err != nil {
		t.Fatalf("PutUserSettings (overwrite): %v", err)
	}

	doc, _ = GetUserSettings(ctx, database, user.ID)
	display, _ := doc["display"].(map[string]any)
	if display["theme"] != "light" {
		t.Errorf("expected theme light, got %v", doc)
	}

	if err := DeleteUserSettings(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUserSettings: %v", err)
	}
	doc, _ = GetUserSettings(ctx, database, user.ID)
	if len(doc) != 0 {
		t.Errorf("expected empty document after delete, got %v", doc)
	}
}
