package store

import (
	"context"
	"errors"
	"testing"

	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, " Alice@Example.com ", "Alice", "hash123", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalised email, got %q", user.Email)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got == nil || got.Name != "Alice" || got.Status != model.UserStatusActive {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestGetUserByEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustUser(t, database, "alice@example.com")

	user, err := GetUserByEmail(ctx, database, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByEmail(ctx, database, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustUser(t, database, "dup@example.com")
	_, err := CreateUser(ctx, database, "dup@example.com", "", "hash", model.RoleUser)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegisterUserFirstIsAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := RegisterUser(ctx, database, "first@example.com", "First", "hash")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	second, err := RegisterUser(ctx, database, "second@example.com", "Second", "hash")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if first.Role != model.RoleAdmin {
		t.Errorf("expected first user to be admin, got %q", first.Role)
	}
	if second.Role != model.RoleUser {
		t.Errorf("expected second user to be user, got %q", second.Role)
	}
}

func TestUpdateUserFields(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "u@example.com")

	if err := UpdateUserProfile(ctx, database, user.ID, "Renamed", "new@example.com"); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	if err := SetUserStatus(ctx, database, user.ID, model.UserStatusDeactivated); err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	if err := SetUserRole(ctx, database, user.ID, model.RoleAdmin); err != nil {
		t.Fatalf("SetUserRole: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.Name != "Renamed" || got.Email != "new@example.com" || got.Active() || got.Role != model.RoleAdmin {
		t.Errorf("unexpected user after updates: %+v", got)
	}

	if err := SetUserRole(ctx, database, model.NewID(), model.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		mustUser(t, database, email)
	}

	users, total, err := ListUsers(ctx, database, Pagination{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 3 || len(users) != 2 {
		t.Errorf("expected 2 of 3 users, got %d of %d", len(users), total)
	}
}
