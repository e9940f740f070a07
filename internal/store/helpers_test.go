package store

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

func mustUser(t *testing.T, database *sqlx.DB, email string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, email, "Test", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func mustItem(t *testing.T, database *sqlx.DB, userID, name string, quantity, minLevel int) *model.Item {
	t.Helper()
	item := &model.Item{UserID: userID, Name: name, Quantity: quantity, MinLevel: minLevel}
	if err := CreateItem(context.Background(), database, item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}
