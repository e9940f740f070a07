package activity

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"

	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

func newRecorder(t *testing.T) (*Recorder, *sqlx.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	return New(database, zaptest.NewLogger(t), nil), database
}

func listFor(t *testing.T, database *sqlx.DB, userID string) []model.Activity {
	t.Helper()
	list, _, err := store.ListActivities(context.Background(), database, store.ActivityFilter{UserID: userID})
	if err != nil {
		t.Fatalf("ListActivities: %v", err)
	}
	return list
}

func TestRedact(t *testing.T) {
	in := map[string]any{
		"name":     "widget",
		"Password": "hunter2",
		"token":    "abc",
		"nested": map[string]any{
			"refreshToken": "r",
			"ACCESSTOKEN":  "a",
			"keep":         1,
			"deeper":       map[string]any{"secret": "s", "ok": true},
		},
		"list": []any{
			map[string]any{"passwordHash": "h", "id": "x"},
			"plain",
		},
		"currentPassword": "old",
		"newPassword":     "new",
	}

	out := Redact(in)

	for _, k := range []string{"Password", "token", "currentPassword", "newPassword"} {
		if _, ok := out[k]; ok {
			t.Errorf("expected %q to be redacted", k)
		}
	}
	if out["name"] != "widget" {
		t.Errorf("expected name to survive, got %v", out["name"])
	}

	nested := out["nested"].(map[string]any)
	if _, ok := nested["refreshToken"]; ok {
		t.Error("expected nested refreshToken to be redacted")
	}
	if _, ok := nested["ACCESSTOKEN"]; ok {
		t.Error("expected nested ACCESSTOKEN to be redacted")
	}
	if nested["keep"] != 1 {
		t.Errorf("expected nested keep to survive, got %v", nested["keep"])
	}
	deeper := nested["deeper"].(map[string]any)
	if _, ok := deeper["secret"]; ok {
		t.Error("expected deeply nested secret to be redacted")
	}

	first := out["list"].([]any)[0].(map[string]any)
	if _, ok := first["passwordHash"]; ok {
		t.Error("expected passwordHash inside list to be redacted")
	}
	if first["id"] != "x" {
		t.Errorf("expected id inside list to survive, got %v", first["id"])
	}

	if _, ok := in["Password"]; !ok {
		t.Error("Redact must not modify its input")
	}
}

func TestRedactIgnoresKeySeparators(t *testing.T) {
	in := map[string]any{
		"refresh_token":         "r",
		"access_token":          "a",
		"api_key":               "k",
		"X-Api-Key":             "x",
		"password_confirmation": "p",
		"new-password":          "n",
		"Password_Hash":         "h",
		"nested":                map[string]any{"client_secret": "c", "current_password": "o", "item_name": "bolt"},
		"item_name":             "widget",
	}

	out := Redact(in)

	for _, k := range []string{"refresh_token", "access_token", "api_key", "X-Api-Key", "password_confirmation", "new-password", "Password_Hash"} {
		if _, ok := out[k]; ok {
			t.Errorf("expected %q to be redacted", k)
		}
	}
	if out["item_name"] != "widget" {
		t.Errorf("expected item_name to survive, got %v", out["item_name"])
	}
	nested := out["nested"].(map[string]any)
	for _, k := range []string{"client_secret", "current_password"} {
		if _, ok := nested[k]; ok {
			t.Errorf("expected nested %q to be redacted", k)
		}
	}
	if nested["item_name"] != "bolt" {
		t.Errorf("expected nested item_name to survive, got %v", nested["item_name"])
	}
}

func TestRecordStoresRedactedDetails(t *testing.T) {
	r, database := newRecorder(t)
	ctx := context.Background()
	actor := model.NewID()

	a, err := r.Record(ctx, actor, model.ResourceUser, actor, model.ActionPasswordChange, map[string]any{
		"currentPassword": "old-password",
		"newPassword":     "new-password",
		"changed":         true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected activity ID")
	}

	list := listFor(t, database, actor)
	if len(list) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(list))
	}
	got := list[0]
	if got.Action != model.ActionPasswordChange {
		t.Errorf("expected action %s, got %s", model.ActionPasswordChange, got.Action)
	}
	if _, ok := got.Details["currentPassword"]; ok {
		t.Error("currentPassword was persisted")
	}
	if _, ok := got.Details["newPassword"]; ok {
		t.Error("newPassword was persisted")
	}
	if got.Details["changed"] != true {
		t.Errorf("expected changed=true, got %v", got.Details["changed"])
	}
}

func TestRecordRequiresActor(t *testing.T) {
	r, _ := newRecorder(t)
	if _, err := r.Record(context.Background(), "", model.ResourceItem, model.NewID(), model.ActionCreate, nil); err == nil {
		t.Error("expected error for missing actor")
	}
}

func TestHandleEvents(t *testing.T) {
	r, database := newRecorder(t)
	ctx := context.Background()
	owner := model.NewID()
	actor := events.Actor{UserID: owner, IP: "10.0.0.1", UserAgent: "test-agent"}

	item := &model.Item{ID: model.NewID(), UserID: owner, Name: "Bolts", Quantity: 5, MinLevel: 2}
	after := item.Clone()
	after.Quantity = 1
	folder := &model.Folder{ID: model.NewID(), UserID: owner, Name: "Shed"}
	tag := &model.Tag{ID: model.NewID(), UserID: owner, Name: "tools"}

	evs := []events.Event{
		events.ItemCreated{Header: events.NewHeader(actor), Item: item},
		events.QuantityChanged{Header: events.NewHeader(actor), Item: after, Previous: 5, Next: 1},
		events.ItemUpdated{Header: events.NewHeader(actor), Before: item, After: after, Action: model.ActionMove,
			Changes: map[string]any{"folderId": folder.ID}},
		events.FolderCreated{Header: events.NewHeader(actor), Folder: folder},
		events.FolderDeleted{Header: events.NewHeader(actor), Folder: folder, UnfiledItems: []string{item.ID}},
		events.BulkOperation{Header: events.NewHeader(actor), Operation: model.ActionBulkDelete, Count: 1, ItemIDs: []string{item.ID}},
		events.TagChanged{Header: events.NewHeader(actor), Action: model.ActionUpdate, Tag: tag, OldName: "tool", AffectedItems: 3},
		events.SettingsChanged{Header: events.NewHeader(actor), Action: model.ActionSettingsUpdate,
			Changes: map[string]any{"general": map[string]any{"currency": "EUR"}}},
		events.SystemAlert{Header: events.NewHeader(actor), UserID: owner, Title: "ignored"},
		events.ItemDeleted{Header: events.NewHeader(actor), Item: after},
	}
	for _, ev := range evs {
		if err := r.Handle(ctx, ev); err != nil {
			t.Fatalf("Handle(%s): %v", ev.Topic(), err)
		}
	}

	list := listFor(t, database, owner)
	if len(list) != len(evs)-1 {
		t.Fatalf("expected %d activities, got %d", len(evs)-1, len(list))
	}

	want := []struct{ resourceType, action string }{
		{model.ResourceItem, model.ActionDelete},
		{model.ResourceSettings, model.ActionSettingsUpdate},
		{model.ResourceTag, model.ActionUpdate},
		{model.ResourceItem, model.ActionBulkDelete},
		{model.ResourceFolder, model.ActionDelete},
		{model.ResourceFolder, model.ActionCreate},
		{model.ResourceItem, model.ActionMove},
		{model.ResourceItem, model.ActionQuantityChange},
		{model.ResourceItem, model.ActionCreate},
	}
	for i, w := range want {
		if list[i].ResourceType != w.resourceType || list[i].Action != w.action {
			t.Errorf("position %d: expected %s/%s, got %s/%s",
				i, w.resourceType, w.action, list[i].ResourceType, list[i].Action)
		}
		if list[i].IP != actor.IP || list[i].UserAgent != actor.UserAgent {
			t.Errorf("position %d: expected client info to be kept, got %q %q", i, list[i].IP, list[i].UserAgent)
		}
	}

	qty := list[7]
	if qty.Details["delta"] != float64(-4) {
		t.Errorf("expected delta -4, got %v", qty.Details["delta"])
	}
	if qty.ResourceID != item.ID {
		t.Errorf("expected resource %s, got %s", item.ID, qty.ResourceID)
	}
}

func TestHandleUserEventFallsBackToSubject(t *testing.T) {
	r, database := newRecorder(t)
	user := &model.User{ID: model.NewID(), Email: "new@example.com"}

	ev := events.UserEvent{
		Header:  events.NewHeader(events.Actor{}),
		Action:  model.ActionRegister,
		User:    user,
		Details: map[string]any{"email": user.Email, "password": "not-stored"},
	}
	if err := r.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	list := listFor(t, database, user.ID)
	if len(list) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(list))
	}
	if _, ok := list[0].Details["password"]; ok {
		t.Error("password was persisted")
	}
}
