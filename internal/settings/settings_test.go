package settings

import (
	"errors"
	"testing"
)

func TestMergeNested(t *testing.T) {
	base := Document{
		"display": map[string]any{"theme": "light", "view": "grid"},
		"general": map[string]any{"currency": "USD"},
	}
	patch := Document{
		"display": map[string]any{"theme": "dark"},
	}

	got := Merge(base, patch)

	display := got["display"].(map[string]any)
	if display["theme"] != "dark" {
		t.Errorf("expected theme dark, got %v", display["theme"])
	}
	if display["view"] != "grid" {
		t.Errorf("expected sibling key preserved, got %v", display["view"])
	}
	if got["general"].(map[string]any)["currency"] != "USD" {
		t.Error("expected untouched section preserved")
	}

	// Inputs are not modified.
	if base["display"].(map[string]any)["theme"] != "light" {
		t.Error("Merge modified base")
	}
}

func TestMergeScalarReplacesMap(t *testing.T) {
	got := Merge(Document{"a": map[string]any{"b": 1.0}}, Document{"a": "flat"})
	if got["a"] != "flat" {
		t.Errorf("expected scalar to replace map, got %v", got["a"])
	}
}

func TestEffectiveFillsDefaults(t *testing.T) {
	stored := Document{"notifications": map[string]any{"lowStock": false}}
	eff := Effective(stored)

	v, ok := Lookup(eff, "notifications.lowStock")
	if !ok || v != false {
		t.Errorf("expected stored override false, got %v", v)
	}
	v, ok = Lookup(eff, "notifications.itemActivity")
	if !ok || v != true {
		t.Errorf("expected default true, got %v", v)
	}
	if _, ok := Lookup(eff, "display.itemsPerPage"); !ok {
		t.Error("expected default section present")
	}
}

func TestDefaultsAreFresh(t *testing.T) {
	d := Defaults()
	d["display"].(map[string]any)["theme"] = "dark"
	if Defaults()["display"].(map[string]any)["theme"] != "light" {
		t.Error("Defaults returned shared state")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		patch  Document
		fields []string
	}{
		{"valid", Document{"display": map[string]any{"theme": "dark", "itemsPerPage": 50.0}}, nil},
		{"unknown section", Document{"bogus": true}, []string{"bogus"}},
		{"unknown key", Document{"display": map[string]any{"font": "x"}}, []string{"display.font"}},
		{"wrong type", Document{"notifications": map[string]any{"lowStock": "yes"}}, []string{"notifications.lowStock"}},
		{"section not object", Document{"general": "x"}, []string{"general"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.patch)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.fields) || verr.Fields[0] != tt.fields[0] {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.fields)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	if !Enabled(nil, NotifyLowStock) {
		t.Error("expected default enabled")
	}
	stored := Document{"notifications": map[string]any{"itemActivity": false}}
	if Enabled(stored, NotifyItemActivity) {
		t.Error("expected disabled by stored setting")
	}
	if !Enabled(stored, "notifications.unknown") {
		t.Error("expected unknown path to count as enabled")
	}
}
