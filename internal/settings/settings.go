// Package settings holds per-user preference defaults and the deep-merge
// rules used to combine stored values, defaults and client patches.
package settings

import (
	"fmt"
	"sort"
	"strings"
)

// Document is a settings tree. Leaves are strings, float64 numbers or bools,
// as produced by encoding/json.
type Document = map[string]any

// Notification preference paths consulted by the alert deriver.
const (
	NotifyLowStock       = "notifications.lowStock"
	NotifyItemActivity   = "notifications.itemActivity"
	NotifyFolderActivity = "notifications.folderActivity"
	NotifyBulkOperations = "notifications.bulkOperations"
	NotifySystem         = "notifications.system"
)

// Defaults returns a fresh copy of the default settings.
func Defaults() Document {
	return Document{
		"general": map[string]any{
			"currency":   "USD",
			"dateFormat": "MM/DD/YYYY",
			"timezone":   "UTC",
			"language":   "en",
		},
		"notifications": map[string]any{
			"email":          true,
			"lowStock":       true,
			"itemActivity":   true,
			"folderActivity": true,
			"bulkOperations": true,
			"system":         true,
		},
		"inventory": map[string]any{
			"defaultMinLevel": float64(0),
			"defaultUnit":     "pcs",
			"trackPrices":     true,
		},
		"display": map[string]any{
			"theme":        "light",
			"view":         "grid",
			"itemsPerPage": float64(20),
			"showImages":   true,
		},
	}
}

// Merge returns a new document with patch deep-merged over base. Nested
// objects merge key by key; any other value in patch replaces the value in
// base. Neither input is modified.
func Merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = clone(v)
	}
	for k, pv := range patch {
		pm, pIsMap := pv.(map[string]any)
		bm, bIsMap := out[k].(map[string]any)
		if pIsMap && bIsMap {
			out[k] = Merge(bm, pm)
			continue
		}
		out[k] = clone(pv)
	}
	return out
}

// Effective returns stored settings merged over the defaults.
func Effective(stored Document) Document {
	return Merge(Defaults(), stored)
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = clone(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = clone(vv)
		}
		return out
	default:
		return v
	}
}

// Validate checks patch against the shape of the defaults: every key must
// exist in the defaults and every leaf must have the default's type. It
// returns the offending paths, sorted.
func Validate(patch Document) error {
	var bad []string
	validate(Defaults(), patch, "", &bad)
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return &ValidationError{Fields: bad}
}

func validate(schema, patch map[string]any, prefix string, bad *[]string) {
	for k, pv := range patch {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		sv, ok := schema[k]
		if !ok {
			*bad = append(*bad, path)
			continue
		}
		switch s := sv.(type) {
		case map[string]any:
			pm, ok := pv.(map[string]any)
			if !ok {
				*bad = append(*bad, path)
				continue
			}
			validate(s, pm, path, bad)
		case bool:
			if _, ok := pv.(bool); !ok {
				*bad = append(*bad, path)
			}
		case float64:
			if _, ok := pv.(float64); !ok {
				*bad = append(*bad, path)
			}
		case string:
			if _, ok := pv.(string); !ok {
				*bad = append(*bad, path)
			}
		}
	}
}

// ValidationError lists settings paths that are unknown or mistyped.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings: %s", strings.Join(e.Fields, ", "))
}

// Lookup returns the value at a dotted path.
func Lookup(doc Document, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Enabled reports the boolean at path in the effective settings derived
// from stored. Missing or non-boolean values count as enabled.
func Enabled(stored Document, path string) bool {
	v, ok := Lookup(Effective(stored), path)
	if !ok {
		return true
	}
	b, ok := v.(bool)
	return !ok || b
}
