// Package activity turns domain events into append-only activity records.
package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// Recorder writes activity records. It is subscribed to every topic.
type Recorder struct {
	db      *sqlx.DB
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Recorder.
func New(db *sqlx.DB, log *zap.Logger, m *metrics.Metrics) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{db: db, log: log.Named("activity"), metrics: m}
}

// Record appends one activity. Details are redacted before storage.
func (r *Recorder) Record(ctx context.Context, actorID, resourceType, resourceID, action string, details map[string]any) (*model.Activity, error) {
	return r.record(ctx, events.Actor{UserID: actorID}, resourceType, resourceID, action, details)
}

func (r *Recorder) record(ctx context.Context, actor events.Actor, resourceType, resourceID, action string, details map[string]any) (*model.Activity, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("recording %s %s: missing actor", resourceType, action)
	}
	a := &model.Activity{
		UserID:       actor.UserID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Details:      model.JSONMap(Redact(details)),
		IP:           actor.IP,
		UserAgent:    actor.UserAgent,
	}
	if err := store.InsertActivity(ctx, r.db, a); err != nil {
		return nil, err
	}
	r.metrics.ActivityRecorded(resourceType)
	return a, nil
}

// Subscribe registers the recorder for every topic.
func (r *Recorder) Subscribe(d *events.Dispatcher) error {
	return d.SubscribeAll("activity", r.Handle)
}

// Handle maps an event onto an activity record. System alerts are not
// user actions and are ignored.
func (r *Recorder) Handle(ctx context.Context, ev events.Event) error {
	actor := ev.EventHeader().Actor

	var (
		resourceType, resourceID, action string
		details                          map[string]any
	)

	switch e := ev.(type) {
	case events.ItemCreated:
		resourceType, resourceID, action = model.ResourceItem, e.Item.ID, model.ActionCreate
		details = map[string]any{
			"name":     e.Item.Name,
			"quantity": e.Item.Quantity,
			"folderId": e.Item.FolderIDValue(),
		}
	case events.ItemUpdated:
		action = e.Action
		if action == "" {
			action = model.ActionUpdate
		}
		resourceType, resourceID = model.ResourceItem, e.After.ID
		details = map[string]any{"name": e.After.Name}
		if len(e.Changes) > 0 {
			details["changes"] = e.Changes
		}
	case events.ItemDeleted:
		resourceType, resourceID, action = model.ResourceItem, e.Item.ID, model.ActionDelete
		details = map[string]any{"name": e.Item.Name, "quantity": e.Item.Quantity}
	case events.QuantityChanged:
		resourceType, resourceID, action = model.ResourceItem, e.Item.ID, model.ActionQuantityChange
		details = map[string]any{
			"name":     e.Item.Name,
			"previous": e.Previous,
			"next":     e.Next,
			"delta":    e.Next - e.Previous,
		}
		if e.Reason != "" {
			details["reason"] = e.Reason
		}
	case events.FolderCreated:
		resourceType, resourceID, action = model.ResourceFolder, e.Folder.ID, model.ActionCreate
		details = map[string]any{"name": e.Folder.Name}
	case events.FolderUpdated:
		resourceType, resourceID, action = model.ResourceFolder, e.After.ID, model.ActionUpdate
		details = map[string]any{"name": e.After.Name}
		if len(e.Changes) > 0 {
			details["changes"] = e.Changes
		}
	case events.FolderDeleted:
		resourceType, resourceID, action = model.ResourceFolder, e.Folder.ID, model.ActionDelete
		details = map[string]any{"name": e.Folder.Name, "unfiledItems": len(e.UnfiledItems)}
	case events.BulkOperation:
		resourceType, action = model.ResourceItem, e.Operation
		details = map[string]any{"count": e.Count, "itemIds": e.ItemIDs}
		for k, v := range e.Details {
			details[k] = v
		}
	case events.TagChanged:
		resourceType, resourceID, action = model.ResourceTag, e.Tag.ID, e.Action
		details = map[string]any{"name": e.Tag.Name}
		if e.OldName != "" && e.OldName != e.Tag.Name {
			details["oldName"] = e.OldName
		}
		if e.AffectedItems > 0 {
			details["affectedItems"] = e.AffectedItems
		}
	case events.UserEvent:
		resourceType, resourceID, action = model.ResourceUser, e.User.ID, e.Action
		details = e.Details
		if actor.UserID == "" {
			actor.UserID = e.User.ID
		}
	case events.SettingsChanged:
		resourceType, resourceID, action = model.ResourceSettings, actor.UserID, e.Action
		if len(e.Changes) > 0 {
			details = map[string]any{"changes": e.Changes}
		}
	default:
		return nil
	}

	_, err := r.record(ctx, actor, resourceType, resourceID, action, details)
	return err
}

var sensitiveKeys = map[string]bool{
	"password":             true,
	"token":                true,
	"refreshtoken":         true,
	"accesstoken":          true,
	"passwordhash":         true,
	"currentpassword":      true,
	"newpassword":          true,
	"passwordconfirmation": true,
	"secret":               true,
	"clientsecret":         true,
	"apikey":               true,
	"xapikey":              true,
}

var keySeparators = strings.NewReplacer("_", "", "-", "")

func sensitiveKey(k string) bool {
	return sensitiveKeys[keySeparators.Replace(strings.ToLower(k))]
}

// Redact returns a copy of details without credential-like keys, at any
// depth. Key matching ignores case, underscores and hyphens.
func Redact(details map[string]any) map[string]any {
	if details == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if sensitiveKey(k) {
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case model.JSONMap:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = redactValue(vv)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = Redact(vv)
		}
		return out
	default:
		return v
	}
}
