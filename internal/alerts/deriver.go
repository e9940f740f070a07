// Package alerts derives alerts from domain events and prunes old ones.
package alerts

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/settings"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// Outcomes reported to metrics.
const (
	outcomeCreated   = "created"
	outcomeRefreshed = "refreshed"
	outcomeResolved  = "resolved"
)

// Deriver maintains alerts in response to item, folder, bulk and system
// events.
type Deriver struct {
	db      *sqlx.DB
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Deriver.
func New(db *sqlx.DB, log *zap.Logger, m *metrics.Metrics) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deriver{db: db, log: log.Named("alerts"), metrics: m}
}

// Subscribe registers the deriver for the topics it reacts to.
func (d *Deriver) Subscribe(dispatcher *events.Dispatcher) error {
	for _, topic := range []events.Topic{
		events.TopicItemCreated,
		events.TopicItemUpdated,
		events.TopicItemDeleted,
		events.TopicQuantityChanged,
		events.TopicFolderCreated,
		events.TopicFolderUpdated,
		events.TopicFolderDeleted,
		events.TopicBulkOperation,
		events.TopicSystemAlert,
	} {
		if err := dispatcher.Subscribe(topic, "alerts", d.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle dispatches one event to the matching derivation.
func (d *Deriver) Handle(ctx context.Context, ev events.Event) error {
	actorID := ev.EventHeader().Actor.UserID

	switch e := ev.(type) {
	case events.ItemCreated:
		if e.Item.LowStock() {
			if err := d.ensureLowStock(ctx, e.Item, e.Item.Quantity); err != nil {
				return err
			}
		}
		return d.OnResourceActivity(ctx, e.Item, model.ActionCreate, actorID, nil)

	case events.ItemUpdated:
		if e.Before.Quantity != e.After.Quantity || e.Before.MinLevel != e.After.MinLevel {
			if err := d.evaluate(ctx, e.After, e.Before.Quantity, e.Before.MinLevel, e.After.Quantity); err != nil {
				return err
			}
		}
		return d.OnResourceActivity(ctx, e.After, e.Action, actorID, e.Changes)

	case events.ItemDeleted:
		if err := d.OnResourceDeleted(ctx, e.Item); err != nil {
			return err
		}
		return d.OnResourceActivity(ctx, e.Item, model.ActionDelete, actorID, nil)

	case events.QuantityChanged:
		return d.OnQuantityChanged(ctx, e.Item, e.Previous, e.Next)

	case events.FolderCreated:
		return d.OnResourceActivity(ctx, e.Folder, model.ActionCreate, actorID, nil)

	case events.FolderUpdated:
		return d.OnResourceActivity(ctx, e.After, model.ActionUpdate, actorID, e.Changes)

	case events.FolderDeleted:
		if err := d.OnResourceDeleted(ctx, e.Folder); err != nil {
			return err
		}
		return d.OnResourceActivity(ctx, e.Folder, model.ActionDelete, actorID,
			map[string]any{"unfiledItems": len(e.UnfiledItems)})

	case events.BulkOperation:
		if e.Operation == model.ActionBulkDelete {
			for _, id := range e.ItemIDs {
				if err := d.resolveItem(ctx, id); err != nil {
					return err
				}
			}
		}
		details := map[string]any{"itemIds": e.ItemIDs}
		for k, v := range e.Details {
			details[k] = v
		}
		return d.OnBulkOperation(ctx, e.Operation, e.Count, actorID, details)

	case events.SystemAlert:
		userID := e.UserID
		if userID == "" {
			userID = actorID
		}
		return d.OnSystemAlert(ctx, userID, e.Title, e.Message, e.Priority, e.Details)
	}
	return nil
}

// OnQuantityChanged applies the low-stock transition for a quantity change
// from previous to next, evaluated against item.MinLevel on both sides.
func (d *Deriver) OnQuantityChanged(ctx context.Context, item *model.Item, previous, next int) error {
	return d.evaluate(ctx, item, previous, item.MinLevel, next)
}

// evaluate ensures a low-quantity alert when the item crosses into low
// stock or runs out, and resolves it when the item recovers. Staying on
// one side of the threshold changes nothing. Events may be delivered out
// of commit order, so the outcome follows the item as currently stored:
// the event only decides whether a low item warrants a new alert.
func (d *Deriver) evaluate(ctx context.Context, item *model.Item, previous, previousMin, next int) error {
	current, err := store.GetItem(ctx, d.db, item.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}

	if !current.LowStock() {
		n, err := store.ResolveItemAlerts(ctx, d.db, current.ID, model.AlertLowQuantity)
		if err != nil {
			return err
		}
		if n > 0 {
			d.metrics.AlertDerived(model.AlertLowQuantity, outcomeResolved)
		}
		return nil
	}

	crossed := !model.IsLowStock(previous, previousMin) && model.IsLowStock(next, item.MinLevel)
	ranOut := previous > 0 && next == 0
	if crossed || ranOut {
		return d.ensureLowStock(ctx, current, current.Quantity)
	}
	return nil
}

func (d *Deriver) ensureLowStock(ctx context.Context, item *model.Item, quantity int) error {
	ok, err := d.enabled(ctx, item.UserID, settings.NotifyLowStock)
	if err != nil || !ok {
		return err
	}

	a := &model.Alert{
		UserID:   item.UserID,
		Kind:     model.AlertLowQuantity,
		Priority: model.PriorityMedium,
		Title:    "Low stock: " + item.Name,
		Message:  fmt.Sprintf("%s is at %d (minimum %d)", item.Name, quantity, item.MinLevel),
		ItemID:   ptr(item.ID),
		FolderID: item.FolderID,
		Details: model.JSONMap{
			"itemName": item.Name,
			"quantity": quantity,
			"minLevel": item.MinLevel,
		},
	}
	if quantity == 0 {
		a.Priority = model.PriorityHigh
		a.Title = "Out of stock: " + item.Name
		a.Message = item.Name + " is out of stock"
	}

	created, err := store.EnsureItemAlert(ctx, d.db, a)
	if err != nil {
		return err
	}
	if created {
		d.metrics.AlertDerived(a.Kind, outcomeCreated)
	} else {
		d.metrics.AlertDerived(a.Kind, outcomeRefreshed)
	}
	return nil
}

// OnResourceActivity raises an informational alert for an action on an
// item or folder. Alerts about deletions keep the resource only in their
// details, so no open alert points at a deleted resource.
func (d *Deriver) OnResourceActivity(ctx context.Context, resource any, action, actorID string, changes map[string]any) error {
	if action == "" {
		action = model.ActionUpdate
	}

	a := &model.Alert{Priority: model.PriorityLow, Details: model.JSONMap{"action": action, "actorId": actorID}}
	if len(changes) > 0 {
		a.Details["changes"] = changes
	}

	var setting string
	switch r := resource.(type) {
	case *model.Item:
		setting = settings.NotifyItemActivity
		a.UserID, a.Kind = r.UserID, model.AlertItemActivity
		a.Title = "Item " + actionVerb(action) + ": " + r.Name
		a.Message = fmt.Sprintf("%s was %s", r.Name, actionVerb(action))
		a.Details["itemName"] = r.Name
		if action == model.ActionDelete {
			a.Details["itemId"] = r.ID
		} else {
			a.ItemID = ptr(r.ID)
		}
	case *model.Folder:
		setting = settings.NotifyFolderActivity
		a.UserID, a.Kind = r.UserID, model.AlertFolderActivity
		a.Title = "Folder " + actionVerb(action) + ": " + r.Name
		a.Message = fmt.Sprintf("Folder %s was %s", r.Name, actionVerb(action))
		a.Details["folderName"] = r.Name
		if action == model.ActionDelete {
			a.Details["folderId"] = r.ID
		} else {
			a.FolderID = ptr(r.ID)
		}
	default:
		return fmt.Errorf("activity alert: unsupported resource %T", resource)
	}

	return d.insert(ctx, a, setting)
}

// OnResourceDeleted resolves every open alert that references the deleted
// item or folder.
func (d *Deriver) OnResourceDeleted(ctx context.Context, resource any) error {
	switch r := resource.(type) {
	case *model.Item:
		return d.resolveItem(ctx, r.ID)
	case *model.Folder:
		n, err := store.ResolveFolderAlerts(ctx, d.db, r.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			d.metrics.AlertDerived(model.AlertFolderActivity, outcomeResolved)
		}
		return nil
	}
	return fmt.Errorf("resolving alerts: unsupported resource %T", resource)
}

func (d *Deriver) resolveItem(ctx context.Context, itemID string) error {
	n, err := store.ResolveItemAlerts(ctx, d.db, itemID, "")
	if err != nil {
		return err
	}
	if n > 0 {
		d.metrics.AlertDerived(model.AlertItemActivity, outcomeResolved)
	}
	return nil
}

// OnBulkOperation raises one summary alert for a bulk request.
func (d *Deriver) OnBulkOperation(ctx context.Context, operation string, count int, actorID string, details map[string]any) error {
	a := &model.Alert{
		UserID:   actorID,
		Kind:     model.AlertBulkOperation,
		Priority: model.PriorityMedium,
		Title:    "Bulk " + actionVerb(operation),
		Message:  fmt.Sprintf("%d item(s) %s", count, actionVerb(operation)),
		Details:  model.JSONMap{"operation": operation, "count": count},
	}
	for k, v := range details {
		a.Details[k] = v
	}
	return d.insert(ctx, a, settings.NotifyBulkOperations)
}

// OnSystemAlert raises a system alert for a user.
func (d *Deriver) OnSystemAlert(ctx context.Context, userID, title, message, priority string, details map[string]any) error {
	if userID == "" {
		return fmt.Errorf("system alert %q: missing user", title)
	}
	switch priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		priority = model.PriorityMedium
	}
	return d.insert(ctx, &model.Alert{
		UserID:   userID,
		Kind:     model.AlertSystem,
		Priority: priority,
		Title:    title,
		Message:  message,
		Details:  model.JSONMap(details),
	}, settings.NotifySystem)
}

func (d *Deriver) insert(ctx context.Context, a *model.Alert, setting string) error {
	ok, err := d.enabled(ctx, a.UserID, setting)
	if err != nil || !ok {
		return err
	}
	if err := store.InsertAlert(ctx, d.db, a); err != nil {
		return err
	}
	d.metrics.AlertDerived(a.Kind, outcomeCreated)
	return nil
}

func (d *Deriver) enabled(ctx context.Context, userID, path string) (bool, error) {
	stored, err := store.GetUserSettings(ctx, d.db, userID)
	if err != nil {
		return false, err
	}
	return settings.Enabled(stored, path), nil
}

func actionVerb(action string) string {
	switch action {
	case model.ActionCreate:
		return "created"
	case model.ActionDelete, model.ActionBulkDelete:
		return "deleted"
	case model.ActionMove, model.ActionBulkMove:
		return "moved"
	case model.ActionImageAdd:
		return "image added"
	case model.ActionImageRemove:
		return "image removed"
	case model.ActionBarcodeChange:
		return "barcode changed"
	default:
		return "updated"
	}
}

func ptr(s string) *string { return &s }
