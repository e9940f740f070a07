package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/imaging"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/settings"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

const (
	maxItemImages = 10
	maxBulkIDs    = 100
	mutateRetries = 3
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	*Deps
}

type itemRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Quantity      *int      `json:"quantity"`
	Price         *float64  `json:"price"`
	MinLevel      *int      `json:"minLevel"`
	Unit          *string   `json:"unit"`
	Tags          *[]string `json:"tags"`
	FolderID      *string   `json:"folderId"`
	Barcode       *string   `json:"barcode"`
	BarcodeFormat *string   `json:"barcodeFormat"`
	Version       int64     `json:"version"`
}

type quantityRequest struct {
	Quantity *int   `json:"quantity"`
	Delta    *int   `json:"delta"`
	Reason   string `json:"reason"`
}

type moveRequest struct {
	FolderID *string `json:"folderId"`
}

type barcodeRequest struct {
	Barcode string `json:"barcode"`
	Format  string `json:"format"`
}

type imageRequest struct {
	URL string `json:"url"`
}

type bulkRequest struct {
	IDs      []string `json:"ids"`
	FolderID *string  `json:"folderId"`
}

type itemList struct {
	Items      []model.Item `json:"items"`
	Pagination pageMeta     `json:"pagination"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		UserID:     claims(r).UserID,
		FolderID:   q.Get("folderId"),
		Tag:        q.Get("tag"),
		Query:      q.Get("q"),
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
		Pagination: pagination(r),
	}
	if v := q.Get("lowStock"); v != "" {
		low, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, r, apperr.BadRequestf("lowStock must be true or false"))
			return
		}
		f.LowStock = low
	}
	if !store.ValidItemSort(f.Sort) {
		jsonError(w, r, apperr.BadRequestf("unknown sort field %q", f.Sort))
		return
	}
	h.listItems(w, r, f, "items retrieved")
}

func (d *Deps) listItems(w http.ResponseWriter, r *http.Request, f store.ItemFilter, message string) {
	items, total, err := store.ListItems(r.Context(), d.DB, f)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list items"))
		return
	}
	jsonResponse(w, http.StatusOK, message, itemList{Items: items, Pagination: newPageMeta(f.Pagination, total)})
}

// LowStock handles GET /api/items/low-stock.
func (h *ItemsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	h.listItems(w, r, store.ItemFilter{
		UserID:     claims(r).UserID,
		LowStock:   true,
		Sort:       "quantity",
		Order:      "asc",
		Pagination: pagination(r),
	}, "low stock items retrieved")
}

// Stats handles GET /api/items/stats.
func (h *ItemsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetItemStats(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to aggregate items"))
		return
	}
	jsonResponse(w, http.StatusOK, "item statistics retrieved", stats)
}

// ByBarcode handles GET /api/items/barcode/{code}.
func (h *ItemsHandler) ByBarcode(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItemByBarcode(r.Context(), h.DB, claims(r).UserID, chi.URLParam(r, "code"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to look up barcode"))
		return
	}
	if item == nil {
		jsonError(w, r, apperr.NotFoundf("no item carries this barcode"))
		return
	}
	jsonResponse(w, http.StatusOK, "item retrieved", item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	userID := claims(r).UserID

	stored, err := store.GetUserSettings(r.Context(), h.DB, userID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to load settings"))
		return
	}
	defaults := settings.Effective(stored)

	item := &model.Item{UserID: userID}
	if v, ok := settings.Lookup(defaults, "inventory.defaultMinLevel"); ok {
		if f, ok := v.(float64); ok {
			item.MinLevel = int(f)
		}
	}
	if v, ok := settings.Lookup(defaults, "inventory.defaultUnit"); ok {
		item.Unit, _ = v.(string)
	}
	if req.Name == nil {
		jsonError(w, r, apperr.BadRequestf("validation failed").WithDetails(map[string]string{"name": "name is required"}))
		return
	}
	if err := h.apply(r.Context(), userID, item, &req); err != nil {
		jsonError(w, r, err)
		return
	}

	if err := store.EnsureTags(r.Context(), h.DB, userID, item.Tags); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to save tags"))
		return
	}
	if err := store.CreateItem(r.Context(), h.DB, item); err != nil {
		jsonError(w, r, storeError(err, "item"))
		return
	}

	h.publish(events.ItemCreated{Header: events.NewHeader(actor(r)), Item: item.Clone()})
	jsonResponse(w, http.StatusCreated, "item created", item)
}

// apply validates req and copies the fields it sets onto item.
func (h *ItemsHandler) apply(ctx context.Context, userID string, item *model.Item, req *itemRequest) error {
	fields := map[string]string{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			fields["name"] = "name cannot be empty"
		} else if len(name) > 200 {
			fields["name"] = "name must be at most 200 characters"
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			fields["quantity"] = "quantity cannot be negative"
		}
		item.Quantity = *req.Quantity
	}
	if req.Price != nil {
		if *req.Price < 0 {
			fields["price"] = "price cannot be negative"
		}
		item.Price = *req.Price
	}
	if req.MinLevel != nil {
		if *req.MinLevel < 0 {
			fields["minLevel"] = "minLevel cannot be negative"
		}
		item.MinLevel = *req.MinLevel
	}
	if req.Unit != nil {
		item.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Tags != nil {
		item.Tags = normalizeTags(*req.Tags)
	}
	if req.BarcodeFormat != nil {
		if !model.BarcodeFormats[*req.BarcodeFormat] {
			fields["barcodeFormat"] = "unsupported barcode format"
		}
		item.BarcodeFormat = *req.BarcodeFormat
	}
	if req.Barcode != nil {
		item.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if len(fields) > 0 {
		return apperr.BadRequestf("validation failed").WithDetails(fields)
	}

	if req.FolderID != nil {
		folderID, err := h.checkFolder(ctx, userID, *req.FolderID)
		if err != nil {
			return err
		}
		item.FolderID = folderID
	}
	return nil
}

// checkFolder resolves a folder reference from a request body. An empty
// ID or "root" means no folder.
func (d *Deps) checkFolder(ctx context.Context, userID, id string) (*string, error) {
	if id == "" || id == store.RootFolder {
		return nil, nil
	}
	folder, err := store.GetFolder(ctx, d.DB, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to look up folder")
	}
	if folder == nil || folder.UserID != userID {
		return nil, apperr.BadRequestf("folder not found")
	}
	return &folder.ID, nil
}

func normalizeTags(tags []string) model.StringList {
	out := model.StringList{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !out.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get item"))
		return
	}
	if item == nil {
		jsonError(w, r, apperr.NotFoundf("item not found"))
		return
	}
	jsonResponse(w, http.StatusOK, "item retrieved", item)
}

// Update handles PUT /api/items/{id}. A non-zero version makes the update
// conditional on the stored version.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}

	current, err := store.GetItem(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get item"))
		return
	}
	if current == nil {
		jsonError(w, r, apperr.NotFoundf("item not found"))
		return
	}
	if req.Version != 0 && req.Version != current.Version {
		jsonError(w, r, apperr.Conflictf("item was modified by another request").
			WithDetails(map[string]int64{"currentVersion": current.Version}))
		return
	}

	before := current.Clone()
	if err := h.apply(r.Context(), current.UserID, current, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if current.Barcode != before.Barcode && before.Barcode != "" {
		current.BarcodeHistory = append(current.BarcodeHistory, model.BarcodeChange{
			Barcode:   before.Barcode,
			Format:    before.BarcodeFormat,
			ChangedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	changes := itemChanges(before, current)
	if len(changes) == 0 {
		jsonResponse(w, http.StatusOK, "item unchanged", current)
		return
	}

	if err := store.EnsureTags(r.Context(), h.DB, current.UserID, current.Tags); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to save tags"))
		return
	}
	if err := store.UpdateItem(r.Context(), h.DB, current); err != nil {
		jsonError(w, r, storeError(err, "item"))
		return
	}

	h.publish(events.ItemUpdated{
		Header:  events.NewHeader(actor(r)),
		Before:  before,
		After:   current.Clone(),
		Action:  model.ActionUpdate,
		Changes: changes,
	})
	jsonResponse(w, http.StatusOK, "item updated", current)
}

// itemChanges lists changed fields as {from, to} pairs.
func itemChanges(before, after *model.Item) map[string]any {
	changes := map[string]any{}
	add := func(field string, from, to any) {
		changes[field] = map[string]any{"from": from, "to": to}
	}
	if before.Name != after.Name {
		add("name", before.Name, after.Name)
	}
	if before.Description != after.Description {
		add("description", before.Description, after.Description)
	}
	if before.Quantity != after.Quantity {
		add("quantity", before.Quantity, after.Quantity)
	}
	if before.Price != after.Price {
		add("price", before.Price, after.Price)
	}
	if before.MinLevel != after.MinLevel {
		add("minLevel", before.MinLevel, after.MinLevel)
	}
	if before.Unit != after.Unit {
		add("unit", before.Unit, after.Unit)
	}
	if !slices.Equal(before.Tags, after.Tags) {
		add("tags", []string(before.Tags), []string(after.Tags))
	}
	if before.FolderIDValue() != after.FolderIDValue() {
		add("folderId", before.FolderIDValue(), after.FolderIDValue())
	}
	if before.Barcode != after.Barcode {
		add("barcode", before.Barcode, after.Barcode)
	}
	if before.BarcodeFormat != after.BarcodeFormat {
		add("barcodeFormat", before.BarcodeFormat, after.BarcodeFormat)
	}
	return changes
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get item"))
		return
	}
	if item == nil {
		jsonError(w, r, apperr.NotFoundf("item not found"))
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, r, storeError(err, "item"))
		return
	}
	h.removeBlobs(r, item.Images)

	h.publish(events.ItemDeleted{Header: events.NewHeader(actor(r)), Item: item})
	jsonResponse(w, http.StatusOK, "item deleted", map[string]string{"id": item.ID})
}

func (h *ItemsHandler) removeBlobs(r *http.Request, urls []string) {
	if h.Blobs == nil {
		return
	}
	for _, url := range urls {
		if !h.Blobs.Owns(url) {
			continue
		}
		if err := h.Blobs.Delete(url); err != nil {
			logger.FromContext(r.Context()).Warn("removing image file", zap.Error(err))
		}
	}
}

// UpdateQuantity handles PATCH /api/items/{id}/quantity. The body carries
// either an absolute quantity or a delta.
func (h *ItemsHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if (req.Quantity == nil) == (req.Delta == nil) {
		jsonError(w, r, apperr.BadRequestf("provide exactly one of quantity or delta"))
		return
	}

	id := chi.URLParam(r, "id")
	var (
		item     *model.Item
		previous int
		err      error
	)
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			jsonError(w, r, apperr.BadRequestf("quantity cannot be negative"))
			return
		}
		item, previous, err = store.SetItemQuantity(r.Context(), h.DB, id, *req.Quantity)
	} else {
		item, previous, err = store.AdjustItemQuantity(r.Context(), h.DB, id, *req.Delta)
	}
	if err != nil {
		jsonError(w, r, storeError(err, "item"))
		return
	}

	if item.Quantity != previous {
		h.publish(events.QuantityChanged{
			Header:   events.NewHeader(actor(r)),
			Item:     item.Clone(),
			Previous: previous,
			Next:     item.Quantity,
			Reason:   strings.TrimSpace(req.Reason),
		})
	}
	jsonResponse(w, http.StatusOK, "quantity updated", item)
}

var errUnchanged = errors.New("unchanged")

// mutate applies fn to the current item and saves it, retrying when a
// concurrent write bumps the version first. When fn returns errUnchanged
// nothing is written and before and after are the same item.
func (h *ItemsHandler) mutate(ctx context.Context, id string, fn func(item *model.Item) error) (before, after *model.Item, err error) {
	for range mutateRetries {
		current, err := store.GetItem(ctx, h.DB, id)
		if err != nil {
			return nil, nil, apperr.Internal(err, "failed to get item")
		}
		if current == nil {
			return nil, nil, apperr.NotFoundf("item not found")
		}
		before = current.Clone()
		if err := fn(current); err != nil {
			if errors.Is(err, errUnchanged) {
				return before, before, nil
			}
			return nil, nil, err
		}
		err = store.UpdateItem(ctx, h.DB, current)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, nil, storeError(err, "item")
		}
		return before, current, nil
	}
	return nil, nil, storeError(store.ErrVersionConflict, "item")
}

// AddImage handles POST /api/items/{id}/images with a multipart "image"
// file.
func (h *ItemsHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	if h.Blobs == nil {
		jsonError(w, r, apperr.Internal(nil, "image storage is not configured"))
		return
	}

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		jsonError(w, r, apperr.BadRequestf("image upload is missing or too large"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, r, apperr.BadRequestf("image file is required"))
		return
	}
	defer file.Close()

	img, err := h.Images.Process(file)
	if errors.Is(err, imaging.ErrUnsupported) {
		jsonError(w, r, apperr.BadRequestf("image must be JPEG, PNG, GIF or WebP"))
		return
	}
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to process image"))
		return
	}

	url, err := h.Blobs.Put(img.Data, "jpg")
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to store image"))
		return
	}

	before, after, err := h.mutate(r.Context(), chi.URLParam(r, "id"), func(item *model.Item) error {
		if len(item.Images) >= maxItemImages {
			return apperr.BadRequestf("an item can have at most %d images", maxItemImages)
		}
		item.Images = append(item.Images, url)
		return nil
	})
	if err != nil {
		h.removeBlobs(r, []string{url})
		jsonError(w, r, err)
		return
	}

	h.publish(events.ItemUpdated{
		Header:  events.NewHeader(actor(r)),
		Before:  before,
		After:   after.Clone(),
		Action:  model.ActionImageAdd,
		Changes: map[string]any{"image": url, "width": img.Width, "height": img.Height},
	})
	jsonResponse(w, http.StatusCreated, "image added", after)
}

// RemoveImage handles DELETE /api/items/{id}/images.
func (h *ItemsHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.URL == "" {
		jsonError(w, r, apperr.BadRequestf("url is required"))
		return
	}

	before, after, err := h.mutate(r.Context(), chi.URLParam(r, "id"), func(item *model.Item) error {
		i := slices.Index(item.Images, req.URL)
		if i < 0 {
			return apperr.NotFoundf("image not found on this item")
		}
		item.Images = slices.Delete(item.Images, i, i+1)
		return nil
	})
	if err != nil {
		jsonError(w, r, err)
		return
	}
	h.removeBlobs(r, []string{req.URL})

	h.publish(events.ItemUpdated{
		Header:  events.NewHeader(actor(r)),
		Before:  before,
		After:   after.Clone(),
		Action:  model.ActionImageRemove,
		Changes: map[string]any{"image": req.URL},
	})
	jsonResponse(w, http.StatusOK, "image removed", after)
}

// Move handles PATCH /api/items/{id}/move. A null or "root" folderId moves
// the item out of any folder.
func (h *ItemsHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	userID := claims(r).UserID

	target := ""
	if req.FolderID != nil {
		target = *req.FolderID
	}
	folderID, err := h.checkFolder(r.Context(), userID, target)
	if err != nil {
		jsonError(w, r, err)
		return
	}

	before, after, err := h.mutate(r.Context(), chi.URLParam(r, "id"), func(item *model.Item) error {
		if item.FolderIDValue() == derefString(folderID) {
			return errUnchanged
		}
		item.FolderID = folderID
		return nil
	})
	if err != nil {
		jsonError(w, r, err)
		return
	}
	if before == after {
		jsonResponse(w, http.StatusOK, "item already in folder", after)
		return
	}

	h.publish(events.ItemUpdated{
		Header: events.NewHeader(actor(r)),
		Before: before,
		After:  after.Clone(),
		Action: model.ActionMove,
		Changes: map[string]any{"folderId": map[string]any{
			"from": before.FolderIDValue(),
			"to":   after.FolderIDValue(),
		}},
	})
	jsonResponse(w, http.StatusOK, "item moved", after)
}

// SetBarcode handles PUT /api/items/{id}/barcode. The replaced barcode is
// kept in the item's history.
func (h *ItemsHandler) SetBarcode(w http.ResponseWriter, r *http.Request) {
	var req barcodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	req.Barcode = strings.TrimSpace(req.Barcode)
	if !model.BarcodeFormats[req.Format] {
		jsonError(w, r, apperr.BadRequestf("unsupported barcode format"))
		return
	}

	before, after, err := h.mutate(r.Context(), chi.URLParam(r, "id"), func(item *model.Item) error {
		if item.Barcode == req.Barcode && item.BarcodeFormat == req.Format {
			return errUnchanged
		}
		if item.Barcode != "" && item.Barcode != req.Barcode {
			item.BarcodeHistory = append(item.BarcodeHistory, model.BarcodeChange{
				Barcode:   item.Barcode,
				Format:    item.BarcodeFormat,
				ChangedAt: time.Now().UTC().Format(time.RFC3339),
			})
		}
		item.Barcode = req.Barcode
		item.BarcodeFormat = req.Format
		return nil
	})
	if err != nil {
		jsonError(w, r, err)
		return
	}
	if before == after {
		jsonResponse(w, http.StatusOK, "barcode unchanged", after)
		return
	}

	h.publish(events.ItemUpdated{
		Header: events.NewHeader(actor(r)),
		Before: before,
		After:  after.Clone(),
		Action: model.ActionBarcodeChange,
		Changes: map[string]any{"barcode": map[string]any{
			"from": before.Barcode,
			"to":   after.Barcode,
		}},
	})
	jsonResponse(w, http.StatusOK, "barcode updated", after)
}

// Activities handles GET /api/items/{id}/activities.
func (h *ItemsHandler) Activities(w http.ResponseWriter, r *http.Request) {
	f := store.ActivityFilter{
		UserID:       claims(r).UserID,
		ResourceType: model.ResourceItem,
		ResourceID:   chi.URLParam(r, "id"),
		Pagination:   pagination(r),
	}
	list, total, err := store.ListActivities(r.Context(), h.DB, f)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list activities"))
		return
	}
	jsonResponse(w, http.StatusOK, "item activities retrieved", activityList{
		Activities: list,
		Pagination: newPageMeta(f.Pagination, total),
	})
}

func (h *ItemsHandler) bulkIDs(w http.ResponseWriter, r *http.Request, req *bulkRequest) bool {
	if err := decodeJSON(w, r, req); err != nil {
		jsonError(w, r, err)
		return false
	}
	if len(req.IDs) == 0 {
		jsonError(w, r, apperr.BadRequestf("ids must contain at least one item"))
		return false
	}
	if len(req.IDs) > maxBulkIDs {
		jsonError(w, r, apperr.BadRequestf("at most %d items per request", maxBulkIDs))
		return false
	}
	return true
}

// BulkDelete handles POST /api/items/bulk-delete. IDs the caller does not
// own are skipped.
func (h *ItemsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !h.bulkIDs(w, r, &req) {
		return
	}

	deleted, err := store.DeleteItems(r.Context(), h.DB, claims(r).UserID, req.IDs)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to delete items"))
		return
	}

	ids := make([]string, 0, len(deleted))
	for _, item := range deleted {
		ids = append(ids, item.ID)
		h.removeBlobs(r, item.Images)
	}
	if len(ids) > 0 {
		h.publish(events.BulkOperation{
			Header:    events.NewHeader(actor(r)),
			Operation: model.ActionBulkDelete,
			Count:     len(ids),
			ItemIDs:   ids,
		})
	}
	jsonResponse(w, http.StatusOK, "items deleted", map[string]any{"deleted": len(ids), "ids": ids})
}

// BulkMove handles POST /api/items/bulk-move.
func (h *ItemsHandler) BulkMove(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !h.bulkIDs(w, r, &req) {
		return
	}
	userID := claims(r).UserID

	folderID, err := h.checkFolder(r.Context(), userID, derefString(req.FolderID))
	if err != nil {
		jsonError(w, r, err)
		return
	}

	moved, err := store.MoveItems(r.Context(), h.DB, userID, req.IDs, folderID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to move items"))
		return
	}

	ids := make([]string, 0, len(moved))
	for _, item := range moved {
		ids = append(ids, item.ID)
	}
	if len(ids) > 0 {
		h.publish(events.BulkOperation{
			Header:    events.NewHeader(actor(r)),
			Operation: model.ActionBulkMove,
			Count:     len(ids),
			ItemIDs:   ids,
			Details:   map[string]any{"folderId": derefString(folderID)},
		})
	}
	jsonResponse(w, http.StatusOK, "items moved", map[string]any{"moved": len(ids), "ids": ids})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
