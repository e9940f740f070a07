package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// FoldersHandler handles folder endpoints.
type FoldersHandler struct {
	*Deps
}

type folderRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	ParentID    *string `json:"parentId"`
}

// List handles GET /api/folders.
func (h *FoldersHandler) List(w http.ResponseWriter, r *http.Request) {
	folders, err := store.ListFolders(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list folders"))
		return
	}
	jsonResponse(w, http.StatusOK, "folders retrieved", folders)
}

// Tree handles GET /api/folders/tree.
func (h *FoldersHandler) Tree(w http.ResponseWriter, r *http.Request) {
	folders, err := store.ListFolders(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list folders"))
		return
	}
	jsonResponse(w, http.StatusOK, "folder tree retrieved", model.BuildFolderTree(folders))
}

// Create handles POST /api/folders.
func (h *FoldersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	userID := claims(r).UserID

	folder := &model.Folder{UserID: userID}
	if req.Name == nil {
		jsonError(w, r, apperr.BadRequestf("validation failed").WithDetails(map[string]string{"name": "name is required"}))
		return
	}
	if err := applyFolder(folder, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.ParentID != nil {
		parentID, err := h.checkFolder(r.Context(), userID, *req.ParentID)
		if err != nil {
			jsonError(w, r, err)
			return
		}
		folder.ParentID = parentID
	}

	if err := store.CreateFolder(r.Context(), h.DB, folder); err != nil {
		jsonError(w, r, storeError(err, "folder"))
		return
	}

	h.publish(events.FolderCreated{Header: events.NewHeader(actor(r)), Folder: folder.Clone()})
	jsonResponse(w, http.StatusCreated, "folder created", folder)
}

func applyFolder(folder *model.Folder, req *folderRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		switch {
		case name == "":
			return apperr.BadRequestf("validation failed").WithDetails(map[string]string{"name": "name cannot be empty"})
		case len(name) > 100:
			return apperr.BadRequestf("validation failed").WithDetails(map[string]string{"name": "name must be at most 100 characters"})
		}
		folder.Name = name
	}
	if req.Description != nil {
		folder.Description = strings.TrimSpace(*req.Description)
	}
	if req.Color != nil {
		folder.Color = strings.TrimSpace(*req.Color)
	}
	return nil
}

func (h *FoldersHandler) load(w http.ResponseWriter, r *http.Request) *model.Folder {
	folder, err := store.GetFolder(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get folder"))
		return nil
	}
	if folder == nil {
		jsonError(w, r, apperr.NotFoundf("folder not found"))
		return nil
	}
	return folder
}

// Get handles GET /api/folders/{id}.
func (h *FoldersHandler) Get(w http.ResponseWriter, r *http.Request) {
	folder := h.load(w, r)
	if folder == nil {
		return
	}
	jsonResponse(w, http.StatusOK, "folder retrieved", folder)
}

// Update handles PUT /api/folders/{id}. Moving a folder under itself or
// one of its descendants is rejected.
func (h *FoldersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	folder := h.load(w, r)
	if folder == nil {
		return
	}
	before := folder.Clone()

	if err := applyFolder(folder, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.ParentID != nil {
		parentID, err := h.checkFolder(r.Context(), folder.UserID, *req.ParentID)
		if err != nil {
			jsonError(w, r, err)
			return
		}
		if parentID != nil {
			cycle, err := store.IsFolderWithin(r.Context(), h.DB, *parentID, folder.ID)
			if err != nil {
				jsonError(w, r, apperr.Internal(err, "failed to check folder hierarchy"))
				return
			}
			if cycle {
				jsonError(w, r, apperr.BadRequestf("a folder cannot be moved into itself or its subfolders"))
				return
			}
		}
		folder.ParentID = parentID
	}

	changes := folderChanges(before, folder)
	if len(changes) == 0 {
		jsonResponse(w, http.StatusOK, "folder unchanged", folder)
		return
	}
	if err := store.UpdateFolder(r.Context(), h.DB, folder); err != nil {
		jsonError(w, r, storeError(err, "folder"))
		return
	}

	h.publish(events.FolderUpdated{
		Header:  events.NewHeader(actor(r)),
		Before:  before,
		After:   folder.Clone(),
		Changes: changes,
	})
	jsonResponse(w, http.StatusOK, "folder updated", folder)
}

func folderChanges(before, after *model.Folder) map[string]any {
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
	if before.Color != after.Color {
		add("color", before.Color, after.Color)
	}
	if derefString(before.ParentID) != derefString(after.ParentID) {
		add("parentId", derefString(before.ParentID), derefString(after.ParentID))
	}
	return changes
}

// Delete handles DELETE /api/folders/{id}. Subfolders move up a level and
// items move to the root.
func (h *FoldersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	folder := h.load(w, r)
	if folder == nil {
		return
	}

	unfiled, err := store.DeleteFolder(r.Context(), h.DB, folder)
	if err != nil {
		jsonError(w, r, storeError(err, "folder"))
		return
	}

	h.publish(events.FolderDeleted{
		Header:       events.NewHeader(actor(r)),
		Folder:       folder,
		UnfiledItems: unfiled,
	})
	jsonResponse(w, http.StatusOK, "folder deleted", map[string]any{
		"id":           folder.ID,
		"unfiledItems": len(unfiled),
	})
}

// Items handles GET /api/folders/{id}/items.
func (h *FoldersHandler) Items(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		UserID:     claims(r).UserID,
		FolderID:   chi.URLParam(r, "id"),
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
		Pagination: pagination(r),
	}
	if !store.ValidItemSort(f.Sort) {
		jsonError(w, r, apperr.BadRequestf("unknown sort field %q", f.Sort))
		return
	}
	h.listItems(w, r, f, "folder items retrieved")
}
