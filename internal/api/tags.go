package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// TagsHandler handles tag endpoints.
type TagsHandler struct {
	*Deps
}

type tagRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

func applyTag(tag *model.Tag, req *tagRequest) error {
	fields := map[string]string{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		switch {
		case name == "":
			fields["name"] = "name cannot be empty"
		case len(name) > 50:
			fields["name"] = "name must be at most 50 characters"
		}
		tag.Name = name
	}
	if req.Color != nil {
		if *req.Color != "" && !hexColor.MatchString(*req.Color) {
			fields["color"] = "color must be a hex color such as #3b82f6"
		}
		tag.Color = *req.Color
	}
	if req.Description != nil {
		tag.Description = strings.TrimSpace(*req.Description)
	}
	if len(fields) > 0 {
		return apperr.BadRequestf("validation failed").WithDetails(fields)
	}
	return nil
}

// List handles GET /api/tags.
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := store.ListTags(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list tags"))
		return
	}
	jsonResponse(w, http.StatusOK, "tags retrieved", tags)
}

// Create handles POST /api/tags.
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.Name == nil {
		jsonError(w, r, apperr.BadRequestf("validation failed").WithDetails(map[string]string{"name": "name is required"}))
		return
	}

	tag := &model.Tag{UserID: claims(r).UserID}
	if err := applyTag(tag, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if err := store.CreateTag(r.Context(), h.DB, tag); err != nil {
		jsonError(w, r, storeError(err, "tag"))
		return
	}

	h.publish(events.TagChanged{Header: events.NewHeader(actor(r)), Action: model.ActionCreate, Tag: tag})
	jsonResponse(w, http.StatusCreated, "tag created", tag)
}

func (h *TagsHandler) load(w http.ResponseWriter, r *http.Request) *model.Tag {
	tag, err := store.GetTag(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get tag"))
		return nil
	}
	if tag == nil {
		jsonError(w, r, apperr.NotFoundf("tag not found"))
		return nil
	}
	return tag
}

// Get handles GET /api/tags/{id}.
func (h *TagsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if tag := h.load(w, r); tag != nil {
		jsonResponse(w, http.StatusOK, "tag retrieved", tag)
	}
}

// Update handles PUT /api/tags/{id}. Renaming a tag relabels the owner's
// items.
func (h *TagsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	tag := h.load(w, r)
	if tag == nil {
		return
	}
	oldName := tag.Name

	if err := applyTag(tag, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if tag.Color == "" {
		tag.Color = model.DefaultTagColor
	}

	relabelled, err := store.UpdateTag(r.Context(), h.DB, tag, oldName)
	if err != nil {
		jsonError(w, r, storeError(err, "tag"))
		return
	}

	h.publish(events.TagChanged{
		Header:        events.NewHeader(actor(r)),
		Action:        model.ActionUpdate,
		Tag:           tag,
		OldName:       oldName,
		AffectedItems: relabelled,
	})
	jsonResponse(w, http.StatusOK, "tag updated", tag)
}

// Delete handles DELETE /api/tags/{id}. The tag is removed from every item
// that carried it.
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tag := h.load(w, r)
	if tag == nil {
		return
	}

	changed, err := store.DeleteTag(r.Context(), h.DB, tag)
	if err != nil {
		jsonError(w, r, storeError(err, "tag"))
		return
	}

	h.publish(events.TagChanged{
		Header:        events.NewHeader(actor(r)),
		Action:        model.ActionDelete,
		Tag:           tag,
		AffectedItems: changed,
	})
	jsonResponse(w, http.StatusOK, "tag deleted", map[string]any{"id": tag.ID, "affectedItems": changed})
}
