// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for the public site and
// the admin area.
package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baladroz/news/internal/authz"
	"github.com/baladroz/news/internal/content"
	"github.com/baladroz/news/internal/media"
	"github.com/baladroz/news/internal/middleware"
	"github.com/baladroz/news/internal/model"
	"github.com/baladroz/news/internal/render"
	"github.com/baladroz/news/internal/service"
	"github.com/baladroz/news/internal/store"
	"github.com/baladroz/news/internal/util"
)

// NewsHandler handles public news pages and the admin news CRUD.
type NewsHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	media        *media.Service
	eventService *service.EventService
	resolver     *authz.Resolver
	listLimit    int64
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(db *sql.DB, renderer *render.Renderer, mediaSvc *media.Service, resolver *authz.Resolver, listLimit int64) *NewsHandler {
	return &NewsHandler{
		queries:      store.New(db),
		renderer:     renderer,
		media:        mediaSvc,
		eventService: service.NewEventService(db),
		resolver:     resolver,
		listLimit:    listLimit,
	}
}

// newsListData is the template payload for news listings.
type newsListData struct {
	Items     []model.News
	CanAdd    bool
	CanEdit   bool
	CanDelete bool
}

// newsFormData is the template payload for the create/edit form.
type newsFormData struct {
	Item        *model.News
	Title       string
	Description string
	Errors      []string
}

// List handles GET / with the latest news.
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.queries.ListNews(r.Context(), h.listLimit)
	if err != nil {
		logAndInternalError(w, "listing news", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "public/news_list", render.TemplateData{
		User: middleware.GetUser(r),
		Data: newsListData{Items: items},
	})
	if err != nil {
		logAndInternalError(w, "rendering news list", "error", err)
	}
}

// Detail handles GET /news/{slug}.
func (h *NewsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		http.NotFound(w, r)
		return
	}

	item, err := h.queries.GetNewsBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		logAndInternalError(w, "loading news item", "error", err, "slug", slug)
		return
	}

	err = h.renderer.Render(w, r, "public/news_detail", render.TemplateData{
		Title: item.Title,
		User:  middleware.GetUser(r),
		Data:  struct{ Item model.News }{Item: item},
	})
	if err != nil {
		logAndInternalError(w, "rendering news item", "error", err)
	}
}

// AdminList handles GET /admin/news.
func (h *NewsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	items, err := h.queries.ListNews(r.Context(), h.listLimit)
	if err != nil {
		logAndInternalError(w, "listing news", "error", err)
		return
	}

	user := middleware.GetUser(r)
	identity := user.Identity()

	err = h.renderer.Render(w, r, "admin/news_list", render.TemplateData{
		Title: "News",
		User:  user,
		Data: newsListData{
			Items:     items,
			CanAdd:    h.resolver.HasPermission(identity, authz.PermAddNews),
			CanEdit:   h.resolver.HasPermission(identity, authz.PermEditNews),
			CanDelete: h.resolver.HasPermission(identity, authz.PermDeleteNews),
		},
	})
	if err != nil {
		logAndInternalError(w, "rendering admin news list", "error", err)
	}
}

// NewForm handles GET /admin/news/new.
func (h *NewsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, newsFormData{})
}

// Create handles POST /admin/news/new.
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	draft, imageFile, ok := h.parseNewsForm(w, r, nil)
	if !ok {
		return
	}

	var imageURL sql.NullString
	if imageFile != nil {
		result, err := h.uploadImage(w, r, imageFile, nil)
		if err != nil {
			return
		}
		imageURL = sql.NullString{String: result.URL, Valid: true}
	}

	user := middleware.GetUser(r)
	now := time.Now()

	slug, err := h.uniqueSlug(r, draft.Title)
	if err != nil {
		logAndInternalError(w, "generating slug", "error", err)
		return
	}

	item, err := h.queries.CreateNews(r.Context(), store.CreateNewsParams{
		Slug:        slug,
		Title:       draft.Title,
		Description: draft.Description,
		ImageURL:    imageURL,
		AuthorName:  user.Name,
		AuthorEmail: user.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		logAndInternalError(w, "creating news item", "error", err)
		return
	}

	_ = h.eventService.LogNewsEvent(r.Context(), model.EventLevelInfo,
		"News item created", &user.ID, util.ClientIP(r),
		map[string]any{"news_id": item.ID, "slug": item.Slug})

	flashSuccess(w, r, h.renderer, redirectAdminNews, "News item published")
}

// EditForm handles GET /admin/news/{id}/edit.
func (h *NewsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	item, ok := h.requireNews(w, r)
	if !ok {
		return
	}

	h.renderForm(w, r, newsFormData{
		Item:        &item,
		Title:       item.Title,
		Description: item.Description,
	})
}

// Update handles POST /admin/news/{id}/edit. The slug and creation time
// stay fixed; a replacement image deletes the previous one.
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.requireNews(w, r)
	if !ok {
		return
	}

	draft, imageFile, ok := h.parseNewsForm(w, r, &item)
	if !ok {
		return
	}

	imageURL := item.ImageURL
	replacedURL := ""
	if imageFile != nil {
		result, err := h.uploadImage(w, r, imageFile, &item)
		if err != nil {
			return
		}
		if item.HasImage() {
			replacedURL = item.ImageURL.String
		}
		imageURL = sql.NullString{String: result.URL, Valid: true}
	}

	user := middleware.GetUser(r)

	updated, err := h.queries.UpdateNews(r.Context(), store.UpdateNewsParams{
		ID:          item.ID,
		Slug:        item.Slug,
		Title:       draft.Title,
		Description: draft.Description,
		ImageURL:    imageURL,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "updating news item", "error", err)
		return
	}

	// The previous image is removed only once the row no longer points
	// at it, so a failed update never leaves a dangling reference.
	if replacedURL != "" {
		if err := h.media.Delete(replacedURL); err != nil {
			slog.Warn("deleting replaced image", "error", err, "url", replacedURL)
		}
	}

	_ = h.eventService.LogNewsEvent(r.Context(), model.EventLevelInfo,
		"News item updated", &user.ID, util.ClientIP(r),
		map[string]any{"news_id": updated.ID, "slug": updated.Slug})

	flashSuccess(w, r, h.renderer, redirectAdminNews, "News item updated")
}

// Delete handles POST /admin/news/{id}/delete. The stored image goes
// with the item.
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.requireNews(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeleteNews(r.Context(), item.ID); err != nil {
		logAndInternalError(w, "deleting news item", "error", err)
		return
	}

	if item.HasImage() {
		if err := h.media.Delete(item.ImageURL.String); err != nil {
			slog.Warn("deleting news image", "error", err, "url", item.ImageURL.String)
		}
	}

	user := middleware.GetUser(r)
	_ = h.eventService.LogNewsEvent(r.Context(), model.EventLevelInfo,
		"News item deleted", &user.ID, util.ClientIP(r),
		map[string]any{"news_id": item.ID, "slug": item.Slug})

	flashSuccess(w, r, h.renderer, redirectAdminNews, "News item deleted")
}

// requireNews loads the news item addressed by the {id} URL parameter.
func (h *NewsHandler) requireNews(w http.ResponseWriter, r *http.Request) (model.News, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminNews, "Invalid news ID")
		return model.News{}, false
	}

	return requireEntityWithRedirect(w, r, h.renderer, redirectAdminNews, "news item", id,
		func(id int64) (model.News, error) { return h.queries.GetNewsByID(r.Context(), id) })
}

// parseNewsForm parses the multipart form and validates the draft.
// Validation failures re-render the form with errors; ok=false means a
// response has been written.
func (h *NewsHandler) parseNewsForm(w http.ResponseWriter, r *http.Request, item *model.News) (content.Draft, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(media.MaxAttachmentSize + 1024*1024); err != nil {
		flashError(w, r, h.renderer, redirectAdminNews, "Invalid form data")
		return content.Draft{}, nil, false
	}

	draft, err := content.Validate(content.Draft{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	})
	if err != nil {
		h.renderForm(w, r, newsFormData{
			Item:        item,
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Errors:      []string{err.Error()},
		})
		return content.Draft{}, nil, false
	}

	_, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return draft, nil, true
		}
		flashError(w, r, h.renderer, redirectAdminNews, "Invalid image upload")
		return content.Draft{}, nil, false
	}

	return draft, header, true
}

// uploadImage reads the uploaded file and stores it through the media
// service. Policy violations re-render the form; other failures 500.
func (h *NewsHandler) uploadImage(w http.ResponseWriter, r *http.Request, header *multipart.FileHeader, item *model.News) (*media.UploadResult, error) {
	file, err := header.Open()
	if err != nil {
		logAndInternalError(w, "opening uploaded image", "error", err)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, media.MaxAttachmentSize+1))
	if err != nil {
		logAndInternalError(w, "reading uploaded image", "error", err)
		return nil, err
	}

	filename := header.Filename

	result, err := h.media.Upload(filename, data)
	if err != nil {
		if errors.Is(err, media.ErrAttachmentTooLarge) || errors.Is(err, media.ErrUnsupportedType) {
			user := middleware.GetUser(r)
			_ = h.eventService.LogMediaEvent(r.Context(), model.EventLevelWarning,
				"Image upload rejected", &user.ID, util.ClientIP(r),
				map[string]any{"filename": filename, "reason": err.Error()})
			h.renderForm(w, r, newsFormData{
				Item:        item,
				Title:       r.FormValue("title"),
				Description: r.FormValue("description"),
				Errors:      []string{err.Error()},
			})
			return nil, err
		}
		logAndInternalError(w, "storing uploaded image", "error", err)
		return nil, err
	}

	return result, nil
}

// uniqueSlug derives a URL slug from the title, suffixing a counter
// when the slug is already taken.
func (h *NewsHandler) uniqueSlug(r *http.Request, title string) (string, error) {
	base := util.Slugify(title)
	if base == "" {
		base = fmt.Sprintf("news-%d", time.Now().UnixMilli())
	}

	slug := base
	for i := 2; ; i++ {
		n, err := h.queries.CountNewsBySlug(r.Context(), slug)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (h *NewsHandler) renderForm(w http.ResponseWriter, r *http.Request, data newsFormData) {
	title := "Add News"
	if data.Item != nil {
		title = "Edit News"
	}

	err := h.renderer.Render(w, r, "admin/news_form", render.TemplateData{
		Title: title,
		User:  middleware.GetUser(r),
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering news form", "error", err)
	}
}
