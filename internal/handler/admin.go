// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/baladroz/news/internal/authz"
	"github.com/baladroz/news/internal/middleware"
	"github.com/baladroz/news/internal/model"
	"github.com/baladroz/news/internal/render"
	"github.com/baladroz/news/internal/store"
)

// recentEventsLimit caps the dashboard event feed.
const recentEventsLimit = 20

// AdminHandler handles the admin dashboard.
type AdminHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	resolver *authz.Resolver
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, resolver *authz.Resolver) *AdminHandler {
	return &AdminHandler{
		queries:  store.New(db),
		renderer: renderer,
		resolver: resolver,
	}
}

// dashboardData is the template payload for the dashboard.
type dashboardData struct {
	NewsCount    int64
	UserCount    int64
	CanAdd       bool
	RecentEvents []model.Event
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	newsCount, err := h.queries.CountNews(r.Context())
	if err != nil {
		logAndInternalError(w, "counting news", "error", err)
		return
	}

	userCount, err := h.queries.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "counting users", "error", err)
		return
	}

	user := middleware.GetUser(r)

	data := dashboardData{
		NewsCount: newsCount,
		UserCount: userCount,
		CanAdd:    h.resolver.HasPermission(user.Identity(), authz.PermAddNews),
	}

	// The event feed is an audit surface; only show it to entries that
	// hold the analytics grant.
	if h.resolver.HasPermission(user.Identity(), authz.PermViewAnalytics) {
		events, err := h.queries.ListRecentEvents(r.Context(), recentEventsLimit)
		if err != nil {
			logAndInternalError(w, "listing events", "error", err)
			return
		}
		data.RecentEvents = events
	}

	err = h.renderer.Render(w, r, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		User:  user,
		Data:  data,
	})
	if err != nil {
		logAndInternalError(w, "rendering dashboard", "error", err)
	}
}
