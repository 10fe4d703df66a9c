// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteNews is the public news route.
	RouteNews = "/news"
	// RouteAdminNews is the admin news route.
	RouteAdminNews = "/news"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteSuffixEdit is the suffix for "edit" routes.
	RouteSuffixEdit = "/edit"
	// RouteSuffixDelete is the suffix for "delete" routes.
	RouteSuffixDelete = "/delete"
	// RoutePassword is the change-password route under /admin.
	RoutePassword = "/password"
)

// Redirect targets.
const (
	redirectLogin     = "/login"
	redirectAdmin     = "/admin"
	redirectAdminNews = "/admin/news"
	redirectPassword  = "/admin/password"
)
