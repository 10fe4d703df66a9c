// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request hardening.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/baladroz/news/internal/authz"
	"github.com/baladroz/news/internal/model"
	"github.com/baladroz/news/internal/session"
	"github.com/baladroz/news/internal/store"
	"github.com/baladroz/news/internal/util"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the authenticated user loaded by LoadUser.
const ContextKeyUser ContextKey = "user"

// Auth requires an authenticated session, redirecting to login otherwise.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), session.KeyUserID) == 0 {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser loads the session's user into the request context. A stale
// session referencing a deleted user is destroyed.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), session.KeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context, or nil.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// GetIdentity returns the authorization identity of the current user,
// or nil for anonymous requests.
func GetIdentity(r *http.Request) *model.UserIdentity {
	return GetUser(r).Identity()
}

// RequireAdmin rejects requests whose user is not on the admin
// allow-list. Anonymous requests are redirected to login; signed-in
// non-admins get 403 before any handler runs.
func RequireAdmin(resolver *authz.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if !resolver.IsAdmin(user.Identity()) {
				denyAccess(w, r, user, "admin area")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects requests whose user lacks a specific
// permission. The check runs before the protected handler, so denied
// requests never reach it.
func RequirePermission(resolver *authz.Resolver, perm authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if !resolver.HasPermission(user.Identity(), perm) {
				denyAccess(w, r, user, string(perm))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func denyAccess(w http.ResponseWriter, r *http.Request, user *model.User, required string) {
	slog.Warn("access denied",
		"category", model.EventCategoryAuth,
		"status", http.StatusForbidden,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", user.ID,
		"required", required,
		"ip", util.ClientIP(r),
	)
	http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
}
