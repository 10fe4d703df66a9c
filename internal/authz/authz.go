// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package authz decides whether a signed-in user may manage site
// content. Decisions are pure lookups against a static admin allow-list
// built once at startup; the package performs no I/O and holds no
// mutable state.
package authz

import (
	"fmt"

	"github.com/baladroz/news/internal/model"
)

// Permission is a named capability an admin entry can be granted.
// The set is closed: handlers reference the constants below, so a typo
// in a permission name fails at compile time rather than resolving to a
// silent deny.
type Permission string

// All permissions.
const (
	PermAddNews        Permission = "add_news"
	PermEditNews       Permission = "edit_news"
	PermDeleteNews     Permission = "delete_news"
	PermManageUsers    Permission = "manage_users"
	PermViewAnalytics  Permission = "view_analytics"
	PermSystemSettings Permission = "system_settings"
)

// AllPermissions lists every known permission, in declaration order.
var AllPermissions = []Permission{
	PermAddNews,
	PermEditNews,
	PermDeleteNews,
	PermManageUsers,
	PermViewAnalytics,
	PermSystemSettings,
}

// ParsePermission converts a configuration string into a Permission.
func ParsePermission(s string) (Permission, error) {
	for _, p := range AllPermissions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown permission %q", s)
}

// Level is the admin tier of an allow-list entry.
type Level string

// LevelSuperAdmin is currently the only admin tier.
const LevelSuperAdmin Level = "super_admin"

// AdminRecord is one allow-list entry: an email address mapped to the
// permissions it has been granted.
type AdminRecord struct {
	Email       string
	Level       Level
	Permissions map[Permission]bool
}

// Table is the admin allow-list keyed by normalized email. It is built
// once at process start and must not be mutated afterwards.
type Table map[string]AdminRecord

// NewTable builds an admin table from records. Emails are normalized to
// lowercase; duplicate entries are rejected so a misconfiguration cannot
// silently shadow one entry's permission set with another's.
func NewTable(records []AdminRecord) (Table, error) {
	t := make(Table, len(records))
	for _, rec := range records {
		email := model.NormalizeEmail(rec.Email)
		if email == "" {
			return nil, fmt.Errorf("admin record with empty email")
		}
		if _, exists := t[email]; exists {
			return nil, fmt.Errorf("duplicate admin entry for %s", email)
		}
		rec.Email = email
		t[email] = rec
	}
	return t, nil
}

// SuperAdmin returns an AdminRecord granting every permission.
func SuperAdmin(email string) AdminRecord {
	perms := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		perms[p] = true
	}
	return AdminRecord{
		Email:       email,
		Level:       LevelSuperAdmin,
		Permissions: perms,
	}
}

// Resolver answers authorization questions against a fixed admin table.
type Resolver struct {
	table Table
}

// NewResolver creates a Resolver over the given table.
func NewResolver(table Table) *Resolver {
	return &Resolver{table: table}
}

// IsAdmin reports whether the identity belongs to the admin allow-list.
// A nil identity (unauthenticated request) is never an admin. Both
// sides of the comparison are normalized, so "Admin@Example.com" and
// "admin@example.com" resolve identically.
func (r *Resolver) IsAdmin(user *model.UserIdentity) bool {
	if user == nil {
		return false
	}
	_, ok := r.table[model.NormalizeEmail(user.Email)]
	return ok
}

// HasPermission reports whether the identity holds the given permission.
// Absence of a permission is expressed as false, never as an error:
// unknown users, unauthenticated requests, and admins without the grant
// all get the same answer.
func (r *Resolver) HasPermission(user *model.UserIdentity, perm Permission) bool {
	if user == nil {
		return false
	}
	rec, ok := r.table[model.NormalizeEmail(user.Email)]
	if !ok {
		return false
	}
	return rec.Permissions[perm]
}
