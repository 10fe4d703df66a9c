// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models shared across the application:
// users, identities, news items, and audit events.
package model

import (
	"database/sql"
	"strings"
	"time"
)

// User represents an account that can sign in to the site.
// Whether a user may administer content is decided by the authz
// package against the configured admin allow-list, not by a column.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Name         string       `json:"name"`
	PhotoURL     string       `json:"photo_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// UserIdentity is the read-only snapshot of a signed-in user handed to
// the authorization and content layers. A nil *UserIdentity means the
// request is unauthenticated.
type UserIdentity struct {
	Email       string
	DisplayName string
	PhotoURL    string
}

// Identity returns the identity snapshot for a user.
func (u *User) Identity() *UserIdentity {
	if u == nil {
		return nil
	}
	return &UserIdentity{
		Email:       u.Email,
		DisplayName: u.Name,
		PhotoURL:    u.PhotoURL,
	}
}

// NormalizeEmail lowercases and trims an email address. All email
// comparisons in the application go through this so an admin entry
// cannot be missed (or impersonated) via a case-variant address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
