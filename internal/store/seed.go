// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baladroz/news/internal/auth"
	"github.com/baladroz/news/internal/authz"
)

// DefaultAdminPassword is the initial password for seeded admin
// accounts. Admins are expected to change it after first sign-in.
const DefaultAdminPassword = "changeme"

// Seed ensures every allow-listed admin has a user account to sign in
// with. Existing accounts are left untouched; the allow-list itself
// stays in configuration and is never written to the database.
func Seed(ctx context.Context, db *sql.DB, admins authz.Table) error {
	queries := New(db)

	for email := range admins {
		_, err := queries.GetUserByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking for admin user %s: %w", email, err)
		}

		passwordHash, err := auth.HashPassword(DefaultAdminPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now()
		user, err := queries.CreateUser(ctx, CreateUserParams{
			Email:        email,
			PasswordHash: passwordHash,
			Name:         displayNameFromEmail(email),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("creating admin user %s: %w", email, err)
		}

		slog.Info("created admin user with default password",
			"id", user.ID,
			"email", user.Email,
		)
	}

	return nil
}

// displayNameFromEmail derives an initial display name from the local
// part of an email address.
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
