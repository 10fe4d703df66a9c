// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// News represents a published news item.
//
// CreatedAt is assigned once when the item is created and never changes
// afterwards; updates only touch UpdatedAt. Both timestamps are assigned
// by the application, never by the submitting form.
type News struct {
	ID          int64          `json:"id"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ImageURL    sql.NullString `json:"image_url,omitempty"`
	AuthorName  string         `json:"author_name"`
	AuthorEmail string         `json:"author_email"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HasImage returns true if the news item has an attached image.
func (n News) HasImage() bool {
	return n.ImageURL.Valid && n.ImageURL.String != ""
}
