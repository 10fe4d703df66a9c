// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/baladroz/news/internal/model"
)

// CreateNewsParams holds parameters for CreateNews.
type CreateNewsParams struct {
	Slug        string
	Title       string
	Description string
	ImageURL    sql.NullString
	AuthorName  string
	AuthorEmail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdateNewsParams holds parameters for UpdateNews.
// CreatedAt is deliberately absent: creation time never changes.
type UpdateNewsParams struct {
	ID          int64
	Slug        string
	Title       string
	Description string
	ImageURL    sql.NullString
	UpdatedAt   time.Time
}

const newsColumns = "id, slug, title, description, image_url, author_name, author_email, created_at, updated_at"

func scanNewsRow(scan func(dest ...any) error) (model.News, error) {
	var n model.News
	err := scan(&n.ID, &n.Slug, &n.Title, &n.Description, &n.ImageURL,
		&n.AuthorName, &n.AuthorEmail, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// CreateNews inserts a news item and returns the created row.
func (q *Queries) CreateNews(ctx context.Context, arg CreateNewsParams) (model.News, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO news (slug, title, description, image_url, author_name, author_email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Slug, arg.Title, arg.Description, arg.ImageURL,
		arg.AuthorName, arg.AuthorEmail, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.News{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.News{}, err
	}
	return q.GetNewsByID(ctx, id)
}

// GetNewsByID returns a news item by primary key.
func (q *Queries) GetNewsByID(ctx context.Context, id int64) (model.News, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news WHERE id = ?`, id)
	return scanNewsRow(row.Scan)
}

// GetNewsBySlug returns a news item by its URL slug.
func (q *Queries) GetNewsBySlug(ctx context.Context, slug string) (model.News, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news WHERE slug = ?`, slug)
	return scanNewsRow(row.Scan)
}

// ListNews returns news items newest first, capped at limit.
func (q *Queries) ListNews(ctx context.Context, limit int64) ([]model.News, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+newsColumns+` FROM news ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.News
	for rows.Next() {
		n, err := scanNewsRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// UpdateNews updates a news item's editable fields. The row's created_at
// is never touched.
func (q *Queries) UpdateNews(ctx context.Context, arg UpdateNewsParams) (model.News, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE news SET slug = ?, title = ?, description = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		arg.Slug, arg.Title, arg.Description, arg.ImageURL, arg.UpdatedAt, arg.ID)
	if err != nil {
		return model.News{}, err
	}
	return q.GetNewsByID(ctx, arg.ID)
}

// DeleteNews removes a news item.
func (q *Queries) DeleteNews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, id)
	return err
}

// CountNews returns the total number of news items.
func (q *Queries) CountNews(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news`).Scan(&n)
	return n, err
}

// CountNewsBySlug returns how many news items use the given slug.
func (q *Queries) CountNewsBySlug(ctx context.Context, slug string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE slug = ?`, slug).Scan(&n)
	return n, err
}

// ListNewsImageURLs returns every non-empty image URL currently
// referenced by a news item. Used by the orphaned-upload sweep.
func (q *Queries) ListNewsImageURLs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT image_url FROM news WHERE image_url IS NOT NULL AND image_url != ''`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
