// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/baladroz/news/internal/authz"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "news-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createNews(t *testing.T, q *Queries, slug, title string, createdAt time.Time) int64 {
	t.Helper()

	n, err := q.CreateNews(context.Background(), CreateNewsParams{
		Slug:        slug,
		Title:       title,
		Description: "A sufficiently long description for " + title,
		AuthorName:  "Mayor",
		AuthorEmail: "mayor@baladroz.gov.iq",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	})
	if err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	return n.ID
}

func TestCreateAndGetUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "mayor@baladroz.gov.iq",
		PasswordHash: "hashed-password",
		Name:         "Mayor",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected non-zero user ID")
	}

	byEmail, err := q.GetUserByEmail(ctx, "mayor@baladroz.gov.iq")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail ID = %d; want %d", byEmail.ID, user.ID)
	}
	if byEmail.LastLoginAt.Valid {
		t.Error("LastLoginAt should be null for a fresh account")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := testDB(t)
	q := New(db)

	_, err := q.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateUserLastLogin(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "mayor@baladroz.gov.iq",
		PasswordHash: "h",
		Name:         "Mayor",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := q.UpdateUserLastLogin(ctx, user.ID, now); err != nil {
		t.Fatalf("UpdateUserLastLogin: %v", err)
	}

	got, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !got.LastLoginAt.Valid {
		t.Error("LastLoginAt should be set")
	}
}

func TestListNews_NewestFirstWithCap(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	base := time.Now().Add(-time.Hour)
	createNews(t, q, "old-news", "Old", base)
	createNews(t, q, "mid-news", "Mid", base.Add(10*time.Minute))
	createNews(t, q, "new-news", "New", base.Add(20*time.Minute))

	items, err := q.ListNews(ctx, 2)
	if err != nil {
		t.Fatalf("ListNews: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d; want 2", len(items))
	}
	if items[0].Slug != "new-news" || items[1].Slug != "mid-news" {
		t.Errorf("unexpected order: %s, %s", items[0].Slug, items[1].Slug)
	}
}

func TestUpdateNews_PreservesCreatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	created := time.Now().Add(-24 * time.Hour).UTC().Truncate(time.Second)
	id := createNews(t, q, "road-works", "Road works", created)

	updated, err := q.UpdateNews(ctx, UpdateNewsParams{
		ID:          id,
		Slug:        "road-works",
		Title:       "Road works extended",
		Description: "The road works on the main street were extended.",
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("UpdateNews: %v", err)
	}

	if !updated.CreatedAt.UTC().Truncate(time.Second).Equal(created) {
		t.Errorf("CreatedAt changed on update: got %v, want %v", updated.CreatedAt, created)
	}
	if updated.Title != "Road works extended" {
		t.Errorf("Title = %q", updated.Title)
	}
}

func TestDeleteNews(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	id := createNews(t, q, "to-delete", "Doomed", time.Now())

	if err := q.DeleteNews(ctx, id); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}

	_, err := q.GetNewsByID(ctx, id)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestCountNewsBySlug(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	createNews(t, q, "unique-slug", "Unique", time.Now())

	n, err := q.CountNewsBySlug(ctx, "unique-slug")
	if err != nil {
		t.Fatalf("CountNewsBySlug: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d; want 1", n)
	}

	n, err = q.CountNewsBySlug(ctx, "missing-slug")
	if err != nil {
		t.Fatalf("CountNewsBySlug: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d; want 0", n)
	}
}

func TestListNewsImageURLs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	if _, err := q.CreateNews(ctx, CreateNewsParams{
		Slug:        "with-image",
		Title:       "With image",
		Description: "An item that carries an attached image.",
		ImageURL:    sql.NullString{String: "/uploads/news/1_a.jpg", Valid: true},
		AuthorName:  "Mayor",
		AuthorEmail: "mayor@baladroz.gov.iq",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	createNews(t, q, "without-image", "Without image", now)

	urls, err := q.ListNewsImageURLs(ctx)
	if err != nil {
		t.Fatalf("ListNewsImageURLs: %v", err)
	}
	if len(urls) != 1 || urls[0] != "/uploads/news/1_a.jpg" {
		t.Errorf("urls = %v", urls)
	}
}

func TestEvents_CreateAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	for i, msg := range []string{"first", "second", "third"} {
		if err := q.CreateEvent(ctx, CreateEventParams{
			Level:     "info",
			Category:  "system",
			Message:   msg,
			Metadata:  "{}",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := q.ListRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d; want 2", len(events))
	}
	if events[0].Message != "third" {
		t.Errorf("newest event = %q; want %q", events[0].Message, "third")
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	old := time.Now().Add(-48 * time.Hour)
	if err := q.CreateEvent(ctx, CreateEventParams{
		Level: "info", Category: "system", Message: "stale", Metadata: "{}", CreatedAt: old,
	}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := q.CreateEvent(ctx, CreateEventParams{
		Level: "info", Category: "system", Message: "fresh", Metadata: "{}", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if err := q.DeleteOldEvents(ctx, time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].Message != "fresh" {
		t.Errorf("events = %+v", events)
	}
}

func TestSeed_CreatesMissingAdminAccounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	table, err := authz.NewTable([]authz.AdminRecord{
		authz.SuperAdmin("mayor@baladroz.gov.iq"),
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if err := Seed(ctx, db, table); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	user, err := q.GetUserByEmail(ctx, "mayor@baladroz.gov.iq")
	if err != nil {
		t.Fatalf("GetUserByEmail after seed: %v", err)
	}
	if user.Name != "mayor" {
		t.Errorf("Name = %q; want %q", user.Name, "mayor")
	}

	// Second run is a no-op.
	if err := Seed(ctx, db, table); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	count, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("CountUsers = %d; want 1", count)
	}
}
