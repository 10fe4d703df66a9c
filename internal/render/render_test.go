// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"database/sql"
	"io/fs"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baladroz/news/internal/model"
	"github.com/baladroz/news/web"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("sub filesystem: %v", err)
	}

	r, err := New(Config{TemplatesFS: templatesFS})
	if err != nil {
		t.Fatalf("creating renderer: %v", err)
	}
	return r
}

func sampleNews() model.News {
	return model.News{
		ID:          1,
		Slug:        "city-park-reopens",
		Title:       "City park reopens",
		Description: "The municipal park reopens after renovation work.",
		ImageURL:    sql.NullString{String: "/uploads/news/1_park.jpg", Valid: true},
		AuthorName:  "Clerk",
		AuthorEmail: "clerk@baladroz.gov",
		CreatedAt:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestRender_PublicPages(t *testing.T) {
	r := testRenderer(t)
	item := sampleNews()

	tests := []struct {
		name     string
		template string
		data     any
		contains []string
	}{
		{
			"list", "public/news_list",
			struct{ Items []model.News }{Items: []model.News{item}},
			[]string{"City park reopens", "/news/city-park-reopens", "/uploads/news/1_park.jpg"},
		},
		{
			"empty list", "public/news_list",
			struct{ Items []model.News }{},
			nil,
		},
		{
			"detail", "public/news_detail",
			struct{ Item model.News }{Item: item},
			[]string{"City park reopens", "The municipal park reopens"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)

			if err := r.Render(rec, req, tt.template, TemplateData{Data: tt.data}); err != nil {
				t.Fatalf("Render: %v", err)
			}

			body := rec.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
		})
	}
}

func TestRender_AdminAndAuthPages(t *testing.T) {
	r := testRenderer(t)
	item := sampleNews()

	tests := []struct {
		template string
		data     any
	}{
		{"auth/login", nil},
		{"admin/dashboard", struct {
			NewsCount    int64
			UserCount    int64
			CanAdd       bool
			RecentEvents []model.Event
		}{NewsCount: 3, UserCount: 1, CanAdd: true}},
		{"admin/news_list", struct {
			Items     []model.News
			CanAdd    bool
			CanEdit   bool
			CanDelete bool
		}{Items: []model.News{item}, CanAdd: true, CanEdit: true, CanDelete: false}},
		{"admin/news_form", struct {
			Item        *model.News
			Title       string
			Description string
			Errors      []string
		}{Item: &item, Title: item.Title, Description: item.Description}},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)

			if err := r.Render(rec, req, tt.template, TemplateData{Data: tt.data}); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty response body")
			}
		})
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r := testRenderer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	if err := r.Render(rec, req, "public/missing", TemplateData{}); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTruncateFunc(t *testing.T) {
	funcs := (&Renderer{}).templateFuncs()
	truncate := funcs["truncate"].(func(string, int) string)

	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	// Rune-aware: Arabic text must not be cut mid-character.
	if got := truncate("مرحبا بكم في بلدروز", 6); got != "مرحبا ..." {
		t.Errorf("truncate(arabic) = %q", got)
	}
}
