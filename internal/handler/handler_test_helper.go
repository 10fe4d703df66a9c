// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/baladroz/news/internal/auth"
	"github.com/baladroz/news/internal/authz"
	"github.com/baladroz/news/internal/media"
	"github.com/baladroz/news/internal/middleware"
	"github.com/baladroz/news/internal/model"
	"github.com/baladroz/news/internal/render"
	"github.com/baladroz/news/internal/store"
	"github.com/baladroz/news/internal/testutil"
	"github.com/baladroz/news/web"
)

// testEnv bundles the collaborators handler tests need.
type testEnv struct {
	db       *sql.DB
	queries  *store.Queries
	renderer *render.Renderer
	sm       *scs.SessionManager
	resolver *authz.Resolver
	media    *media.Service
	blobs    *media.DiskStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.DB(t)

	sm := scs.New()
	sm.Lifetime = 24 * time.Hour

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("sub filesystem: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: templatesFS, SessionManager: sm})
	if err != nil {
		t.Fatalf("creating renderer: %v", err)
	}

	clerk := authz.AdminRecord{
		Email: "clerk@baladroz.gov",
		Level: authz.LevelSuperAdmin,
		Permissions: map[authz.Permission]bool{
			authz.PermAddNews:  true,
			authz.PermEditNews: true,
		},
	}
	table, err := authz.NewTable([]authz.AdminRecord{
		authz.SuperAdmin("mayor@baladroz.gov"),
		clerk,
	})
	if err != nil {
		t.Fatalf("building admin table: %v", err)
	}

	blobs, err := media.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating blob store: %v", err)
	}

	return &testEnv{
		db:       db,
		queries:  store.New(db),
		renderer: renderer,
		sm:       sm,
		resolver: authz.NewResolver(table),
		media:    media.NewService(blobs),
		blobs:    blobs,
	}
}

// testPassword is the password every test user gets.
const testPassword = "password123"

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash hashes testPassword once per test binary run.
func testPasswordHash(t *testing.T) string {
	t.Helper()

	testHashOnce.Do(func() {
		hash, err := auth.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("hashing test password: %v", err)
		}
		testHash = hash
	})
	return testHash
}

// createTestUser inserts a user whose password is testPassword.
func createTestUser(t *testing.T, env *testEnv, email, name string) model.User {
	t.Helper()

	user, err := env.queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: testPasswordHash(t),
		Name:         name,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// withSession loads fresh session data into the request context.
func withSession(t *testing.T, sm *scs.SessionManager, r *http.Request) *http.Request {
	t.Helper()

	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return r.WithContext(ctx)
}

// asUser attaches a user to the request context the way LoadUser does.
func asUser(r *http.Request, user model.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, &user))
}

// withURLParams adds chi URL parameters to a request.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartBody builds a multipart form body with optional file field.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("writing form field: %v", err)
		}
	}

	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(fileData)); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

// assertStatus checks the response status code.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}
