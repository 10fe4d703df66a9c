// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package authz

import (
	"testing"

	"github.com/baladroz/news/internal/model"
)

func testTable(t *testing.T) Table {
	t.Helper()

	table, err := NewTable([]AdminRecord{
		SuperAdmin("mayor@baladroz.gov.iq"),
		{
			Email: "clerk@baladroz.gov.iq",
			Level: LevelSuperAdmin,
			Permissions: map[Permission]bool{
				PermAddNews:  true,
				PermEditNews: true,
			},
		},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestNewTable_NormalizesEmails(t *testing.T) {
	table, err := NewTable([]AdminRecord{SuperAdmin("  Mayor@Baladroz.GOV.iq ")})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if _, ok := table["mayor@baladroz.gov.iq"]; !ok {
		t.Error("table key should be lowercase-normalized")
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable([]AdminRecord{
		SuperAdmin("mayor@baladroz.gov.iq"),
		SuperAdmin("MAYOR@baladroz.gov.iq"),
	})
	if err == nil {
		t.Error("expected error for case-variant duplicate entries")
	}
}

func TestNewTable_RejectsEmptyEmail(t *testing.T) {
	if _, err := NewTable([]AdminRecord{SuperAdmin("   ")}); err == nil {
		t.Error("expected error for empty email")
	}
}

func TestResolver_IsAdmin(t *testing.T) {
	r := NewResolver(testTable(t))

	tests := []struct {
		name string
		user *model.UserIdentity
		want bool
	}{
		{"unauthenticated", nil, false},
		{"unknown user", &model.UserIdentity{Email: "visitor@example.com"}, false},
		{"admin", &model.UserIdentity{Email: "mayor@baladroz.gov.iq"}, true},
		{"admin case variant", &model.UserIdentity{Email: "Mayor@Baladroz.Gov.IQ"}, true},
		{"empty email", &model.UserIdentity{Email: ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsAdmin(tt.user); got != tt.want {
				t.Errorf("IsAdmin() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_HasPermission_NonAdminAlwaysFalse(t *testing.T) {
	r := NewResolver(testTable(t))

	for _, user := range []*model.UserIdentity{
		nil,
		{Email: "visitor@example.com"},
	} {
		for _, perm := range AllPermissions {
			if r.HasPermission(user, perm) {
				t.Errorf("HasPermission(%v, %s) = true; want false", user, perm)
			}
		}
	}
}

func TestResolver_HasPermission_ExactGrants(t *testing.T) {
	r := NewResolver(testTable(t))
	clerk := &model.UserIdentity{Email: "clerk@baladroz.gov.iq"}

	granted := map[Permission]bool{
		PermAddNews:  true,
		PermEditNews: true,
	}

	for _, perm := range AllPermissions {
		if got := r.HasPermission(clerk, perm); got != granted[perm] {
			t.Errorf("HasPermission(clerk, %s) = %v; want %v", perm, got, granted[perm])
		}
	}
}

func TestResolver_HasPermission_SuperAdminHasAll(t *testing.T) {
	r := NewResolver(testTable(t))
	mayor := &model.UserIdentity{Email: "mayor@baladroz.gov.iq"}

	for _, perm := range AllPermissions {
		if !r.HasPermission(mayor, perm) {
			t.Errorf("super admin should hold %s", perm)
		}
	}
}

func TestParsePermission(t *testing.T) {
	tests := []struct {
		input   string
		want    Permission
		wantErr bool
	}{
		{"add_news", PermAddNews, false},
		{"system_settings", PermSystemSettings, false},
		{"ADD_NEWS", "", true},
		{"", "", true},
		{"publish_news", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePermission(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePermission(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePermission(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}
