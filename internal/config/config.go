// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/baladroz/news/internal/authz"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"NEWS_DB_PATH" envDefault:"./data/news.db"`
	SessionSecret string `env:"NEWS_SESSION_SECRET,required"`
	ServerHost    string `env:"NEWS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"NEWS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"NEWS_ENV" envDefault:"development"`
	LogLevel      string `env:"NEWS_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"NEWS_UPLOADS_DIR" envDefault:"./uploads"`

	// AdminEntries is the admin allow-list. Each comma-separated entry is
	// either a bare email (granted every permission) or
	// "email:perm1|perm2" for an explicit grant set.
	AdminEntries []string `env:"NEWS_ADMIN_EMAILS,required"`

	// ListLimit caps how many news items the public list page fetches.
	ListLimit int `env:"NEWS_LIST_LIMIT" envDefault:"50"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("NEWS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	if _, err := cfg.AdminTable(); err != nil {
		return nil, fmt.Errorf("NEWS_ADMIN_EMAILS: %w", err)
	}

	return cfg, nil
}

// AdminTable builds the static admin allow-list from the configured
// entries. The table is constructed once at startup and handed to the
// authorization resolver; it is never mutated at runtime.
func (c Config) AdminTable() (authz.Table, error) {
	records := make([]authz.AdminRecord, 0, len(c.AdminEntries))
	for _, entry := range c.AdminEntries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		email, grants, hasGrants := strings.Cut(entry, ":")
		if !hasGrants {
			records = append(records, authz.SuperAdmin(email))
			continue
		}

		perms := make(map[authz.Permission]bool)
		for _, name := range strings.Split(grants, "|") {
			perm, err := authz.ParsePermission(strings.TrimSpace(name))
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", entry, err)
			}
			perms[perm] = true
		}
		records = append(records, authz.AdminRecord{
			Email:       email,
			Level:       authz.LevelSuperAdmin,
			Permissions: perms,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("at least one admin entry is required")
	}

	return authz.NewTable(records)
}
