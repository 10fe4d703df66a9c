// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package maintenance runs the scheduled housekeeping jobs: sweeping
// uploaded images no news item references anymore and trimming the
// audit log.
package maintenance

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/baladroz/news/internal/media"
	"github.com/baladroz/news/internal/store"
)

// orphanGracePeriod keeps fresh uploads out of the sweep so an image
// uploaded during form editing is not deleted before its news item is
// saved.
const orphanGracePeriod = time.Hour

// eventRetention is how long audit log entries are kept.
const eventRetention = 90 * 24 * time.Hour

// Maintenance owns the cron schedule for housekeeping jobs.
type Maintenance struct {
	queries *store.Queries
	blobs   media.BlobStore
	cron    *cron.Cron
	logger  *slog.Logger
}

// New creates a maintenance runner.
func New(db *sql.DB, blobs media.BlobStore, logger *slog.Logger) *Maintenance {
	return &Maintenance{
		queries: store.New(db),
		blobs:   blobs,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the nightly jobs and starts the scheduler.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("0 3 * * *", func() {
		if _, err := m.SweepOrphanedUploads(context.Background()); err != nil {
			m.logger.Error("orphaned upload sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := m.cron.AddFunc("30 3 * * *", func() {
		if err := m.queries.DeleteOldEvents(context.Background(), time.Now().Add(-eventRetention)); err != nil {
			m.logger.Error("audit log cleanup failed", "error", err)
		}
	}); err != nil {
		return err
	}

	m.cron.Start()
	m.logger.Info("maintenance scheduler started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop waits for running jobs and stops the scheduler.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("maintenance scheduler stopped")
}

// SweepOrphanedUploads deletes stored blobs that no news item
// references. Returns how many blobs were removed.
func (m *Maintenance) SweepOrphanedUploads(ctx context.Context) (int, error) {
	imageURLs, err := m.queries.ListNewsImageURLs(ctx)
	if err != nil {
		return 0, err
	}

	referenced := make(map[string]bool, len(imageURLs)*2)
	for _, u := range imageURLs {
		referenced[u] = true
		if thumb := media.ThumbnailURL(u); thumb != "" {
			referenced[thumb] = true
		}
	}

	blobs, err := m.blobs.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-orphanGracePeriod)
	removed := 0
	for _, blobURL := range blobs {
		if referenced[blobURL] {
			continue
		}
		if stamp, ok := uploadTime(blobURL); ok && stamp.After(cutoff) {
			continue
		}

		if err := m.blobs.Delete(blobURL); err != nil {
			m.logger.Error("deleting orphaned upload", "url", blobURL, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		m.logger.Info("orphaned uploads removed", "count", removed)
	}
	return removed, nil
}

// uploadTime extracts the upload timestamp embedded in a blob URL of
// the form .../<unix-millis>_<name>.
func uploadTime(blobURL string) (time.Time, bool) {
	base := blobURL
	if idx := strings.LastIndex(base, "/"); idx != -1 {
		base = base[idx+1:]
	}

	stampStr, _, ok := strings.Cut(base, "_")
	if !ok {
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(stampStr, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
