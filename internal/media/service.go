// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baladroz/news/internal/imaging"
)

// MaxAttachmentSize is the upload size cap for news images.
const MaxAttachmentSize = 5 * 1024 * 1024 // 5 MiB

// Policy errors, returned as values for the caller to surface.
var (
	ErrAttachmentTooLarge = errors.New("attachment exceeds 5 MiB limit")
	ErrUnsupportedType    = errors.New("attachment is not a supported image type")
)

// UploadResult describes a stored news image.
type UploadResult struct {
	URL          string
	ThumbnailURL string
	Width        int
	Height       int
	Size         int64
}

// Service applies the attachment policy and hands accepted images to
// blob storage. Stored paths follow news/<unix-millis>_<filename>.
type Service struct {
	store BlobStore
	now   func() time.Time
}

// NewService creates a media Service over the given blob store.
func NewService(store BlobStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Upload validates an attachment and stores it, returning its public
// URLs. The original filename only influences the storage path; content
// type is sniffed from the bytes, never trusted from the request.
func (s *Service) Upload(filename string, data []byte) (*UploadResult, error) {
	if int64(len(data)) > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	if !imaging.IsSupportedType(imaging.DetectMimeType(data)) {
		return nil, ErrUnsupportedType
	}

	processed, err := imaging.Process(data)
	if err != nil {
		return nil, fmt.Errorf("processing image: %w", err)
	}

	stamp := s.now().UnixMilli()
	name := withExtension(sanitizeFilename(filename), processed.MimeType)
	relPath := fmt.Sprintf("news/%d_%s", stamp, name)

	url, err := s.store.Put(relPath, processed.Data)
	if err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}

	result := &UploadResult{
		URL:    url,
		Width:  processed.Width,
		Height: processed.Height,
		Size:   int64(len(processed.Data)),
	}

	thumb, err := imaging.Thumbnail(processed.Data)
	if err != nil {
		// The original is stored; a missing thumbnail only degrades the
		// list view.
		slog.Warn("thumbnail generation failed", "path", relPath, "error", err)
		return result, nil
	}
	if thumb != nil {
		thumbPath := fmt.Sprintf("news/thumbs/%d_%s", stamp, name)
		thumbURL, err := s.store.Put(thumbPath, thumb)
		if err != nil {
			slog.Warn("storing thumbnail failed", "path", thumbPath, "error", err)
			return result, nil
		}
		result.ThumbnailURL = thumbURL
	}

	return result, nil
}

// Delete removes a stored image and its thumbnail, if any.
func (s *Service) Delete(url string) error {
	if url == "" {
		return nil
	}
	if err := s.store.Delete(url); err != nil {
		return err
	}
	if thumbURL := ThumbnailURL(url); thumbURL != "" {
		// Thumbnails may not exist for small images.
		_ = s.store.Delete(thumbURL)
	}
	return nil
}

// ThumbnailURL derives the thumbnail URL for a stored image URL, or ""
// if the URL is not in this store's layout.
func ThumbnailURL(url string) string {
	name, ok := strings.CutPrefix(url, PublicPrefix+"news/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return ""
	}
	return PublicPrefix + "news/thumbs/" + name
}

// withExtension rewrites a filename's extension to match the MIME type
// the image was encoded as, so the static file server sends the right
// Content-Type. WebP uploads come out as .jpg after re-encoding.
func withExtension(name, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(name))

	switch mimeType {
	case imaging.MimeTypeJPEG:
		if ext == ".jpg" || ext == ".jpeg" {
			return name
		}
		return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	case imaging.MimeTypePNG:
		if ext == ".png" {
			return name
		}
		return strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	case imaging.MimeTypeGIF:
		if ext == ".gif" {
			return name
		}
		return strings.TrimSuffix(name, filepath.Ext(name)) + ".gif"
	}
	return name
}

// sanitizeFilename strips path separators and characters that would
// need escaping in a URL. Empty results fall back to a generated name.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))

	replacer := strings.NewReplacer(
		" ", "-",
		"'", "",
		"\"", "",
		"<", "",
		">", "",
		"&", "",
		"#", "",
		"?", "",
		"%", "",
	)
	filename = replacer.Replace(filename)

	if filename == "" || filename == "." || filename == ".." || filepath.Ext(filename) == filename {
		filename = uuid.New().String() + ".img"
	}

	return filename
}
