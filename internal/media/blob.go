// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media enforces the image-attachment policy and stores
// accepted uploads in blob storage.
package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore is the storage collaborator for uploaded files. Put stores
// bytes under a relative path and returns a publicly resolvable URL;
// Delete removes a blob by the URL Put returned.
type BlobStore interface {
	Put(relPath string, data []byte) (string, error)
	Delete(url string) error
	// List returns the URLs of all stored blobs.
	List() ([]string, error)
}

// PublicPrefix is the URL prefix the HTTP server serves blobs under.
const PublicPrefix = "/uploads/"

// DiskStore is a BlobStore backed by a local directory, served as
// static files under PublicPrefix.
type DiskStore struct {
	root string
}

// NewDiskStore creates a DiskStore rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &DiskStore{root: dir}, nil
}

// Root returns the directory blobs are stored under.
func (s *DiskStore) Root() string {
	return s.root
}

// Put writes data under the given relative path and returns its public URL.
func (s *DiskStore) Put(relPath string, data []byte) (string, error) {
	clean, err := s.safePath(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}

	return PublicPrefix + path.Clean(relPath), nil
}

// Delete removes the blob a public URL refers to. Unknown URLs are an
// error; already-deleted blobs are not.
func (s *DiskStore) Delete(url string) error {
	relPath, ok := strings.CutPrefix(url, PublicPrefix)
	if !ok {
		return fmt.Errorf("not a blob URL: %s", url)
	}

	clean, err := s.safePath(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// List walks the store and returns the public URL of every blob.
func (s *DiskStore) List() ([]string, error) {
	var urls []string
	err := filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		urls = append(urls, PublicPrefix+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	return urls, nil
}

// safePath resolves a relative blob path inside the store root,
// rejecting traversal outside it.
func (s *DiskStore) safePath(relPath string) (string, error) {
	clean := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+relPath)))
	if clean == s.root || !strings.HasPrefix(clean, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid blob path %q", relPath)
	}
	return clean, nil
}
