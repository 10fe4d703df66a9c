// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/baladroz/news/internal/imaging"
)

// memStore is an in-memory BlobStore for service tests.
type memStore struct {
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Put(relPath string, data []byte) (string, error) {
	s.blobs[relPath] = data
	return PublicPrefix + relPath, nil
}

func (s *memStore) Delete(url string) error {
	relPath, ok := strings.CutPrefix(url, PublicPrefix)
	if !ok {
		return errors.New("not a blob URL")
	}
	delete(s.blobs, relPath)
	return nil
}

func (s *memStore) List() ([]string, error) {
	urls := make([]string, 0, len(s.blobs))
	for p := range s.blobs {
		urls = append(urls, PublicPrefix+p)
	}
	return urls, nil
}

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 90, B: 180, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func testService(store BlobStore, at time.Time) *Service {
	svc := NewService(store)
	svc.now = func() time.Time { return at }
	return svc
}

func TestUpload(t *testing.T) {
	store := newMemStore()
	at := time.UnixMilli(1700000000000)
	svc := testService(store, at)

	res, err := svc.Upload("city hall.png", testImage(t, 120, 90))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.URL != "/uploads/news/1700000000000_city-hall.png" {
		t.Errorf("URL = %q", res.URL)
	}
	if res.Width != 120 || res.Height != 90 {
		t.Errorf("dimensions = %dx%d; want 120x90", res.Width, res.Height)
	}
	if _, ok := store.blobs["news/1700000000000_city-hall.png"]; !ok {
		t.Error("blob not stored")
	}
	if res.ThumbnailURL != "" {
		t.Errorf("narrow image got thumbnail %q", res.ThumbnailURL)
	}
}

func TestUpload_WideImageGetsThumbnail(t *testing.T) {
	store := newMemStore()
	svc := testService(store, time.UnixMilli(1700000000000))

	res, err := svc.Upload("banner.png", testImage(t, imaging.ThumbnailWidth*2, 200))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	want := "/uploads/news/thumbs/1700000000000_banner.png"
	if res.ThumbnailURL != want {
		t.Errorf("ThumbnailURL = %q; want %q", res.ThumbnailURL, want)
	}
	if _, ok := store.blobs["news/thumbs/1700000000000_banner.png"]; !ok {
		t.Error("thumbnail not stored")
	}
}

func TestUpload_ExtensionMatchesEncodedFormat(t *testing.T) {
	store := newMemStore()
	svc := testService(store, time.UnixMilli(1700000000000))

	// The content is sniffed as PNG regardless of the claimed name, so
	// the stored file must carry a .png extension.
	res, err := svc.Upload("photo.webp", testImage(t, 120, 90))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.URL != "/uploads/news/1700000000000_photo.png" {
		t.Errorf("URL = %q", res.URL)
	}
	if _, ok := store.blobs["news/1700000000000_photo.png"]; !ok {
		t.Error("blob not stored under corrected name")
	}
}

func TestWithExtension(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     string
	}{
		{"photo.webp", imaging.MimeTypeJPEG, "photo.jpg"},
		{"photo.jpg", imaging.MimeTypeJPEG, "photo.jpg"},
		{"photo.JPEG", imaging.MimeTypeJPEG, "photo.JPEG"},
		{"photo", imaging.MimeTypeJPEG, "photo.jpg"},
		{"scan.jpg", imaging.MimeTypePNG, "scan.png"},
		{"icon.png", imaging.MimeTypePNG, "icon.png"},
		{"anim.webp", imaging.MimeTypeGIF, "anim.gif"},
		{"anim.gif", imaging.MimeTypeGIF, "anim.gif"},
		{"photo.bmp", "image/bmp", "photo.bmp"},
	}

	for _, tt := range tests {
		if got := withExtension(tt.name, tt.mimeType); got != tt.want {
			t.Errorf("withExtension(%q, %q) = %q; want %q", tt.name, tt.mimeType, got, tt.want)
		}
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	svc := testService(newMemStore(), time.Now())

	_, err := svc.Upload("big.bin", make([]byte, MaxAttachmentSize+1))
	if !errors.Is(err, ErrAttachmentTooLarge) {
		t.Errorf("err = %v; want ErrAttachmentTooLarge", err)
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	svc := testService(newMemStore(), time.Now())

	_, err := svc.Upload("notes.txt", []byte("just some text, not an image"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v; want ErrUnsupportedType", err)
	}
}

func TestUpload_SniffsContentNotFilename(t *testing.T) {
	svc := testService(newMemStore(), time.Now())

	// A .png name on non-image bytes must not get through.
	if _, err := svc.Upload("fake.png", []byte("<html></html>")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v; want ErrUnsupportedType", err)
	}
}

func TestDelete_RemovesThumbnail(t *testing.T) {
	store := newMemStore()
	svc := testService(store, time.UnixMilli(1700000000000))

	res, err := svc.Upload("wide.png", testImage(t, imaging.ThumbnailWidth*2, 200))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(res.URL); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.blobs) != 0 {
		t.Errorf("%d blobs remain after Delete", len(store.blobs))
	}
}

func TestThumbnailURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"/uploads/news/1700000000000_a.jpg", "/uploads/news/thumbs/1700000000000_a.jpg"},
		{"/uploads/news/thumbs/1700000000000_a.jpg", ""},
		{"/uploads/other/a.jpg", ""},
		{"https://cdn.example.com/a.jpg", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ThumbnailURL(tt.url); got != tt.want {
			t.Errorf("ThumbnailURL(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"city hall.png", "city-hall.png"},
		{"../../etc/passwd", "passwd"},
		{`a<b>&"c".gif`, "abc.gif"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}

	if got := sanitizeFilename(""); !strings.HasSuffix(got, ".img") {
		t.Errorf("empty filename fallback = %q", got)
	}
}
