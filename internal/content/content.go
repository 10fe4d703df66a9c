// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content sanitizes and validates submitted news drafts before
// they reach the store. Both operations are pure: no I/O, no state.
package content

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Field length bounds, measured in runes after sanitization.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 200
	DescriptionMinLen = 10
	DescriptionMaxLen = 2000
)

// sanitizer strips all HTML from submitted text. News fields are plain
// text; bluemonday's strict policy removes every tag and drops the
// contents of script and style elements entirely, which a regex-based
// strip cannot do reliably.
var sanitizer = bluemonday.StrictPolicy()

// Draft holds raw submitted news fields.
type Draft struct {
	Title       string
	Description string
}

// ValidationError reports which field failed validation and why.
// It is returned as data; callers surface it next to the field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Sanitize trims surrounding whitespace and strips any HTML markup,
// returning plain text. Entity-encoded markup ("&lt;script&gt;") is
// decoded and stripped too: the strip-and-unescape pass repeats until
// the string stops changing, so the result is a fixpoint and
// sanitizing already-sanitized text yields the same string.
func Sanitize(s string) string {
	for {
		// bluemonday entity-escapes its plain-text output; unescape so
		// the stored value is the literal text. Each pass removes a layer
		// of markup or encoding and never grows the string.
		clean := html.UnescapeString(sanitizer.Sanitize(s))
		if clean == s {
			return strings.TrimSpace(clean)
		}
		s = clean
	}
}

// Validate sanitizes a draft and enforces field length bounds.
// It either returns the fully sanitized draft or a *ValidationError
// naming the first offending field; it never partially accepts.
func Validate(d Draft) (Draft, error) {
	d.Title = Sanitize(d.Title)
	d.Description = Sanitize(d.Description)

	if n := utf8.RuneCountInString(d.Title); n < TitleMinLen || n > TitleMaxLen {
		return Draft{}, &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("title must be between %d and %d characters", TitleMinLen, TitleMaxLen),
		}
	}

	if n := utf8.RuneCountInString(d.Description); n < DescriptionMinLen || n > DescriptionMaxLen {
		return Draft{}, &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("description must be between %d and %d characters", DescriptionMinLen, DescriptionMaxLen),
		}
	}

	return d, nil
}
