// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Town hall reopens", "Town hall reopens"},
		{"trims whitespace", "  hello  \n", "hello"},
		{"strips script with payload", "<script>alert(1)</script>Hello", "Hello"},
		{"strips nested markup", "<div onclick=\"evil()\"><b>Bold</b> news</div>", "Bold news"},
		{"strips style payload", "<style>body{display:none}</style>Visible", "Visible"},
		{"keeps arabic text", "افتتاح المركز الصحي الجديد", "افتتاح المركز الصحي الجديد"},
		{"keeps literal ampersand", "roads & bridges", "roads & bridges"},
		{"strips entity-encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;Hello", "Hello"},
		{"strips entity-encoded tag", "a &lt;b&gt; c", "a  c"},
		{"strips double-encoded script", "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;Hello", "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"  padded  ",
		"<script>alert(1)</script>Hello",
		"a < b && c > d",
		"&amp; already escaped",
		"&lt;script&gt;alert(1)&lt;/script&gt;Hello",
		"a &lt;b&gt; c",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;Hello",
		"<img src=x onerror=alert(1)>caption",
		"خبر عاجل من بلدروز",
	}

	for _, s := range inputs {
		once := Sanitize(s)
		assert.Equal(t, once, Sanitize(once), "Sanitize not idempotent for %q", s)
	}
}

func TestSanitize_NoExecutableContent(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>Hello",
		"&lt;script&gt;alert(1)&lt;/script&gt;Hello",
	}

	for _, s := range inputs {
		got := Sanitize(s)

		assert.Contains(t, got, "Hello")
		assert.NotContains(t, got, "<script", "input %q", s)
		assert.NotContains(t, got, "alert(1)", "input %q", s)
	}
}

func TestValidate_TitleTooShort(t *testing.T) {
	_, err := Validate(Draft{Title: "ab", Description: "any text long enough"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestValidate_TitleTooLong(t *testing.T) {
	_, err := Validate(Draft{
		Title:       strings.Repeat("x", TitleMaxLen+1),
		Description: "a perfectly fine description",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestValidate_DescriptionTooShort(t *testing.T) {
	_, err := Validate(Draft{Title: "Valid Title", Description: "short"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)
}

func TestValidate_DescriptionTooLong(t *testing.T) {
	_, err := Validate(Draft{
		Title:       "Valid Title",
		Description: strings.Repeat("y", DescriptionMaxLen+1),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)
}

func TestValidate_CleanDraftPassesUnchanged(t *testing.T) {
	in := Draft{
		Title:       "Valid Title",
		Description: "This is a sufficiently long description.",
	}

	out, err := Validate(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestValidate_SanitizesBeforeMeasuring(t *testing.T) {
	// Markup is stripped first, so a title that is only long enough
	// with its tags attached must be rejected.
	_, err := Validate(Draft{
		Title:       "<b><i><u>ab</u></i></b>",
		Description: "a description that is long enough",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestValidate_MarkupStrippedFromAcceptedDraft(t *testing.T) {
	out, err := Validate(Draft{
		Title:       "Council <script>alert(1)</script>meeting minutes",
		Description: "The council met on Monday <b>evening</b> to approve the budget.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Council meeting minutes", out.Title)
	assert.Equal(t, "The council met on Monday evening to approve the budget.", out.Description)
}

func TestValidate_RuneCounting(t *testing.T) {
	// Three Arabic characters are three runes, not six bytes.
	out, err := Validate(Draft{Title: "خبر", Description: "تفاصيل الخبر المحلي هنا"})
	require.NoError(t, err)
	assert.Equal(t, "خبر", out.Title)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "title", Reason: "too short"}
	assert.Equal(t, "title: too short", err.Error())

	var target *ValidationError
	assert.True(t, errors.As(error(err), &target))
}
