// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/zeebo/blake3"
)

// markdown renders description text to HTML for the formatted preview.
// A single shared instance: goldmark.Markdown is safe for concurrent
// Convert calls.
var markdown = goldmark.New()

// Rendered is the immutable preview artifact produced from a draft.
// Body is the plain-text fallback, HTMLBody the Matrix formatted_body.
// Fingerprint is a BLAKE3 hash of the rendering, so identical drafts
// produce identical fingerprints.
type Rendered struct {
	Body        string
	HTMLBody    string
	Fingerprint string
}

// Render produces the preview artifact for a draft. Rendering is a
// pure function of the draft: no timestamps, no randomness.
func Render(e Embed) Rendered {
	body := renderPlain(e)
	htmlBody := renderHTML(e)

	hasher := blake3.New()
	hasher.WriteString(body)
	hasher.WriteString("\x00")
	hasher.WriteString(htmlBody)

	return Rendered{
		Body:        body,
		HTMLBody:    htmlBody,
		Fingerprint: hex.EncodeToString(hasher.Sum(nil)),
	}
}

func renderPlain(e Embed) string {
	var b strings.Builder
	if e.Title != "" {
		b.WriteString(e.Title)
		b.WriteString("\n")
	}
	b.WriteString(e.Description)
	for _, field := range e.Fields {
		b.WriteString("\n")
		b.WriteString(field.Name)
		b.WriteString(": ")
		b.WriteString(field.Value)
	}
	if e.ImageURL != "" {
		fmt.Fprintf(&b, "\nImage: %s", e.ImageURL)
	}
	if e.FooterText != "" {
		b.WriteString("\n")
		b.WriteString(e.FooterText)
	}
	if e.ShowTimestamp {
		b.WriteString("\n[timestamped]")
	}
	return b.String()
}

func renderHTML(e Embed) string {
	var b strings.Builder

	color := NormalizeColor(e.Color)
	fmt.Fprintf(&b, `<blockquote data-mx-border-color=%q>`, color)

	if e.ThumbnailURL != "" {
		fmt.Fprintf(&b, `<a href=%q>🖼️</a> `, e.ThumbnailURL)
	}
	if e.Title != "" {
		fmt.Fprintf(&b, "<strong>%s</strong><br/>", html.EscapeString(e.Title))
	}

	var description bytes.Buffer
	if err := markdown.Convert([]byte(e.Description), &description); err != nil {
		// Conversion only fails on writer errors, which bytes.Buffer
		// never produces. Fall back to escaped plain text regardless.
		description.Reset()
		description.WriteString("<p>" + html.EscapeString(e.Description) + "</p>")
	}
	b.Write(bytes.TrimSpace(description.Bytes()))

	for _, field := range e.Fields {
		fmt.Fprintf(&b, "<br/><strong>%s</strong>: %s",
			html.EscapeString(field.Name), html.EscapeString(field.Value))
	}
	if e.ImageURL != "" {
		fmt.Fprintf(&b, `<br/><a href=%q>%s</a>`, e.ImageURL, html.EscapeString(e.ImageURL))
	}

	var footer []string
	if e.FooterIconURL != "" {
		footer = append(footer, fmt.Sprintf(`<a href=%q>🔖</a>`, e.FooterIconURL))
	}
	if e.FooterText != "" {
		footer = append(footer, html.EscapeString(e.FooterText))
	}
	if e.ShowTimestamp {
		footer = append(footer, "🕒")
	}
	if len(footer) > 0 {
		fmt.Fprintf(&b, "<br/><sub>%s</sub>", strings.Join(footer, " "))
	}

	b.WriteString("</blockquote>")
	return b.String()
}
