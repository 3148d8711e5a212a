// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"fmt"
	"strings"
)

// FormField is one labeled text input in an acquisition form.
type FormField struct {
	Label     string
	Required  bool
	Multiline bool
	MaxLength int
}

// FormSpec is an ordered set of labeled fields presented as one atomic
// prompt and submitted in a single reply.
type FormSpec struct {
	Title  string
	Fields []FormField
}

// The acquisition forms of the builder. The basics and media forms run
// back to back when the wizard starts; the rest back the secondary
// menu actions.
var (
	basicsForm = FormSpec{
		Title: "Document basics",
		Fields: []FormField{
			{Label: "Title", MaxLength: 256},
			{Label: "Description", Required: true, Multiline: true, MaxLength: 4000},
			{Label: "Color", MaxLength: 7},
			{Label: "Footer text", MaxLength: 2048},
			{Label: "Footer icon", MaxLength: 1024},
		},
	}
	mediaForm = FormSpec{
		Title: "Media",
		Fields: []FormField{
			{Label: "Thumbnail", MaxLength: 1024},
			{Label: "Image", MaxLength: 1024},
			{Label: "Timestamp", MaxLength: 8},
		},
	}
	fieldForm = FormSpec{
		Title: "Add a field",
		Fields: []FormField{
			{Label: "Name", Required: true, MaxLength: 256},
			{Label: "Value", Required: true, Multiline: true, MaxLength: 1024},
			{Label: "Inline", MaxLength: 8},
		},
	}
	imageForm = FormSpec{
		Title:  "Main image",
		Fields: []FormField{{Label: "Image", Required: true, MaxLength: 1024}},
	}
	footerIconForm = FormSpec{
		Title:  "Footer icon",
		Fields: []FormField{{Label: "Icon", Required: true, MaxLength: 1024}},
	}
)

// Prompt renders the form as a private message asking the user to
// reply with "Label: value" lines (or a bare value for a one-field
// form).
func (f FormSpec) Prompt() string {
	var b strings.Builder
	b.WriteString(f.Title)
	if len(f.Fields) == 1 {
		fmt.Fprintf(&b, " — reply with the %s", strings.ToLower(f.Fields[0].Label))
		if !f.Fields[0].Required {
			b.WriteString(" (optional)")
		}
		b.WriteString(".")
		return b.String()
	}
	b.WriteString(" — reply with one \"Label: value\" line per field:")
	for _, field := range f.Fields {
		fmt.Fprintf(&b, "\n  %s", field.Label)
		if field.Required {
			b.WriteString(" (required)")
		}
	}
	return b.String()
}

// Parse extracts field values from a single submitted reply. Lines are
// matched to labels case-insensitively on the prefix before the first
// colon; unmatched lines are ignored. A one-field form also accepts
// the whole reply as a bare value. Missing required fields and
// over-length values reject the submission.
func (f FormSpec) Parse(reply string) (map[string]string, error) {
	values := make(map[string]string)

	// A one-field form takes the whole reply as the value unless the
	// reply is explicitly labeled. The prefix check matters because
	// bare values can themselves contain colons (URLs).
	if len(f.Fields) == 1 && !hasLabelPrefix(reply, f.Fields[0].Label) {
		values[f.Fields[0].Label] = strings.TrimSpace(reply)
	} else {
		for _, line := range strings.Split(reply, "\n") {
			label, value, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			label = strings.TrimSpace(label)
			for _, field := range f.Fields {
				if strings.EqualFold(label, field.Label) {
					values[field.Label] = strings.TrimSpace(value)
					break
				}
			}
		}
	}

	for _, field := range f.Fields {
		value := values[field.Label]
		if field.Required && value == "" {
			return nil, fmt.Errorf("wizard: %s form is missing required field %q", f.Title, field.Label)
		}
		if field.MaxLength > 0 && len(value) > field.MaxLength {
			return nil, fmt.Errorf("wizard: field %q exceeds %d characters", field.Label, field.MaxLength)
		}
	}
	return values, nil
}

func hasLabelPrefix(reply, label string) bool {
	before, _, found := strings.Cut(reply, ":")
	return found && strings.EqualFold(strings.TrimSpace(before), label)
}

// parseYes interprets a yes/no free-text answer. Anything other than
// an affirmative reads as no.
func parseYes(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "on", "1":
		return true
	default:
		return false
	}
}
