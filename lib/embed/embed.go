// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package embed holds the draft document of the interactive builder:
// the embed struct itself, its validation rules, and the deterministic
// preview renderer.
package embed

import "fmt"

// DefaultColor is the accent color applied when the user supplies no
// color or an invalid one.
const DefaultColor = "#FF4F8B"

// Field is one name/value pair appended to an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a draft document under construction. Description is the only
// required field; everything else is optional decoration.
type Embed struct {
	Title         string  `json:"title,omitempty"`
	Description   string  `json:"description"`
	Color         string  `json:"color,omitempty"`
	FooterText    string  `json:"footer_text,omitempty"`
	FooterIconURL string  `json:"footer_icon_url,omitempty"`
	ThumbnailURL  string  `json:"thumbnail_url,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	ShowTimestamp bool    `json:"show_timestamp,omitempty"`
	Fields        []Field `json:"fields,omitempty"`
}

// AddField appends a field. Fields keep insertion order.
func (e *Embed) AddField(field Field) {
	e.Fields = append(e.Fields, field)
}

// RemoveField deletes the field at the given zero-based index and
// returns it. Remaining fields shift down, preserving order.
func (e *Embed) RemoveField(index int) (Field, error) {
	if index < 0 || index >= len(e.Fields) {
		return Field{}, fmt.Errorf("embed: field index %d out of range (have %d fields)", index, len(e.Fields))
	}
	removed := e.Fields[index]
	e.Fields = append(e.Fields[:index], e.Fields[index+1:]...)
	return removed, nil
}

// Clone returns a deep copy. Sessions hand copies to collaborators so
// a published document cannot be mutated afterwards.
func (e *Embed) Clone() Embed {
	clone := *e
	if len(e.Fields) > 0 {
		clone.Fields = make([]Field, len(e.Fields))
		copy(clone.Fields, e.Fields)
	}
	return clone
}
