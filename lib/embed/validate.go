// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"fmt"
	"regexp"
)

var (
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	imagePattern = regexp.MustCompile(`(?i)^https?://[^/\s]+/\S*\.(jpg|jpeg|png|gif|webp)$`)
)

// NormalizeColor returns raw unchanged when it is a six-digit hex color
// with a leading hash, and DefaultColor otherwise. The letter case of a
// valid input is preserved, so normalization is deterministic.
func NormalizeColor(raw string) string {
	if colorPattern.MatchString(raw) {
		return raw
	}
	return DefaultColor
}

// ValidateImageURL rejects anything that is not an http(s) URL ending
// in a recognized image extension. The extension check is
// case-insensitive. Only the strict entry points (add-image,
// add-footer-icon) call this; the initial acquisition forms pass media
// references through unchecked.
func ValidateImageURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("embed: image URL is empty")
	}
	if !imagePattern.MatchString(raw) {
		return fmt.Errorf("embed: %q is not an http(s) URL ending in .jpg, .jpeg, .png, .gif, or .webp", raw)
	}
	return nil
}
