// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"fmt"
	"strconv"
	"strings"
)

// Action identifies one operation in the fixed preview menu.
type Action string

const (
	ActionAddField        Action = "add-field"
	ActionRemoveField     Action = "remove-field"
	ActionListFields      Action = "list-fields"
	ActionAddImage        Action = "add-image"
	ActionAddFooterIcon   Action = "add-footer-icon"
	ActionToggleTimestamp Action = "toggle-timestamp"
	ActionPublish         Action = "publish"
	ActionEdit            Action = "edit"
	ActionCancel          Action = "cancel"
)

// Catalog is the full action menu, in canonical order. It is static:
// every preview offers all nine actions regardless of draft state, and
// actions that cannot apply (removing from zero fields) are guarded at
// execution time instead of hidden.
var Catalog = []Action{
	ActionAddField,
	ActionRemoveField,
	ActionListFields,
	ActionAddImage,
	ActionAddFooterIcon,
	ActionToggleTimestamp,
	ActionPublish,
	ActionEdit,
	ActionCancel,
}

// maxActionsPerRow is the display row limit for action menus.
const maxActionsPerRow = 5

// ActionRows partitions the catalog into rows of at most five actions,
// preserving canonical order.
func ActionRows() [][]Action {
	var rows [][]Action
	for start := 0; start < len(Catalog); start += maxActionsPerRow {
		end := min(start+maxActionsPerRow, len(Catalog))
		rows = append(rows, Catalog[start:end])
	}
	return rows
}

// renderMenu formats the action menu as numbered rows. Users reply
// with either the number or the action name.
func renderMenu() string {
	var b strings.Builder
	b.WriteString("Reply with a number or action name:")
	number := 1
	for _, row := range ActionRows() {
		b.WriteString("\n")
		for column, action := range row {
			if column > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "[%d] %s", number, action)
			number++
		}
	}
	return b.String()
}

// parseAction resolves a user reply to a catalog action, accepting
// either the one-based menu number or the action name.
func parseAction(reply string) (Action, error) {
	trimmed := strings.ToLower(strings.TrimSpace(reply))
	if trimmed == "" {
		return "", fmt.Errorf("wizard: empty action")
	}
	if number, err := strconv.Atoi(trimmed); err == nil {
		if number < 1 || number > len(Catalog) {
			return "", fmt.Errorf("wizard: action number %d out of range 1-%d", number, len(Catalog))
		}
		return Catalog[number-1], nil
	}
	for _, action := range Catalog {
		if trimmed == string(action) {
			return action, nil
		}
	}
	return "", fmt.Errorf("wizard: unknown action %q", trimmed)
}
