// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated value types for Matrix identifiers.
//
// Raw identifier strings arrive from the homeserver (sync responses,
// send acknowledgements) and from user input (commands naming rooms or
// users). They are parsed into these types at the boundary so that the
// rest of the codebase never mixes up a room ID with a user ID, and
// never carries a structurally invalid identifier.
//
// All types are immutable value types. The zero value is not valid;
// use IsZero to check. Types implement encoding.TextMarshaler and
// TextUnmarshaler so encoding/json validates identifiers during
// deserialization, including when they appear as map keys.
package ref
