// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the subset of the Matrix client-server API
// that Herald uses.
//
// [Client] is an unauthenticated client holding the homeserver URL and
// HTTP transport. [Client.Login] and [Client.SessionFromToken] return
// authenticated [Session] values for room operations: sending messages
// and state events, reading state, redacting events, room lifecycle
// (create, join, leave, invite, kick), membership and profile lookups,
// and incremental /sync with long-polling. [RunSyncLoop] drives the
// long-poll loop with exponential backoff on transient failures.
//
// All API errors are returned as [*MatrixError] carrying the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, ...) and HTTP status.
// Use [IsMatrixError] to test for a specific code. Request URLs are
// built by string concatenation rather than url.URL to avoid
// double-encoding path segments that already contain URL-encoded
// characters.
package messaging
