// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Command herald is a Matrix community bot. Its core feature is an
// interactive document builder: users assemble a rich embed over a
// private conversation, preview it against a fixed action menu, and
// publish the result to a room, gated on their role in the community.
//
// Around the builder it carries the usual community furniture: welcome
// and goodbye greetings driven by per-room state events, single-shot
// picture commands, private support ticket rooms, and saved document
// templates.
//
// Usage:
//
//	herald [--config /etc/herald/config.yaml]
//	herald login --homeserver URL --user NAME --token-file PATH
//	herald admin [--socket PATH] status|sessions|templates
package main
