// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package adminsock serves operator queries over a Unix domain
// socket. Frames are length-prefixed deterministic CBOR: a 4-byte
// big-endian length followed by one encoded message.
package adminsock

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/herald-project/herald/lib/codec"
	"github.com/herald-project/herald/lib/wizard"
)

// maxFrameSize bounds a single request or response frame.
const maxFrameSize = 1 << 20

// Request actions.
const (
	ActionStatus    = "status"
	ActionSessions  = "sessions"
	ActionTemplates = "templates"
)

// Request is one operator query.
type Request struct {
	Action string `cbor:"action"`
}

// Status summarizes the running service.
type Status struct {
	UserID       string `cbor:"user_id"`
	Homeserver   string `cbor:"homeserver"`
	LiveSessions int    `cbor:"live_sessions"`
	OpenTickets  int    `cbor:"open_tickets"`
}

// Response answers a Request. Exactly one payload field is set when OK
// is true.
type Response struct {
	OK       bool                 `cbor:"ok"`
	Error    string               `cbor:"error,omitempty"`
	Status   *Status              `cbor:"status,omitempty"`
	Sessions []wizard.SessionInfo `cbor:"sessions,omitempty"`
	// Templates maps user IDs to their saved template count.
	Templates map[string]int `cbor:"templates,omitempty"`
}

// Reporter supplies the data behind the queries. cmd/herald implements
// it over the live registry and ticket manager.
type Reporter interface {
	Status() Status
	Sessions() []wizard.SessionInfo
	TemplateCounts() map[string]int
}

// Server accepts connections on a Unix socket and answers queries
// until closed.
type Server struct {
	listener net.Listener
	reporter Reporter
	logger   *slog.Logger

	wg sync.WaitGroup
}

// Listen removes any stale socket at path and starts listening. Call
// Serve to accept connections.
func Listen(path string, reporter Reporter, logger *slog.Logger) (*Server, error) {
	if reporter == nil {
		return nil, fmt.Errorf("adminsock: reporter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("adminsock: failed to remove stale socket %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("adminsock: failed to listen on %s: %w", path, err)
	}
	return &Server{listener: listener, reporter: reporter, logger: logger}, nil
}

// Serve accepts connections until the context is cancelled or the
// listener is closed. Each connection handles frames sequentially.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("adminsock: accept failed: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handleConn(conn)
		}()
	}
}

// Close stops the listener; in-flight connections drain via Serve.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	for {
		frame, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("admin connection read failed", "error", err)
			}
			return
		}

		var request Request
		if err := codec.Unmarshal(frame, &request); err != nil {
			s.respond(conn, Response{OK: false, Error: "malformed request: " + err.Error()})
			return
		}
		s.respond(conn, s.answer(request))
	}
}

func (s *Server) answer(request Request) Response {
	switch request.Action {
	case ActionStatus:
		status := s.reporter.Status()
		return Response{OK: true, Status: &status}
	case ActionSessions:
		return Response{OK: true, Sessions: s.reporter.Sessions()}
	case ActionTemplates:
		return Response{OK: true, Templates: s.reporter.TemplateCounts()}
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown action %q", request.Action)}
	}
}

func (s *Server) respond(conn net.Conn, response Response) {
	data, err := codec.Marshal(response)
	if err != nil {
		s.logger.Error("admin response encode failed", "error", err)
		return
	}
	if err := writeFrame(conn, data); err != nil {
		s.logger.Debug("admin response write failed", "error", err)
	}
}

// Query dials the socket, sends one request, and decodes the
// response. Used by the herald admin subcommand.
func Query(ctx context.Context, path string, request Request) (*Response, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("adminsock: failed to dial %s: %w", path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := codec.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("adminsock: failed to encode request: %w", err)
	}
	if err := writeFrame(conn, data); err != nil {
		return nil, fmt.Errorf("adminsock: failed to send request: %w", err)
	}

	frame, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("adminsock: failed to read response: %w", err)
	}
	var response Response
	if err := codec.Unmarshal(frame, &response); err != nil {
		return nil, fmt.Errorf("adminsock: malformed response: %w", err)
	}
	return &response, nil
}

func readFrame(conn net.Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(conn, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func writeFrame(conn net.Conn, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(data))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := conn.Write(header[:]); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}
