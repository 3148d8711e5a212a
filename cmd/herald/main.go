// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/herald-project/herald/lib/adminsock"
	"github.com/herald-project/herald/lib/clock"
	"github.com/herald-project/herald/lib/ref"
	"github.com/herald-project/herald/lib/version"
	"github.com/herald-project/herald/messaging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "herald:", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "login":
			return runLogin(os.Args[2:])
		case "admin":
			return runAdmin(os.Args[2:])
		}
	}
	return runServe(os.Args[1:])
}

func runServe(args []string) error {
	flags := pflag.NewFlagSet("herald", pflag.ContinueOnError)
	configPath := flags.String("config", "/etc/herald/config.yaml", "path to the configuration file")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println("herald", version.Full())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	token, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("failed to read token file (run \"herald login\" first): %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: cfg.Homeserver})
	if err != nil {
		return err
	}
	session, err := client.SessionFromToken(ref.MustParseUserID(cfg.UserID), strings.TrimSpace(string(token)))
	if err != nil {
		return err
	}
	if _, err := session.WhoAmI(ctx); err != nil {
		return fmt.Errorf("access token rejected by homeserver: %w", err)
	}

	clk := clock.Real()
	herald, err := NewHerald(cfg, session, clk, logger)
	if err != nil {
		return err
	}

	if cfg.AdminSocket != "" {
		server, err := adminsock.Listen(cfg.AdminSocket, herald, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
				logger.Error("admin socket failed", "error", err)
			}
		}()
		logger.Info("admin socket listening", "path", cfg.AdminSocket)
	}

	sinceToken, _, err := messaging.InitialSync(ctx, session, syncFilter)
	if err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}
	logger.Info("herald running",
		"user", session.UserID(),
		"homeserver", cfg.Homeserver,
		"prefix", cfg.CommandPrefix,
	)

	messaging.RunSyncLoop(ctx, session, messaging.SyncConfig{Filter: syncFilter},
		sinceToken, herald.handleSync, clk, logger)
	return nil
}

func runLogin(args []string) error {
	flags := pflag.NewFlagSet("herald login", pflag.ContinueOnError)
	homeserver := flags.String("homeserver", "", "Matrix homeserver base URL")
	user := flags.String("user", "", "login username (localpart)")
	tokenFile := flags.String("token-file", "", "where to write the access token")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *homeserver == "" || *user == "" || *tokenFile == "" {
		return fmt.Errorf("login requires --homeserver, --user, and --token-file")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", *user)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	client, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: *homeserver})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := client.Login(ctx, *user, string(password))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := os.WriteFile(*tokenFile, []byte(session.AccessToken()+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	fmt.Printf("Logged in as %s; token written to %s\n", session.UserID(), *tokenFile)
	return nil
}

func runAdmin(args []string) error {
	flags := pflag.NewFlagSet("herald admin", pflag.ContinueOnError)
	socketPath := flags.String("socket", "/run/herald/admin.sock", "admin socket path")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: herald admin [--socket path] status|sessions|templates")
	}
	action := flags.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	response, err := adminsock.Query(ctx, *socketPath, adminsock.Request{Action: action})
	if err != nil {
		return err
	}
	if !response.OK {
		return fmt.Errorf("query failed: %s", response.Error)
	}

	switch action {
	case adminsock.ActionStatus:
		s := response.Status
		fmt.Printf("user:          %s\n", s.UserID)
		fmt.Printf("homeserver:    %s\n", s.Homeserver)
		fmt.Printf("live sessions: %d\n", s.LiveSessions)
		fmt.Printf("open tickets:  %d\n", s.OpenTickets)
	case adminsock.ActionSessions:
		if len(response.Sessions) == 0 {
			fmt.Println("no live sessions")
			return nil
		}
		for _, info := range response.Sessions {
			fmt.Printf("%s  state=%s fields=%d preview=%t\n",
				info.User, info.State, info.FieldCount, info.HasPreview)
		}
	case adminsock.ActionTemplates:
		if len(response.Templates) == 0 {
			fmt.Println("no saved templates")
			return nil
		}
		for user, count := range response.Templates {
			fmt.Printf("%s  templates=%d\n", user, count)
		}
	}
	return nil
}
