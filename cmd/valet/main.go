// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

// Command valet runs the personal assistant from a terminal: a chat
// REPL, a one-shot ask mode, and a health check against the backing
// store.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/valetd/valet/pkg/config"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("valet", flag.ExitOnError)
	configPath := global.String("config", "", "path to YAML config file")
	userID := global.String("user", "", "user to act as (defaults to assistant.default_user)")
	global.Usage = printUsage

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version":
		fmt.Println("valet", version)
		return
	}

	if err := global.Parse(os.Args[2:]); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	user := *userID
	if user == "" {
		user = cfg.Assistant.DefaultUser
	}

	switch cmd {
	case "chat":
		err = runChat(ctx, cfg, user)
	case "ask":
		err = runAsk(ctx, cfg, user, strings.Join(global.Args(), " "))
	case "health":
		err = runHealth(ctx, cfg)
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
	if err != nil {
		fatal(err)
	}
}

func runChat(ctx context.Context, cfg *config.Config, user string) error {
	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Printf("%s ready. Type a message, or \"exit\" to quit.\n", cfg.Assistant.Name)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply := app.Orchestrator.Process(ctx, user, input)
		fmt.Println(reply)

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

func runAsk(ctx context.Context, cfg *config.Config, user, input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("ask requires a message, e.g. valet ask \"what's due today\"")
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println(app.Orchestrator.Process(ctx, user, input))
	return nil
}

func runHealth(ctx context.Context, cfg *config.Config) error {
	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Ping(ctx); err != nil {
		return fmt.Errorf("store unhealthy: %w", err)
	}
	fmt.Println("ok")
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `valet is a personal assistant.

Usage:

  valet <command> [flags] [args]

Commands:

  chat      interactive conversation
  ask       answer a single message and exit
  health    check the backing store and exit
  version   print the version
  help      print this help

Flags:

  -config path   YAML config file (env vars with prefix VALET_ override)
  -user id       user to act as
`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "valet:", err)
	os.Exit(1)
}
