package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/tomz197/volley/internal/config"
	"github.com/tomz197/volley/internal/logging"
	"github.com/tomz197/volley/internal/loop/client"
	"github.com/tomz197/volley/internal/loop/server"
	"github.com/tomz197/volley/internal/projectile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Logs would tear the raw terminal, so they go to a file when asked for.
	var logOut io.Writer = io.Discard
	if path := config.GetEnv("VOLLEY_LOG_FILE", ""); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logOut, config.GetEnv("LOG_LEVEL", "info"), logging.FormatLogfmt)

	catalog := projectile.DefaultCatalog()
	if path := config.GetEnv("VOLLEY_CATALOG", ""); path != "" {
		var err error
		if catalog, err = projectile.LoadCatalog(path); err != nil {
			return err
		}
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	gs := server.NewServer(server.Options{Catalog: catalog, Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gs.Run(ctx)

	username := config.GetEnv("USER", "player")
	c := client.NewClient(gs, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{Username: username})
	return c.Run()
}
