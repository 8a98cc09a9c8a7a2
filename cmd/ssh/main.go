package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishlogging "github.com/charmbracelet/wish/logging"

	"github.com/tomz197/volley/internal/config"
	"github.com/tomz197/volley/internal/draw"
	"github.com/tomz197/volley/internal/logging"
	"github.com/tomz197/volley/internal/loop/client"
	"github.com/tomz197/volley/internal/loop/server"
	"github.com/tomz197/volley/internal/observability"
	"github.com/tomz197/volley/internal/projectile"
)

const (
	defaultHost        = "::"
	defaultPort        = "2222"
	defaultHostKeyPath = "/app/keys/host_key"
	defaultMetricsAddr = ":9100"
)

func main() {
	logger := logging.New(os.Stderr, config.GetEnv("LOG_LEVEL", "info"), config.GetEnv("LOG_FORMAT", logging.FormatText))
	logging.SetDefault(logger)

	host := config.GetEnv("SSH_HOST", defaultHost)
	port := config.GetEnv("SSH_PORT", defaultPort)
	hostKeyPath := config.GetEnv("SSH_HOST_KEY", defaultHostKeyPath)
	catalogPath := config.GetEnv("VOLLEY_CATALOG", "")
	metricsAddr := config.GetEnv("METRICS_ADDR", defaultMetricsAddr)
	shutdownTimeout := config.GetEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second)
	logger.Info("ssh config", "host", host, "port", port, "hostKeyPath", hostKeyPath, "catalog", catalogPath, "metrics", metricsAddr)

	catalog := projectile.DefaultCatalog()
	if catalogPath != "" {
		var err error
		if catalog, err = projectile.LoadCatalog(catalogPath); err != nil {
			logger.Fatal("failed to load catalog", "err", err)
		}
	}

	// The game server is shared by all SSH clients.
	var gameServer *server.Server
	obs := observability.NewServer(metricsAddr, func() bool {
		return gameServer != nil && gameServer.Ready()
	}, logger.WithPrefix("metrics"))

	gameServer = server.NewServer(server.Options{
		Catalog:        catalog,
		Logger:         logger,
		Metrics:        obs.Metrics(),
		MaxProjectiles: config.GetEnvInt("VOLLEY_MAX_PROJECTILES", 0),
	})
	ctx, cancelServer := context.WithCancel(context.Background())
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		gameServer.Run(ctx)
	}()
	logger.Info("game server started", "definitions", gameServer.Definitions())

	obsErrs, err := obs.Start()
	if err != nil {
		logger.Fatal("failed to start observability server", "err", err)
	}

	opts := []ssh.Option{
		wish.WithAddress(net.JoinHostPort(host, port)),
		wish.WithMiddleware(
			gameMiddleware(gameServer, logger.WithPrefix("session")),
			activeterm.Middleware(),
			wishlogging.StructuredMiddlewareWithLogger(logger.WithPrefix("ssh"), log.InfoLevel),
		),
		// Set TCP_NODELAY to reduce latency for game input
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}

	if hostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(hostKeyPath))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting SSH server", "addr", net.JoinHostPort(host, port))
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	select {
	case <-done:
	case err := <-obsErrs:
		logger.Error("observability server failed", "err", err)
	}
	logger.Info("shutting down server")

	// Notify players and wait for them to disconnect
	logger.Info("notifying connected players about shutdown")
	gameServer.Shutdown(shutdownTimeout)
	cancelServer()
	<-serverDone
	logger.Info("game server stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := obs.Stop(shutdownCtx); err != nil {
		logger.Error("observability shutdown error", "err", err)
	}
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("shutdown error", "err", err)
	}
}

// gameMiddleware handles SSH sessions and runs the game client.
func gameMiddleware(gs server.GameServer, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}

			logger.Info("new session", "user", sess.User(), "term", pty.Term,
				"width", pty.Window.Width, "height", pty.Window.Height)

			// Create a terminal size tracker that updates on window changes
			sizeTracker := newSizeTracker(pty.Window.Width, pty.Window.Height)

			go func() {
				for win := range winCh {
					sizeTracker.update(win.Width, win.Height)
				}
			}()

			c := client.NewClient(gs, bufio.NewReader(sess), sess, client.ClientOptions{
				TermSizeFunc: sizeTracker.getSize,
				Username:     sess.User(),
			})
			if err := c.Run(); err != nil {
				logger.Warn("game error", "user", sess.User(), "err", err)
			}

			logger.Info("session ended", "user", sess.User())
			next(sess)
		}
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

// Ensure sizeTracker.getSize satisfies draw.TermSizeFunc
var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize
