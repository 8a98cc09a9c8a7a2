// Package client renders the shared projectile arena for one terminal and
// turns its keystrokes into server commands.
package client

import (
	"bufio"
	"io"
	"time"

	"github.com/tomz197/volley/internal/draw"
	"github.com/tomz197/volley/internal/input"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/loop/server"
)

// Client handles rendering and input for a single connection.
type Client struct {
	server       server.GameServer
	handle       *server.ClientHandle
	defs         []string
	state        *ClientState
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates UI text for chunked output
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	layout       layout
	termSizeFunc draw.TermSizeFunc
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
}

// NewClient creates a new client connected to the given server.
func NewClient(gs server.GameServer, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}

	handle := gs.RegisterClient(opts.Username)

	termWidth, termHeight, _ := termSizeFunc()
	l := computeLayout(termWidth, termHeight)
	canvas := draw.NewScaledCanvas(l.plotWidth, l.plotHeight, arenaSize, arenaSize)
	canvas.SetOffset(l.plotCol, l.plotRow)

	return &Client{
		server:       gs,
		handle:       handle,
		defs:         gs.Definitions(),
		state:        NewClientState(handle.AimYaw),
		canvas:       canvas,
		chunkWriter:  draw.NewChunkWriter(w, 0, 0),
		writer:       w,
		inputStream:  input.StartStream(r),
		lastInput:    time.Now(),
		layout:       l,
		termSizeFunc: termSizeFunc,
	}
}

// Run starts the client loop. Blocks until the client disconnects or the
// server stops.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)

	lastTime := time.Now()

	for c.state.Running {
		frameStart := time.Now()
		c.state.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		c.processInput()
		c.processServerEvents()
		c.updateScreen()

		switch c.state.GameState {
		case GameStateStart:
			c.updateStartState()
		case GameStatePlaying:
			c.updatePlayingState()
		case GameStateShutdown:
			c.updateShutdownState()
		}

		if err := c.drawFrame(); err != nil {
			c.server.UnregisterClient(c.handle.ID)
			return err
		}

		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	c.server.UnregisterClient(c.handle.ID)

	draw.ClearScreen(c.writer)
	return nil
}

// processInput reads input and tracks inactivity.
func (c *Client) processInput() {
	c.state.Input = input.ReadInput(c.inputStream)

	if len(c.state.Input.Pressed) > 0 {
		c.lastInput = time.Now()
		c.state.isInactive = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityDisconnectUser {
		c.state.Running = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityWarnUser {
		c.state.isInactive = true
	}

	if c.state.Input.Quit || c.state.Input.Closed {
		c.state.Running = false
	}
}

// processServerEvents handles events from the server.
func (c *Client) processServerEvents() {
	for {
		select {
		case event, ok := <-c.handle.EventsCh:
			if !ok {
				c.state.Running = false
				return
			}
			c.state.handleEvent(event)
		default:
			return
		}
	}
}

// updateScreen handles terminal resize. On layout changes it clears the
// terminal so nothing from the old layout lingers.
func (c *Client) updateScreen() {
	termWidth, termHeight, err := c.termSizeFunc()
	if err != nil {
		return
	}
	l := computeLayout(termWidth, termHeight)
	if l == c.layout {
		return
	}

	c.layout = l
	draw.ClearScreen(c.writer)
	c.canvas.Resize(l.plotWidth, l.plotHeight)
	c.canvas.SetOffset(l.plotCol, l.plotRow)
	c.canvas.ForceRedraw()
}

// updateStartState handles the start screen.
func (c *Client) updateStartState() {
	if c.state.Input.Space || c.state.Input.Enter {
		input.ResetKeyInput(c.inputStream)
		c.state.GameState = GameStatePlaying
	}
}

// updatePlayingState steers the aim and forwards the resulting commands.
func (c *Client) updatePlayingState() {
	for _, cmd := range c.state.steer(c.state.Input, c.state.delta.Seconds(), c.handle.ID, c.defs) {
		c.server.Send(cmd)
	}
}

// updateShutdownState handles the shutdown screen countdown.
func (c *Client) updateShutdownState() {
	c.state.shutdownTimer -= c.state.delta.Seconds()
	if c.state.shutdownTimer <= 0 {
		c.state.Running = false
	}
}
