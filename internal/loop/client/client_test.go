package client

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tomz197/volley/internal/arena"
	"github.com/tomz197/volley/internal/draw"
	"github.com/tomz197/volley/internal/input"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/loop/server"
	"github.com/tomz197/volley/internal/pool"
	"github.com/tomz197/volley/internal/projectile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeServer struct {
	mu           sync.Mutex
	handle       *server.ClientHandle
	sent         []server.Command
	unregistered []int
	snapshot     *server.WorldSnapshot
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		handle: &server.ClientHandle{
			ID:       3,
			Username: "alice",
			Launcher: mgl64.Vec3{45, 1.5, 0},
			AimYaw:   1,
			EventsCh: make(chan server.ClientEvent, 8),
		},
		snapshot: &server.WorldSnapshot{
			Tick:    42,
			Targets: []arena.Target{{Name: "target-1", Center: mgl64.Vec3{0, 1.5, 0}, Radius: 1.5}},
			Launchers: []server.LauncherView{
				{ClientID: 3, Username: "alice", Position: mgl64.Vec3{45, 1.5, 0}},
			},
			Projectiles: []server.ProjectileView{{DefinitionID: "arrow", Owner: 3, Position: mgl64.Vec3{10, 3, 0}}},
			Players:     1,
			Stats: projectile.Stats{
				Active:      1,
				Definitions: 2,
				Pools:       map[string]pool.Stats{"arrow": {Total: 32, Available: 31, InUse: 1, Peak: 4}},
			},
			TopScores: []server.TopScoreEntry{{Username: "alice", Score: 20}},
		},
	}
}

func (f *fakeServer) RegisterClient(string) *server.ClientHandle { return f.handle }

func (f *fakeServer) UnregisterClient(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = append(f.unregistered, id)
}

func (f *fakeServer) Send(cmd server.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
}

func (f *fakeServer) GetSnapshot() *server.WorldSnapshot { return f.snapshot }
func (f *fakeServer) Definitions() []string { return []string{"arrow", "rock"} }

func termSize(w, h int) func() (int, int, error) {
	return func() (int, int, error) { return w, h, nil }
}

// newPipeClient returns a client whose input stays open until the test ends.
func newPipeClient(t *testing.T, gs server.GameServer, out io.Writer) *Client {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	return NewClient(gs, bufio.NewReader(pr), out, ClientOptions{TermSizeFunc: termSize(140, 50), Username: "alice"})
}

func TestComputeLayout(t *testing.T) {
	l := computeLayout(140, 50)
	assert.True(t, l.showPlot)
	assert.Equal(t, config.MaxPlotWidth, l.plotWidth)
	assert.Equal(t, config.MaxPlotWidth/2, l.plotHeight)
	assert.Equal(t, l.plotWidth+4, l.panelCol)

	short := computeLayout(140, 22)
	assert.Equal(t, 40, short.plotWidth, "height limits the plot")
	assert.Equal(t, 20, short.plotHeight)

	tiny := computeLayout(40, 10)
	assert.False(t, tiny.showPlot)
	assert.Equal(t, 1, tiny.panelCol)
}

func TestToPlot(t *testing.T) {
	assert.Equal(t, draw.Point{X: 0, Y: 0}, toPlot(mgl64.Vec3{-config.ArenaHalfSize, 7, -config.ArenaHalfSize}))
	assert.Equal(t, draw.Point{X: config.ArenaHalfSize, Y: arenaSize}, toPlot(mgl64.Vec3{0, 0, config.ArenaHalfSize}))
}

func TestState_SteerClampsAim(t *testing.T) {
	s := NewClientState(0)
	defs := []string{"arrow"}

	for i := 0; i < 100; i++ {
		s.steer(input.Input{Up: true, Stronger: true, Number: -1}, 0.1, 1, defs)
	}
	assert.Equal(t, config.MaxPitch, s.Aim.Pitch)
	assert.Equal(t, config.MaxStrength, s.Aim.Strength)

	for i := 0; i < 100; i++ {
		s.steer(input.Input{Down: true, Weaker: true, Number: -1}, 0.1, 1, defs)
	}
	assert.Equal(t, config.MinPitch, s.Aim.Pitch)
	assert.Equal(t, config.MinStrength, s.Aim.Strength)

	s.steer(input.Input{Left: true, Number: -1}, 0.5, 1, defs)
	assert.InDelta(t, config.AimTurnRate*0.5, s.Aim.Yaw, 1e-12)
	s.steer(input.Input{Right: true, Number: -1}, 1, 1, defs)
	assert.InDelta(t, -config.AimTurnRate*0.5, s.Aim.Yaw, 1e-12)
}

func TestState_SteerFiresWithCooldowns(t *testing.T) {
	s := NewClientState(0.5)
	defs := []string{"arrow", "rock"}

	cmds := s.steer(input.Input{Space: true, Volley: true, Number: 2}, 0.01, 7, defs)
	require.Len(t, cmds, 2)
	assert.Equal(t, server.Command{
		ClientID:     7,
		Type:         server.CommandLaunch,
		DefinitionID: "rock",
		Yaw:          0.5,
		Pitch:        config.DefaultPitch,
		Strength:     config.DefaultStrength,
	}, cmds[0])
	assert.Equal(t, server.CommandVolley, cmds[1].Type)

	assert.Empty(t, s.steer(input.Input{Space: true, Volley: true, Number: -1}, 0.01, 7, defs), "both on cooldown")

	cmds = s.steer(input.Input{Space: true, Volley: true, Number: -1}, config.FireCooldown, 7, defs)
	require.Len(t, cmds, 1, "single shot recovers first")
	assert.Equal(t, server.CommandLaunch, cmds[0].Type)

	cmds = s.steer(input.Input{Clear: true, Number: 9}, 0.01, 7, defs)
	assert.Equal(t, []server.Command{{ClientID: 7, Type: server.CommandClear}}, cmds)
	assert.Equal(t, 1, s.Selected, "out of range digit keeps the selection")

	assert.Nil(t, s.steer(input.Input{Space: true, Number: -1}, 1, 7, nil), "nothing to fire")
}

func TestState_HandleEvent(t *testing.T) {
	s := NewClientState(0)

	for i := 0; i < config.EventLogSize+2; i++ {
		s.handleEvent(server.ClientEvent{Type: server.EventHit, Definition: "arrow", Target: "target-1", ScoreAdd: 10})
	}
	s.handleEvent(server.ClientEvent{Type: server.EventRejected, Definition: "rock", Reason: "pool exhausted"})

	assert.Equal(t, 10*(config.EventLogSize+2), s.Score)
	assert.Equal(t, config.EventLogSize+2, s.Hits)
	require.Len(t, s.Events, config.EventLogSize)
	assert.Equal(t, "rock rejected: pool exhausted", s.Events[len(s.Events)-1])
	assert.Equal(t, "arrow hit target-1 +10", s.Events[0])

	s.handleEvent(server.ClientEvent{Type: server.EventServerShutdown})
	assert.Equal(t, GameStateShutdown, s.GameState)
	assert.Equal(t, config.ShutdownDisplaySeconds, s.shutdownTimer)
}

func TestClient_PlayingSendsAndDraws(t *testing.T) {
	fs := newFakeServer()
	var out bytes.Buffer
	c := newPipeClient(t, fs, &out)

	assert.Equal(t, 1.0, c.state.Aim.Yaw, "aim starts at the handle's yaw")

	c.state.GameState = GameStatePlaying
	c.state.Input = input.Input{Space: true, Number: -1}
	c.state.delta = 10 * time.Millisecond
	c.updatePlayingState()
	require.Len(t, fs.sent, 1)
	assert.Equal(t, "arrow", fs.sent[0].DefinitionID)
	assert.Equal(t, 3, fs.sent[0].ClientID)

	require.NoError(t, c.drawFrame())
	frame := out.String()
	assert.Contains(t, frame, "\033[H\033[2J", "state change clears the screen")
	assert.Contains(t, frame, "VOLLEY  tick 42")
	assert.Contains(t, frame, "> 1 arrow")
	assert.Contains(t, frame, "alice")
	assert.Contains(t, frame, "┌")
	assert.True(t, c.canvas.IsSet(toPlot(mgl64.Vec3{10, 3, 0})), "projectile is plotted")
	assert.True(t, c.canvas.IsSet(toPlot(fs.handle.Launcher)), "own launcher is plotted")

	out.Reset()
	require.NoError(t, c.drawFrame())
	assert.NotContains(t, out.String(), "\033[2J", "steady state does not clear")
	assert.NotContains(t, out.String(), "█", "unchanged plot is not redrawn")
}

func TestClient_StartScreen(t *testing.T) {
	fs := newFakeServer()
	var out bytes.Buffer
	c := newPipeClient(t, fs, &out)

	require.NoError(t, c.drawFrame())
	assert.Contains(t, out.String(), "Controls")

	c.state.Input = input.Input{Enter: true, Number: -1}
	c.updateStartState()
	assert.Equal(t, GameStatePlaying, c.state.GameState)
}

func TestClient_RunStopsWhenInputCloses(t *testing.T) {
	fs := newFakeServer()
	var out bytes.Buffer
	c := NewClient(fs, bufio.NewReader(strings.NewReader("")), &out, ClientOptions{TermSizeFunc: termSize(140, 50)})

	require.NoError(t, c.Run())
	assert.Equal(t, []int{3}, fs.unregistered)
	assert.True(t, strings.HasPrefix(out.String(), "\033[?25l"))
	assert.Contains(t, out.String(), "\033[?25h")
}

func TestClient_RunStopsWhenServerClosesEvents(t *testing.T) {
	fs := newFakeServer()
	var out bytes.Buffer
	c := newPipeClient(t, fs, &out)

	close(fs.handle.EventsCh)
	require.NoError(t, c.Run())
	assert.Equal(t, []int{3}, fs.unregistered)
}

func TestClient_ShutdownCountsDown(t *testing.T) {
	fs := newFakeServer()
	var out bytes.Buffer
	c := newPipeClient(t, fs, &out)

	fs.handle.EventsCh <- server.ClientEvent{Type: server.EventServerShutdown}
	c.processServerEvents()
	require.Equal(t, GameStateShutdown, c.state.GameState)

	require.NoError(t, c.drawFrame())
	assert.Contains(t, out.String(), "SERVER SHUTTING DOWN")

	c.state.delta = time.Duration(config.ShutdownDisplaySeconds * float64(time.Second))
	c.updateShutdownState()
	assert.False(t, c.state.Running)
}
