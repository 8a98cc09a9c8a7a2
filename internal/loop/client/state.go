package client

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/tomz197/volley/internal/input"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/loop/server"
)

// GameState represents the current phase for a client.
type GameState int

const (
	GameStateStart    GameState = iota // Title screen
	GameStatePlaying                   // Aiming and firing
	GameStateShutdown                  // Server is shutting down
)

// Aim is where the client's launcher points and how hard it fires.
type Aim struct {
	Yaw      float64 // Radians around world up, 0 faces -Z
	Pitch    float64 // Radians above the horizon
	Strength float64
}

// ClientState holds per-connection state (input, aim, score, etc.).
// Each client has its own instance, managed by the Client.
type ClientState struct {
	Input     input.Input
	GameState GameState
	Aim       Aim
	Selected  int // Index into the server's definition list
	Score     int
	Hits      int
	Events    []string // Most recent last, at most config.EventLogSize
	Running   bool

	delta          time.Duration
	fireCooldown   float64
	volleyCooldown float64
	shutdownTimer  float64
	isInactive     bool
	prevGameState  GameState
	wasInactive    bool
}

// NewClientState creates a client state aiming along yaw.
func NewClientState(yaw float64) *ClientState {
	return &ClientState{
		GameState:     GameStateStart,
		prevGameState: GameStateStart,
		Aim: Aim{
			Yaw:      yaw,
			Pitch:    config.DefaultPitch,
			Strength: config.DefaultStrength,
		},
		Running: true,
	}
}

// steer applies one frame of input to the aim and returns the commands it
// triggers. defs is the server's definition list.
func (s *ClientState) steer(in input.Input, dt float64, clientID int, defs []string) []server.Command {
	s.fireCooldown = max(s.fireCooldown-dt, 0)
	s.volleyCooldown = max(s.volleyCooldown-dt, 0)

	if in.Left {
		s.Aim.Yaw += config.AimTurnRate * dt
	}
	if in.Right {
		s.Aim.Yaw -= config.AimTurnRate * dt
	}
	if in.Up {
		s.Aim.Pitch += config.AimTurnRate * dt
	}
	if in.Down {
		s.Aim.Pitch -= config.AimTurnRate * dt
	}
	s.Aim.Pitch = lo.Clamp(s.Aim.Pitch, config.MinPitch, config.MaxPitch)

	if in.Stronger {
		s.Aim.Strength += config.StrengthStep
	}
	if in.Weaker {
		s.Aim.Strength -= config.StrengthStep
	}
	s.Aim.Strength = lo.Clamp(s.Aim.Strength, config.MinStrength, config.MaxStrength)

	if in.Number >= 1 && in.Number <= len(defs) {
		s.Selected = in.Number - 1
	}
	if len(defs) == 0 {
		return nil
	}
	s.Selected = lo.Clamp(s.Selected, 0, len(defs)-1)

	var cmds []server.Command
	fire := func(typ server.CommandType) {
		cmds = append(cmds, server.Command{
			ClientID:     clientID,
			Type:         typ,
			DefinitionID: defs[s.Selected],
			Yaw:          s.Aim.Yaw,
			Pitch:        s.Aim.Pitch,
			Strength:     s.Aim.Strength,
		})
	}

	if in.Space && s.fireCooldown == 0 {
		fire(server.CommandLaunch)
		s.fireCooldown = config.FireCooldown
	}
	if in.Volley && s.volleyCooldown == 0 {
		fire(server.CommandVolley)
		s.volleyCooldown = config.VolleyCooldown
	}
	if in.Clear {
		cmds = append(cmds, server.Command{ClientID: clientID, Type: server.CommandClear})
	}
	return cmds
}

// handleEvent folds a server event into the state.
func (s *ClientState) handleEvent(ev server.ClientEvent) {
	switch ev.Type {
	case server.EventHit:
		s.Score += ev.ScoreAdd
		s.Hits++
		s.logEvent(fmt.Sprintf("%s hit %s +%d", ev.Definition, ev.Target, ev.ScoreAdd))
	case server.EventRejected:
		s.logEvent(fmt.Sprintf("%s rejected: %s", ev.Definition, ev.Reason))
	case server.EventServerShutdown:
		s.GameState = GameStateShutdown
		s.shutdownTimer = config.ShutdownDisplaySeconds
	}
}

func (s *ClientState) logEvent(msg string) {
	s.Events = append(s.Events, msg)
	if len(s.Events) > config.EventLogSize {
		s.Events = s.Events[len(s.Events)-config.EventLogSize:]
	}
}
