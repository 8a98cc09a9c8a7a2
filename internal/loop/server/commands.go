package server

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/physics"
	"github.com/tomz197/volley/internal/projectile"
)

// CommandType identifies what a client asks the server to do.
type CommandType int

const (
	CommandLaunch CommandType = iota // Fire one projectile
	CommandVolley                    // Fire config.VolleySize projectiles
	CommandClear                     // Destroy the client's projectiles
)

func (t CommandType) String() string {
	switch t {
	case CommandLaunch:
		return "launch"
	case CommandVolley:
		return "volley"
	case CommandClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Command is a request from a client, applied on the next tick.
type Command struct {
	ClientID     int
	Type         CommandType
	DefinitionID string
	Yaw          float64 // Radians around world up, 0 faces -Z
	Pitch        float64 // Radians above the horizon
	Strength     float64
}

// AimDirection turns yaw and pitch into a unit direction.
func AimDirection(yaw, pitch float64) mgl64.Vec3 {
	dir := physics.RotateAround(physics.Forward, physics.Up, yaw)
	return physics.RotateAround(dir, dir.Cross(physics.Up), pitch)
}

// YawToward returns the yaw that faces from one point toward another on the
// X/Z plane.
func YawToward(from, to mgl64.Vec3) float64 {
	d := to.Sub(from)
	return math.Atan2(-d.X(), -d.Z())
}

// launcherSlot places a client on the launcher ring, facing the center.
func launcherSlot(clientID int) (mgl64.Vec3, float64) {
	slot := (clientID - 1) % config.LauncherSlots
	angle := 2 * math.Pi * float64(slot) / config.LauncherSlots
	pos := mgl64.Vec3{
		math.Cos(angle) * config.LauncherRingRadius,
		config.LauncherHeight,
		math.Sin(angle) * config.LauncherRingRadius,
	}
	return pos, YawToward(pos, mgl64.Vec3{0, config.LauncherHeight, 0})
}

func truncateUsername(name string) string {
	runes := []rune(name)
	if len(runes) > config.MaxUsernameLength {
		return string(runes[:config.MaxUsernameLength])
	}
	return name
}

// apply executes one command. Must be called with the lock held.
func (s *Server) apply(cmd Command) {
	handle, ok := s.clients[cmd.ClientID]
	if !ok {
		return
	}

	switch cmd.Type {
	case CommandLaunch:
		s.launch(handle, cmd)
	case CommandVolley:
		for i := 0; i < config.VolleySize; i++ {
			if !s.launch(handle, cmd) {
				break
			}
		}
	case CommandClear:
		s.clearOwned(handle.ID)
	}
}

// launch fires one projectile for handle and reports whether it flew.
// Rejections are reported to the client.
func (s *Server) launch(handle *ClientHandle, cmd Command) bool {
	inst := s.manager.Launch(projectile.LaunchParams{
		DefinitionID: cmd.DefinitionID,
		Origin:       handle.Launcher,
		Direction:    AimDirection(cmd.Yaw, cmd.Pitch),
		Strength:     mgl64.Clamp(cmd.Strength, config.MinStrength, config.MaxStrength),
		UserData:     map[string]any{ownerKey: handle.ID},
	})
	if s.metrics != nil {
		s.metrics.RecordLaunch(cmd.DefinitionID, inst != nil)
	}
	if inst != nil {
		return true
	}

	s.notify(handle.ID, ClientEvent{
		Type:       EventRejected,
		Definition: cmd.DefinitionID,
		Reason:     s.rejectReason(cmd.DefinitionID),
	})
	return false
}

func (s *Server) rejectReason(definitionID string) string {
	if _, ok := s.manager.Definition(definitionID); !ok {
		return "unknown projectile"
	}
	if s.manager.ActiveCount() >= s.maxProjectiles {
		return "projectile limit reached"
	}
	return "pool exhausted"
}

// clearOwned destroys every projectile launched by clientID. Must be called
// with the lock held.
func (s *Server) clearOwned(clientID int) {
	for _, inst := range s.manager.ActiveProjectiles() {
		if owner(inst.UserData) == clientID {
			s.manager.DestroyProjectile(inst.ID(), projectile.ReasonManual)
		}
	}
}

func owner(data map[string]any) int {
	id, _ := data[ownerKey].(int)
	return id
}
