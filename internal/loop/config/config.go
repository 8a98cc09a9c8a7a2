// Package config centralizes all tunable simulation and client parameters.
package config

import (
	"math"
	"time"
)

// Arena - the X/Z square projectiles fly over, centered on the origin.
const (
	ArenaHalfSize  = 60.0 // Arena spans [-ArenaHalfSize, ArenaHalfSize] on X and Z
	GroundHeight   = 0.0
	GridCellSize   = 4.0 // Broad-phase cell edge, >= largest target diameter
	MaxProjectiles = 2000
)

// Launchers sit on a ring around the center, one per client.
const (
	LauncherRingRadius = 45.0
	LauncherHeight     = 1.5
	LauncherSlots      = 12 // Evenly spaced positions; clients beyond wrap around
)

// Targets form an inner ring.
const (
	TargetCount      = 8
	TargetRingRadius = 15.0
	TargetRadius     = 1.5
	TargetHeight     = 1.5
	TargetLayer      = "targets"
)

// Scoring
const (
	ScoreTargetHit = 10
	TopScoreCount  = 5
)

// Aim and firing
const (
	DefaultStrength   = 25.0
	MinStrength       = 5.0
	MaxStrength       = 60.0
	StrengthStep      = 2.5
	DefaultPitch      = 0.35 // Radians above the horizon
	MinPitch          = -0.2
	MaxPitch          = math.Pi/2 - 0.05
	AimTurnRate       = 1.5 // Radians per second while a key is held
	FireCooldown      = 0.15
	VolleySize        = 8
	VolleyCooldown    = 1.0
	EventLogSize      = 6
	MaxUsernameLength = 16
)

// Shutdown
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)

// Client rendering
const (
	ClientTargetFPS       = 30
	ClientTargetFrameTime = time.Second / ClientTargetFPS
	PanelWidth            = 38 // Columns reserved for the text panel
	MaxPlotWidth          = 90 // Columns
	MaxPlotHeight         = 45 // Rows
	MinPlotWidth          = 10
	MinPlotHeight         = 5
)

// Server tick rate
const (
	ServerTickRate = 60
	ServerTickTime = time.Second / ServerTickRate
	CommandBuffer  = 256
)
