package server

import (
	"cmp"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/volley/internal/arena"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/projectile"
)

// TopScoreEntry represents a single entry on the leaderboard.
type TopScoreEntry struct {
	Username string
	Score    int
	clientID int // Used for deterministic tie-break when scores are equal
}

// ProjectileView is what clients see of one projectile.
type ProjectileView struct {
	ID           projectile.ID
	DefinitionID string
	Owner        int
	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	Stuck        bool
}

// LauncherView is what clients see of another client's launcher.
type LauncherView struct {
	ClientID int
	Username string
	Position mgl64.Vec3
}

// WorldSnapshot is an immutable snapshot of the world for rendering.
type WorldSnapshot struct {
	Tick        uint64
	Delta       time.Duration
	Projectiles []ProjectileView
	Targets     []arena.Target
	Launchers   []LauncherView
	Players     int
	Stats       projectile.Stats
	TopScores   []TopScoreEntry // Top N scores for leaderboard display
}

// createSnapshot publishes an immutable copy of the current state.
func (s *Server) createSnapshot(delta time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.manager.ActiveProjectiles()
	projectiles := make([]ProjectileView, 0, len(active))
	for _, inst := range active {
		projectiles = append(projectiles, ProjectileView{
			ID:           inst.ID(),
			DefinitionID: inst.Definition().ID,
			Owner:        owner(inst.UserData),
			Position:     inst.Position,
			Velocity:     inst.Velocity,
			Stuck:        inst.Stuck(),
		})
	}

	launchers := make([]LauncherView, 0, len(s.clients))
	scores := make([]TopScoreEntry, 0, len(s.clients))
	for _, handle := range s.clients {
		launchers = append(launchers, LauncherView{
			ClientID: handle.ID,
			Username: handle.Username,
			Position: handle.Launcher,
		})
		scores = append(scores, TopScoreEntry{Username: handle.Username, Score: handle.Score, clientID: handle.ID})
	}
	slices.SortFunc(launchers, func(a, b LauncherView) int { return cmp.Compare(a.ClientID, b.ClientID) })

	s.snapshot.Store(&WorldSnapshot{
		Tick:        s.tick,
		Delta:       delta,
		Projectiles: projectiles,
		Targets:     s.targets.All(),
		Launchers:   launchers,
		Players:     len(s.clients),
		Stats:       s.manager.Stats(),
		TopScores:   topScores(scores, config.TopScoreCount),
	})
}

// topScores sorts by score descending, then by join order, and keeps n.
func topScores(entries []TopScoreEntry, n int) []TopScoreEntry {
	slices.SortFunc(entries, func(a, b TopScoreEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.clientID, b.clientID)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
