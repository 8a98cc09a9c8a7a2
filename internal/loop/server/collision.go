package server

import (
	"github.com/samber/lo"

	"github.com/tomz197/volley/internal/arena"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/projectile"
)

// ClientEvent represents an event sent from server to client.
type ClientEvent struct {
	Type       ClientEventType
	Definition string
	Surface    projectile.Surface // For hit events
	Target     string             // Name of the target hit, if any
	ScoreAdd   int                // For hit events
	Reason     string             // For rejected launches
}

// ClientEventType identifies the type of client event.
type ClientEventType int

const (
	EventHit ClientEventType = iota
	EventRejected
	EventServerShutdown
)

// onHit credits the owner of a projectile. It runs inside Manager.Update,
// which Step calls with the lock held. A projectile scores on each target
// at most once, however many ticks it spends touching it.
func (s *Server) onHit(ev projectile.HitEvent) {
	ownerID := owner(ev.Projectile.UserData)
	handle, ok := s.clients[ownerID]

	out := ClientEvent{
		Type:       EventHit,
		Definition: ev.Projectile.DefinitionID,
		Surface:    ev.Surface,
	}
	if target, isTarget := ev.Target.(*arena.Target); isTarget {
		id := ev.Projectile.ID
		if lo.Contains(s.credited[id], target) {
			return
		}
		s.credited[id] = append(s.credited[id], target)
		target.Hits++
		out.Target = target.Name
		out.ScoreAdd = targetScore(target)
	}

	// Ground contacts repeat every tick while a projectile rolls, so only
	// target hits reach the client.
	if !ok || out.Target == "" {
		return
	}
	handle.Score += out.ScoreAdd
	handle.Hits++
	s.notify(ownerID, out)
}

func (s *Server) onDestroy(ev projectile.DestroyEvent) {
	delete(s.credited, ev.Projectile.ID)
}

// targetScore returns the score for hitting a target.
func targetScore(t *arena.Target) int {
	if t.Layer == config.TargetLayer {
		return config.ScoreTargetHit
	}
	return config.ScoreTargetHit / 2
}
