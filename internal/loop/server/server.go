package server

import (
	"context"
	mrand "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/volley/internal/arena"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/observability"
	"github.com/tomz197/volley/internal/projectile"
	"github.com/tomz197/volley/internal/scene"
	"github.com/tomz197/volley/internal/terrain"
)

// ownerKey is the user data key carrying the launching client's ID.
const ownerKey = "owner"

// GameServer is the interface clients use to communicate with the server.
// Decouples the Client from the concrete Server implementation.
type GameServer interface {
	RegisterClient(username string) *ClientHandle
	UnregisterClient(clientID int)
	Send(cmd Command)
	GetSnapshot() *WorldSnapshot
	Definitions() []string
}

// Options configures a Server. Every field is optional.
type Options struct {
	Catalog        []projectile.Definition // projectile.DefaultCatalog when empty
	Logger         *log.Logger
	Metrics        *observability.Metrics
	MaxProjectiles int    // config.MaxProjectiles when 0
	Seed           uint64 // Spread sampling seed, random when 0
	TickTime       time.Duration
}

// Server owns the projectile simulation and fans its results out to clients.
type Server struct {
	manager  *projectile.Manager
	graph    *scene.Set
	targets  *arena.Targets
	defs     []string
	snapshot atomic.Pointer[WorldSnapshot]

	clients      map[int]*ClientHandle
	nextClientID int
	commandCh    chan Command
	registerCh   chan *ClientHandle
	unregisterCh chan int
	mu           sync.RWMutex

	logger         *log.Logger
	metrics        *observability.Metrics
	maxProjectiles int
	tickTime       time.Duration
	tick           uint64
	ready          atomic.Bool

	// Targets each live projectile has already scored on.
	credited map[projectile.ID][]*arena.Target

	// Reused per tick.
	pending []Command
}

// Compile-time check that Server implements GameServer.
var _ GameServer = (*Server)(nil)

// ClientHandle represents a client's connection to the server.
type ClientHandle struct {
	ID       int
	Username string
	Launcher mgl64.Vec3       // Where this client's projectiles start
	AimYaw   float64          // Yaw facing the arena center
	EventsCh chan ClientEvent // Events sent to the client
	Score    int
	Hits     int
}

// NewServer creates a server with the given definitions registered.
// Invalid definitions are logged and skipped.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	catalog := opts.Catalog
	if len(catalog) == 0 {
		catalog = projectile.DefaultCatalog()
	}
	maxProjectiles := opts.MaxProjectiles
	if maxProjectiles <= 0 {
		maxProjectiles = config.MaxProjectiles
	}
	seed := opts.Seed
	if seed == 0 {
		seed = mrand.Uint64()
	}
	tickTime := opts.TickTime
	if tickTime <= 0 {
		tickTime = config.ServerTickTime
	}

	bounds := arena.Bounds{
		MinX: -config.ArenaHalfSize, MinZ: -config.ArenaHalfSize,
		MaxX: config.ArenaHalfSize, MaxZ: config.ArenaHalfSize,
	}
	targets := arena.NewTargets(bounds, config.GridCellSize, arena.Ring(
		mgl64.Vec3{0, config.TargetHeight, 0},
		config.TargetRingRadius,
		config.TargetCount,
		config.TargetRadius,
		config.TargetLayer,
	)...)

	graph := scene.NewSet()
	s := &Server{
		graph:          graph,
		targets:        targets,
		clients:        make(map[int]*ClientHandle),
		credited:       make(map[projectile.ID][]*arena.Target),
		nextClientID:   1,
		commandCh:      make(chan Command, config.CommandBuffer),
		registerCh:     make(chan *ClientHandle, 16),
		unregisterCh:   make(chan int, 16),
		logger:         logger.WithPrefix("server"),
		metrics:        opts.Metrics,
		maxProjectiles: maxProjectiles,
		tickTime:       tickTime,
	}
	s.manager = projectile.New(projectile.Options{
		MaxProjectiles: maxProjectiles,
		Graph:          graph,
		Terrain:        terrain.Flat{Height: config.GroundHeight},
		Collider:       targets,
		Logger:         logger.WithPrefix("projectile"),
		Rand:           mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	})

	for _, def := range catalog {
		if s.manager.RegisterDefinition(def) {
			s.defs = append(s.defs, def.ID)
		}
	}
	s.manager.OnHit(s.onHit)
	s.manager.OnDestroy(s.onDestroy)
	if s.metrics != nil {
		s.metrics.Instrument(s.manager)
	}

	s.snapshot.Store(&WorldSnapshot{
		Targets: targets.All(),
		Stats:   s.manager.Stats(),
	})
	return s
}

// Run ticks the simulation until ctx is cancelled, then disposes of it.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickTime)
	defer ticker.Stop()

	s.ready.Store(true)
	defer s.ready.Store(false)
	defer s.dispose()

	lastTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Step(now.Sub(lastTime))
			lastTime = now
		}
	}
}

// Ready reports whether Run is ticking.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Step advances the server by one tick of length delta. Run calls it on
// every tick; it must not be called concurrently with Run.
func (s *Server) Step(delta time.Duration) {
	start := time.Now()

	s.processRegistrations()
	s.collectCommands()

	s.mu.Lock()
	for _, cmd := range s.pending {
		s.apply(cmd)
	}
	s.manager.Update(delta.Seconds())
	s.mu.Unlock()

	s.tick++
	s.createSnapshot(delta)

	if s.metrics != nil {
		s.metrics.ObserveStats(s.manager.Stats())
		s.metrics.ObserveTick(time.Since(start))
	}
}

// Shutdown notifies all connected clients and waits for them to disconnect,
// up to timeout. The caller should cancel the Run context afterwards.
func (s *Server) Shutdown(timeout time.Duration) {
	s.mu.RLock()
	for _, handle := range s.clients {
		select {
		case handle.EventsCh <- ClientEvent{Type: EventServerShutdown}:
		default:
		}
	}
	s.mu.RUnlock()

	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			s.mu.RLock()
			remaining := len(s.clients)
			s.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// RegisterClient registers a new client and returns its handle. The client
// joins the simulation on the next tick.
func (s *Server) RegisterClient(username string) *ClientHandle {
	s.mu.Lock()
	id := s.nextClientID
	s.nextClientID++
	s.mu.Unlock()

	launcher, yaw := launcherSlot(id)
	handle := &ClientHandle{
		ID:       id,
		Username: truncateUsername(username),
		Launcher: launcher,
		AimYaw:   yaw,
		EventsCh: make(chan ClientEvent, 32),
	}

	s.registerCh <- handle
	return handle
}

// UnregisterClient removes a client and destroys its projectiles.
func (s *Server) UnregisterClient(clientID int) {
	s.unregisterCh <- clientID
}

// Send queues a command for the next tick. Commands are dropped when the
// queue is full.
func (s *Server) Send(cmd Command) {
	select {
	case s.commandCh <- cmd:
	default:
		s.logger.Debug("command queue full, dropping command", "client", cmd.ClientID, "type", cmd.Type)
	}
}

// GetSnapshot returns the current world snapshot.
func (s *Server) GetSnapshot() *WorldSnapshot {
	return s.snapshot.Load()
}

// Definitions returns the registered projectile definition IDs in catalog
// order.
func (s *Server) Definitions() []string {
	return s.defs
}

func (s *Server) processRegistrations() {
	for {
		select {
		case handle := <-s.registerCh:
			s.mu.Lock()
			s.clients[handle.ID] = handle
			s.mu.Unlock()
			s.logger.Info("client joined", "client", handle.ID, "user", handle.Username)
			if s.metrics != nil {
				s.metrics.Sessions.Inc()
			}
		case clientID := <-s.unregisterCh:
			s.mu.Lock()
			if handle, ok := s.clients[clientID]; ok {
				s.clearOwned(clientID)
				close(handle.EventsCh)
				delete(s.clients, clientID)
				if s.metrics != nil {
					s.metrics.Sessions.Dec()
				}
			}
			s.mu.Unlock()
		default:
			return
		}
	}
}

func (s *Server) collectCommands() {
	s.pending = s.pending[:0]
	for {
		select {
		case cmd := <-s.commandCh:
			s.pending = append(s.pending, cmd)
		default:
			return
		}
	}
}

// dispose tears the simulation down once Run exits.
func (s *Server) dispose() {
	s.mu.Lock()
	s.manager.Dispose()
	s.mu.Unlock()
	s.createSnapshot(0)
}

// notify delivers an event without blocking the tick. Must be called with
// the lock held.
func (s *Server) notify(clientID int, ev ClientEvent) {
	handle, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case handle.EventsCh <- ev:
	default:
	}
}
