// Package sim is the river runner simulation: a fixed pipeline of ECS
// systems (clock, input, movement, spawner, collision, animation, particles,
// cleanup) driven one tick at a time by Update.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ErrSnapshotMismatch is returned by Restore for snapshots taken with a
// different configuration.
var ErrSnapshotMismatch = errors.New("sim: snapshot was taken with a different configuration")

// ErrUnknownKind is returned by the Spawn helpers for kinds missing from the
// catalogs.
var ErrUnknownKind = errors.New("sim: unknown kind")

// Simulation owns one world. It is not safe for concurrent use, but separate
// simulations share nothing and may run on different goroutines.
type Simulation struct {
	cfg         *config.Config
	fingerprint uint64
	log         *zap.Logger
	seed        uint64
	handlers    *CollisionHandlers

	storage   *ecs.Storage
	scheduler *ecs.Scheduler
	rng       *Random
	queries   *Queries
	player    ecs.EntityId

	clock     *ecs.Singleton[Clock]
	river     *ecs.Singleton[River]
	input     *ecs.Singleton[InputState]
	spawner   *ecs.Singleton[SpawnerState]
	collision *ecs.Singleton[CollisionState]
	pool      *ecs.Singleton[ParticlePool]
}

type Option func(*Simulation)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulation) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithHandlers installs the gameplay callbacks.
func WithHandlers(h CollisionHandlers) Option {
	return func(s *Simulation) {
		*s.handlers = h
	}
}

// WithSeed overrides the configured seed.
func WithSeed(seed uint64) Option {
	return func(s *Simulation) {
		s.seed = seed
	}
}

// New validates cfg and builds a world with the player spawned. A nil cfg
// selects config.Default. Validation errors are returned as is.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:         cfg,
		fingerprint: cfg.Fingerprint(),
		log:         zap.NewNop(),
		seed:        cfg.Seed,
		handlers:    &CollisionHandlers{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.Uint64("seed", s.seed))

	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	s.storage = ecs.NewStorage(registry)
	s.scheduler = ecs.NewScheduler(s.storage)
	s.rng = NewRandom(s.seed)

	s.clock = ecs.NewSingleton[Clock](s.storage)
	s.river = ecs.NewSingleton(s.storage, River{WidthScale: 1})
	s.input = ecs.NewSingleton[InputState](s.storage)
	s.spawner = ecs.NewSingleton[SpawnerState](s.storage)
	s.collision = ecs.NewSingleton[CollisionState](s.storage)
	s.pool = ecs.NewSingleton[ParticlePool](s.storage)

	emitter := &particleEmitter{cfg: cfg, rng: s.rng, storage: s.storage, pool: s.pool}
	system := func(name string) *zap.Logger {
		return s.log.With(zap.String("system", name))
	}

	s.scheduler.Register(&ClockSystem{})
	s.scheduler.Register(&InputSystem{cfg: cfg})
	s.scheduler.Register(&MovementSystem{cfg: cfg, log: system("movement")})
	s.scheduler.Register(&SpawnerSystem{cfg: cfg, log: system("spawner"), rng: s.rng})
	s.scheduler.Register(&CollisionSystem{
		cfg:       cfg,
		log:       system("collision"),
		handlers:  s.handlers,
		particles: emitter,
		grid:      NewSpatialGrid(cfg.Collision.GridCellSize),
	})
	s.scheduler.Register(&AnimationSystem{cfg: cfg})
	s.scheduler.Register(&ParticleSystem{})
	s.scheduler.Register(&CleanupSystem{cfg: cfg})

	s.queries = newQueries(s.storage)
	s.spawnPlayer()
	return s, nil
}

func (s *Simulation) spawnPlayer() {
	w := s.cfg.World
	s.player = s.storage.Spawn(
		Position{X: 0, Y: w.PlayerY},
		Lane(0),
		LaneMotion{},
		Jump{LastJumpAt: -s.cfg.Movement.JumpCooldown},
		colliderFromBox(w.PlayerCollider),
		Player{Health: w.PlayerHealth, MaxHealth: w.PlayerHealth, CharacterID: w.CharacterID},
		PowerUps{},
		Animation{Current: AnimIdle},
	)
}

// Update advances the world by one tick. deltaTime is in seconds and
// distanceDelta is the distance travelled since the last call; invalid or
// negative values are treated as zero. Paused simulations ignore the call.
func (s *Simulation) Update(deltaTime, distanceDelta float64) {
	if s.scheduler.Paused() {
		return
	}
	if !finite(deltaTime) || deltaTime < 0 {
		s.log.Warn("invalid delta time, using 0", zap.Float64("delta_time", deltaTime))
		deltaTime = 0
	}
	if !finite(distanceDelta) || distanceDelta < 0 {
		s.log.Warn("invalid distance delta, using 0", zap.Float64("distance_delta", distanceDelta))
		distanceDelta = 0
	}

	s.clock.Get().PendingDistance += distanceDelta
	s.scheduler.Once(deltaTime)
}

// Pause freezes the world: no clock, accumulator or physics advance until
// Resume.
func (s *Simulation) Pause() {
	s.scheduler.SetPaused(true)
}

func (s *Simulation) Resume() {
	s.scheduler.SetPaused(false)
}

func (s *Simulation) Paused() bool {
	return s.scheduler.Paused()
}

// PushIntent queues a player intent for the next tick. Intents pushed while
// paused are dropped.
func (s *Simulation) PushIntent(intent Intent) {
	if s.scheduler.Paused() {
		return
	}
	input := s.input.Get()
	input.Queue = append(input.Queue, intent)
}

// Reset starts a new run with the same configuration and seed.
func (s *Simulation) Reset() {
	s.storage.Reset()
	*s.clock.Get() = Clock{}
	*s.input.Get() = InputState{}
	*s.spawner.Get() = SpawnerState{}
	*s.collision.Get() = CollisionState{}
	*s.pool.Get() = ParticlePool{}
	s.rng.Seed(s.seed)
	s.scheduler.SetTick(0)
	s.scheduler.SetPaused(false)
	s.spawnPlayer()
	s.log.Debug("simulation reset")
}

// SetRiverWidth scales the lane layout, clamped to the configured range.
func (s *Simulation) SetRiverWidth(scale float64) {
	w := s.cfg.World
	if !finite(scale) {
		s.log.Warn("invalid river width ignored", zap.Float64("scale", scale))
		return
	}
	s.river.Get().WidthScale = math.Max(w.MinWidthScale, math.Min(w.MaxWidthScale, scale))
}

func (s *Simulation) RiverWidth() float64 {
	return s.river.Get().WidthScale
}

func (s *Simulation) Queries() *Queries {
	return s.queries
}

func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// Storage exposes the underlying entity store. Mutating it while a tick runs
// is not supported.
func (s *Simulation) Storage() *ecs.Storage {
	return s.storage
}

// PlayerID returns the entity of the current run's player.
func (s *Simulation) PlayerID() ecs.EntityId {
	return s.player
}

func (s *Simulation) Seed() uint64 {
	return s.seed
}

func (s *Simulation) Tick() uint64 {
	return s.scheduler.Tick()
}

// SchedulerStats returns per-system timing.
func (s *Simulation) SchedulerStats() *ecs.SchedulerStats {
	return s.scheduler.GetStats()
}

func (s *Simulation) StorageStats() ecs.StorageStats {
	return s.storage.CollectStats()
}

func (s *Simulation) powerUps() *PowerUps {
	return ecs.ReadComponent[PowerUps](s.storage, s.player)
}

// ScrollSpeed is the speed the river currently moves past the player,
// including the difficulty multiplier and slow motion.
func (s *Simulation) ScrollSpeed() float64 {
	clock := s.clock.Get()
	speed := s.cfg.World.ScrollSpeed * SpeedMultiplier(s.cfg.Difficulty, clock.Distance)
	if pu := s.powerUps(); pu != nil && pu.Active(config.PowerUpSlowMotion, clock.Elapsed) {
		speed *= s.cfg.Collision.SlowMotionFactor
	}
	return speed
}

// ScoreMultiplier is the factor the game shell applies to collected value.
func (s *Simulation) ScoreMultiplier() float64 {
	if pu := s.powerUps(); pu != nil && pu.Active(config.PowerUpMultiplier, s.clock.Get().Elapsed) {
		return s.cfg.Collision.ScoreMultiplier
	}
	return 1
}

// Status summarises the run for a game shell.
type Status struct {
	Mode            config.Mode
	Tick            uint64
	Elapsed         float64
	Distance        float64
	Tier            int
	SpeedMultiplier float64
	Health          int
	MaxHealth       int
	State           PlayerState
	GameOver        bool
	Paused          bool
	Entities        int
	ActivePowerUps  []PowerUpType
	Collision       CollisionState
	Spawner         SpawnerState
	Particles       ParticlePool
}

func (s *Simulation) Status() Status {
	clock := s.clock.Get()
	st := Status{
		Mode:            s.cfg.Mode,
		Tick:            s.scheduler.Tick(),
		Elapsed:         clock.Elapsed,
		Distance:        clock.Distance,
		Tier:            Tier(s.cfg.Difficulty, clock.Distance),
		SpeedMultiplier: SpeedMultiplier(s.cfg.Difficulty, clock.Distance),
		Paused:          s.scheduler.Paused(),
		Entities:        s.storage.Len(),
		Collision:       *s.collision.Get(),
		Spawner:         *s.spawner.Get(),
		Particles:       *s.pool.Get(),
	}
	st.Particles.Free = nil

	if p := ecs.ReadComponent[Player](s.storage, s.player); p != nil {
		st.Health = p.Health
		st.MaxHealth = p.MaxHealth
		st.State = p.Status()
		st.GameOver = p.GameOver
	}
	if pu := s.powerUps(); pu != nil {
		for _, t := range config.PowerUpTypes {
			if pu.Active(t, clock.Elapsed) {
				st.ActivePowerUps = append(st.ActivePowerUps, t)
			}
		}
	}
	return st
}

type snapshot struct {
	Fingerprint uint64               `msgpack:"cfg"`
	Seed        uint64               `msgpack:"seed"`
	Tick        uint64               `msgpack:"tick"`
	Player      ecs.EntityId         `msgpack:"player"`
	Random      []byte               `msgpack:"rng"`
	Storage     *ecs.StorageSnapshot `msgpack:"storage"`
}

// Snapshot serialises the complete world state, including the random streams,
// so a restored simulation continues exactly where this one stands.
func (s *Simulation) Snapshot() ([]byte, error) {
	storage, err := s.storage.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot storage: %w", err)
	}
	rng, err := s.rng.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("snapshot random: %w", err)
	}
	return msgpack.Marshal(&snapshot{
		Fingerprint: s.fingerprint,
		Seed:        s.seed,
		Tick:        s.scheduler.Tick(),
		Player:      s.player,
		Random:      rng,
		Storage:     storage,
	})
}

// Restore replaces the world with one produced by Snapshot. A snapshot that
// fails to decode leaves the simulation as it was.
func (s *Simulation) Restore(data []byte) error {
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Fingerprint != s.fingerprint {
		return fmt.Errorf("%w: fingerprint %x, want %x", ErrSnapshotMismatch, snap.Fingerprint, s.fingerprint)
	}
	if snap.Storage == nil {
		return errors.New("decode snapshot: missing storage")
	}

	rng := NewRandom(snap.Seed)
	if err := rng.UnmarshalBinary(snap.Random); err != nil {
		return err
	}

	if err := s.storage.Restore(snap.Storage); err != nil {
		return fmt.Errorf("restore storage: %w", err)
	}
	*s.rng = *rng
	s.seed = snap.Seed
	s.player = snap.Player
	s.scheduler.SetTick(snap.Tick)
	return nil
}

// SpawnObstacle places a catalog obstacle in lane at world y, between ticks.
func (s *Simulation) SpawnObstacle(kind string, lane int, y float64) (ecs.EntityId, error) {
	def, ok := s.cfg.Obstacle(kind)
	if !ok {
		return 0, fmt.Errorf("%w: obstacle %q", ErrUnknownKind, kind)
	}
	if err := checkLane(lane); err != nil {
		return 0, err
	}
	return s.storage.Spawn(
		Position{X: s.laneX(lane), Y: y},
		Velocity{Y: -s.cfg.World.ScrollSpeed},
		Lane(lane),
		colliderFromBox(def.Collider),
		Obstacle{Kind: def.Name, Damage: def.Damage, Jumpable: def.Jumpable},
		LifeState{},
		Scroll{},
	), nil
}

// SpawnCollectible places a collectible in lane at world y, between ticks.
func (s *Simulation) SpawnCollectible(t CollectibleType, lane int, y float64) (ecs.EntityId, error) {
	def, ok := s.cfg.Collectible(t)
	if !ok {
		return 0, fmt.Errorf("%w: collectible %q", ErrUnknownKind, t)
	}
	if err := checkLane(lane); err != nil {
		return 0, err
	}
	return s.storage.Spawn(
		Position{X: s.laneX(lane), Y: y},
		Velocity{Y: -s.cfg.World.ScrollSpeed},
		Lane(lane),
		colliderFromBox(s.cfg.Collision.CollectibleCollider),
		Collectible{Type: def.Type, Value: def.Value},
		Attraction{},
		LifeState{},
		Scroll{},
	), nil
}

// SpawnPowerUp places a power-up in lane at world y, between ticks.
func (s *Simulation) SpawnPowerUp(t PowerUpType, lane int, y float64) (ecs.EntityId, error) {
	def, ok := s.cfg.PowerUp(t)
	if !ok {
		return 0, fmt.Errorf("%w: power-up %q", ErrUnknownKind, t)
	}
	if err := checkLane(lane); err != nil {
		return 0, err
	}
	return s.storage.Spawn(
		Position{X: s.laneX(lane), Y: y},
		Velocity{Y: -s.cfg.World.ScrollSpeed},
		Lane(lane),
		colliderFromBox(s.cfg.Collision.PowerUpCollider),
		PowerUp{Type: def.Type, Duration: def.Duration},
		LifeState{},
		Scroll{},
	), nil
}

func (s *Simulation) laneX(lane int) float64 {
	return LaneX(lane, s.cfg.World.LaneWidth, s.river.Get().WidthScale)
}

func checkLane(lane int) error {
	if lane < config.Lanes[0] || lane > config.Lanes[len(config.Lanes)-1] {
		return fmt.Errorf("sim: lane %d out of range", lane)
	}
	return nil
}
