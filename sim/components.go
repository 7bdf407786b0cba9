package sim

import (
	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
)

type (
	CollectibleType = config.CollectibleType
	PowerUpType     = config.PowerUpType
	Box             = config.Box
)

// Position is a world position. Y is the forward axis: the player holds a
// fixed Y and everything else scrolls toward negative Y.
type Position struct {
	X, Y, Z float64
}

type Velocity struct {
	X, Y, Z float64
}

// Lane is a discrete lateral slot: -1, 0 or 1.
type Lane int

// Collider is an axis-aligned box on the X/Y plane, or a circle when Radius is
// positive. Depth only matters to renderers.
type Collider struct {
	Width, Height, Depth float64
	Radius               float64
}

type Collectible struct {
	Type  CollectibleType
	Value int
}

type PowerUp struct {
	Type     PowerUpType
	Duration float64
}

// LifeState flags an entity as inert. Flags are never cleared; Cleanup removes
// the entity once the grace period has passed.
type LifeState struct {
	Collected   bool
	Destroyed   bool
	FlaggedAt   float64
	FlaggedTick uint64
}

// Flagged reports whether the entity is awaiting removal.
func (l *LifeState) Flagged() bool {
	return l.Collected || l.Destroyed
}

func (l *LifeState) flag(collected bool, now float64, tick uint64) {
	if l.Flagged() {
		return
	}
	if collected {
		l.Collected = true
	} else {
		l.Destroyed = true
	}
	l.FlaggedAt = now
	l.FlaggedTick = tick
}

type Obstacle struct {
	Kind     string
	Damage   int
	Jumpable bool
	// Passed is set when the player touched the obstacle while ghosted or
	// invincible, so the contact is resolved once.
	Passed           bool
	NearMissArmed    bool
	NearMissCredited bool
}

// PlayerState is the collision-relevant state of the player.
type PlayerState uint8

const (
	StateNormal PlayerState = iota
	StateInvincible
	StateGhost
	StateShielded
)

func (s PlayerState) String() string {
	switch s {
	case StateInvincible:
		return "INVINCIBLE"
	case StateGhost:
		return "GHOST"
	case StateShielded:
		return "SHIELDED"
	default:
		return "NORMAL"
	}
}

type Player struct {
	Health          int
	MaxHealth       int
	CharacterID     string
	Invincible      bool
	Ghost           bool
	Shielded        bool
	InvincibleUntil float64
	GameOver        bool
}

// Status ranks the active states GHOST > SHIELDED > INVINCIBLE > NORMAL.
func (p *Player) Status() PlayerState {
	switch {
	case p.Ghost:
		return StateGhost
	case p.Shielded:
		return StateShielded
	case p.Invincible:
		return StateInvincible
	default:
		return StateNormal
	}
}

// LaneMotion eases the player toward TargetLane.
type LaneMotion struct {
	TargetLane int
	TargetX    float64
	Moving     bool
}

type Jump struct {
	Airborne         bool
	Started          bool
	Landing          bool
	VerticalVelocity float64
	GroundZ          float64
	LastJumpAt       float64
}

// Height is the player's height above ground.
func (j *Jump) Height(pos *Position) float64 {
	return pos.Z - j.GroundZ
}

// PowerUps holds the game-clock expiry of each power-up, indexed by
// PowerUpType.Index.
type PowerUps struct {
	Until [5]float64
}

// Active reports whether t is still running at now.
func (p *PowerUps) Active(t PowerUpType, now float64) bool {
	idx := t.Index()
	return idx >= 0 && now < p.Until[idx]
}

// Attraction pulls a collectible toward the player while a magnet is active.
type Attraction struct {
	Active           bool
	VX, VY           float64
	TargetX, TargetY float64

	// Pulled is set once the magnet has moved the collectible; from then on
	// it keeps its x instead of following its lane.
	Pulled bool
}

type AnimState uint8

const (
	AnimIdle AnimState = iota
	AnimSwim
	AnimHit
	AnimCollect
	AnimDodge
	AnimJump
	AnimDeath
)

func (a AnimState) String() string {
	return [...]string{"idle", "swim", "hit", "collect", "dodge", "jump", "death"}[a]
}

type Animation struct {
	Current   AnimState
	ReturnTo  AnimState
	StartedAt float64
	Duration  float64
	OneShot   bool
	LastLane  int
}

// play enters a one-shot state. A one-shot that interrupts another keeps the
// looping state recorded by the first.
func (a *Animation) play(state AnimState, now, duration float64) {
	if a.Current == AnimDeath {
		return
	}
	if !a.OneShot {
		a.ReturnTo = a.Current
	}
	a.Current = state
	a.StartedAt = now
	a.Duration = duration
	a.OneShot = true
}

type Particle struct {
	Color     string
	Lifetime  float64
	Remaining float64
	Size      float64
	Active    bool
}

type Decoration struct {
	Variant int
}

// Scroll tags entities that move with the river and are removed once behind
// the player.
type Scroll struct{}

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterNamedComponent[Position](registry, "position")
	ecs.RegisterNamedComponent[Velocity](registry, "velocity")
	ecs.RegisterNamedComponent[Lane](registry, "lane")
	ecs.RegisterNamedComponent[Collider](registry, "collider")
	ecs.RegisterNamedComponent[Collectible](registry, "collectible")
	ecs.RegisterNamedComponent[PowerUp](registry, "power_up")
	ecs.RegisterNamedComponent[LifeState](registry, "life_state")
	ecs.RegisterNamedComponent[Obstacle](registry, "obstacle")
	ecs.RegisterNamedComponent[Player](registry, "player")
	ecs.RegisterNamedComponent[LaneMotion](registry, "lane_motion")
	ecs.RegisterNamedComponent[Jump](registry, "jump")
	ecs.RegisterNamedComponent[PowerUps](registry, "power_ups")
	ecs.RegisterNamedComponent[Attraction](registry, "attraction")
	ecs.RegisterNamedComponent[Animation](registry, "animation")
	ecs.RegisterNamedComponent[Particle](registry, "particle")
	ecs.RegisterNamedComponent[Decoration](registry, "decoration")
	ecs.RegisterNamedComponent[Scroll](registry, "scroll")

	ecs.RegisterNamedComponent[Clock](registry, "clock")
	ecs.RegisterNamedComponent[River](registry, "river")
	ecs.RegisterNamedComponent[InputState](registry, "input")
	ecs.RegisterNamedComponent[SpawnerState](registry, "spawner")
	ecs.RegisterNamedComponent[CollisionState](registry, "collision_state")
	ecs.RegisterNamedComponent[ParticlePool](registry, "particle_pool")
}
