package sim

import (
	"math"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
	"go.uber.org/zap"
)

// NearMissEvent describes an obstacle that passed the player closely without
// touching it.
type NearMissEvent struct {
	Entity   ecs.EntityId
	Kind     string
	Position Position
	Bonus    int
}

// CollisionHandlers receive gameplay events synchronously during the
// collision pass. Nil handlers are skipped.
type CollisionHandlers struct {
	OnCollect  func(t CollectibleType, value int)
	OnHit      func(damage int)
	OnPowerUp  func(t PowerUpType, duration float64)
	OnNearMiss func(ev NearMissEvent)
	OnGameOver func()
}

// TickEvents records what the collision pass produced in the current tick.
type TickEvents struct {
	Hit      bool
	Collect  bool
	PowerUp  bool
	NearMiss bool
	Absorbed bool
}

// CollisionState holds collision bookkeeping between ticks.
type CollisionState struct {
	Events TickEvents

	NearMissed     bool
	LastNearMissAt float64

	Hits       int
	Absorbed   int
	NearMisses int
	Collected  int
	PowerUps   int
	Candidates int
}

type collidable struct {
	id   ecs.EntityId
	body collidableBody
}

type collidableBody = struct {
	*Position
	*LifeState
	Collider    *Collider    `ecs:"optional"`
	Obstacle    *Obstacle    `ecs:"optional"`
	Collectible *Collectible `ecs:"optional"`
	PowerUp     *PowerUp     `ecs:"optional"`
	Attraction  *Attraction  `ecs:"optional"`
}

type playerBody = struct {
	*Player
	*Position
	*Collider
	*Jump
	*PowerUps
}

// CollisionSystem resolves player contacts through a grid broad phase and a
// box/circle narrow phase, then credits near misses and steers the magnet.
type CollisionSystem struct {
	cfg       *config.Config
	log       *zap.Logger
	handlers  *CollisionHandlers
	particles *particleEmitter

	grid    *SpatialGrid
	entries []collidable

	State      ecs.Singleton[CollisionState]
	Clock      ecs.Singleton[Clock]
	Players    ecs.Query[playerBody]
	Collidable ecs.Query[collidableBody]
}

func (s *CollisionSystem) Execute(frame *ecs.UpdateFrame) {
	state := s.State.Get()
	state.Events = TickEvents{}
	now := s.Clock.Get().Elapsed

	s.collect(frame)

	for _, p := range s.Players.Iter() {
		s.refreshStatus(&p, now)

		magnet := !p.Player.GameOver && p.PowerUps.Active(config.PowerUpMagnet, now)
		s.steer(&p, magnet)
		if p.Player.GameOver {
			continue
		}

		s.resolve(frame, &p, state, now)
		s.creditNearMisses(frame, &p, state, now)
	}
}

// collect rebuilds the broad phase from every live collidable. Entities with
// no kind, no collider or a broken collider are skipped with a warning.
func (s *CollisionSystem) collect(frame *ecs.UpdateFrame) {
	s.grid.Reset()
	s.entries = s.entries[:0]
	for id, c := range s.Collidable.Iter() {
		if c.LifeState.Flagged() {
			continue
		}
		if c.Obstacle == nil && c.Collectible == nil && c.PowerUp == nil {
			s.log.Warn("collidable without obstacle, collectible or power-up, skipped",
				zap.Uint64("entity", uint64(id)),
				zap.Uint64("tick", frame.Tick))
			continue
		}
		if c.Collider == nil {
			s.log.Warn("collidable without collider, skipped",
				zap.Uint64("entity", uint64(id)),
				zap.Uint64("tick", frame.Tick))
			continue
		}
		if !colliderValid(c.Collider) || !finite(c.Position.X) || !finite(c.Position.Y) {
			s.log.Warn("invalid collider, skipped",
				zap.Uint64("entity", uint64(id)),
				zap.Uint64("tick", frame.Tick))
			continue
		}
		s.grid.Insert(int32(len(s.entries)), boxAt(c.Position, c.Collider))
		s.entries = append(s.entries, collidable{id: id, body: c})
	}
}

func (s *CollisionSystem) refreshStatus(p *playerBody, now float64) {
	pl := p.Player
	pl.Invincible = now < pl.InvincibleUntil
	pl.Ghost = p.PowerUps.Active(config.PowerUpGhost, now)
	pl.Shielded = pl.Shielded && p.PowerUps.Active(config.PowerUpShield, now)
}

func (s *CollisionSystem) resolve(frame *ecs.UpdateFrame, p *playerBody, state *CollisionState, now float64) {
	area := boxAt(p.Position, p.Collider).Expand(s.cfg.Collision.NearMissBand)
	candidates := s.grid.Query(area)
	state.Candidates = len(candidates)

	for _, idx := range candidates {
		e := &s.entries[idx]
		if e.body.LifeState.Flagged() {
			continue
		}
		hit := collide(p.Position, p.Collider, e.body.Position, e.body.Collider)

		switch {
		case e.body.Collectible != nil:
			if hit {
				s.pickCollectible(frame, e, state, now)
			}
		case e.body.PowerUp != nil:
			if hit {
				s.pickPowerUp(frame, p, e, state, now)
			}
		case e.body.Obstacle != nil:
			s.touchObstacle(frame, p, e, hit, area, state, now)
		}
		if p.Player.GameOver {
			return
		}
	}
}

func (s *CollisionSystem) pickCollectible(frame *ecs.UpdateFrame, e *collidable, state *CollisionState, now float64) {
	c := e.body.Collectible
	e.body.LifeState.flag(true, now, frame.Tick)
	if e.body.Attraction != nil {
		e.body.Attraction.Active = false
	}
	state.Collected++
	state.Events.Collect = true
	if h := s.handlers.OnCollect; h != nil {
		h(c.Type, c.Value)
	}
	s.particles.burst(frame, collectColor(c.Type), *e.body.Position, s.cfg.Particles.CollectBurst)
}

func (s *CollisionSystem) pickPowerUp(frame *ecs.UpdateFrame, p *playerBody, e *collidable, state *CollisionState, now float64) {
	pu := e.body.PowerUp
	e.body.LifeState.flag(true, now, frame.Tick)

	if idx := pu.Type.Index(); idx >= 0 {
		p.PowerUps.Until[idx] = math.Max(p.PowerUps.Until[idx], now+pu.Duration)
	} else {
		s.log.Warn("unknown power-up type", zap.String("type", string(pu.Type)), zap.Uint64("entity", uint64(e.id)))
	}
	switch pu.Type {
	case config.PowerUpShield:
		p.Player.Shielded = true
	case config.PowerUpGhost:
		p.Player.Ghost = true
	}

	state.PowerUps++
	state.Events.PowerUp = true
	if h := s.handlers.OnPowerUp; h != nil {
		h(pu.Type, pu.Duration)
	}
	s.particles.burst(frame, colorPowerUp, *e.body.Position, s.cfg.Particles.CollectBurst)
}

func (s *CollisionSystem) touchObstacle(frame *ecs.UpdateFrame, p *playerBody, e *collidable, hit bool, area AABB, state *CollisionState, now float64) {
	o := e.body.Obstacle
	if o.Passed || !s.cfg.Mode.ObstacleContact() {
		return
	}
	if hit && o.Jumpable && p.Jump.Height(p.Position) >= s.cfg.Collision.JumpClearance {
		return
	}

	if !hit {
		if boxAt(e.body.Position, e.body.Collider).Overlaps(area) {
			o.NearMissArmed = true
		}
		return
	}

	pl := p.Player
	switch {
	case pl.Ghost || pl.Invincible:
		o.Passed = true
		o.NearMissArmed = false
	case pl.Shielded:
		e.body.LifeState.flag(false, now, frame.Tick)
		pl.Shielded = false
		p.PowerUps.Until[config.PowerUpShield.Index()] = now
		state.Absorbed++
		state.Events.Absorbed = true
		s.particles.burst(frame, colorShield, *e.body.Position, s.cfg.Particles.HitBurst)
	default:
		s.damage(frame, p, e, state, now)
	}
}

func (s *CollisionSystem) damage(frame *ecs.UpdateFrame, p *playerBody, e *collidable, state *CollisionState, now float64) {
	pl := p.Player
	dmg := max(e.body.Obstacle.Damage, 1)

	e.body.LifeState.flag(false, now, frame.Tick)
	pl.Health = max(pl.Health-dmg, 0)
	pl.InvincibleUntil = now + s.cfg.Collision.InvulnerableFor
	pl.Invincible = true

	state.Hits++
	state.Events.Hit = true
	if h := s.handlers.OnHit; h != nil {
		h(dmg)
	}
	s.particles.burst(frame, colorHit, *p.Position, s.cfg.Particles.HitBurst)

	if pl.Health == 0 && !pl.GameOver {
		pl.GameOver = true
		s.log.Info("game over", zap.Uint64("tick", frame.Tick), zap.Float64("elapsed", now))
		if h := s.handlers.OnGameOver; h != nil {
			h()
		}
	}
}

// creditNearMisses pays out armed obstacles once they are fully behind the
// player without having touched it.
func (s *CollisionSystem) creditNearMisses(frame *ecs.UpdateFrame, p *playerBody, state *CollisionState, now float64) {
	behind := boxAt(p.Position, p.Collider).MinY
	cooldown := s.cfg.Collision.NearMissCooldown

	for i := range s.entries {
		e := &s.entries[i]
		o := e.body.Obstacle
		if o == nil || !o.NearMissArmed || o.NearMissCredited || o.Passed || e.body.LifeState.Flagged() {
			continue
		}
		if boxAt(e.body.Position, e.body.Collider).MaxY >= behind {
			continue
		}

		o.NearMissArmed = false
		if state.NearMissed && now-state.LastNearMissAt < cooldown {
			continue
		}
		o.NearMissCredited = true
		state.NearMissed = true
		state.LastNearMissAt = now
		state.NearMisses++
		state.Events.NearMiss = true
		if h := s.handlers.OnNearMiss; h != nil {
			h(NearMissEvent{
				Entity:   e.id,
				Kind:     o.Kind,
				Position: *e.body.Position,
				Bonus:    s.cfg.Collision.NearMissBonus,
			})
		}
		s.particles.burst(frame, colorNearMiss, *e.body.Position, s.cfg.Particles.NearMissBurst)
	}
}

// steer points the attraction of every live collectible inside the magnet
// radius at the player, and releases the rest.
func (s *CollisionSystem) steer(p *playerBody, magnet bool) {
	radius := s.cfg.Collision.MagnetRadius
	for i := range s.entries {
		b := &s.entries[i].body
		if b.Collectible == nil || b.Attraction == nil {
			continue
		}
		a := b.Attraction
		if !magnet {
			a.Active = false
			continue
		}
		dist := math.Hypot(p.Position.X-b.Position.X, p.Position.Y-b.Position.Y)
		a.Active = dist <= radius
		a.TargetX, a.TargetY = p.Position.X, p.Position.Y
	}
}
