package sim

import (
	"math"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
)

const (
	colorHit      = "#ff4d4d"
	colorShield   = "#66ccff"
	colorNearMiss = "#ffffff"
	colorPowerUp  = "#7cfc00"
)

func collectColor(t CollectibleType) string {
	switch t {
	case config.CollectibleGem:
		return "#4dd2ff"
	case config.CollectibleSpecial:
		return "#c77dff"
	default:
		return "#ffd700"
	}
}

// ParticlePool tracks the pooled particle entities. Retired particles stay in
// storage, inactive, until an emitter reuses them.
type ParticlePool struct {
	Free    []ecs.EntityId
	Total   int
	Active  int
	Emitted int
	Dropped int
}

// particleEmitter starts particle bursts, reusing retired particles before
// creating new ones. Creation goes through the frame's commands.
type particleEmitter struct {
	cfg     *config.Config
	rng     *Random
	storage *ecs.Storage
	pool    *ecs.Singleton[ParticlePool]
}

func (e *particleEmitter) burst(frame *ecs.UpdateFrame, color string, at Position, count int) {
	pool := e.pool.Get()
	p := e.cfg.Particles
	rng := e.rng.Effects()

	for range count {
		angle := rng.Float64() * 2 * math.Pi
		speed := p.Speed * (0.5 + 0.5*rng.Float64())
		vel := Velocity{
			X: math.Cos(angle) * speed,
			Y: math.Sin(angle) * speed,
			Z: rng.Float64() * speed,
		}
		particle := Particle{
			Color:     color,
			Lifetime:  p.Lifetime,
			Remaining: p.Lifetime,
			Size:      0.05 + 0.1*rng.Float64(),
			Active:    true,
		}

		if e.reuse(pool, at, vel, particle) {
			pool.Active++
			pool.Emitted++
			continue
		}
		if pool.Total >= p.Max {
			pool.Dropped++
			continue
		}
		frame.Commands.Spawn(at, vel, particle)
		pool.Total++
		pool.Active++
		pool.Emitted++
	}
}

func (e *particleEmitter) reuse(pool *ParticlePool, at Position, vel Velocity, particle Particle) bool {
	for len(pool.Free) > 0 {
		id := pool.Free[len(pool.Free)-1]
		pool.Free = pool.Free[:len(pool.Free)-1]

		slot := ecs.ReadComponent[Particle](e.storage, id)
		pos := ecs.ReadComponent[Position](e.storage, id)
		v := ecs.ReadComponent[Velocity](e.storage, id)
		if slot == nil || pos == nil || v == nil {
			pool.Total--
			continue
		}
		*slot, *pos, *v = particle, at, vel
		return true
	}
	return false
}

// ParticleSystem ages active particles and retires expired ones to the pool.
// Particle motion is handled by MovementSystem.
type ParticleSystem struct {
	Pool      ecs.Singleton[ParticlePool]
	Particles ecs.Query[struct {
		*Particle
	}]
}

func (s *ParticleSystem) Execute(frame *ecs.UpdateFrame) {
	pool := s.Pool.Get()
	for id, p := range s.Particles.Iter() {
		if !p.Active {
			continue
		}
		p.Remaining -= frame.DeltaTime
		if p.Remaining <= 0 {
			p.Remaining = 0
			p.Active = false
			pool.Free = append(pool.Free, id)
			pool.Active--
		}
	}
}
