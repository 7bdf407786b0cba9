package sim

import (
	"math"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
	"go.uber.org/zap"
)

// River holds the dynamic river width, as a multiple of the configured lane
// layout.
type River struct {
	WidthScale float64
}

// LaneX maps a lane to its x coordinate for the current river width.
func LaneX(lane int, laneWidth, widthScale float64) float64 {
	return float64(lane) * laneWidth * widthScale
}

// MovementSystem eases the player between lanes, integrates jumps and moves
// every other body by its velocity.
type MovementSystem struct {
	cfg *config.Config
	log *zap.Logger

	Clock   ecs.Singleton[Clock]
	River   ecs.Singleton[River]
	Players ecs.Query[struct {
		*Player
		*Position
		*LaneMotion
		*Jump
		*PowerUps
	}]
	Bodies ecs.Query[struct {
		*Position
		*Velocity
		Lane       *Lane       `ecs:"optional"`
		Attraction *Attraction `ecs:"optional"`
		Particle   *Particle   `ecs:"optional"`
	}]
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	dt := frame.DeltaTime
	clock := s.Clock.Get()
	scale := s.River.Get().WidthScale

	slow := 1.0
	var target *Position
	for _, p := range s.Players.Iter() {
		s.moveLane(p.Position, p.LaneMotion, scale, dt)
		s.integrateJump(p.Position, p.Jump, dt)
		if p.PowerUps.Active(config.PowerUpSlowMotion, clock.Elapsed) {
			slow = s.cfg.Collision.SlowMotionFactor
		}
		target = p.Position
	}

	speed := SpeedMultiplier(s.cfg.Difficulty, clock.Distance) * slow
	for id, b := range s.Bodies.Iter() {
		next := *b.Position
		switch {
		case b.Particle != nil:
			if !b.Particle.Active {
				continue
			}
			next.X += b.Velocity.X * dt
			next.Y += b.Velocity.Y * dt
			next.Z += b.Velocity.Z * dt
		case b.Attraction != nil && b.Attraction.Active && target != nil:
			s.attract(&next, b.Attraction, target, dt)
		default:
			next.X += b.Velocity.X * speed * dt
			next.Y += b.Velocity.Y * speed * dt
			next.Z += b.Velocity.Z * speed * dt
			if b.Lane != nil && (b.Attraction == nil || !b.Attraction.Pulled) {
				next.X = LaneX(int(*b.Lane), s.cfg.World.LaneWidth, scale)
			}
		}

		if !finite(next.X) || !finite(next.Y) || !finite(next.Z) {
			s.log.Warn("non-finite position, entity left in place",
				zap.Uint64("entity", uint64(id)),
				zap.Uint64("tick", frame.Tick))
			continue
		}
		*b.Position = next
	}
}

func (s *MovementSystem) moveLane(pos *Position, motion *LaneMotion, scale, dt float64) {
	m := s.cfg.Movement
	motion.TargetX = LaneX(motion.TargetLane, s.cfg.World.LaneWidth, scale)

	diff := motion.TargetX - pos.X
	if math.Abs(diff) > m.LaneSnapEpsilon {
		pos.X += diff * (1 - math.Exp(-m.LaneChangeRate*dt))
	}
	if math.Abs(motion.TargetX-pos.X) <= m.LaneSnapEpsilon {
		pos.X = motion.TargetX
		motion.Moving = false
	} else {
		motion.Moving = true
	}
}

func (s *MovementSystem) integrateJump(pos *Position, j *Jump, dt float64) {
	j.Landing = false
	if !j.Airborne {
		return
	}

	j.VerticalVelocity -= s.cfg.Movement.Gravity * dt
	pos.Z += j.VerticalVelocity * dt
	if pos.Z <= j.GroundZ {
		pos.Z = j.GroundZ
		j.VerticalVelocity = 0
		j.Airborne = false
		j.Landing = true
	}
}

// attract moves pos toward target at the magnet speed without overshooting.
func (s *MovementSystem) attract(pos *Position, a *Attraction, target *Position, dt float64) {
	dx := target.X - pos.X
	dy := target.Y - pos.Y
	dist := math.Hypot(dx, dy)
	a.TargetX, a.TargetY = target.X, target.Y
	a.Pulled = true
	if dist == 0 {
		a.VX, a.VY = 0, 0
		return
	}

	speed := s.cfg.Collision.MagnetSpeed
	a.VX, a.VY = dx/dist*speed, dy/dist*speed
	step := math.Min(speed*dt, dist)
	pos.X += dx / dist * step
	pos.Y += dy / dist * step
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
