package sim

import (
	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
)

// AnimationSystem drives the player's animation state machine from the
// events of the tick. Timing uses the game clock.
type AnimationSystem struct {
	cfg *config.Config

	Clock      ecs.Singleton[Clock]
	Collisions ecs.Singleton[CollisionState]
	Players    ecs.Query[struct {
		*Player
		*Animation
		*Lane
		*Jump
	}]
}

func (s *AnimationSystem) Execute(frame *ecs.UpdateFrame) {
	now := s.Clock.Get().Elapsed
	events := s.Collisions.Get().Events
	durations := s.cfg.Animation

	for _, p := range s.Players.Iter() {
		a := p.Animation
		lane := int(*p.Lane)

		if p.Player.GameOver {
			if a.Current != AnimDeath {
				a.Current = AnimDeath
				a.OneShot = false
				a.StartedAt = now
				a.Duration = 0
			}
			a.LastLane = lane
			continue
		}

		if a.OneShot && now-a.StartedAt >= a.Duration {
			a.Current = a.ReturnTo
			a.OneShot = false
		}
		if !a.OneShot && a.Current == AnimIdle && now > 0 {
			a.Current = AnimSwim
		}

		switch {
		case events.Hit:
			a.play(AnimHit, now, durations.Hit)
		case p.Jump.Started:
			a.play(AnimJump, now, durations.Jump)
		case lane != a.LastLane:
			a.play(AnimDodge, now, durations.Dodge)
		case events.Collect:
			a.play(AnimCollect, now, durations.Collect)
		}
		a.LastLane = lane
	}
}
