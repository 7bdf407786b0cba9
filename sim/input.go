package sim

import (
	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
)

// Intent is a discrete player action, independent of the device producing it.
type Intent uint8

const (
	IntentLeft Intent = iota + 1
	IntentRight
	IntentJump
)

func (i Intent) String() string {
	switch i {
	case IntentLeft:
		return "left"
	case IntentRight:
		return "right"
	case IntentJump:
		return "jump"
	default:
		return "unknown"
	}
}

// InputState queues intents between ticks. The queue is drained every tick.
type InputState struct {
	Queue []Intent
}

type InputSystem struct {
	cfg *config.Config

	Input   ecs.Singleton[InputState]
	Clock   ecs.Singleton[Clock]
	Players ecs.Query[struct {
		*Player
		*Lane
		*LaneMotion
		*Jump
	}]
}

func (s *InputSystem) Execute(frame *ecs.UpdateFrame) {
	input := s.Input.Get()
	defer func() { input.Queue = input.Queue[:0] }()

	now := s.Clock.Get().Elapsed
	for _, p := range s.Players.Iter() {
		p.Jump.Started = false
		if p.Player.GameOver {
			continue
		}

		for _, intent := range input.Queue {
			switch intent {
			case IntentLeft:
				s.shiftLane(p.Lane, p.LaneMotion, -1)
			case IntentRight:
				s.shiftLane(p.Lane, p.LaneMotion, 1)
			case IntentJump:
				s.jump(p.Jump, now)
			}
		}
	}
}

func (s *InputSystem) shiftLane(lane *Lane, motion *LaneMotion, step int) {
	target := min(max(motion.TargetLane+step, config.Lanes[0]), config.Lanes[len(config.Lanes)-1])
	if target == motion.TargetLane {
		return
	}
	motion.TargetLane = target
	motion.Moving = true
	*lane = Lane(target)
}

func (s *InputSystem) jump(j *Jump, now float64) {
	if j.Airborne || now-j.LastJumpAt < s.cfg.Movement.JumpCooldown {
		return
	}
	j.Airborne = true
	j.Started = true
	j.VerticalVelocity = s.cfg.Movement.JumpVelocity
	j.LastJumpAt = now
}
