package main

import (
	"math"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/sim"
)

// Autopilot steers the player away from obstacles it sees within Lookahead
// and jumps over jumpable ones.
type Autopilot struct {
	Lookahead float64
	// Greed makes the autopilot drift toward collectibles when its lane is
	// clear.
	Greed bool
}

type laneView struct {
	blocked  float64
	jumpable float64
	loot     int
}

// Decide returns the intents for the coming tick.
func (a *Autopilot) Decide(s *sim.Simulation) []sim.Intent {
	p := s.Queries().Player.Get(s.PlayerID())
	if p == nil || p.Player.GameOver {
		return nil
	}
	cfg := s.Config()
	playerY := cfg.World.PlayerY

	lanes := map[int]*laneView{}
	for _, l := range config.Lanes {
		lanes[l] = &laneView{blocked: math.Inf(1), jumpable: math.Inf(1)}
	}
	for o := range s.Queries().Obstacles.Values() {
		dy := o.Position.Y - playerY
		if o.LifeState.Flagged() || dy < -0.5 || dy > a.Lookahead {
			continue
		}
		v := lanes[int(*o.Lane)]
		if v == nil {
			continue
		}
		if o.Obstacle.Jumpable {
			v.jumpable = math.Min(v.jumpable, dy)
		} else {
			v.blocked = math.Min(v.blocked, dy)
		}
	}
	if a.Greed {
		for c := range s.Queries().Collectibles.Values() {
			dy := c.Position.Y - playerY
			if c.LifeState.Flagged() || dy < 0 || dy > a.Lookahead {
				continue
			}
			lane := int(math.Round(c.Position.X / (cfg.World.LaneWidth * s.RiverWidth())))
			if v := lanes[lane]; v != nil {
				v.loot++
			}
		}
	}

	current := int(*p.Lane)
	here := lanes[current]
	var intents []sim.Intent

	if !math.IsInf(here.blocked, 1) || (a.Greed && here.loot == 0) {
		best, bestScore := current, score(here)
		for _, l := range config.Lanes {
			if abs(l-current) != 1 {
				continue
			}
			if sc := score(lanes[l]); sc > bestScore {
				best, bestScore = l, sc
			}
		}
		switch {
		case best < current:
			intents = append(intents, sim.IntentLeft)
		case best > current:
			intents = append(intents, sim.IntentRight)
		}
	}

	if here.jumpable < 1.5 && !p.Jump.Airborne {
		intents = append(intents, sim.IntentJump)
	}
	return intents
}

// score prefers lanes whose nearest blocking obstacle is farthest away, then
// lanes with more loot.
func score(v *laneView) float64 {
	s := math.Min(v.blocked, 100)
	return s + float64(v.loot)*0.1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
