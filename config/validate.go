package config

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/multierr"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Problems returns the individual validation errors inside err, which may have
// been wrapped further by the caller.
func Problems(err error) []error {
	for err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				if inner != ErrInvalidConfig {
					return multierr.Errors(inner)
				}
			}
			return nil
		}
		err = errors.Unwrap(err)
	}
	return nil
}

// LaneSettleTime is how long the exponential lane ease needs to bring the
// widest possible lane change within the snap epsilon.
func (m Movement) LaneSettleTime(laneWidth, maxWidthScale float64) float64 {
	if m.LaneChangeRate <= 0 || m.LaneSnapEpsilon <= 0 {
		return math.Inf(1)
	}
	span := 2 * laneWidth * maxWidthScale
	if span <= m.LaneSnapEpsilon {
		return 0
	}
	return math.Log(span/m.LaneSnapEpsilon) / m.LaneChangeRate
}

// Validate checks every section and catalog and reports all problems at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(slices.Contains(Modes, c.Mode), "unknown mode %q", c.Mode)

	w := c.World
	check(w.LaneWidth > 0, "world.lane_width must be positive")
	check(w.SpawnAhead > 0, "world.spawn_ahead must be positive")
	check(w.ScrollSpeed > 0, "world.scroll_speed must be positive")
	check(w.MinWidthScale > 0, "world.min_width_scale must be positive")
	check(w.MaxWidthScale >= w.MinWidthScale, "world.max_width_scale must be at least min_width_scale")
	check(w.PlayerHealth >= 1, "world.player_health must be at least 1")
	check(boxValid(w.PlayerCollider), "world.player_collider must have positive dimensions")

	m := c.Movement
	check(m.LaneChangeRate > 0, "movement.lane_change_rate must be positive")
	check(m.LaneSnapEpsilon > 0, "movement.lane_snap_epsilon must be positive")
	check(m.JumpVelocity > 0, "movement.jump_velocity must be positive")
	check(m.Gravity > 0, "movement.gravity must be positive")
	check(m.JumpCooldown >= 0, "movement.jump_cooldown must not be negative")
	if settle := m.LaneSettleTime(w.LaneWidth, w.MaxWidthScale); settle > m.LaneChangeMaxTime {
		check(false, "lane change settles in %.3fs, above lane_change_max_time %.3fs", settle, m.LaneChangeMaxTime)
	}

	d := c.Difficulty
	check(slices.IsSorted(d.Thresholds), "difficulty.thresholds must be ascending")
	for i, t := range d.Thresholds {
		check(t > 0, "difficulty.thresholds[%d] must be positive", i)
	}
	check(d.SpeedStepDistance > 0, "difficulty.speed_step_distance must be positive")
	check(d.SpeedStep >= 0, "difficulty.speed_step must not be negative")
	check(d.MaxSpeedMultiplier >= 1, "difficulty.max_speed_multiplier must be at least 1")
	check(d.RampDistance > 0, "difficulty.ramp_distance must be positive")

	s := c.Spawner
	for _, sp := range []struct {
		name string
		Spacing
	}{
		{"obstacle", s.Obstacle},
		{"collectible", s.Collectible},
		{"power_up", s.PowerUp},
		{"decoration", s.Decoration},
	} {
		check(sp.Min > 0 && sp.Base >= sp.Min, "spawner.%s spacing needs 0 < min <= base", sp.name)
	}
	check(s.RowClearance >= 0, "spawner.row_clearance must not be negative")
	check(s.GemUpgradeChance >= 0 && s.GemUpgradeChance <= 1, "spawner.gem_upgrade_chance must be within [0,1]")
	check(s.DecorationKinds >= 1, "spawner.decoration_kinds must be at least 1")

	col := c.Collision
	check(col.NearMissBand >= 0, "collision.near_miss_band must not be negative")
	check(col.NearMissCooldown >= 0, "collision.near_miss_cooldown must not be negative")
	check(col.InvulnerableFor > 0, "collision.invulnerable_for must be positive")
	check(col.JumpClearance > 0, "collision.jump_clearance must be positive")
	check(col.MagnetRadius > 0, "collision.magnet_radius must be positive")
	check(col.MagnetSpeed > 0, "collision.magnet_speed must be positive")
	check(col.GridCellSize > 0, "collision.grid_cell_size must be positive")
	check(col.SlowMotionFactor > 0 && col.SlowMotionFactor <= 1, "collision.slow_motion_factor must be within (0,1]")
	check(col.ScoreMultiplier >= 1, "collision.score_multiplier must be at least 1")
	check(boxValid(col.CollectibleCollider), "collision.collectible_collider must have positive dimensions")
	check(boxValid(col.PowerUpCollider), "collision.power_up_collider must have positive dimensions")

	a := c.Animation
	check(a.Hit > 0 && a.Collect > 0 && a.Dodge > 0 && a.Jump > 0, "animation durations must be positive")

	p := c.Particles
	check(p.Max >= 0, "particles.max must not be negative")
	check(p.Lifetime > 0, "particles.lifetime must be positive")

	cl := c.Cleanup
	check(cl.DespawnBehind > 0, "cleanup.despawn_behind must be positive")
	check(cl.CollectibleDespawnBehind > 0, "cleanup.collectible_despawn_behind must be positive")
	check(cl.FlaggedGrace >= 0, "cleanup.flagged_grace must not be negative")

	err = multierr.Append(err, c.validateObstacles())
	err = multierr.Append(err, c.validateCollectibles())
	err = multierr.Append(err, c.validatePowerUps())

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func boxValid(b Box) bool {
	return b.Width > 0 && b.Height > 0 && b.Depth > 0 && b.Radius >= 0
}

func (c *Config) validateObstacles() error {
	var err error
	maxTier := len(c.Difficulty.Thresholds)

	if len(c.Obstacles) == 0 {
		err = multierr.Append(err, errors.New("obstacles catalog is empty"))
	}
	seen := make(map[string]bool, len(c.Obstacles))
	for i, o := range c.Obstacles {
		switch {
		case o.Name == "" || o.Name == AnyObstacle:
			err = multierr.Append(err, fmt.Errorf("obstacles[%d] has an invalid name %q", i, o.Name))
		case seen[o.Name]:
			err = multierr.Append(err, fmt.Errorf("obstacle %q defined twice", o.Name))
		}
		seen[o.Name] = true
		if o.Damage < 1 {
			err = multierr.Append(err, fmt.Errorf("obstacle %q damage must be at least 1", o.Name))
		}
		if o.Weight <= 0 {
			err = multierr.Append(err, fmt.Errorf("obstacle %q weight must be positive", o.Name))
		}
		if o.MinTier < 0 || o.MinTier > maxTier {
			err = multierr.Append(err, fmt.Errorf("obstacle %q min_tier %d out of range", o.Name, o.MinTier))
		}
		if !boxValid(o.Collider) {
			err = multierr.Append(err, fmt.Errorf("obstacle %q collider must have positive dimensions", o.Name))
		}
	}

	if len(c.ObstaclePatterns) == 0 {
		err = multierr.Append(err, errors.New("obstacle_patterns is empty"))
	}
	tierZero := false
	for _, p := range c.ObstaclePatterns {
		if len(p.Slots) != len(Lanes) {
			err = multierr.Append(err, fmt.Errorf("obstacle pattern %q needs %d slots, has %d", p.Name, len(Lanes), len(p.Slots)))
			continue
		}
		if p.Weight <= 0 {
			err = multierr.Append(err, fmt.Errorf("obstacle pattern %q weight must be positive", p.Name))
		}
		if p.MinTier < 0 || p.MinTier > maxTier {
			err = multierr.Append(err, fmt.Errorf("obstacle pattern %q min_tier %d out of range", p.Name, p.MinTier))
		}
		if p.MinTier == 0 {
			tierZero = true
		}

		filled, jumpable := 0, false
		for _, slot := range p.Slots {
			switch slot {
			case "":
				continue
			case AnyObstacle:
				if !c.anyObstacleUnlocked(p.MinTier) {
					err = multierr.Append(err, fmt.Errorf("obstacle pattern %q has a wildcard but no obstacle unlocks by tier %d", p.Name, p.MinTier))
				}
			default:
				def, ok := c.Obstacle(slot)
				if !ok {
					err = multierr.Append(err, fmt.Errorf("obstacle pattern %q references unknown obstacle %q", p.Name, slot))
					break
				}
				if def.MinTier > p.MinTier {
					err = multierr.Append(err, fmt.Errorf("obstacle pattern %q unlocks before obstacle %q", p.Name, slot))
				}
				jumpable = jumpable || def.Jumpable
			}
			filled++
		}
		if filled == 0 {
			err = multierr.Append(err, fmt.Errorf("obstacle pattern %q places no obstacle", p.Name))
		}
		// wildcards may resolve to a non-jumpable obstacle, so only a named
		// jumpable slot keeps a full row passable
		if filled == len(Lanes) && !jumpable {
			err = multierr.Append(err, fmt.Errorf("obstacle pattern %q can block every lane", p.Name))
		}
	}
	if len(c.ObstaclePatterns) > 0 && !tierZero {
		err = multierr.Append(err, errors.New("no obstacle pattern is unlocked at tier 0"))
	}
	return err
}

func (c *Config) anyObstacleUnlocked(tier int) bool {
	for _, o := range c.Obstacles {
		if o.MinTier <= tier {
			return true
		}
	}
	return false
}

func (c *Config) validateCollectibles() error {
	var err error
	maxTier := len(c.Difficulty.Thresholds)

	seen := make(map[CollectibleType]bool)
	for _, def := range c.Collectibles {
		if !slices.Contains(CollectibleTypes, def.Type) {
			err = multierr.Append(err, fmt.Errorf("unknown collectible type %q", def.Type))
		}
		if seen[def.Type] {
			err = multierr.Append(err, fmt.Errorf("collectible %q defined twice", def.Type))
		}
		seen[def.Type] = true
		if def.Value <= 0 {
			err = multierr.Append(err, fmt.Errorf("collectible %q value must be positive", def.Type))
		}
	}
	if c.Spawner.GemUpgradeChance > 0 && !seen[CollectibleGem] {
		err = multierr.Append(err, errors.New("gem upgrades need a gem collectible"))
	}

	if len(c.CollectiblePatterns) == 0 {
		err = multierr.Append(err, errors.New("collectible_patterns is empty"))
	}
	for _, p := range c.CollectiblePatterns {
		if len(p.Lanes) == 0 || len(p.Lanes) != len(p.Types) {
			err = multierr.Append(err, fmt.Errorf("collectible pattern %q needs matching non-empty lanes and types", p.Name))
		}
		for _, lane := range p.Lanes {
			if !slices.Contains(Lanes, lane) {
				err = multierr.Append(err, fmt.Errorf("collectible pattern %q uses unknown lane %d", p.Name, lane))
			}
		}
		for _, t := range p.Types {
			if !seen[t] {
				err = multierr.Append(err, fmt.Errorf("collectible pattern %q references unknown collectible %q", p.Name, t))
			}
		}
		if p.Spacing < 0 {
			err = multierr.Append(err, fmt.Errorf("collectible pattern %q spacing must not be negative", p.Name))
		}
		if p.Weight <= 0 {
			err = multierr.Append(err, fmt.Errorf("collectible pattern %q weight must be positive", p.Name))
		}
		if p.MinTier < 0 || p.MinTier > maxTier {
			err = multierr.Append(err, fmt.Errorf("collectible pattern %q min_tier %d out of range", p.Name, p.MinTier))
		}
	}
	return err
}

func (c *Config) validatePowerUps() error {
	var err error
	maxTier := len(c.Difficulty.Thresholds)

	seen := make(map[PowerUpType]bool)
	for _, def := range c.PowerUps {
		if def.Type.Index() < 0 {
			err = multierr.Append(err, fmt.Errorf("unknown power-up type %q", def.Type))
		}
		if seen[def.Type] {
			err = multierr.Append(err, fmt.Errorf("power-up %q defined twice", def.Type))
		}
		seen[def.Type] = true
		if def.Duration <= 0 {
			err = multierr.Append(err, fmt.Errorf("power-up %q duration must be positive", def.Type))
		}
		if def.Weight <= 0 {
			err = multierr.Append(err, fmt.Errorf("power-up %q weight must be positive", def.Type))
		}
		if def.MinTier < 0 || def.MinTier > maxTier {
			err = multierr.Append(err, fmt.Errorf("power-up %q min_tier %d out of range", def.Type, def.MinTier))
		}
	}
	return err
}
