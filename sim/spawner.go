package sim

import (
	"math"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
	"go.uber.org/zap"
)

// SpawnerState carries the distance accumulators and bookkeeping of the
// spawner between ticks.
type SpawnerState struct {
	ObstacleAcc    float64
	CollectibleAcc float64
	PowerUpAcc     float64
	DecorationAcc  float64

	LastPattern string

	Rows         int
	Obstacles    int
	Collectibles int
	PowerUps     int
	Decorations  int
	// SafetyDrops counts obstacles removed at runtime because a row would
	// have blocked every lane.
	SafetyDrops int
	// Skipped counts crossings that would have spawned behind the player
	// after a very large distance step.
	Skipped int
}

// spawnedRow is an obstacle row created this tick, not yet in storage.
type spawnedRow struct {
	y       float64
	blocked [3]bool
}

// SpawnerSystem turns travelled distance into obstacle rows, collectible
// patterns, power-ups and decorations. Every decision draws from the spawn
// stream in a fixed order: obstacles, collectibles, power-ups, decorations.
type SpawnerSystem struct {
	cfg *config.Config
	log *zap.Logger
	rng *Random

	rows []spawnedRow

	State     ecs.Singleton[SpawnerState]
	Clock     ecs.Singleton[Clock]
	River     ecs.Singleton[River]
	Obstacles ecs.Query[struct {
		*Position
		*Lane
		*Obstacle
		*LifeState
	}]
}

func (s *SpawnerSystem) Execute(frame *ecs.UpdateFrame) {
	clock := s.Clock.Get()
	if clock.Delta <= 0 {
		return
	}

	state := s.State.Get()
	sp := s.cfg.Spawner
	d := s.cfg.Difficulty
	tier := Tier(d, clock.Distance)
	s.rows = s.rows[:0]

	state.ObstacleAcc += clock.Delta
	state.CollectibleAcc += clock.Delta
	state.PowerUpAcc += clock.Delta
	state.DecorationAcc += clock.Delta

	s.drain(&state.ObstacleAcc, SpacingAt(sp.Obstacle, d, clock.Distance), state, func(y float64) {
		s.spawnObstacleRow(frame, state, y, tier)
	})
	s.drain(&state.CollectibleAcc, SpacingAt(sp.Collectible, d, clock.Distance), state, func(y float64) {
		s.spawnCollectibles(frame, state, y, tier)
	})
	s.drain(&state.PowerUpAcc, SpacingAt(sp.PowerUp, d, clock.Distance), state, func(y float64) {
		s.spawnPowerUp(frame, state, y, tier)
	})
	s.drain(&state.DecorationAcc, SpacingAt(sp.Decoration, d, clock.Distance), state, func(y float64) {
		s.spawnDecoration(frame, state, y)
	})
}

// drain fires spawn once per spacing crossed. The leftover distance places the
// entity where it would be had it spawned exactly at the crossing.
func (s *SpawnerSystem) drain(acc *float64, spacing float64, state *SpawnerState, spawn func(y float64)) {
	w := s.cfg.World
	for *acc >= spacing {
		*acc -= spacing
		y := w.PlayerY + w.SpawnAhead - *acc
		if y <= w.PlayerY {
			state.Skipped++
			continue
		}
		spawn(y)
	}
}

func (s *SpawnerSystem) laneX(lane int) float64 {
	return LaneX(lane, s.cfg.World.LaneWidth, s.River.Get().WidthScale)
}

func (s *SpawnerSystem) scroll() Velocity {
	return Velocity{Y: -s.cfg.World.ScrollSpeed}
}

func laneSlot(lane int) int {
	return lane - config.Lanes[0]
}

// spawnObstacleRow places one pattern row. In modes without obstacles the
// accumulator still drains but nothing is drawn or placed.
func (s *SpawnerSystem) spawnObstacleRow(frame *ecs.UpdateFrame, state *SpawnerState, y float64, tier int) {
	if !s.cfg.Mode.SpawnsObstacles() {
		return
	}
	rng := s.rng.Spawn()

	var patterns []config.ObstaclePattern
	for _, p := range s.cfg.ObstaclePatterns {
		if p.MinTier <= tier {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) > 1 {
		patterns = dropPattern(patterns, state.LastPattern)
	}
	weights := make([]float64, len(patterns))
	for i, p := range patterns {
		weights[i] = p.Weight
	}
	idx := weightedIndex(rng, weights)
	if idx < 0 {
		return
	}
	pattern := patterns[idx]

	defs := make([]*config.ObstacleDef, len(config.Lanes))
	for slot, name := range pattern.Slots {
		switch name {
		case "":
		case config.AnyObstacle:
			defs[slot] = s.pickObstacle(tier)
		default:
			if def, ok := s.cfg.Obstacle(name); ok {
				defs[slot] = &def
			}
		}
	}

	if blocksEveryLane(defs) {
		for slot := len(defs) - 1; slot >= 0; slot-- {
			if !defs[slot].Jumpable {
				s.log.Warn("obstacle row would block every lane, dropping one obstacle",
					zap.String("pattern", pattern.Name),
					zap.String("obstacle", defs[slot].Name),
					zap.Uint64("tick", frame.Tick))
				defs[slot] = nil
				state.SafetyDrops++
				break
			}
		}
	}

	row := spawnedRow{y: y}
	for slot, def := range defs {
		if def == nil {
			continue
		}
		lane := config.Lanes[slot]
		row.blocked[slot] = true
		frame.Commands.Spawn(
			Position{X: s.laneX(lane), Y: y},
			s.scroll(),
			Lane(lane),
			colliderFromBox(def.Collider),
			Obstacle{Kind: def.Name, Damage: def.Damage, Jumpable: def.Jumpable},
			LifeState{},
			Scroll{},
		)
		state.Obstacles++
	}
	s.rows = append(s.rows, row)
	state.LastPattern = pattern.Name
	state.Rows++
}

func dropPattern(patterns []config.ObstaclePattern, name string) []config.ObstaclePattern {
	out := patterns[:0:0]
	for _, p := range patterns {
		if p.Name != name {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return patterns
	}
	return out
}

func (s *SpawnerSystem) pickObstacle(tier int) *config.ObstacleDef {
	var defs []config.ObstacleDef
	var weights []float64
	for _, o := range s.cfg.Obstacles {
		if o.MinTier <= tier {
			defs = append(defs, o)
			weights = append(weights, o.Weight)
		}
	}
	idx := weightedIndex(s.rng.Spawn(), weights)
	if idx < 0 {
		return nil
	}
	return &defs[idx]
}

func blocksEveryLane(defs []*config.ObstacleDef) bool {
	for _, def := range defs {
		if def == nil || def.Jumpable {
			return false
		}
	}
	return true
}

// blocked reports whether an obstacle sits in lane within the row clearance of
// y, counting rows queued this tick.
func (s *SpawnerSystem) blocked(lane int, y float64) bool {
	clearance := s.cfg.Spawner.RowClearance
	for _, row := range s.rows {
		if row.blocked[laneSlot(lane)] && math.Abs(row.y-y) < clearance {
			return true
		}
	}
	for _, o := range s.Obstacles.Iter() {
		if o.LifeState.Flagged() || int(*o.Lane) != lane {
			continue
		}
		if math.Abs(o.Position.Y-y) < clearance {
			return true
		}
	}
	return false
}

// openLane returns lane, or the nearest free lane when it is blocked.
func (s *SpawnerSystem) openLane(lane int, y float64) (int, bool) {
	for _, offset := range []int{0, -1, 1, -2, 2} {
		candidate := lane + offset
		if laneSlot(candidate) < 0 || laneSlot(candidate) >= len(config.Lanes) {
			continue
		}
		if !s.blocked(candidate, y) {
			return candidate, true
		}
	}
	return 0, false
}

func (s *SpawnerSystem) spawnCollectibles(frame *ecs.UpdateFrame, state *SpawnerState, y float64, tier int) {
	rng := s.rng.Spawn()
	sp := s.cfg.Spawner

	var patterns []config.CollectiblePattern
	var weights []float64
	for _, p := range s.cfg.CollectiblePatterns {
		if p.MinTier <= tier {
			patterns = append(patterns, p)
			weights = append(weights, p.Weight)
		}
	}
	idx := weightedIndex(rng, weights)
	if idx < 0 {
		return
	}
	pattern := patterns[idx]

	for i, lane := range pattern.Lanes {
		typ := pattern.Types[i]
		if tier >= sp.GemUpgradeMinTier && rng.Float64() < sp.GemUpgradeChance && typ == config.CollectibleCoin {
			typ = config.CollectibleGem
		}
		itemY := y + float64(i)*pattern.Spacing
		placed, ok := s.openLane(lane, itemY)
		if !ok {
			continue
		}
		def, _ := s.cfg.Collectible(typ)
		frame.Commands.Spawn(
			Position{X: s.laneX(placed), Y: itemY},
			s.scroll(),
			Lane(placed),
			colliderFromBox(s.cfg.Collision.CollectibleCollider),
			Collectible{Type: typ, Value: def.Value},
			Attraction{},
			LifeState{},
			Scroll{},
		)
		state.Collectibles++
	}
}

func (s *SpawnerSystem) spawnPowerUp(frame *ecs.UpdateFrame, state *SpawnerState, y float64, tier int) {
	rng := s.rng.Spawn()

	var defs []config.PowerUpDef
	var weights []float64
	for _, p := range s.cfg.PowerUps {
		if p.MinTier <= tier {
			defs = append(defs, p)
			weights = append(weights, p.Weight)
		}
	}
	idx := weightedIndex(rng, weights)
	lane := config.Lanes[rng.IntN(len(config.Lanes))]
	if idx < 0 {
		return
	}
	def := defs[idx]

	placed, ok := s.openLane(lane, y)
	if !ok {
		return
	}
	frame.Commands.Spawn(
		Position{X: s.laneX(placed), Y: y},
		s.scroll(),
		Lane(placed),
		colliderFromBox(s.cfg.Collision.PowerUpCollider),
		PowerUp{Type: def.Type, Duration: def.Duration},
		LifeState{},
		Scroll{},
	)
	state.PowerUps++
}

// spawnDecoration places scenery on one of the banks, outside the outer lanes.
func (s *SpawnerSystem) spawnDecoration(frame *ecs.UpdateFrame, state *SpawnerState, y float64) {
	rng := s.rng.Spawn()
	w := s.cfg.World
	scale := s.River.Get().WidthScale

	bank := 1.5 * w.LaneWidth * scale
	x := bank + rng.Float64()*w.LaneWidth
	if rng.IntN(2) == 0 {
		x = -x
	}
	frame.Commands.Spawn(
		Position{X: x, Y: y},
		s.scroll(),
		Decoration{Variant: rng.IntN(s.cfg.Spawner.DecorationKinds)},
		Scroll{},
	)
	state.Decorations++
}
