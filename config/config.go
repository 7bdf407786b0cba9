// Package config holds the read-only tuning data of a river run: world
// geometry, spawn spacing, difficulty curve and the obstacle, collectible and
// power-up catalogs.
package config

// CollectibleType names a collectible kind.
type CollectibleType string

const (
	CollectibleCoin    CollectibleType = "coin"
	CollectibleGem     CollectibleType = "gem"
	CollectibleSpecial CollectibleType = "special"
)

// CollectibleTypes lists every known collectible kind.
var CollectibleTypes = []CollectibleType{CollectibleCoin, CollectibleGem, CollectibleSpecial}

// PowerUpType names a power-up kind.
type PowerUpType string

const (
	PowerUpShield     PowerUpType = "shield"
	PowerUpMagnet     PowerUpType = "magnet"
	PowerUpSlowMotion PowerUpType = "slow_motion"
	PowerUpGhost      PowerUpType = "ghost"
	PowerUpMultiplier PowerUpType = "multiplier"
)

// PowerUpTypes lists every known power-up kind. The position of a type in this
// slice is its Index.
var PowerUpTypes = []PowerUpType{PowerUpShield, PowerUpMagnet, PowerUpSlowMotion, PowerUpGhost, PowerUpMultiplier}

// Index returns the slot of p in PowerUpTypes, or -1 for unknown types.
func (p PowerUpType) Index() int {
	for i, t := range PowerUpTypes {
		if t == p {
			return i
		}
	}
	return -1
}

// Mode selects which obstacle rules a run plays by. Zen spawns no obstacles;
// in a time trial they spawn but neither hurt nor pay near misses.
type Mode string

const (
	ModeClassic   Mode = "classic"
	ModeZen       Mode = "zen"
	ModeTimeTrial Mode = "time_trial"
)

// Modes lists every known mode.
var Modes = []Mode{ModeClassic, ModeZen, ModeTimeTrial}

// SpawnsObstacles reports whether the spawner places obstacle rows.
func (m Mode) SpawnsObstacles() bool {
	return m != ModeZen
}

// ObstacleContact reports whether obstacles are resolved against the player,
// both for hits and near misses.
func (m Mode) ObstacleContact() bool {
	return m == ModeClassic
}

// Lanes are the discrete lateral slots, left to right.
var Lanes = []int{-1, 0, 1}

// Config is the complete simulation configuration.
type Config struct {
	Seed       uint64     `yaml:"seed"`
	Mode       Mode       `yaml:"mode"`
	World      World      `yaml:"world"`
	Movement   Movement   `yaml:"movement"`
	Difficulty Difficulty `yaml:"difficulty"`
	Spawner    Spawner    `yaml:"spawner"`
	Collision  Collision  `yaml:"collision"`
	Animation  Animation  `yaml:"animation"`
	Particles  Particles  `yaml:"particles"`
	Cleanup    Cleanup    `yaml:"cleanup"`

	Obstacles           []ObstacleDef        `yaml:"obstacles"`
	ObstaclePatterns    []ObstaclePattern    `yaml:"obstacle_patterns"`
	Collectibles        []CollectibleDef     `yaml:"collectibles"`
	CollectiblePatterns []CollectiblePattern `yaml:"collectible_patterns"`
	PowerUps            []PowerUpDef         `yaml:"power_ups"`
}

// Box is an axis-aligned collider size; Radius > 0 turns it into a circle.
type Box struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Depth  float64 `yaml:"depth"`
	Radius float64 `yaml:"radius,omitempty"`
}

type World struct {
	LaneWidth      float64 `yaml:"lane_width"`
	PlayerY        float64 `yaml:"player_y"`
	SpawnAhead     float64 `yaml:"spawn_ahead"`
	ScrollSpeed    float64 `yaml:"scroll_speed"`
	MinWidthScale  float64 `yaml:"min_width_scale"`
	MaxWidthScale  float64 `yaml:"max_width_scale"`
	PlayerHealth   int     `yaml:"player_health"`
	PlayerCollider Box     `yaml:"player_collider"`
	CharacterID    string  `yaml:"character_id"`
}

type Movement struct {
	LaneChangeRate    float64 `yaml:"lane_change_rate"`
	LaneSnapEpsilon   float64 `yaml:"lane_snap_epsilon"`
	LaneChangeMaxTime float64 `yaml:"lane_change_max_time"`
	JumpVelocity      float64 `yaml:"jump_velocity"`
	Gravity           float64 `yaml:"gravity"`
	JumpCooldown      float64 `yaml:"jump_cooldown"`
}

type Difficulty struct {
	// Thresholds are the distances at which each further tier unlocks.
	Thresholds         []float64 `yaml:"thresholds"`
	SpeedStepDistance  float64   `yaml:"speed_step_distance"`
	SpeedStep          float64   `yaml:"speed_step"`
	MaxSpeedMultiplier float64   `yaml:"max_speed_multiplier"`
	RampDistance       float64   `yaml:"ramp_distance"`
}

// Spacing is a spawn distance that shrinks linearly from Base to Min over the
// difficulty ramp.
type Spacing struct {
	Base float64 `yaml:"base"`
	Min  float64 `yaml:"min"`
}

type Spawner struct {
	Obstacle          Spacing `yaml:"obstacle"`
	Collectible       Spacing `yaml:"collectible"`
	PowerUp           Spacing `yaml:"power_up"`
	Decoration        Spacing `yaml:"decoration"`
	RowClearance      float64 `yaml:"row_clearance"`
	GemUpgradeChance  float64 `yaml:"gem_upgrade_chance"`
	GemUpgradeMinTier int     `yaml:"gem_upgrade_min_tier"`
	DecorationKinds   int     `yaml:"decoration_kinds"`
}

type Collision struct {
	NearMissBand        float64 `yaml:"near_miss_band"`
	NearMissCooldown    float64 `yaml:"near_miss_cooldown"`
	NearMissBonus       int     `yaml:"near_miss_bonus"`
	InvulnerableFor     float64 `yaml:"invulnerable_for"`
	JumpClearance       float64 `yaml:"jump_clearance"`
	MagnetRadius        float64 `yaml:"magnet_radius"`
	MagnetSpeed         float64 `yaml:"magnet_speed"`
	GridCellSize        float64 `yaml:"grid_cell_size"`
	SlowMotionFactor    float64 `yaml:"slow_motion_factor"`
	ScoreMultiplier     float64 `yaml:"score_multiplier"`
	CollectibleCollider Box     `yaml:"collectible_collider"`
	PowerUpCollider     Box     `yaml:"power_up_collider"`
}

type Animation struct {
	Hit     float64 `yaml:"hit"`
	Collect float64 `yaml:"collect"`
	Dodge   float64 `yaml:"dodge"`
	Jump    float64 `yaml:"jump"`
}

type Particles struct {
	Max           int     `yaml:"max"`
	Lifetime      float64 `yaml:"lifetime"`
	Speed         float64 `yaml:"speed"`
	HitBurst      int     `yaml:"hit_burst"`
	CollectBurst  int     `yaml:"collect_burst"`
	NearMissBurst int     `yaml:"near_miss_burst"`
}

type Cleanup struct {
	DespawnBehind            float64 `yaml:"despawn_behind"`
	CollectibleDespawnBehind float64 `yaml:"collectible_despawn_behind"`
	FlaggedGrace             float64 `yaml:"flagged_grace"`
}

// ObstacleDef is a catalog entry for an obstacle kind.
type ObstacleDef struct {
	Name     string  `yaml:"name"`
	Damage   int     `yaml:"damage"`
	Jumpable bool    `yaml:"jumpable"`
	Weight   float64 `yaml:"weight"`
	MinTier  int     `yaml:"min_tier"`
	Collider Box     `yaml:"collider"`
}

// ObstaclePattern describes one obstacle row. Slots has one entry per lane:
// an obstacle name, "*" for a weighted pick among unlocked obstacles, or ""
// for an open lane.
type ObstaclePattern struct {
	Name    string   `yaml:"name"`
	Slots   []string `yaml:"slots"`
	Weight  float64  `yaml:"weight"`
	MinTier int      `yaml:"min_tier"`
}

// AnyObstacle is the wildcard pattern slot.
const AnyObstacle = "*"

type CollectibleDef struct {
	Type  CollectibleType `yaml:"type"`
	Value int             `yaml:"value"`
}

// CollectiblePattern places len(Lanes) items, the i-th at lane Lanes[i] and
// i*Spacing further ahead.
type CollectiblePattern struct {
	Name    string            `yaml:"name"`
	Lanes   []int             `yaml:"lanes"`
	Types   []CollectibleType `yaml:"types"`
	Spacing float64           `yaml:"spacing"`
	Weight  float64           `yaml:"weight"`
	MinTier int               `yaml:"min_tier"`
}

type PowerUpDef struct {
	Type     PowerUpType `yaml:"type"`
	Duration float64     `yaml:"duration"`
	Weight   float64     `yaml:"weight"`
	MinTier  int         `yaml:"min_tier"`
}

// Obstacle returns the catalog entry named name.
func (c *Config) Obstacle(name string) (ObstacleDef, bool) {
	for _, o := range c.Obstacles {
		if o.Name == name {
			return o, true
		}
	}
	return ObstacleDef{}, false
}

// Collectible returns the catalog entry for t.
func (c *Config) Collectible(t CollectibleType) (CollectibleDef, bool) {
	for _, def := range c.Collectibles {
		if def.Type == t {
			return def, true
		}
	}
	return CollectibleDef{}, false
}

// PowerUp returns the catalog entry for t.
func (c *Config) PowerUp(t PowerUpType) (PowerUpDef, bool) {
	for _, def := range c.PowerUps {
		if def.Type == t {
			return def, true
		}
	}
	return PowerUpDef{}, false
}

// Tiers returns the number of difficulty tiers, counting tier 0.
func (c *Config) Tiers() int {
	return len(c.Difficulty.Thresholds) + 1
}
