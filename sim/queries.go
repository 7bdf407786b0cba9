package sim

import "github.com/plus3/riverrush/ecs"

type PlayerView struct {
	*Player
	*Position
	*Lane
	*Collider
	*Jump
	*PowerUps
	*Animation
}

type ObstacleView struct {
	*Position
	*Lane
	*Collider
	*Obstacle
	*LifeState
}

type CollectibleView struct {
	*Position
	*Collider
	*Collectible
	*LifeState
	Attraction *Attraction `ecs:"optional"`
}

type PowerUpView struct {
	*Position
	*Collider
	*PowerUp
	*LifeState
}

type ParticleView struct {
	*Position
	*Particle
}

type DecorationView struct {
	*Position
	*Decoration
}

// RenderableView matches every positioned entity; the optional fields tell a
// renderer what it is looking at.
type RenderableView struct {
	*Position
	Collider    *Collider    `ecs:"optional"`
	Player      *Player      `ecs:"optional"`
	Obstacle    *Obstacle    `ecs:"optional"`
	Collectible *Collectible `ecs:"optional"`
	PowerUp     *PowerUp     `ecs:"optional"`
	Particle    *Particle    `ecs:"optional"`
	Decoration  *Decoration  `ecs:"optional"`
	LifeState   *LifeState   `ecs:"optional"`
	Animation   *Animation   `ecs:"optional"`
}

// Queries are read accessors for renderers and tests. Views read live storage,
// so results always reflect the last completed tick.
type Queries struct {
	Player       *ecs.View[PlayerView]
	Obstacles    *ecs.View[ObstacleView]
	Collectibles *ecs.View[CollectibleView]
	PowerUps     *ecs.View[PowerUpView]
	Particles    *ecs.View[ParticleView]
	Decorations  *ecs.View[DecorationView]
	Renderable   *ecs.View[RenderableView]
}

func newQueries(storage *ecs.Storage) *Queries {
	return &Queries{
		Player:       ecs.NewView[PlayerView](storage),
		Obstacles:    ecs.NewView[ObstacleView](storage),
		Collectibles: ecs.NewView[CollectibleView](storage),
		PowerUps:     ecs.NewView[PowerUpView](storage),
		Particles:    ecs.NewView[ParticleView](storage),
		Decorations:  ecs.NewView[DecorationView](storage),
		Renderable:   ecs.NewView[RenderableView](storage),
	}
}
