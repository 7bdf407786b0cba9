package sim_test

import (
	"math"
	"testing"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
	"github.com/plus3/riverrush/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	hits      []int
	collected []sim.CollectibleType
	values    int
	powerUps  []sim.PowerUpType
	nearMiss  []sim.NearMissEvent
	gameOvers int
}

func (r *recorder) handlers() sim.CollisionHandlers {
	return sim.CollisionHandlers{
		OnHit: func(damage int) { r.hits = append(r.hits, damage) },
		OnCollect: func(t sim.CollectibleType, value int) {
			r.collected = append(r.collected, t)
			r.values += value
		},
		OnPowerUp:  func(t sim.PowerUpType, _ float64) { r.powerUps = append(r.powerUps, t) },
		OnNearMiss: func(ev sim.NearMissEvent) { r.nearMiss = append(r.nearMiss, ev) },
		OnGameOver: func() { r.gameOvers++ },
	}
}

func newRecorded(t *testing.T) (*sim.Simulation, *recorder) {
	t.Helper()
	return newRecordedWith(t, nil)
}

func newRecordedWith(t *testing.T, cfg *config.Config) (*sim.Simulation, *recorder) {
	t.Helper()
	rec := &recorder{}
	return newSimWith(t, cfg, sim.WithHandlers(rec.handlers())), rec
}

func TestHitAfterTravelTime(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	const distance = 8.0
	id, err := s.SpawnObstacle("rock", 0, w.PlayerY+distance)
	require.NoError(t, err)

	ticks := int(math.Ceil(distance / w.ScrollSpeed / dt))
	for range ticks {
		s.Update(dt, 0)
	}
	require.Equal(t, []int{1}, rec.hits)
	assert.Equal(t, w.PlayerHealth-1, s.Status().Health)
	assert.Equal(t, sim.StateInvincible, s.Status().State)

	ls := ecs.ReadComponent[sim.LifeState](s.Storage(), id)
	if ls != nil {
		assert.True(t, ls.Destroyed)
	}

	run(s, 2, 0)
	assert.Len(t, rec.hits, 1, "the obstacle is resolved once")
	assert.False(t, s.Storage().Alive(id))
	assert.Equal(t, sim.StateNormal, s.Status().State)
}

func TestShieldAbsorbsHit(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	_, err := s.SpawnPowerUp(config.PowerUpShield, 0, w.PlayerY)
	require.NoError(t, err)
	s.Update(dt, 0)
	require.Equal(t, []sim.PowerUpType{config.PowerUpShield}, rec.powerUps)
	require.Equal(t, sim.StateShielded, s.Status().State)

	id, err := s.SpawnObstacle("rock", 0, w.PlayerY+2*w.ScrollSpeed)
	require.NoError(t, err)

	destroyed := false
	for range int(3 / dt) {
		s.Update(dt, 0)
		if ls := ecs.ReadComponent[sim.LifeState](s.Storage(), id); ls != nil && ls.Destroyed {
			destroyed = true
			break
		}
	}

	assert.True(t, destroyed)
	assert.Empty(t, rec.hits)
	st := s.Status()
	assert.Equal(t, w.PlayerHealth, st.Health)
	assert.Equal(t, 1, st.Collision.Absorbed)
	assert.Equal(t, sim.StateNormal, st.State, "the shield is consumed")
}

func TestGhostPassesThrough(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	_, err := s.SpawnPowerUp(config.PowerUpGhost, 0, w.PlayerY)
	require.NoError(t, err)
	s.Update(dt, 0)
	require.Equal(t, sim.StateGhost, s.Status().State)

	id, err := s.SpawnObstacle("boulder", 0, w.PlayerY+2)
	require.NoError(t, err)
	run(s, 1, 0)

	assert.Empty(t, rec.hits)
	assert.Equal(t, w.PlayerHealth, s.Status().Health)
	o := s.Queries().Obstacles.Get(id)
	require.NotNil(t, o)
	assert.True(t, o.Obstacle.Passed)
	assert.False(t, o.LifeState.Destroyed)
	assert.Empty(t, rec.nearMiss, "a touched obstacle is no near miss")
}

func TestTwoCollectiblesAtSameSpot(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	a, err := s.SpawnCollectible(config.CollectibleCoin, 0, w.PlayerY+3)
	require.NoError(t, err)
	b, err := s.SpawnCollectible(config.CollectibleCoin, 0, w.PlayerY+3)
	require.NoError(t, err)

	// a was already taken by someone else; b must not care
	ecs.ReadComponent[sim.LifeState](s.Storage(), a).Collected = true

	seen := false
	for range int(1 / dt) {
		s.Update(dt, 0)
		if c := s.Queries().Collectibles.Get(b); c != nil && c.LifeState.Collected {
			seen = true
			assert.False(t, c.LifeState.Destroyed)
		}
	}
	assert.True(t, seen)
	assert.Equal(t, []sim.CollectibleType{config.CollectibleCoin}, rec.collected)
	assert.Equal(t, 10, rec.values)
}

func TestBothCollectiblesAtSameSpotAreCredited(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	for range 2 {
		_, err := s.SpawnCollectible(config.CollectibleGem, -1, w.PlayerY+3)
		require.NoError(t, err)
	}
	s.PushIntent(sim.IntentLeft)
	run(s, 1, 0)

	assert.Len(t, rec.collected, 2)
	assert.Equal(t, 100, rec.values)
}

func TestCollectibleCreditedOnce(t *testing.T) {
	cfg := config.Default()
	cfg.Cleanup.FlaggedGrace = 0.5
	s, rec := newRecordedWith(t, cfg)
	w := s.Config().World

	id, err := s.SpawnCollectible(config.CollectibleSpecial, 0, w.PlayerY)
	require.NoError(t, err)

	for range 20 {
		s.Update(dt, 0)
		assert.Len(t, rec.collected, 1)
	}
	assert.Equal(t, 200, rec.values)
	assert.True(t, s.Storage().Alive(id), "still inside its grace period")

	run(s, 1, 0)
	assert.Len(t, rec.collected, 1)
	assert.False(t, s.Storage().Alive(id))
}

func TestBrokenCollidablesAreSkipped(t *testing.T) {
	tests := []struct {
		name       string
		components []any
		warning    string
	}{
		{
			name:       "missing collider",
			components: []any{sim.Obstacle{Kind: "rock", Damage: 1}},
			warning:    "collidable without collider, skipped",
		},
		{
			name:       "empty collider",
			components: []any{sim.Obstacle{Kind: "rock", Damage: 1}, sim.Collider{Width: 1, Depth: 1}},
			warning:    "invalid collider, skipped",
		},
		{
			name:       "no kind",
			components: []any{sim.Collider{Width: 1, Height: 1, Depth: 1}},
			warning:    "collidable without obstacle, collectible or power-up, skipped",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			rec := &recorder{}
			s := newSim(t, sim.WithLogger(zap.New(core)), sim.WithHandlers(rec.handlers()))

			y := s.Config().World.PlayerY + 0.2
			id := s.Storage().Spawn(append([]any{sim.Position{Y: y}, sim.LifeState{}, sim.Scroll{}}, tt.components...)...)
			run(s, 5*dt, 0)

			warned := logs.FilterMessage(tt.warning).FilterField(zap.Uint64("entity", uint64(id)))
			assert.Equal(t, 5, warned.Len(), "one warning per tick")
			for _, entry := range warned.All() {
				assert.Contains(t, entry.ContextMap(), "tick")
			}
			assert.Empty(t, rec.hits)
			assert.Equal(t, 3, s.Status().Health)
		})
	}
}

func TestJumpClearsJumpableObstacle(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	_, err := s.SpawnObstacle("log", 0, w.PlayerY+1)
	require.NoError(t, err)
	s.PushIntent(sim.IntentJump)
	run(s, 1, 0)

	assert.Empty(t, rec.hits)
	assert.Equal(t, w.PlayerHealth, s.Status().Health)
}

func TestNearMissCreditedOnce(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World
	s.SetRiverWidth(0.6)

	id, err := s.SpawnObstacle("rock", 1, w.PlayerY+3)
	require.NoError(t, err)
	run(s, 2, 0)

	assert.Empty(t, rec.hits)
	require.Len(t, rec.nearMiss, 1)
	ev := rec.nearMiss[0]
	assert.Equal(t, id, ev.Entity)
	assert.Equal(t, "rock", ev.Kind)
	assert.Equal(t, s.Config().Collision.NearMissBonus, ev.Bonus)
	assert.Less(t, ev.Position.Y, w.PlayerY)
	assert.Equal(t, 1, s.Status().Collision.NearMisses)
}

func TestFarObstacleIsNoNearMiss(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	_, err := s.SpawnObstacle("rock", 1, w.PlayerY+3)
	require.NoError(t, err)
	run(s, 2, 0)
	assert.Empty(t, rec.nearMiss)
}

func TestNearMissCooldown(t *testing.T) {
	cfg := config.Default()
	cfg.Collision.NearMissCooldown = 10
	s, rec := newRecordedWith(t, cfg)
	w := s.Config().World
	s.SetRiverWidth(0.6)

	for _, lane := range []int{1, -1} {
		_, err := s.SpawnObstacle("rock", lane, w.PlayerY+3)
		require.NoError(t, err)
	}
	_, err := s.SpawnObstacle("rock", 1, w.PlayerY+6)
	require.NoError(t, err)
	run(s, 3, 0)

	assert.Len(t, rec.nearMiss, 1)
}

func TestGameOver(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	for _, spawn := range []struct {
		kind string
		dy   float64
	}{
		{"boulder", 2},
		{"rock", 9},
		{"boulder", 16},
	} {
		_, err := s.SpawnObstacle(spawn.kind, 0, w.PlayerY+spawn.dy)
		require.NoError(t, err)
	}
	run(s, 4, 0)

	assert.Equal(t, []int{2, 1}, rec.hits)
	assert.Equal(t, 1, rec.gameOvers)
	st := s.Status()
	assert.True(t, st.GameOver)
	assert.Zero(t, st.Health)
	assert.Equal(t, sim.AnimDeath, playerOf(t, s).Animation.Current)

	s.PushIntent(sim.IntentRight)
	run(s, 1, 0)
	assert.Equal(t, 0, int(*playerOf(t, s).Lane), "intents are ignored after game over")
}

func TestHealthNeverIncreases(t *testing.T) {
	s := newSim(t)
	health := s.Status().Health
	for i := range 6000 {
		if i%17 == 0 {
			s.PushIntent(sim.Intent(1 + (i/17)%3))
		}
		s.Update(dt, 0.6)

		h := s.Status().Health
		require.LessOrEqual(t, h, health, "tick %d", i)
		require.GreaterOrEqual(t, h, 0)
		health = h
	}
}

func TestMagnetPullsCollectiblesCloser(t *testing.T) {
	s, rec := newRecorded(t)
	w := s.Config().World

	_, err := s.SpawnPowerUp(config.PowerUpMagnet, 0, w.PlayerY)
	require.NoError(t, err)
	s.Update(dt, 0)
	require.Contains(t, s.Status().ActivePowerUps, config.PowerUpMagnet)

	id, err := s.SpawnCollectible(config.CollectibleCoin, 1, w.PlayerY+2)
	require.NoError(t, err)

	distance := func() float64 {
		c := s.Queries().Collectibles.Get(id)
		p := playerOf(t, s)
		return math.Hypot(c.Position.X-p.Position.X, c.Position.Y-p.Position.Y)
	}
	prev := distance()
	require.Less(t, prev, s.Config().Collision.MagnetRadius)

	attracted := false
	for range 120 {
		s.Update(dt, 0)
		c := s.Queries().Collectibles.Get(id)
		if c == nil || c.LifeState.Collected {
			break
		}
		attracted = attracted || c.Attraction.Active
		d := distance()
		require.Less(t, d, prev)
		prev = d
	}
	assert.True(t, attracted)
	assert.Equal(t, []sim.CollectibleType{config.CollectibleCoin}, rec.collected)
}

func TestMagnetExpiryReleasesCollectibles(t *testing.T) {
	cfg := config.Default()
	for i := range cfg.PowerUps {
		if cfg.PowerUps[i].Type == config.PowerUpMagnet {
			cfg.PowerUps[i].Duration = 0.05
		}
	}
	s := newSimWith(t, cfg)
	w := s.Config().World

	_, err := s.SpawnPowerUp(config.PowerUpMagnet, 0, w.PlayerY)
	require.NoError(t, err)
	s.Update(dt, 0)
	id, err := s.SpawnCollectible(config.CollectibleCoin, 1, w.PlayerY+2)
	require.NoError(t, err)
	s.Update(dt, 0)
	require.True(t, s.Queries().Collectibles.Get(id).Attraction.Active)

	run(s, 0.1, 0)
	c := s.Queries().Collectibles.Get(id)
	require.NotNil(t, c)
	assert.False(t, c.Attraction.Active)
	require.True(t, c.Attraction.Pulled)

	x := c.Position.X
	assert.Less(t, x, sim.LaneX(1, w.LaneWidth, s.RiverWidth()), "pulled toward the player")

	for range 12 {
		s.Update(dt, 0)
		c = s.Queries().Collectibles.Get(id)
		require.NotNil(t, c)
		assert.Equal(t, x, c.Position.X, "a released collectible does not snap back to its lane")
	}
}

func TestParticlesArePooled(t *testing.T) {
	cfg := config.Default()
	cfg.Particles.Max = 10
	s := newSimWith(t, cfg)
	w := s.Config().World

	_, err := s.SpawnObstacle("rock", 0, w.PlayerY)
	require.NoError(t, err)
	s.Update(dt, 0)

	pool := s.Status().Particles
	assert.Equal(t, 8, pool.Total)
	assert.Equal(t, 8, pool.Active)

	for range 3 {
		_, err := s.SpawnCollectible(config.CollectibleCoin, 0, w.PlayerY)
		require.NoError(t, err)
	}
	s.Update(dt, 0)
	pool = s.Status().Particles
	assert.Equal(t, 10, pool.Total)
	assert.Equal(t, 13, pool.Dropped)

	run(s, 1, 0)
	pool = s.Status().Particles
	assert.Zero(t, pool.Active)
	assert.Equal(t, 10, pool.Total)
	for p := range s.Queries().Particles.Values() {
		assert.False(t, p.Particle.Active)
	}

	_, err = s.SpawnCollectible(config.CollectibleGem, 0, w.PlayerY)
	require.NoError(t, err)
	s.Update(dt, 0)
	pool = s.Status().Particles
	assert.Equal(t, 10, pool.Total, "bursts reuse retired particles")
	assert.Equal(t, 5, pool.Active)
}
