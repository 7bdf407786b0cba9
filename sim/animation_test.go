package sim_test

import (
	"testing"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func animOf(t *testing.T, s *sim.Simulation) *sim.Animation {
	t.Helper()
	return playerOf(t, s).Animation
}

func TestAnimation(t *testing.T) {
	t.Run("idle turns into swim", func(t *testing.T) {
		s := newSim(t)
		assert.Equal(t, sim.AnimIdle, animOf(t, s).Current)
		s.Update(dt, 0)
		assert.Equal(t, sim.AnimSwim, animOf(t, s).Current)
	})

	t.Run("dodge returns to swim", func(t *testing.T) {
		s := newSim(t)
		s.Update(dt, 0)
		s.PushIntent(sim.IntentLeft)
		s.Update(dt, 0)
		a := animOf(t, s)
		assert.Equal(t, sim.AnimDodge, a.Current)
		assert.Equal(t, sim.AnimSwim, a.ReturnTo)

		run(s, s.Config().Animation.Dodge+0.05, 0)
		assert.Equal(t, sim.AnimSwim, animOf(t, s).Current)
	})

	t.Run("jump", func(t *testing.T) {
		s := newSim(t)
		s.PushIntent(sim.IntentJump)
		s.Update(dt, 0)
		assert.Equal(t, sim.AnimJump, animOf(t, s).Current)
	})

	t.Run("nested one-shot keeps the looping state", func(t *testing.T) {
		s := newSim(t)
		s.Update(dt, 0)
		s.PushIntent(sim.IntentRight)
		s.Update(dt, 0)
		s.PushIntent(sim.IntentJump)
		s.Update(dt, 0)

		a := animOf(t, s)
		assert.Equal(t, sim.AnimJump, a.Current)
		assert.Equal(t, sim.AnimSwim, a.ReturnTo)

		run(s, s.Config().Animation.Jump+0.05, 0)
		assert.Equal(t, sim.AnimSwim, animOf(t, s).Current)
	})

	t.Run("hit beats a simultaneous jump", func(t *testing.T) {
		s := newSim(t)
		_, err := s.SpawnObstacle("rock", 0, s.Config().World.PlayerY+0.5)
		require.NoError(t, err)
		s.PushIntent(sim.IntentJump)
		s.Update(dt, 0)

		assert.Equal(t, sim.AnimHit, animOf(t, s).Current)
		assert.Less(t, s.Status().Health, 3)
	})

	t.Run("collect", func(t *testing.T) {
		s := newSim(t)
		s.Update(dt, 0)
		_, err := s.SpawnCollectible("coin", 0, s.Config().World.PlayerY)
		require.NoError(t, err)
		s.Update(dt, 0)
		assert.Equal(t, sim.AnimCollect, animOf(t, s).Current)
	})

	t.Run("death is final", func(t *testing.T) {
		cfg := config.Default()
		cfg.World.PlayerHealth = 1
		s := newSimWith(t, cfg)
		_, err := s.SpawnObstacle("rock", 0, s.Config().World.PlayerY+0.5)
		require.NoError(t, err)
		s.Update(dt, 0)
		require.True(t, s.Status().GameOver)
		assert.Equal(t, sim.AnimDeath, animOf(t, s).Current)

		s.PushIntent(sim.IntentLeft)
		run(s, 2, 0)
		assert.Equal(t, sim.AnimDeath, animOf(t, s).Current)
	})
}
