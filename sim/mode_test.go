package sim_test

import (
	"testing"

	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modeConfig(mode config.Mode) *config.Config {
	cfg := config.Default()
	cfg.Mode = mode
	return cfg
}

func TestModeSpawning(t *testing.T) {
	tests := []struct {
		mode      config.Mode
		obstacles bool
	}{
		{config.ModeClassic, true},
		{config.ModeZen, false},
		{config.ModeTimeTrial, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s := newSimWith(t, modeConfig(tt.mode))
			for range 2400 {
				s.Update(dt, 1)
			}

			st := s.Status()
			assert.Equal(t, tt.mode, st.Mode)
			assert.Positive(t, st.Spawner.Collectibles)
			assert.Positive(t, st.Spawner.Decorations)
			if tt.obstacles {
				assert.Positive(t, st.Spawner.Rows)
				assert.Positive(t, st.Spawner.Obstacles)
			} else {
				assert.Zero(t, st.Spawner.Rows)
				assert.Zero(t, st.Spawner.Obstacles)
			}
		})
	}
}

func TestModeObstacleContact(t *testing.T) {
	tests := []struct {
		mode       config.Mode
		hits       int
		nearMisses int
	}{
		{config.ModeClassic, 1, 1},
		{config.ModeZen, 0, 0},
		{config.ModeTimeTrial, 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s, rec := newRecordedWith(t, modeConfig(tt.mode))
			w := s.Config().World
			s.SetRiverWidth(0.6)

			_, err := s.SpawnObstacle("rock", 0, w.PlayerY+3)
			require.NoError(t, err)
			_, err = s.SpawnObstacle("rock", 1, w.PlayerY+8)
			require.NoError(t, err)
			run(s, 3, 0)

			assert.Len(t, rec.hits, tt.hits)
			assert.Len(t, rec.nearMiss, tt.nearMisses)
			assert.Equal(t, w.PlayerHealth-tt.hits, s.Status().Health)
			assert.Equal(t, tt.nearMisses, s.Status().Collision.NearMisses)
		})
	}
}

func TestModeKeepsCollectibles(t *testing.T) {
	for _, mode := range config.Modes {
		t.Run(string(mode), func(t *testing.T) {
			s, rec := newRecordedWith(t, modeConfig(mode))
			_, err := s.SpawnCollectible(config.CollectibleCoin, 0, s.Config().World.PlayerY+1)
			require.NoError(t, err)
			run(s, 1, 0)
			assert.Equal(t, []sim.CollectibleType{config.CollectibleCoin}, rec.collected)
		})
	}
}
