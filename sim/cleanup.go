package sim

import (
	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/ecs"
)

// CleanupSystem deletes scrolling entities that fell behind the player and
// flagged entities whose grace period is over. Deletions are deferred to the
// end of the tick. The player and pooled particles carry no Scroll tag and
// are never touched.
type CleanupSystem struct {
	cfg *config.Config

	Clock    ecs.Singleton[Clock]
	Scrolled ecs.Query[struct {
		*Position
		*Scroll
		LifeState   *LifeState   `ecs:"optional"`
		Collectible *Collectible `ecs:"optional"`
		PowerUp     *PowerUp     `ecs:"optional"`
	}]
}

func (s *CleanupSystem) Execute(frame *ecs.UpdateFrame) {
	now := s.Clock.Get().Elapsed
	c := s.cfg.Cleanup
	playerY := s.cfg.World.PlayerY

	for id, e := range s.Scrolled.Iter() {
		limit := playerY - c.DespawnBehind
		if e.Collectible != nil || e.PowerUp != nil {
			limit = playerY - c.CollectibleDespawnBehind
		}
		if e.Position.Y < limit {
			frame.Commands.Delete(id)
			continue
		}

		if ls := e.LifeState; ls != nil && ls.Flagged() && ls.FlaggedTick < frame.Tick && now-ls.FlaggedAt >= c.FlaggedGrace {
			frame.Commands.Delete(id)
		}
	}
}
