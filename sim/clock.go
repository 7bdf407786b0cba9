package sim

import "github.com/plus3/riverrush/ecs"

// Clock is the simulated game clock. Every timer in the simulation reads
// Elapsed, never wall time, so variable frame rates and pauses stay correct.
type Clock struct {
	Elapsed   float64
	DeltaTime float64
	// Distance is the total distance travelled; Delta is this tick's share.
	Distance float64
	Delta    float64
	// PendingDistance collects distance handed to Update until the next tick.
	PendingDistance float64
	Tick            uint64
}

// ClockSystem runs first and advances the clock by one tick.
type ClockSystem struct {
	Clock ecs.Singleton[Clock]
}

func (s *ClockSystem) Execute(frame *ecs.UpdateFrame) {
	clock := s.Clock.Get()
	clock.Tick = frame.Tick
	clock.DeltaTime = frame.DeltaTime
	clock.Elapsed += frame.DeltaTime
	clock.Delta = clock.PendingDistance
	clock.PendingDistance = 0
	clock.Distance += clock.Delta
}
