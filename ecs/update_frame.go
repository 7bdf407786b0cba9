package ecs

// UpdateFrame is handed to every system for one scheduler tick. Commands
// queued on it are flushed after the last system has run.
type UpdateFrame struct {
	DeltaTime float64
	Tick      uint64
	Commands  *Commands
	Storage   *Storage
}
