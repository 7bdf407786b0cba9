package ecs

// System is one step of a scheduler tick. Exported Query and Singleton fields
// are bound by Scheduler.Register; any other field is private system state that
// persists between frames.
type System interface {
	Execute(frame *UpdateFrame)
}
