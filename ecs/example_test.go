package ecs_test

import (
	"fmt"
	"reflect"

	"github.com/plus3/riverrush/ecs"
)

type Drift struct {
	X, Y float64
}

type Buoy struct {
	Label string
}

type driftSystem struct {
	Items ecs.Query[struct {
		*Drift
		*Buoy
	}]
}

func (s *driftSystem) Execute(frame *ecs.UpdateFrame) {
	for id, item := range s.Items.Iter() {
		item.Drift.Y -= 5 * frame.DeltaTime
		if item.Drift.Y < -10 {
			frame.Commands.Delete(id)
		}
	}
}

// ExampleScheduler shows systems reading entities through queries that the
// scheduler binds and executes, with deletions applied after the frame.
func ExampleScheduler() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Drift](registry)
	ecs.RegisterComponent[Buoy](registry)
	storage := ecs.NewStorage(registry)

	storage.Spawn(Drift{Y: 0}, Buoy{Label: "near"})
	storage.Spawn(Drift{Y: 30}, Buoy{Label: "far"})

	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&driftSystem{})
	for i := 0; i < 3; i++ {
		scheduler.Once(1)
	}

	view := ecs.NewView[struct {
		*Drift
		*Buoy
	}](storage)
	for item := range view.Values() {
		fmt.Printf("%s at %.0f\n", item.Buoy.Label, item.Drift.Y)
	}
	fmt.Println("live:", storage.Len())

	// Output:
	// far at 15
	// live: 1
}

// ExampleStorage_AddComponent shows that an entity id survives structural
// changes.
func ExampleStorage_AddComponent() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Drift](registry)
	ecs.RegisterComponent[Buoy](registry)
	storage := ecs.NewStorage(registry)

	id := storage.Spawn(Drift{X: 1})
	storage.AddComponent(id, Buoy{Label: "tagged"})
	storage.RemoveComponent(id, reflect.TypeFor[Drift]())

	fmt.Println(storage.Alive(id), ecs.ReadComponent[Buoy](storage, id).Label)
	fmt.Println(ecs.ReadComponent[Drift](storage, id) == nil)

	// Output:
	// true tagged
	// true
}
