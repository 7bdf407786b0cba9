package main

import (
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/riverrush/ecs"
	"github.com/plus3/riverrush/sim"
)

type Report struct {
	// Configuration
	Duration  time.Duration
	FPS       int
	Seed      uint64
	Autopilot bool

	// Gameplay
	Score        int
	pendingScore int
	Distance     float64
	Hits         int
	Damage       int
	NearMisses   int
	Collected    map[sim.CollectibleType]int
	PowerUps     map[sim.PowerUpType]int
	Status       sim.Status

	// Performance
	TotalTime     time.Duration
	UpdateTime    Stats
	Scheduler     *ecs.SchedulerStats
	Storage       ecs.StorageStats
	MemStatsStart runtime.MemStats
	MemStatsEnd   runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		s.Min = min(s.Min, sample)
		s.Max = max(s.Max, sample)
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

const reportTemplate = `
# River Run

## Setup
- **Simulated time:** {{.Duration}} at {{.FPS}} fps
- **Seed:** {{.Seed}}
- **Mode:** {{.Status.Mode}}
- **Autopilot:** {{.Autopilot}}

## Run
- **Ticks:** {{.Status.Tick}} ({{printf "%.1f" .Status.Elapsed}}s)
- **Distance:** {{printf "%.1f" .Distance}} (tier {{.Status.Tier}}, speed x{{printf "%.1f" .Status.SpeedMultiplier}})
- **Score:** {{.Score}}
- **Health:** {{.Status.Health}}/{{.Status.MaxHealth}}{{if .Status.GameOver}} (game over){{end}}
- **Hits:** {{.Hits}} ({{.Damage}} damage, {{.Status.Collision.Absorbed}} absorbed by shields)
- **Near misses:** {{.NearMisses}}
- **Collected:**{{range $t, $n := .Collected}} {{$t}}={{$n}}{{else}} none{{end}}
- **Power-ups:**{{range $t, $n := .PowerUps}} {{$t}}={{$n}}{{else}} none{{end}}
- **Spawned:** {{.Status.Spawner.Rows}} rows, {{.Status.Spawner.Obstacles}} obstacles, {{.Status.Spawner.Collectibles}} collectibles, {{.Status.Spawner.PowerUps}} power-ups, {{.Status.Spawner.Decorations}} decorations
{{- if .Status.Spawner.SafetyDrops}}
- **Safety drops:** {{.Status.Spawner.SafetyDrops}}
{{- end}}
- **Particles:** {{.Status.Particles.Total}} pooled, {{.Status.Particles.Emitted}} emitted, {{.Status.Particles.Dropped}} dropped

## Performance
- **Wall time:** {{.TotalTime}}
- **Update (frame):** avg {{.UpdateTime.Avg}}, min {{.UpdateTime.Min}}, max {{.UpdateTime.Max}}
{{- with .Scheduler}}
- **Systems:**
{{- range .Systems}}
  - {{printf "%-10s" .Name}} avg {{.AvgDuration}} max {{.MaxDuration}}
{{- end}}
{{- end}}
- **Entities:** {{.Storage.TotalEntityCount}} in {{.Storage.ArchetypeCount}} archetypes

## Memory (bytes)
- Heap Alloc:  {{.MemStatsStart.HeapAlloc}} -> {{.MemStatsEnd.HeapAlloc}} (delta {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}})
- Total Alloc: {{.MemStatsStart.TotalAlloc}} -> {{.MemStatsEnd.TotalAlloc}} (delta {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}})
- Num GC:      {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}, paused {{ns .MemStatsEnd.PauseTotalNs}}
`

func (r *Report) Generate(w io.Writer) error {
	fm := template.FuncMap{
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, r)
}
