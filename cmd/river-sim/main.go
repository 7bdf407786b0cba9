// Command river-sim runs the river simulation headless: an autopilot plays a
// run of fixed length, and the command prints a report. Runs can be recorded
// and recordings verified for determinism.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/internal/logging"
	"github.com/plus3/riverrush/replay"
	"github.com/plus3/riverrush/sim"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file; the built-in defaults when empty.")
	seed := flag.Uint64("seed", 0, "Override the configured seed (0 keeps it).")
	mode := flag.String("mode", "", "Override the configured mode: classic, zen or time_trial.")
	duration := flag.Duration("duration", 2*time.Minute, "Simulated run time.")
	fps := flag.Int("fps", 60, "Simulated frames per second.")
	lookahead := flag.Float64("lookahead", 6, "Autopilot lookahead distance; 0 disables the autopilot.")
	greed := flag.Bool("greed", true, "Let the autopilot chase collectibles.")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	recordPath := flag.String("record", "", "Write the run to this replay file.")
	verifyPath := flag.String("verify", "", "Verify a replay file instead of running.")
	runs := flag.Int("runs", 4, "Parallel playbacks for -verify.")
	flag.Parse()

	log, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatal("unknown profile mode", zap.String("profile", *profileMode))
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal("load configuration", zap.Error(err))
		}
	}
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
		if err := cfg.Validate(); err != nil {
			log.Fatal("invalid mode", zap.String("mode", *mode), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *verifyPath != "" {
		if err := verify(ctx, log, cfg, *verifyPath, *runs); err != nil {
			log.Error("verification failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	opts := []Option{WithFPS(*fps), WithDuration(*duration)}
	if *lookahead > 0 {
		opts = append(opts, WithAutopilot(&Autopilot{Lookahead: *lookahead, Greed: *greed}))
	}
	if *seed != 0 {
		opts = append(opts, WithSeedOverride(*seed))
	}

	report, rec, err := Run(ctx, log, cfg, opts...)
	if err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
	if *recordPath != "" {
		if err := replay.WriteFile(*recordPath, rec); err != nil {
			log.Fatal("write recording", zap.Error(err))
		}
		log.Info("recording written", zap.String("path", *recordPath), zap.Stringer("id", rec.ID))
	}

	fmt.Println("\n--- River Run Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal("generate report", zap.Error(err))
	}
}

func verify(ctx context.Context, log *zap.Logger, cfg *config.Config, path string, runs int) error {
	rec, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := replay.Verify(ctx, cfg, rec, runs, log); err != nil {
		return err
	}
	log.Info("recording verified",
		zap.Stringer("id", rec.ID),
		zap.Int("frames", rec.Ticks()),
		zap.Int("runs", runs),
		zap.Duration("took", time.Since(start)))
	return nil
}

type runOptions struct {
	fps       int
	duration  time.Duration
	autopilot *Autopilot
	seed      uint64
}

type Option func(*runOptions)

func WithFPS(fps int) Option {
	return func(o *runOptions) { o.fps = fps }
}

func WithDuration(d time.Duration) Option {
	return func(o *runOptions) { o.duration = d }
}

func WithAutopilot(a *Autopilot) Option {
	return func(o *runOptions) { o.autopilot = a }
}

func WithSeedOverride(seed uint64) Option {
	return func(o *runOptions) { o.seed = seed }
}

// Run plays one recorded run and returns its report. The run ends at the
// configured duration, at game over or when ctx is cancelled.
func Run(ctx context.Context, log *zap.Logger, cfg *config.Config, opts ...Option) (*Report, *replay.Recording, error) {
	o := runOptions{fps: 60, duration: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fps <= 0 {
		return nil, nil, errors.New("fps must be positive")
	}

	report := &Report{
		Duration:  o.duration,
		FPS:       o.fps,
		Autopilot: o.autopilot != nil,
	}
	handlers := sim.CollisionHandlers{
		OnCollect: func(t sim.CollectibleType, value int) {
			report.Collected[t]++
			report.pendingScore += value
		},
		OnHit: func(damage int) {
			report.Hits++
			report.Damage += damage
		},
		OnPowerUp: func(t sim.PowerUpType, duration float64) {
			report.PowerUps[t]++
		},
		OnNearMiss: func(ev sim.NearMissEvent) {
			report.NearMisses++
			report.pendingScore += ev.Bonus
		},
		OnGameOver: func() {
			log.Info("game over", zap.Float64("distance", report.Distance))
		},
	}
	report.Collected = map[sim.CollectibleType]int{}
	report.PowerUps = map[sim.PowerUpType]int{}

	simOpts := []sim.Option{sim.WithLogger(log), sim.WithHandlers(handlers)}
	if o.seed != 0 {
		simOpts = append(simOpts, sim.WithSeed(o.seed))
	}
	s, err := sim.New(cfg, simOpts...)
	if err != nil {
		return nil, nil, err
	}
	report.Seed = s.Seed()

	rec := replay.NewRecorder(s)
	dt := 1 / float64(o.fps)
	frames := int(o.duration.Seconds() * float64(o.fps))

	runtime.ReadMemStats(&report.MemStatsStart)
	start := time.Now()
	for i := 0; i < frames; i++ {
		if i%256 == 0 && ctx.Err() != nil {
			log.Warn("run interrupted", zap.Int("frame", i))
			break
		}
		if o.autopilot != nil {
			for _, intent := range o.autopilot.Decide(s) {
				rec.PushIntent(intent)
			}
		}

		distance := s.ScrollSpeed() * dt
		multiplier := s.ScoreMultiplier()

		updateStart := time.Now()
		rec.Update(dt, distance)
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))

		report.Score += int(float64(report.pendingScore) * multiplier)
		report.pendingScore = 0
		report.Distance = s.Status().Distance

		if s.Status().GameOver {
			break
		}
	}
	report.TotalTime = time.Since(start)
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.UpdateTime.Finalize()

	report.Status = s.Status()
	report.Scheduler = s.SchedulerStats()
	report.Storage = s.StorageStats()
	return report, rec.Finish(), nil
}
