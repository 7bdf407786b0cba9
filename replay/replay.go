// Package replay records the inputs of a run and plays them back. A recording
// holds the seed, the configuration fingerprint and every Update call with the
// intents pushed before it; replaying it against the same configuration must
// reproduce the recorded world digest.
package replay

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/plus3/riverrush/config"
	"github.com/plus3/riverrush/sim"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrConfigMismatch is returned when a recording is played against a
	// configuration other than the one it was recorded with.
	ErrConfigMismatch = errors.New("replay: recording was made with a different configuration")
	// ErrDiverged is returned by Verify when a playback ends in another state.
	ErrDiverged = errors.New("replay: playback diverged from recording")
)

// Frame is one Update call.
type Frame struct {
	DeltaTime float64      `msgpack:"dt"`
	Distance  float64      `msgpack:"dd"`
	Intents   []sim.Intent `msgpack:"in,omitempty"`
}

// Recording is a complete run.
type Recording struct {
	ID          uuid.UUID `msgpack:"id"`
	Seed        uint64    `msgpack:"seed"`
	Fingerprint uint64    `msgpack:"cfg"`
	CreatedAt   time.Time `msgpack:"created_at"`
	Frames      []Frame   `msgpack:"frames"`
	// Digest is the world digest after the last frame.
	Digest uint64 `msgpack:"digest"`
}

// Ticks is the number of recorded Update calls.
func (r *Recording) Ticks() int {
	return len(r.Frames)
}

// Recorder wraps a simulation and notes every intent and Update passed
// through it.
type Recorder struct {
	sim     *sim.Simulation
	rec     *Recording
	pending []sim.Intent
}

// NewRecorder starts a recording of s. s should be freshly created or reset;
// anything that happened before is not part of the recording.
func NewRecorder(s *sim.Simulation) *Recorder {
	return &Recorder{
		sim: s,
		rec: &Recording{
			ID:          uuid.New(),
			Seed:        s.Seed(),
			Fingerprint: s.Config().Fingerprint(),
			CreatedAt:   time.Now().UTC(),
		},
	}
}

func (r *Recorder) Simulation() *sim.Simulation {
	return r.sim
}

// PushIntent forwards intent and notes it for the next frame. Intents pushed
// while the simulation is paused are dropped by both.
func (r *Recorder) PushIntent(intent sim.Intent) {
	if r.sim.Paused() {
		return
	}
	r.pending = append(r.pending, intent)
	r.sim.PushIntent(intent)
}

// Update advances the simulation and records the frame. Paused updates leave
// the world untouched and are not recorded.
func (r *Recorder) Update(deltaTime, distanceDelta float64) {
	if r.sim.Paused() {
		return
	}
	r.rec.Frames = append(r.rec.Frames, Frame{
		DeltaTime: deltaTime,
		Distance:  distanceDelta,
		Intents:   r.pending,
	})
	r.pending = nil
	r.sim.Update(deltaTime, distanceDelta)
}

// Finish seals the recording with the current world digest. Intents pushed
// after the last Update are not recorded.
func (r *Recorder) Finish() *Recording {
	r.rec.Digest = Digest(r.sim)
	return r.rec
}

// Play runs rec on a fresh simulation built from cfg and returns it. The
// context is checked between frames.
func Play(ctx context.Context, cfg *config.Config, rec *Recording, opts ...sim.Option) (*sim.Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if fp := cfg.Fingerprint(); fp != rec.Fingerprint {
		return nil, fmt.Errorf("%w: have %016x, recorded %016x", ErrConfigMismatch, fp, rec.Fingerprint)
	}

	s, err := sim.New(cfg, append(opts, sim.WithSeed(rec.Seed))...)
	if err != nil {
		return nil, err
	}
	for i, f := range rec.Frames {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, intent := range f.Intents {
			s.PushIntent(intent)
		}
		s.Update(f.DeltaTime, f.Distance)
	}
	return s, nil
}

// Verify plays rec runs times in parallel and checks every playback ends with
// the recorded digest.
func Verify(ctx context.Context, cfg *config.Config, rec *Recording, runs int, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Stringer("recording", rec.ID), zap.Int("frames", len(rec.Frames)))

	g, ctx := errgroup.WithContext(ctx)
	for run := range max(runs, 1) {
		g.Go(func() error {
			s, err := Play(ctx, cfg, rec)
			if err != nil {
				return err
			}
			if got := Digest(s); got != rec.Digest {
				log.Warn("playback diverged",
					zap.Int("run", run),
					zap.Uint64("tick", s.Tick()),
					zap.String("digest", fmt.Sprintf("%016x", got)),
					zap.String("want", fmt.Sprintf("%016x", rec.Digest)))
				return fmt.Errorf("%w: run %d digest %016x, recorded %016x", ErrDiverged, run, got, rec.Digest)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Debug("recording verified", zap.Int("runs", runs))
	return nil
}

// Digest hashes the observable world: tick, clock, player status and every
// positioned entity in storage order.
func Digest(s *sim.Simulation) uint64 {
	h := xxhash.New()
	var buf [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putF := func(v float64) {
		putU(math.Float64bits(v))
	}
	putB := func(v bool) {
		if v {
			putU(1)
		} else {
			putU(0)
		}
	}

	st := s.Status()
	putU(st.Tick)
	putF(st.Elapsed)
	putF(st.Distance)
	putU(uint64(st.Health))
	putB(st.GameOver)
	putU(uint64(st.Spawner.Rows))
	putU(uint64(st.Collision.Collected))
	putU(uint64(st.Collision.NearMisses))

	for id, r := range s.Queries().Renderable.Iter() {
		putU(uint64(id))
		putF(r.Position.X)
		putF(r.Position.Y)
		putF(r.Position.Z)
		if r.LifeState != nil {
			putB(r.LifeState.Collected)
			putB(r.LifeState.Destroyed)
		}
		if r.Obstacle != nil {
			h.WriteString(r.Obstacle.Kind)
		}
		if r.Collectible != nil {
			h.WriteString(string(r.Collectible.Type))
		}
		if r.PowerUp != nil {
			h.WriteString(string(r.PowerUp.Type))
		}
		if r.Animation != nil {
			putU(uint64(r.Animation.Current))
		}
	}
	return h.Sum64()
}
