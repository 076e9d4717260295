package replay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/command"
)

// Epoch is the virtual wall-clock time of offset zero.
var Epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// Config configures a Player. Engine.Dispatcher and Engine.Now are owned by
// the player and overwritten.
type Config struct {
	Engine app.EngineConfig
	Settle time.Duration
	Sink   command.Sink
	Logger *zap.Logger
}

// Player feeds steps to its own engine. Time only moves when a step asks
// for it, so a replay is deterministic and runs as fast as the host allows.
type Player struct {
	engine    *app.Engine
	scheduler *command.ManualScheduler
	settle    time.Duration
	logger    *zap.Logger
}

// New creates a Player.
func New(cfg Config) (*Player, error) {
	if cfg.Settle <= 0 {
		cfg.Settle = command.DefaultSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sink == nil {
		cfg.Sink = command.SinkFunc(func(command.Event) {})
	}

	p := &Player{
		scheduler: command.NewManualScheduler(),
		settle:    cfg.Settle,
		logger:    cfg.Logger,
	}

	engineCfg := cfg.Engine
	engineCfg.Now = p.Now
	engineCfg.Dispatcher = command.NewDispatcher(command.DispatcherConfig{
		Settle:    cfg.Settle,
		Scheduler: p.scheduler,
		Sink:      cfg.Sink,
		Now:       p.Now,
		Logger:    cfg.Logger,
	})
	if engineCfg.Logger == nil {
		engineCfg.Logger = cfg.Logger
	}

	engine, err := app.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}
	p.engine = engine
	return p, nil
}

// Engine returns the engine driven by the player.
func (p *Player) Engine() *app.Engine {
	return p.engine
}

// Now returns the virtual time.
func (p *Player) Now() time.Time {
	return Epoch.Add(p.scheduler.Elapsed())
}

// Elapsed returns the virtual time since offset zero.
func (p *Player) Elapsed() time.Duration {
	return p.scheduler.Elapsed()
}

// Advance moves the virtual clock forward, firing due dispatch completions
// and awake window expiry.
func (p *Player) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	p.scheduler.Advance(d)
	p.engine.Tick(p.Now())
}

// Apply advances to s.At and performs its action. Start failures are
// returned; everything else is fed to the engine as it would be live.
func (p *Player) Apply(s Step) error {
	p.Advance(time.Duration(s.At)*time.Millisecond - p.Elapsed())

	switch {
	case s.Start != "":
		m, err := app.ParseModality(s.Start)
		if err != nil {
			return err
		}
		return p.engine.Start(m)
	case s.Stop != "":
		m, err := app.ParseModality(s.Stop)
		if err != nil {
			return err
		}
		return p.engine.Stop(m)
	case s.Frame != nil:
		p.engine.OnFrame(sample(p.Now(), s.Frame))
	case s.Transcript != nil:
		p.engine.OnTranscript(s.Transcript.Text, s.Transcript.Final)
	case s.Error != "":
		p.engine.OnRecognizerError(errors.New(s.Error))
	}
	return nil
}

// Run applies every step and then lets any in-flight dispatch settle.
// progress, when set, is called after each step.
func (p *Player) Run(ctx context.Context, steps []Step, progress func(done int)) error {
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Apply(s); err != nil {
			p.logger.Warn("replay step failed", zap.Int("step", i), zap.Error(err))
			return err
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	p.Advance(p.settle)
	return nil
}
