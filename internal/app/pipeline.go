package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before switching back to idle mode.
	IdleTimeout = 2 * time.Second
)

// PipelineConfig configures the local capture pipeline.
type PipelineConfig struct {
	Camera   capture.Camera
	Motion   *capture.MotionDetector
	Detector detector.Detector
	// Preview, when set, receives every frame read.
	Preview *capture.Preview
	Logger  *zap.Logger
}

// Pipeline reads camera frames, gates them on motion, runs hand detection and
// feeds the first detected hand to the engine.
type Pipeline struct {
	engine   *Engine
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	preview  *capture.Preview
	logger   *zap.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	active bool
}

// NewPipeline creates a Pipeline. A nil Motion detector uses the default
// threshold.
func NewPipeline(engine *Engine, cfg PipelineConfig) *Pipeline {
	if cfg.Motion == nil {
		cfg.Motion = capture.NewMotionDetector(capture.DefaultMotionThreshold)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{
		engine:   engine,
		camera:   cfg.Camera,
		motion:   cfg.Motion,
		detector: cfg.Detector,
		preview:  cfg.Preview,
		logger:   cfg.Logger,
	}
}

// Start opens the camera and begins the capture loop.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		return nil
	}

	if err := p.camera.Open(); err != nil {
		return err
	}
	p.camera.SetFPS(IdleFPS)

	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stopCh, p.done)

	p.logger.Info("capture pipeline started")
	return nil
}

// Stop halts the loop and releases the camera, motion detector and hand
// detector.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	stopCh, done := p.stopCh, p.done
	p.stopCh, p.done = nil, nil
	p.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	if err := p.camera.Close(); err != nil {
		p.logger.Warn("close camera", zap.Error(err))
	}
	p.motion.Close()
	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			p.logger.Warn("close detector", zap.Error(err))
		}
	}

	p.logger.Info("capture pipeline stopped")
}

// Active reports whether the loop runs at the active frame rate.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Pipeline) setActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

// run starts in idle mode, switches to the active frame rate on motion and
// back after IdleTimeout without motion. Hand detection only runs while
// active; a detector failure resets the gesture session.
func (p *Pipeline) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	active := false
	lastMotion := time.Now()

	ticker := time.NewTicker(time.Second / IdleFPS)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !p.engine.Running(ModalityGesture) {
				continue
			}

			frame, err := p.camera.ReadFrame()
			if err != nil {
				p.logger.Debug("read frame", zap.Error(err))
				continue
			}
			if p.preview != nil {
				p.preview.Update(frame)
			}

			motion := p.motion.Detect(frame)
			switch {
			case motion.Moving:
				lastMotion = time.Now()
				if !active {
					active = true
					p.setActive(true)
					p.camera.SetFPS(ActiveFPS)
					ticker.Reset(time.Second / ActiveFPS)
					p.logger.Debug("switched to active mode", zap.Float64("changed", motion.Changed))
				}
			case active && time.Since(lastMotion) > IdleTimeout:
				active = false
				p.setActive(false)
				p.camera.SetFPS(IdleFPS)
				ticker.Reset(time.Second / IdleFPS)
				p.logger.Debug("switched to idle mode")
			}

			if !active || p.detector == nil {
				frame.Close()
				continue
			}

			hands, err := p.detector.Detect(frame)
			frame.Close()
			if err != nil {
				p.logger.Warn("hand detection failed", zap.Error(err))
				p.engine.Reset(ModalityGesture)
				continue
			}

			p.engine.OnFrame(detector.FrameSample{
				Timestamp: time.Now(),
				Hand:      detector.FirstHand(hands),
			})
		}
	}
}
