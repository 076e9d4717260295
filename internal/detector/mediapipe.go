package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	landmarkScript = "hand_landmarker.py"
	idleShutdown   = 30 * time.Second
)

// landmarkService is a running hand_landmarker.py process. Requests are a
// big-endian uint32 length followed by JPEG bytes; each reply is one JSON line.
type landmarkService struct {
	cmd    *exec.Cmd
	in     io.WriteCloser
	out    *bufio.Reader
	python string
}

func startService(script string, cfg Config) (*landmarkService, error) {
	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, script,
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection", strconv.FormatFloat(cfg.MinConfidence, 'f', 2, 64),
		"--min-tracking", strconv.FormatFloat(cfg.MinTrackingConf, 'f', 2, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("landmark service stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("landmark service stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmark service: %w", err)
	}

	return &landmarkService{cmd: cmd, in: in, out: bufio.NewReader(out), python: python}, nil
}

func (s *landmarkService) roundTrip(jpeg []byte) ([]byte, error) {
	msg := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(jpeg)), uint32(len(jpeg)))
	msg = append(msg, jpeg...)
	if _, err := s.in.Write(msg); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	line, err := s.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", err)
	}
	return line, nil
}

// stop closes stdin, which the service treats as a shutdown request.
func (s *landmarkService) stop() error {
	s.in.Close()
	return s.cmd.Wait()
}

// MediaPipeDetector implements Detector on top of the Python MediaPipe hand
// landmarker. The service starts on the first frame and exits after
// idleShutdown without frames, so a stopped gesture modality costs nothing.
type MediaPipeDetector struct {
	config Config
	script string
	logger *zap.Logger

	mu   sync.Mutex
	svc  *landmarkService
	idle *time.Timer
}

// NewMediaPipeDetector locates the landmark script. ErrModelUnavailable is
// returned when it cannot be found.
func NewMediaPipeDetector(config Config, logger *zap.Logger) (*MediaPipeDetector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	script := config.ScriptPath
	if script == "" {
		script = findLandmarkScript()
	}
	if script == "" {
		return nil, fmt.Errorf("%s not found: %w", landmarkScript, ErrModelUnavailable)
	}

	return &MediaPipeDetector{config: config, script: script, logger: logger}, nil
}

// Detect sends frame to the service and returns the complete hands it found.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc == nil {
		svc, err := startService(d.script, d.config)
		if err != nil {
			return nil, err
		}
		d.svc = svc
		d.logger.Info("landmark service started",
			zap.String("script", d.script),
			zap.String("python", svc.python),
		)
	}

	line, err := d.svc.roundTrip(buf.GetBytes())
	if err != nil {
		// A broken pipe means the process is gone; start a new one next frame.
		d.stopLocked()
		return nil, err
	}
	d.armIdle()

	return decodeHands(line)
}

// Close shuts down the service if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.svc == nil {
		return nil
	}
	err := d.svc.stop()
	d.svc = nil
	d.logger.Info("landmark service stopped")
	return err
}

func (d *MediaPipeDetector) armIdle() {
	if d.idle != nil {
		d.idle.Reset(idleShutdown)
		return
	}
	d.idle = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.idle = nil
		if err := d.stopLocked(); err != nil {
			d.logger.Warn("landmark service exited", zap.Error(err))
		}
	})
}

func findLandmarkScript() string {
	var exeDir string
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}
	return firstExisting(
		filepath.Join("scripts", landmarkScript),
		filepath.Join("..", "scripts", landmarkScript),
		filepath.Join(exeDir, "scripts", landmarkScript),
		filepath.Join(os.Getenv("HOME"), ".mudra", "scripts", landmarkScript),
	)
}

// findVenvPython prefers an interpreter from a local virtualenv, which is
// where the mediapipe package is usually installed.
func findVenvPython() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return firstExisting(
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(filepath.Dir(exe), "venv", "bin", "python"),
		filepath.Join(os.Getenv("HOME"), ".mudra", "venv", "bin", "python"),
	)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// serviceReply is one line written by the landmark service.
type serviceReply struct {
	Hands []struct {
		Points     []Point3D `json:"points"`
		Handedness string    `json:"handedness"`
		Score      float64   `json:"score"`
	} `json:"hands"`
	Error string `json:"error,omitempty"`
}

// decodeHands parses one reply line. Hands without exactly NumLandmarks
// points are skipped, never padded.
func decodeHands(line []byte) ([]HandLandmarks, error) {
	var reply serviceReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("parse landmark reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", reply.Error)
	}

	hands := make([]HandLandmarks, 0, len(reply.Hands))
	for _, h := range reply.Hands {
		handedness, err := ParseHandedness(h.Handedness)
		if err != nil {
			handedness = HandUnknown
		}
		if lm := NewHandLandmarks(h.Points, handedness, h.Score); lm != nil {
			hands = append(hands, *lm)
		}
	}
	return hands, nil
}
