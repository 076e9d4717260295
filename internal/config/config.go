// Package config resolves runtime configuration from an optional .env file,
// MUDRA_* environment variables and defaults. Values are fixed once loaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/feedback"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/voice"
)

// DefaultAwakeWindow is how long the voice session stays awake after a wake
// phrase or a command.
const DefaultAwakeWindow = 15 * time.Second

// Config stores runtime configuration.
type Config struct {
	Server      ServerConfig
	Data        DataConfig
	Log         LogConfig
	Recognition RecognitionConfig
	Capture     CaptureConfig
	Voice       VoiceConfig
	Feedback    FeedbackConfig
	Tray        bool
}

type ServerConfig struct {
	Addr      string
	StaticDir string
}

type DataConfig struct {
	Dir       string
	DBPath    string
	PluginDir string
}

type LogConfig struct {
	FilePath   string
	Production bool
	Debug      bool
}

type RecognitionConfig struct {
	Thresholds  session.Thresholds
	Confidences gesture.Confidences
	// Mirrored is true when frames come from a selfie camera.
	Mirrored    bool
	Settle      time.Duration
	AwakeWindow time.Duration
	WakePhrases []string
	Fillers     []string
}

type CaptureConfig struct {
	// Enabled runs the local camera pipeline.
	Enabled bool
	// Remote accepts landmark frames from clients over the API.
	Remote          bool
	CameraID        int
	MotionThreshold float64
}

type VoiceConfig struct {
	// TranscriptPath is a file or FIFO of newline-delimited transcripts.
	// Empty disables the local transcript source.
	TranscriptPath string
	MaxRetries     int
	// Remote accepts transcripts from clients over the API.
	Remote bool
}

type FeedbackConfig struct {
	DisplayTTL time.Duration
	NATSURL    string
	// Speech routes responses through speak-capable plugins.
	Speech bool
}

// Load reads envFiles (".env" when none are given; missing files are
// ignored) and resolves the configuration. Variables already set in the
// environment take precedence over file values.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	dataDir := envOrDefault("MUDRA_DATA_DIR", filepath.Join(home, ".mudra"))
	thresholds := session.DefaultThresholds()
	confidences := gesture.DefaultConfidences()

	cfg := Config{
		Server: ServerConfig{
			Addr:      envOrDefault("MUDRA_ADDR", ":8080"),
			StaticDir: envOrDefault("MUDRA_STATIC_DIR", ""),
		},
		Data: DataConfig{
			Dir:       dataDir,
			DBPath:    envOrDefault("MUDRA_DB_PATH", filepath.Join(dataDir, "mudra.db")),
			PluginDir: envOrDefault("MUDRA_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),
		},
		Log: LogConfig{
			FilePath:   envOrDefault("MUDRA_LOG_FILE", filepath.Join(dataDir, "logs", "mudra.log")),
			Production: envOrDefault("MUDRA_ENV", "development") == "production",
			Debug:      envOrDefaultBool("MUDRA_DEBUG", false),
		},
		Recognition: RecognitionConfig{
			Thresholds: session.Thresholds{
				Detect:    envOrDefaultFloat("MUDRA_DETECT_THRESHOLD", thresholds.Detect),
				Dispatch:  envOrDefaultFloat("MUDRA_DISPATCH_THRESHOLD", thresholds.Dispatch),
				DecayStep: envOrDefaultFloat("MUDRA_DECAY_STEP", thresholds.DecayStep),
				Release:   envOrDefaultFloat("MUDRA_RELEASE_THRESHOLD", thresholds.Release),
			},
			Confidences: gesture.Confidences{
				ThumbsUp:     envOrDefaultFloat("MUDRA_CONFIDENCE_THUMBS_UP", confidences.ThumbsUp),
				ClosedFist:   envOrDefaultFloat("MUDRA_CONFIDENCE_CLOSED_FIST", confidences.ClosedFist),
				OneFinger:    envOrDefaultFloat("MUDRA_CONFIDENCE_ONE_FINGER", confidences.OneFinger),
				TwoFingers:   envOrDefaultFloat("MUDRA_CONFIDENCE_TWO_FINGERS", confidences.TwoFingers),
				ThreeFingers: envOrDefaultFloat("MUDRA_CONFIDENCE_THREE_FINGERS", confidences.ThreeFingers),
				FourFingers:  envOrDefaultFloat("MUDRA_CONFIDENCE_FOUR_FINGERS", confidences.FourFingers),
				OpenPalm:     envOrDefaultFloat("MUDRA_CONFIDENCE_OPEN_PALM", confidences.OpenPalm),
			},
			Mirrored:    envOrDefaultBool("MUDRA_MIRRORED", false),
			Settle:      envOrDefaultDuration("MUDRA_SETTLE", command.DefaultSettle),
			AwakeWindow: envOrDefaultDuration("MUDRA_AWAKE_WINDOW", DefaultAwakeWindow),
			WakePhrases: envOrDefaultList("MUDRA_WAKE_PHRASES", voice.DefaultWakePhrases()),
			Fillers:     envOrDefaultList("MUDRA_FILLERS", voice.DefaultFillers()),
		},
		Capture: CaptureConfig{
			Enabled:         envOrDefaultBool("MUDRA_CAMERA", false),
			Remote:          envOrDefaultBool("MUDRA_REMOTE_FRAMES", true),
			CameraID:        envOrDefaultInt("MUDRA_CAMERA_ID", 0),
			MotionThreshold: envOrDefaultFloat("MUDRA_MOTION_THRESHOLD", 1.0),
		},
		Voice: VoiceConfig{
			TranscriptPath: envOrDefault("MUDRA_TRANSCRIPT_FILE", ""),
			MaxRetries:     envOrDefaultInt("MUDRA_VOICE_MAX_RETRIES", voice.DefaultListenerConfig().MaxRetries),
			Remote:         envOrDefaultBool("MUDRA_REMOTE_TRANSCRIPTS", true),
		},
		Feedback: FeedbackConfig{
			DisplayTTL: envOrDefaultDuration("MUDRA_DISPLAY_TTL", feedback.DefaultDisplayTTL),
			NATSURL:    envOrDefault("MUDRA_NATS_URL", ""),
			Speech:     envOrDefaultBool("MUDRA_SPEECH", true),
		},
		Tray: envOrDefaultBool("MUDRA_TRAY", false),
	}

	if cfg.Recognition.Settle <= 0 {
		cfg.Recognition.Settle = command.DefaultSettle
	}
	if cfg.Recognition.AwakeWindow <= 0 {
		cfg.Recognition.AwakeWindow = DefaultAwakeWindow
	}
	if cfg.Voice.MaxRetries < 0 {
		cfg.Voice.MaxRetries = 0
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the recognition constants.
func (c Config) Validate() error {
	if err := c.Recognition.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	if err := c.Recognition.Confidences.Validate(); err != nil {
		return fmt.Errorf("invalid confidences: %w", err)
	}
	return nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envOrDefaultDuration accepts Go durations ("800ms") or plain milliseconds.
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// envOrDefaultList splits a comma-separated value.
func envOrDefaultList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
