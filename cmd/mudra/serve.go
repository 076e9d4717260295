package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/feedback"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
	"github.com/ayusman/mudra/internal/voice"
)

const pluginTimeout = 5 * time.Second

var withTray bool

type subscriber struct {
	name    string
	handler feedback.HandlerFunc
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recognition daemon and its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withTray, "tray", false, "show the system tray menu (default from MUDRA_TRAY)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	table, err := st.Commands().Table()
	if err != nil {
		return fmt.Errorf("load command table: %w", err)
	}

	bus := feedback.NewBus(zlog)
	defer bus.Close()
	display := feedback.NewDisplay(cfg.Feedback.DisplayTTL)
	hub := server.NewHub(zlog)
	defer hub.Close()

	plugins := plugin.NewManager(afero.NewOsFs(), cfg.Data.PluginDir, zlog)
	if err := plugins.Discover(); err != nil {
		zlog.Warn("plugin discovery failed", zap.Error(err))
	}
	external := feedback.NewPlugins(plugins, plugin.NewExecutor(pluginTimeout))

	routerCfg := feedback.RouterConfig{
		Haptics:  feedback.LogHaptics{Logger: zlog},
		Display:  display,
		Notifier: external,
		Logger:   zlog,
	}
	if cfg.Feedback.Speech {
		routerCfg.Speaker = external
	}
	router := feedback.NewRouter(routerCfg)

	// Local hand detection is optional; clients may post landmarks instead.
	var det detector.Detector
	if cfg.Capture.Enabled {
		mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig(), zlog)
		if err != nil {
			zlog.Warn("local hand detection disabled", zap.Error(err))
		} else {
			det = mp
		}
	}

	rec := cfg.Recognition
	engine, err := app.NewEngine(app.EngineConfig{
		Table:       table,
		Thresholds:  rec.Thresholds,
		Confidences: rec.Confidences,
		Mirrored:    rec.Mirrored,
		WakePhrases: rec.WakePhrases,
		Fillers:     rec.Fillers,
		AwakeWindow: rec.AwakeWindow,
		Dispatcher: command.NewDispatcher(command.DispatcherConfig{
			Settle: rec.Settle,
			Sink:   bus,
			Logger: zlog,
		}),
		ModelReady:      cfg.Capture.Remote || det != nil,
		SpeechSupported: cfg.Voice.Remote || cfg.Voice.TranscriptPath != "",
		Logger:          zlog,
	})
	if err != nil {
		return err
	}

	var tr *tray.Tray
	if withTray || cfg.Tray {
		tr = newTray(engine, st.Settings())
	}

	subscribers := []subscriber{
		{"feedback", router.Handle},
		{"history", st.Events().Handle},
		{"websocket", hub.Handle},
	}
	if cfg.Feedback.NATSURL != "" {
		pub, err := feedback.NewNATSPublisher(cfg.Feedback.NATSURL)
		if err != nil {
			zlog.Warn("NATS forwarding disabled", zap.Error(err))
		} else {
			defer pub.Close()
			subscribers = append(subscribers, subscriber{"nats", pub.Handle})
		}
	}
	if tr != nil {
		subscribers = append(subscribers, subscriber{"tray", tr.Handle})
	}
	for _, s := range subscribers {
		if err := bus.Subscribe(ctx, s.name, s.handler); err != nil {
			return err
		}
	}

	restoreModalities(engine, st.Settings())
	go engine.Run(ctx, app.DefaultTickInterval)

	var preview *capture.Preview
	if det != nil {
		preview = capture.NewPreview()
		pipeline := app.NewPipeline(engine, app.PipelineConfig{
			Camera:   capture.NewCamera(cfg.Capture.CameraID),
			Motion:   capture.NewMotionDetector(cfg.Capture.MotionThreshold),
			Detector: det,
			Preview:  preview,
			Logger:   zlog,
		})
		if err := pipeline.Start(); err != nil {
			zlog.Warn("camera pipeline disabled", zap.Error(err))
			det.Close()
			preview.Close()
			preview = nil
		} else {
			defer preview.Close()
			defer pipeline.Stop()
		}
	}

	if cfg.Voice.TranscriptPath != "" {
		listenerCfg := voice.DefaultListenerConfig()
		listenerCfg.MaxRetries = cfg.Voice.MaxRetries
		listenerCfg.Logger = zlog
		listener := voice.NewListener(voice.NewLineRecognizer(afero.NewOsFs(), cfg.Voice.TranscriptPath), engine, listenerCfg)
		go runListener(ctx, listener, engine, tr, zlog)
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		zlog.Info("serving static files", zap.String("dir", staticDir))
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Engine:    engine,
		Display:   display,
		Hub:       hub,
		Preview:   preview,
		Logger:    zlog,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
		cancel()
	}()

	if tr != nil {
		tr.OnSettings(func() { openBrowser(settingsURL(cfg.Server.Addr)) })
		tr.OnQuit(cancel)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		tr.Run()
	}

	return <-errCh
}

// restoreModalities starts the modalities that were running at last exit.
func restoreModalities(engine *app.Engine, settings *store.SettingRepository) {
	for _, m := range []app.Modality{app.ModalityGesture, app.ModalityVoice} {
		if !settings.Bool(api.SettingFor(m), false) {
			continue
		}
		if err := engine.Start(m); err != nil {
			zlog.Warn("could not restore modality", zap.String("modality", string(m)), zap.Error(err))
		}
	}
}

// runListener keeps the transcript source running. When it gives up, voice
// is disabled so the session API and the tray stop reporting it as usable.
func runListener(ctx context.Context, l *voice.Listener, engine *app.Engine, tr *tray.Tray, logger *zap.Logger) {
	err := l.Run(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	logger.Error("speech listener stopped", zap.Error(err))
	if err := engine.Disable(app.ModalityVoice); err != nil {
		logger.Warn("disable voice", zap.Error(err))
	}
	if tr != nil {
		tr.SetEnabled(app.ModalityVoice, false)
	}
}

func newTray(engine *app.Engine, settings *store.SettingRepository) *tray.Tray {
	tr := tray.New(
		settings.Bool(api.SettingFor(app.ModalityGesture), false),
		settings.Bool(api.SettingFor(app.ModalityVoice), false),
	)
	tr.OnToggle(func(m app.Modality, enabled bool) error {
		var err error
		if enabled {
			err = engine.Start(m)
		} else {
			err = engine.Stop(m)
		}
		if err != nil {
			zlog.Warn("tray toggle failed", zap.String("modality", string(m)), zap.Error(err))
			return err
		}
		if err := settings.SetBool(api.SettingFor(m), enabled); err != nil {
			zlog.Warn("persist modality setting", zap.Error(err))
		}
		return nil
	})
	return tr
}

func settingsURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		zlog.Warn("open browser", zap.String("url", url), zap.Error(err))
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(cfg.Data.Dir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
