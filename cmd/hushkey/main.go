// Package main is the hushkey tray application: hold a hotkey conversation
// with your microphone and have the transcript typed into whatever window
// has focus.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hushkey/hushkey/config"
	"github.com/hushkey/hushkey/internal/clipboard"
	"github.com/hushkey/hushkey/internal/lock"
	"github.com/hushkey/hushkey/pkg/audio"
	"github.com/hushkey/hushkey/pkg/engine"
	"github.com/hushkey/hushkey/pkg/hotkey"
	"github.com/hushkey/hushkey/pkg/logger"
	"github.com/hushkey/hushkey/pkg/output"
	"github.com/hushkey/hushkey/pkg/resources"
	"github.com/hushkey/hushkey/pkg/transcription"
	"github.com/hushkey/hushkey/pkg/ui"
)

// lockName identifies this application's single-instance lock.
const lockName = "hushkey"

// restartGrace gives the hotkey hook and audio device time to settle before
// the replacement process starts.
const restartGrace = 500 * time.Millisecond

// Application wires the capture, transcription and delivery components
// together and owns their lifetimes. The instance lock is held here so it
// lives exactly as long as the process.
type Application struct {
	guard      *lock.Guard
	cfg        *config.Config
	session    *audio.Session
	worker     *transcription.Worker
	dispatcher *output.Dispatcher
	engine     *engine.Engine
	listener   *hotkey.Listener
	tray       *ui.Tray

	isDebugMode bool

	mu          sync.Mutex
	restart     bool
	cleanupOnce sync.Once
}

func main() {
	debugMode := flag.Bool("debug", false, "Run in debug mode")
	listDevices := flag.Bool("list-devices", false, "List audio input devices and exit")
	modelSize := flag.String("model", "", "Whisper model size (tiny, base, small, medium, large)")
	hotkeyFlag := flag.String("hotkey", "", "Toggle hotkey, e.g. ctrl+alt+space")
	useTyping := flag.Bool("use-typing", false, "Deliver text by typing instead of pasting")
	sendEnter := flag.Bool("send-enter", true, "Press Enter after delivering text")
	keepClipboard := flag.Bool("keep-clipboard", false, "Leave the transcript on the clipboard")
	flag.Parse()

	logger.Initialize()
	if *debugMode {
		logger.SetLevel(logger.LevelDebug)
		logger.Info(logger.CategoryApp, "Debug mode enabled - verbose logging active")
	} else {
		logger.SuppressALSAWarnings(true)
	}

	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list devices: %v\n", err)
			os.Exit(1)
		}
		return
	}

	appDir, err := config.GetAppDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve application directory: %v\n", err)
		os.Exit(1)
	}

	guard, err := lock.Acquire(appDir, lockName)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyRunning) {
			fmt.Println("Hushkey is already running")
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Failed to acquire instance lock: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfigWithFlags(*modelSize, *hotkeyFlag, *useTyping, *sendEnter, *keepClipboard)
	if err != nil {
		logger.Error(logger.CategoryApp, "Failed to load configuration: %v", err)
		guard.Release()
		os.Exit(1)
	}

	logger.Info(logger.CategoryApp, "Starting Hushkey (model %s, hotkey %s)",
		cfg.ModelSize, hotkeyFromConfig(cfg).String())

	app, err := NewApplication(guard, cfg, *debugMode)
	if err != nil {
		logger.Error(logger.CategoryApp, "Failed to initialize application: %v", err)
		guard.Release()
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		logger.Error(logger.CategoryApp, "Application error: %v", err)
		app.SafeCleanup()
		os.Exit(1)
	}
}

// loadConfigWithFlags loads the persisted configuration and folds explicitly
// set command-line flags into it, persisting the result.
func loadConfigWithFlags(modelSize, hotkeyFlag string, useTyping, sendEnter, keepClipboard bool) (*config.Config, error) {
	overridden := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { overridden[f.Name] = true })

	return config.Update(func(cfg *config.Config) {
		if overridden["model"] && modelSize != "" {
			cfg.ModelSize = modelSize
		}
		if overridden["hotkey"] && hotkeyFlag != "" {
			if hk, err := parseHotkey(hotkeyFlag); err == nil {
				applyHotkey(cfg, hk)
			} else {
				logger.Warning(logger.CategoryApp, "Ignoring invalid hotkey %q: %v", hotkeyFlag, err)
			}
		}
		if overridden["use-typing"] {
			if useTyping {
				cfg.Delivery = config.ModeType
			} else {
				cfg.Delivery = config.ModePaste
			}
		}
		if overridden["send-enter"] {
			cfg.SendEnter = sendEnter
		}
		if overridden["keep-clipboard"] {
			cfg.KeepClipboard = keepClipboard
		}
	})
}

// NewApplication builds the component graph from the configuration.
func NewApplication(guard *lock.Guard, cfg *config.Config, debugMode bool) (*Application, error) {
	audioConfig := audio.DefaultConfig()
	audioConfig.SampleRate = float64(cfg.SampleRate)
	audioConfig.Channels = cfg.Channels
	audioConfig.Debug = debugMode

	session, err := audio.NewSession(audioConfig)
	if err != nil {
		return nil, fmt.Errorf("audio initialization failed: %w", err)
	}
	if err := session.WarmUp(); err != nil {
		logger.Warning(logger.CategoryAudio, "Audio warm-up failed: %v", err)
		logger.Info(logger.CategoryAudio, "You may need to configure your audio system or check permissions")
	}

	transConfig := transcription.DefaultConfig()
	transConfig.ModelSize = transcription.ModelSize(cfg.ModelSize)
	transConfig.ModelPath = cfg.ModelPath
	transConfig.Language = cfg.Language
	transConfig.SampleRate = cfg.SampleRate
	transConfig.Debug = debugMode

	backend := transcription.NewExecutableBackend(cfg.SampleRate, debugMode)
	worker := transcription.NewWorker(backend, transConfig)

	injector := output.NewKeyInjector()
	if err := injector.WarmUp(); err != nil {
		logger.Warning(logger.CategoryOutput, "Keyboard injection warm-up failed: %v", err)
	}

	dispatcher := output.NewDispatcher(dispatcherOptions(cfg), clipboard.System{}, injector,
		output.NewHistory(cfg.HistoryLength))

	app := &Application{
		guard:       guard,
		cfg:         cfg,
		session:     session,
		worker:      worker,
		dispatcher:  dispatcher,
		isDebugMode: debugMode,
	}

	engineConfig := engine.DefaultConfig()
	engineConfig.DeviceID = cfg.InputDevice

	hkConfig := hotkeyFromConfig(cfg)
	app.tray = ui.NewTray(app.trayCallbacks(), dispatcher.History(), ui.Options{
		HotkeyHint:    hkConfig.String(),
		SendEnter:     cfg.SendEnter,
		KeepClipboard: cfg.KeepClipboard,
	})

	transcriber := app.captureTranscriber()
	app.engine = engine.New(engineConfig, session, transcriber, dispatcher, app.tray)
	app.listener = hotkey.NewListener(hkConfig)

	return app, nil
}

// Run starts the pipeline and blocks in the tray event loop until quit.
func (a *Application) Run() error {
	if err := a.engine.Start(); err != nil {
		return err
	}
	if err := a.listener.Start(a.engine.Toggle, a.engine.Cancel); err != nil {
		logger.Warning(logger.CategorySystem, "Failed to start hotkey listener: %v", err)
		a.tray.Notify("Global hotkey unavailable, use the tray menu to record", engine.NotifyError)
	}

	// A first-run model download can take minutes; it must not keep the tray
	// and the hotkeys from coming up.
	go a.ensureModel()

	installDesktopEntry()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info(logger.CategoryApp, "Received shutdown signal")
		a.tray.Quit()
	}()

	a.tray.Run()

	a.SafeCleanup()

	a.mu.Lock()
	restart := a.restart
	a.mu.Unlock()
	if restart {
		return a.respawn()
	}
	return nil
}

// ensureModel checks that the configured model file exists and downloads it
// on first run.
func (a *Application) ensureModel() {
	size := transcription.ModelSize(a.cfg.ModelSize)
	if transcription.ModelAvailable(a.cfg.ModelPath, size) {
		return
	}

	logger.Info(logger.CategoryTranscription, "Model %s not found, downloading", size)
	a.tray.Notify(fmt.Sprintf("Downloading %s speech model...", size), engine.NotifyInfo)
	if _, err := transcription.DownloadModel(a.cfg.ModelPath, size); err != nil {
		logger.Error(logger.CategoryTranscription, "Model download failed: %v", err)
		a.tray.Notify("Model download failed, transcription is unavailable", engine.NotifyError)
		return
	}
	if err := config.MarkModelDownloaded(string(size)); err != nil {
		logger.Warning(logger.CategoryApp, "Failed to record downloaded model: %v", err)
	}
	a.tray.Notify("Speech model ready", engine.NotifySuccess)
}

// installDesktopEntry writes a launcher entry and icon under the user's data
// directory on first run, so Hushkey appears in application menus. Best
// effort; an existing entry is left alone.
func installDesktopEntry() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	exe, err := os.Executable()
	if err != nil {
		return
	}

	entryPath := filepath.Join(home, ".local", "share", "applications", "hushkey.desktop")
	if _, err := os.Stat(entryPath); err == nil {
		return
	}

	iconPath := filepath.Join(home, ".local", "share", "icons", "hushkey.png")
	if err := resources.ExtractIcon(iconPath); err != nil {
		logger.Debug(logger.CategoryApp, "Desktop icon install skipped: %v", err)
	}
	if err := resources.ExtractDesktopFile(entryPath, exe); err != nil {
		logger.Debug(logger.CategoryApp, "Desktop entry install skipped: %v", err)
		return
	}
	logger.Info(logger.CategoryApp, "Installed desktop entry %s", entryPath)
}

func (a *Application) trayCallbacks() ui.Callbacks {
	return ui.Callbacks{
		OnToggle: func() { a.engine.Toggle() },
		OnSendEnter: func(enabled bool) {
			a.updateDelivery(func(cfg *config.Config) { cfg.SendEnter = enabled })
		},
		OnKeepClipboard: func(enabled bool) {
			a.updateDelivery(func(cfg *config.Config) { cfg.KeepClipboard = enabled })
		},
		OnHistoryCopy: func(text string) {
			if err := clipboard.SetText(text); err != nil {
				logger.Warning(logger.CategorySystem, "Failed to copy history entry: %v", err)
				return
			}
			a.tray.Notify("Copied to clipboard", engine.NotifySuccess)
		},
		OnRestart: func() { a.Restart() },
		OnQuit:    func() { a.tray.Quit() },
	}
}

// updateDelivery persists a settings change and applies it to the running
// dispatcher.
func (a *Application) updateDelivery(mutate func(*config.Config)) {
	cfg, err := config.Update(mutate)
	if err != nil {
		logger.Warning(logger.CategoryApp, "Failed to save settings: %v", err)
		mutate(a.cfg)
		cfg = a.cfg
	}
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	a.dispatcher.SetOptions(dispatcherOptions(cfg))
}

// Restart flushes the configuration and replaces the current process after a
// short grace period.
func (a *Application) Restart() {
	logger.Info(logger.CategoryApp, "Restart requested")
	a.mu.Lock()
	a.restart = true
	a.mu.Unlock()
	if err := config.Save(a.cfg); err != nil {
		logger.Warning(logger.CategoryApp, "Failed to flush configuration before restart: %v", err)
	}
	a.tray.Quit()
}

// respawn starts a fresh copy of the current executable. Cleanup has already
// released the instance lock.
func (a *Application) respawn() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate executable for restart: %w", err)
	}
	time.Sleep(restartGrace)

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("restart failed: %w", err)
	}
	logger.Info(logger.CategoryApp, "Replacement process started (pid %d)", cmd.Process.Pid)
	return nil
}

// SafeCleanup releases all resources exactly once.
func (a *Application) SafeCleanup() {
	a.cleanupOnce.Do(func() {
		logger.Info(logger.CategoryApp, "Shutting down")
		a.listener.Stop()
		a.engine.Close()
		if err := a.worker.Close(); err != nil {
			logger.Warning(logger.CategoryTranscription, "Transcriber shutdown: %v", err)
		}
		if err := a.session.Close(); err != nil {
			logger.Warning(logger.CategoryAudio, "Audio shutdown: %v", err)
		}
		if err := a.guard.Release(); err != nil {
			logger.Warning(logger.CategorySystem, "Failed to release instance lock: %v", err)
		}
	})
}

// captureTranscriber wraps the worker so each capture can be backed up to a
// WAV file before transcription when enabled.
func (a *Application) captureTranscriber() engine.Transcriber {
	if !a.cfg.SaveAudio {
		return a.worker
	}
	backupDir, err := config.GetAudioBackupDir()
	if err != nil {
		logger.Warning(logger.CategoryAudio, "Audio backups disabled: %v", err)
		return a.worker
	}
	return &backupTranscriber{
		worker:     a.worker,
		dir:        backupDir,
		sampleRate: a.cfg.SampleRate,
	}
}

func dispatcherOptions(cfg *config.Config) output.Options {
	opts := output.Options{
		Mode:          output.ModePaste,
		SendEnter:     cfg.SendEnter,
		TrailingSpace: cfg.TrailingSpace,
		KeepClipboard: cfg.KeepClipboard,
		PreDelay:      time.Duration(cfg.PreTypeDelay * float64(time.Second)),
		TypeDelay:     time.Duration(cfg.TypeDelay * float64(time.Second)),
	}
	if cfg.Delivery == config.ModeType {
		opts.Mode = output.ModeType
	}
	if cfg.SaveTranscript {
		if dir, err := config.GetTranscriptDir(); err == nil {
			opts.TranscriptDir = dir
		}
	}
	return opts
}

func hotkeyFromConfig(cfg *config.Config) hotkey.Config {
	var modifiers []string
	if cfg.HotkeyCtrl {
		modifiers = append(modifiers, "ctrl")
	}
	if cfg.HotkeyShift {
		modifiers = append(modifiers, "shift")
	}
	if cfg.HotkeyAlt {
		modifiers = append(modifiers, "alt")
	}
	return hotkey.Config{Modifiers: modifiers, Key: cfg.HotkeyKey}
}

func applyHotkey(cfg *config.Config, hk hotkey.Config) {
	cfg.HotkeyCtrl = false
	cfg.HotkeyShift = false
	cfg.HotkeyAlt = false
	for _, m := range hk.Modifiers {
		switch m {
		case "ctrl":
			cfg.HotkeyCtrl = true
		case "shift":
			cfg.HotkeyShift = true
		case "alt":
			cfg.HotkeyAlt = true
		}
	}
	cfg.HotkeyKey = hk.Key
}

// parseHotkey parses a combination like "ctrl+alt+space" into a hotkey
// configuration. The last part is the main key, everything before it must be
// a modifier.
func parseHotkey(s string) (hotkey.Config, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return hotkey.Config{}, fmt.Errorf("hotkey needs at least one modifier and a key")
	}
	var modifiers []string
	for _, m := range parts[:len(parts)-1] {
		switch m {
		case "ctrl", "shift", "alt":
			modifiers = append(modifiers, m)
		default:
			return hotkey.Config{}, fmt.Errorf("unknown modifier %q", m)
		}
	}
	key := parts[len(parts)-1]
	if key == "" {
		return hotkey.Config{}, fmt.Errorf("missing main key")
	}
	return hotkey.Config{Modifiers: modifiers, Key: key}, nil
}

func printDevices() error {
	session, err := audio.NewSession(audio.DefaultConfig())
	if err != nil {
		return err
	}
	defer session.Close()

	devices, err := audio.Devices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No audio input devices found")
		return nil
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s (%.0f Hz)\n", marker, d.Index, d.Name, d.SampleRate)
	}
	return nil
}
