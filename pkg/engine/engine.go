// Package engine coordinates the capture, transcription and delivery
// pipeline behind a single hotkey toggle. All state transitions happen on one
// goroutine so hotkey presses, worker completions and reconfiguration can
// never race.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hushkey/hushkey/pkg/audio"
	"github.com/hushkey/hushkey/pkg/logger"
	"github.com/hushkey/hushkey/pkg/transcription"
)

// State is the externally observable engine state.
type State int

const (
	// StateIdle means no capture or transcription is in flight
	StateIdle State = iota
	// StateRecording means microphone capture is active
	StateRecording
	// StateProcessing means a transcription is running or being delivered
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start(deviceID int) error
	Stop() ([]float32, error)
	Abort() error
}

// Transcriber converts captured samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Deliverer sends finished text to the focused application.
type Deliverer interface {
	Deliver(text string) error
}

// NotifyKind classifies a user-facing message.
type NotifyKind int

const (
	NotifyInfo NotifyKind = iota
	NotifySuccess
	NotifyError
)

// Notifier receives state changes and user-facing messages. Implementations
// must not call back into the engine from these methods.
type Notifier interface {
	StateChanged(s State)
	Notify(message string, kind NotifyKind)
}

// Config holds the engine's runtime settings.
type Config struct {
	// DeviceID selects the capture device, -1 for the system default
	DeviceID int
	// MinDuration is the shortest recording worth transcribing
	MinDuration time.Duration
}

// DefaultConfig returns engine defaults.
func DefaultConfig() Config {
	return Config{
		DeviceID:    -1,
		MinDuration: 500 * time.Millisecond,
	}
}

type signalKind int

const (
	toggleSignal signalKind = iota
	cancelSignal
	doneSignal
	reconfigSignal
)

type signal struct {
	kind  signalKind
	gen   uint64
	text  string
	err   error
	apply func(*Config)
}

// Engine is the recording state machine. Create with New, start with Start,
// drive with Toggle and Cancel.
type Engine struct {
	config      Config
	recorder    Recorder
	transcriber Transcriber
	deliverer   Deliverer
	notifier    Notifier

	signals chan signal
	stopCh  chan struct{}
	done    chan struct{}

	// run-loop state, written only by run()
	gen           uint64
	pendingConfig []func(*Config)
	startedAt     time.Time

	mu      sync.Mutex
	state   State
	started bool
	stopped bool
}

// New creates an engine wired to the given pipeline components.
func New(config Config, recorder Recorder, transcriber Transcriber, deliverer Deliverer, notifier Notifier) *Engine {
	return &Engine{
		config:      config,
		recorder:    recorder,
		transcriber: transcriber,
		deliverer:   deliverer,
		notifier:    notifier,
		signals:     make(chan signal, 16),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		state:       StateIdle,
	}
}

// Start launches the engine's run loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("engine already started")
	}
	e.started = true
	go e.run()
	return nil
}

// State returns the current observable state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Toggle starts a recording when idle and finishes one when recording.
// Pressed while processing it is ignored.
func (e *Engine) Toggle() {
	e.post(signal{kind: toggleSignal})
}

// Cancel aborts the current recording, or marks an in-flight transcription
// so its result is discarded instead of delivered.
func (e *Engine) Cancel() {
	e.post(signal{kind: cancelSignal})
}

// Reconfigure applies a settings change. When the engine is busy the change
// is deferred until it returns to idle; changes apply in the order posted.
func (e *Engine) Reconfigure(apply func(*Config)) {
	e.post(signal{kind: reconfigSignal, apply: apply})
}

// Close stops the run loop, aborting any active recording. In-flight
// transcription results are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.stopCh)
	<-e.done
}

func (e *Engine) post(sig signal) {
	select {
	case e.signals <- sig:
	case <-e.stopCh:
	default:
		logger.Warning(logger.CategoryEngine, "Signal queue full, dropping %v", sig.kind)
	}
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.stopCh:
			if e.State() == StateRecording {
				if err := e.recorder.Abort(); err != nil {
					logger.Warning(logger.CategoryEngine, "Failed to abort recording on shutdown: %v", err)
				}
			}
			e.setState(StateIdle)
			return
		case sig := <-e.signals:
			switch sig.kind {
			case toggleSignal:
				e.handleToggle()
			case cancelSignal:
				e.handleCancel()
			case doneSignal:
				e.handleDone(sig)
			case reconfigSignal:
				e.handleReconfig(sig.apply)
			}
		}
	}
}

func (e *Engine) handleToggle() {
	switch e.State() {
	case StateIdle:
		e.startRecording()
	case StateRecording:
		e.finishRecording()
	case StateProcessing:
		logger.Debug(logger.CategoryEngine, "Toggle ignored while processing")
	}
}

func (e *Engine) startRecording() {
	if err := e.recorder.Start(e.config.DeviceID); err != nil {
		logger.Error(logger.CategoryEngine, "Failed to start recording: %v", err)
		e.notifier.Notify(fmt.Sprintf("Could not start recording: %v", err), NotifyError)
		return
	}
	e.startedAt = time.Now()
	e.setState(StateRecording)
	logger.Info(logger.CategoryEngine, "Recording started")
}

func (e *Engine) finishRecording() {
	samples, err := e.recorder.Stop()
	duration := time.Since(e.startedAt)
	if err != nil {
		logger.Error(logger.CategoryEngine, "Failed to stop recording: %v", err)
		e.notifier.Notify(fmt.Sprintf("Recording failed: %v", err), NotifyError)
		e.returnToIdle()
		return
	}
	if duration < e.config.MinDuration {
		logger.Info(logger.CategoryEngine, "Recording too short (%v), discarding", duration.Round(time.Millisecond))
		e.notifier.Notify("Recording too short", NotifyInfo)
		e.returnToIdle()
		return
	}

	stats := audio.Analyze(samples)
	if advisory := audio.QualityAdvisory(stats); advisory != "" {
		logger.Warning(logger.CategoryEngine, "Capture quality: %s (peak %.4f, rms %.4f)",
			advisory, stats.Peak, stats.RMS)
		e.notifier.Notify(advisory, NotifyInfo)
	}

	e.gen++
	gen := e.gen
	e.setState(StateProcessing)
	logger.Info(logger.CategoryEngine, "Recording stopped after %v, transcribing %d samples",
		duration.Round(time.Millisecond), len(samples))

	go func() {
		text, err := e.transcriber.Transcribe(context.Background(), samples)
		select {
		case e.signals <- signal{kind: doneSignal, gen: gen, text: text, err: err}:
		case <-e.stopCh:
		}
	}()
}

func (e *Engine) handleCancel() {
	switch e.State() {
	case StateRecording:
		if err := e.recorder.Abort(); err != nil {
			logger.Warning(logger.CategoryEngine, "Failed to abort recording: %v", err)
		}
		logger.Info(logger.CategoryEngine, "Recording cancelled")
		e.notifier.Notify("Recording cancelled", NotifyInfo)
		e.returnToIdle()
	case StateProcessing:
		// Invalidate the in-flight session so the worker result arrives
		// stale and is discarded at the delivery sync point.
		e.gen++
		logger.Info(logger.CategoryEngine, "Cancel requested, transcription result will be discarded")
		e.notifier.Notify("Transcription discarded", NotifyInfo)
		e.returnToIdle()
	case StateIdle:
		logger.Debug(logger.CategoryEngine, "Cancel ignored while idle")
	}
}

func (e *Engine) handleDone(sig signal) {
	if sig.gen != e.gen {
		logger.Debug(logger.CategoryEngine, "Discarding stale transcription result (generation %d)", sig.gen)
		return
	}
	if sig.err != nil {
		e.reportTranscriptionError(sig.err)
		e.returnToIdle()
		return
	}
	if sig.text == "" {
		logger.Info(logger.CategoryEngine, "Transcription produced no text")
		e.notifier.Notify("No speech detected", NotifyInfo)
		e.returnToIdle()
		return
	}

	if err := e.deliverer.Deliver(sig.text); err != nil {
		logger.Error(logger.CategoryEngine, "Failed to deliver transcript: %v", err)
		e.notifier.Notify(fmt.Sprintf("Could not deliver text: %v", err), NotifyError)
	} else {
		logger.Info(logger.CategoryEngine, "Delivered transcript (%d chars)", len(sig.text))
		e.notifier.Notify(previewText(sig.text), NotifySuccess)
	}
	e.returnToIdle()
}

func (e *Engine) reportTranscriptionError(err error) {
	switch {
	case errors.Is(err, transcription.ErrTooShort):
		e.notifier.Notify("Recording too short", NotifyInfo)
	case errors.Is(err, transcription.ErrModelNotFound):
		logger.Error(logger.CategoryEngine, "Transcription failed: %v", err)
		e.notifier.Notify("Speech model is not ready yet - try again shortly", NotifyError)
	default:
		logger.Error(logger.CategoryEngine, "Transcription failed: %v", err)
		e.notifier.Notify(fmt.Sprintf("Transcription failed: %v", err), NotifyError)
	}
}

// previewText shortens a transcript for the delivery notification.
func previewText(text string) string {
	runes := []rune(text)
	if len(runes) > 60 {
		return string(runes[:59]) + "…"
	}
	return text
}

func (e *Engine) handleReconfig(apply func(*Config)) {
	if apply == nil {
		return
	}
	if e.State() != StateIdle {
		logger.Debug(logger.CategoryEngine, "Deferring settings change until idle")
		e.pendingConfig = append(e.pendingConfig, apply)
		return
	}
	apply(&e.config)
	logger.Info(logger.CategoryEngine, "Settings updated")
}

// returnToIdle applies any settings changes that arrived while busy, then
// moves to idle.
func (e *Engine) returnToIdle() {
	for _, apply := range e.pendingConfig {
		apply(&e.config)
	}
	if len(e.pendingConfig) > 0 {
		logger.Info(logger.CategoryEngine, "Applied %d deferred settings change(s)", len(e.pendingConfig))
		e.pendingConfig = nil
	}
	e.setState(StateIdle)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	changed := e.state != s
	e.state = s
	e.mu.Unlock()
	if changed {
		e.notifier.StateChanged(s)
	}
}
