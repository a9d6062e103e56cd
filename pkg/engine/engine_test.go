package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hushkey/hushkey/pkg/transcription"
)

type fakeRecorder struct {
	mu       sync.Mutex
	active   bool
	starts   int
	aborts   int
	samples  []float32
	startErr error
	stopErr  error
}

func (r *fakeRecorder) Start(deviceID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.active = true
	r.starts++
	return nil
}

func (r *fakeRecorder) Stop() ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	return r.samples, nil
}

func (r *fakeRecorder) Abort() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.aborts++
	return nil
}

func (r *fakeRecorder) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *fakeRecorder) abortCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborts
}

// fakeTranscriber blocks until release is closed, so tests can hold the
// engine in the processing state.
type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	release chan struct{}
}

func newFakeTranscriber(text string) *fakeTranscriber {
	return &fakeTranscriber{text: text, release: make(chan struct{})}
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	<-t.release
	return t.text, t.err
}

func (t *fakeTranscriber) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (d *fakeDeliverer) Deliver(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, text)
	return nil
}

func (d *fakeDeliverer) texts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.delivered...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	states   []State
	messages []string
	kinds    []NotifyKind
}

func (n *fakeNotifier) StateChanged(s State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, s)
}

func (n *fakeNotifier) Notify(message string, kind NotifyKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	n.kinds = append(n.kinds, kind)
}

func (n *fakeNotifier) lastMessage() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

func (n *fakeNotifier) hasMessage(msg string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if m == msg {
			return true
		}
	}
	return false
}

type testEngine struct {
	engine      *Engine
	recorder    *fakeRecorder
	transcriber *fakeTranscriber
	deliverer   *fakeDeliverer
	notifier    *fakeNotifier
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = 0.1
	}
	te := &testEngine{
		recorder:    &fakeRecorder{samples: samples},
		transcriber: newFakeTranscriber("hello world"),
		deliverer:   &fakeDeliverer{},
		notifier:    &fakeNotifier{},
	}
	cfg := DefaultConfig()
	cfg.MinDuration = 0
	te.engine = New(cfg, te.recorder, te.transcriber, te.deliverer, te.notifier)
	if err := te.engine.Start(); err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	t.Cleanup(te.engine.Close)
	return te
}

func waitForState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Engine did not reach state %v, stuck at %v", want, e.State())
}

func TestToggleRoundTrip(t *testing.T) {
	te := newTestEngine(t)

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)

	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)

	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)

	if got := te.deliverer.texts(); len(got) != 1 || got[0] != "hello world" {
		t.Errorf("Expected one delivery of %q, got %v", "hello world", got)
	}
}

func TestCancelWhileRecording(t *testing.T) {
	te := newTestEngine(t)

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)

	te.engine.Cancel()
	waitForState(t, te.engine, StateIdle)

	if te.recorder.abortCount() != 1 {
		t.Errorf("Expected 1 abort, got %d", te.recorder.abortCount())
	}
	if te.transcriber.callCount() != 0 {
		t.Error("Cancelled recording must not be transcribed")
	}
}

func TestCancelWhileProcessingDiscardsResult(t *testing.T) {
	te := newTestEngine(t)

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)
	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)

	te.engine.Cancel()
	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)

	if got := te.deliverer.texts(); len(got) != 0 {
		t.Errorf("Cancelled transcription must not be delivered, got %v", got)
	}
}

func TestToggleIgnoredWhileProcessing(t *testing.T) {
	te := newTestEngine(t)

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)
	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)

	te.engine.Toggle()
	time.Sleep(20 * time.Millisecond)
	if te.recorder.startCount() != 1 {
		t.Errorf("Toggle while processing must not start a recording, got %d starts", te.recorder.startCount())
	}

	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)
}

func TestRecordingTooShort(t *testing.T) {
	te := newTestEngine(t)
	te.engine.Reconfigure(func(c *Config) { c.MinDuration = time.Hour })

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)
	te.engine.Toggle()
	waitForState(t, te.engine, StateIdle)

	if te.transcriber.callCount() != 0 {
		t.Error("Too-short recording must not be transcribed")
	}
	if te.notifier.lastMessage() != "Recording too short" {
		t.Errorf("Unexpected notification %q", te.notifier.lastMessage())
	}
}

func TestTranscriptionErrorReturnsToIdle(t *testing.T) {
	te := newTestEngine(t)
	te.transcriber.err = transcription.ErrTranscriptionFailed

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)
	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)

	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)

	if got := te.deliverer.texts(); len(got) != 0 {
		t.Errorf("Failed transcription must not be delivered, got %v", got)
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	te := newTestEngine(t)
	te.recorder.startErr = errors.New("device unavailable")

	te.engine.Toggle()
	time.Sleep(20 * time.Millisecond)
	if te.engine.State() != StateIdle {
		t.Errorf("Engine should stay idle when capture fails, got %v", te.engine.State())
	}
}

func TestReconfigureDeferredUntilIdle(t *testing.T) {
	te := newTestEngine(t)

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)

	applied := make(chan int, 1)
	te.engine.Reconfigure(func(c *Config) {
		c.DeviceID = 3
		applied <- c.DeviceID
	})
	select {
	case <-applied:
		t.Fatal("Settings change applied while recording")
	case <-time.After(20 * time.Millisecond):
	}

	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)
	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)

	select {
	case id := <-applied:
		if id != 3 {
			t.Errorf("Expected device 3, got %d", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Deferred settings change never applied")
	}
}

func TestEmptyTranscriptNotDelivered(t *testing.T) {
	te := newTestEngine(t)
	te.transcriber.text = ""

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)
	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)
	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)

	if got := te.deliverer.texts(); len(got) != 0 {
		t.Errorf("Empty transcript must not be delivered, got %v", got)
	}
	if te.notifier.lastMessage() != "No speech detected" {
		t.Errorf("Unexpected notification %q", te.notifier.lastMessage())
	}
}

func TestCloseAbortsActiveRecording(t *testing.T) {
	te := newTestEngine(t)

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)

	te.engine.Close()
	if te.recorder.abortCount() != 1 {
		t.Errorf("Expected recording aborted on close, got %d aborts", te.recorder.abortCount())
	}
}

func TestSilentCaptureAdvisory(t *testing.T) {
	te := newTestEngine(t)
	te.recorder.samples = make([]float32, 16000) // silence

	te.engine.Toggle()
	waitForState(t, te.engine, StateRecording)
	te.engine.Toggle()
	waitForState(t, te.engine, StateProcessing)
	close(te.transcriber.release)
	waitForState(t, te.engine, StateIdle)

	if !te.notifier.hasMessage("No audio detected - check your microphone") {
		t.Error("Expected a quality advisory for a silent capture")
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateRecording.String() != "recording" || StateProcessing.String() != "processing" {
		t.Error("Unexpected state names")
	}
}
