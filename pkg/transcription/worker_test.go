package transcription

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeBackend records Load calls and can fail per device
type fakeBackend struct {
	failCUDA  bool
	failCPU   bool
	loads     []Device
	runResult string
	runErr    error
	runDelay  time.Duration
	closed    int
}

func (b *fakeBackend) Load(size ModelSize, modelPath string, device Device) (ModelHandle, error) {
	b.loads = append(b.loads, device)
	if device == DeviceCUDA && b.failCUDA {
		return nil, errors.New("CUDA init failed")
	}
	if device == DeviceCPU && b.failCPU {
		return nil, errors.New("CPU init failed")
	}
	return &fakeHandle{backend: b, device: device}, nil
}

type fakeHandle struct {
	backend *fakeBackend
	device  Device
}

func (h *fakeHandle) Run(samples []float32, language string) (string, error) {
	if h.backend.runDelay > 0 {
		time.Sleep(h.backend.runDelay)
	}
	return h.backend.runResult, h.backend.runErr
}

func (h *fakeHandle) Device() Device { return h.device }

func (h *fakeHandle) Close() error {
	h.backend.closed++
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinSamples = 4
	cfg.Timeout = time.Second
	return cfg
}

func TestTranscribeTooShort(t *testing.T) {
	backend := &fakeBackend{runResult: "hello"}
	w := NewWorker(backend, testConfig())

	_, err := w.Transcribe(context.Background(), []float32{0.1, 0.2})
	if !errors.Is(err, ErrTooShort) {
		t.Errorf("Expected ErrTooShort, got %v", err)
	}
	if len(backend.loads) != 0 {
		t.Error("Backend must not be invoked for degenerate input")
	}
}

func TestTranscribeSuccess(t *testing.T) {
	backend := &fakeBackend{runResult: "  hello   world "}
	w := NewWorker(backend, testConfig())

	text, err := w.Transcribe(context.Background(), make([]float32, 100))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Expected normalized 'hello world', got '%s'", text)
	}
}

func TestGPUFallbackToCPU(t *testing.T) {
	backend := &fakeBackend{failCUDA: true, runResult: "ok"}
	w := NewWorker(backend, testConfig())

	text, err := w.Transcribe(context.Background(), make([]float32, 100))
	if err != nil {
		t.Fatalf("Expected transparent CPU fallback, got error: %v", err)
	}
	if text != "ok" {
		t.Errorf("Expected 'ok', got '%s'", text)
	}
	if len(backend.loads) != 2 || backend.loads[0] != DeviceCUDA || backend.loads[1] != DeviceCPU {
		t.Errorf("Expected CUDA then CPU load attempts, got %v", backend.loads)
	}
}

func TestExplicitCPUSkipsGPU(t *testing.T) {
	backend := &fakeBackend{runResult: "ok"}
	cfg := testConfig()
	cfg.Device = DeviceCPU
	w := NewWorker(backend, cfg)

	if _, err := w.Transcribe(context.Background(), make([]float32, 100)); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(backend.loads) != 1 || backend.loads[0] != DeviceCPU {
		t.Errorf("Expected a single CPU load, got %v", backend.loads)
	}
}

func TestHandleReusedAcrossCalls(t *testing.T) {
	backend := &fakeBackend{runResult: "ok"}
	w := NewWorker(backend, testConfig())

	for i := 0; i < 3; i++ {
		if _, err := w.Transcribe(context.Background(), make([]float32, 100)); err != nil {
			t.Fatalf("Transcribe %d failed: %v", i, err)
		}
	}
	if len(backend.loads) != 1 {
		t.Errorf("Expected the model to load once, got %d loads", len(backend.loads))
	}
}

func TestTranscribeTimeout(t *testing.T) {
	backend := &fakeBackend{runResult: "late", runDelay: 200 * time.Millisecond}
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	w := NewWorker(backend, cfg)

	_, err := w.Transcribe(context.Background(), make([]float32, 100))
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("Expected ErrTranscriptionFailed on timeout, got %v", err)
	}
}

func TestTranscribeBackendError(t *testing.T) {
	backend := &fakeBackend{runErr: errors.New("decode exploded")}
	w := NewWorker(backend, testConfig())

	_, err := w.Transcribe(context.Background(), make([]float32, 100))
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("Expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestReconfigureReleasesHandle(t *testing.T) {
	backend := &fakeBackend{runResult: "ok"}
	w := NewWorker(backend, testConfig())

	if _, err := w.Transcribe(context.Background(), make([]float32, 100)); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	cfg := testConfig()
	cfg.ModelSize = ModelMedium
	if err := w.Reconfigure(cfg); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}
	if backend.closed != 1 {
		t.Errorf("Expected old handle closed on reconfigure, got %d closes", backend.closed)
	}

	// Next call loads the new model
	if _, err := w.Transcribe(context.Background(), make([]float32, 100)); err != nil {
		t.Fatalf("Transcribe after reconfigure failed: %v", err)
	}
	if len(backend.loads) != 2 {
		t.Errorf("Expected a fresh load after reconfigure, got %v", backend.loads)
	}
	if w.Config().ModelSize != ModelMedium {
		t.Errorf("Expected ModelMedium after reconfigure, got %s", w.Config().ModelSize)
	}
}

func TestCloseReleasesHandle(t *testing.T) {
	backend := &fakeBackend{runResult: "ok"}
	w := NewWorker(backend, testConfig())

	if _, err := w.Transcribe(context.Background(), make([]float32, 100)); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if backend.closed != 1 {
		t.Errorf("Expected handle closed, got %d closes", backend.closed)
	}
	// Second close is a no-op
	if err := w.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestCollectOutputFiltersSpecialTokens(t *testing.T) {
	raw := "[BLANK_AUDIO]\n hello world \n\n[_SILENCE_]\nhow are you\n"
	if got := collectOutput(raw); got != "hello world how are you" {
		t.Errorf("Unexpected collected output: '%s'", got)
	}
}
