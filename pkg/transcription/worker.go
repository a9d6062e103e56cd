package transcription

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hushkey/hushkey/pkg/logger"
)

// Worker consumes finite audio buffers off the coordinator's control path
// and invokes the transcription backend. The model handle is acquired lazily
// on first use and held until Close or Reconfigure.
type Worker struct {
	backend Backend
	config  Config

	handle ModelHandle
	mu     sync.Mutex
}

// NewWorker creates a worker over the given backend
func NewWorker(backend Backend, config Config) *Worker {
	return &Worker{backend: backend, config: config}
}

// Transcribe converts a finite sample buffer to text. Buffers shorter than
// the minimum duration short-circuit with ErrTooShort without touching the
// backend. The call is long-running (seconds) and must not be made from the
// coordinator's goroutine.
func (w *Worker) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) < w.config.MinSamples {
		return "", ErrTooShort
	}

	handle, err := w.ensureHandle()
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	language := w.config.Language
	timeout := w.config.Timeout
	w.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	// The backend call is not interruptible; on timeout or cancellation it
	// runs to completion and the result is discarded
	go func() {
		text, err := handle.Run(samples, language)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, res.err)
		}
		return normalizeText(res.text), nil
	}
}

// ensureHandle loads the model on first use. With DeviceAuto (or DeviceCUDA)
// the accelerated path is attempted first; any initialization failure falls
// back to CPU transparently. GPU support being absent entirely is the common
// case, not an error.
func (w *Worker) ensureHandle() (ModelHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.handle != nil {
		return w.handle, nil
	}

	cfg := w.config
	if cfg.Device == DeviceCPU {
		handle, err := w.backend.Load(cfg.ModelSize, cfg.ModelPath, DeviceCPU)
		if err != nil {
			return nil, err
		}
		w.handle = handle
		return handle, nil
	}

	handle, err := w.backend.Load(cfg.ModelSize, cfg.ModelPath, DeviceCUDA)
	if err != nil {
		logger.Info(logger.CategoryTranscription, "Accelerated backend unavailable (%v), using CPU", err)
		handle, err = w.backend.Load(cfg.ModelSize, cfg.ModelPath, DeviceCPU)
		if err != nil {
			return nil, err
		}
	}

	logger.Info(logger.CategoryTranscription, "Model %s loaded on %s", cfg.ModelSize, handle.Device())
	w.handle = handle
	return handle, nil
}

// Reconfigure swaps the worker configuration and releases the current model
// handle; the next Transcribe loads the new model. The coordinator only
// calls this while no transcription is in flight.
func (w *Worker) Reconfigure(config Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.handle != nil {
		err = w.handle.Close()
		w.handle = nil
	}
	w.config = config
	return err
}

// Config returns the active configuration
func (w *Worker) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

// Close releases the model handle
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.handle == nil {
		return nil
	}
	err := w.handle.Close()
	w.handle = nil
	return err
}

// normalizeText cleans up backend output: surrounding whitespace is
// trimmed and internal runs of whitespace collapse to single spaces
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
