package transcription

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hushkey/hushkey/pkg/audio"
	"github.com/hushkey/hushkey/pkg/logger"
)

// whisperExecutableNames are the binary names probed on PATH, in order of
// preference. whisper-cli is the current whisper.cpp CLI; the older names
// are kept for distributions that still ship them.
var whisperExecutableNames = []string{"whisper-cli", "whisper-cpp", "whisper"}

// ExecutableBackend runs transcription through a whisper.cpp command-line
// executable over a temporary WAV file
type ExecutableBackend struct {
	// ExecutablePath overrides PATH lookup when set
	ExecutablePath string
	// SampleRate of the buffers passed to Run
	SampleRate int
	// Debug enables command logging
	Debug bool
}

// NewExecutableBackend creates a backend with the given sample rate
func NewExecutableBackend(sampleRate int, debug bool) *ExecutableBackend {
	return &ExecutableBackend{SampleRate: sampleRate, Debug: debug}
}

// Load locates the executable and the model file and verifies the requested
// device is usable. Loading for DeviceCUDA fails when no NVIDIA runtime is
// visible, which sends the worker down the CPU path.
func (b *ExecutableBackend) Load(size ModelSize, modelPath string, device Device) (ModelHandle, error) {
	execPath, err := b.findExecutable()
	if err != nil {
		return nil, err
	}

	modelFile, err := ModelFilePath(modelPath, size)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelFile); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelFile)
	}

	if device == DeviceCUDA {
		if _, err := exec.LookPath("nvidia-smi"); err != nil {
			return nil, fmt.Errorf("%w: no NVIDIA runtime detected", ErrBackendUnavailable)
		}
	}

	return &execHandle{
		backend:   b,
		execPath:  execPath,
		modelFile: modelFile,
		device:    device,
	}, nil
}

func (b *ExecutableBackend) findExecutable() (string, error) {
	if b.ExecutablePath != "" {
		if _, err := os.Stat(b.ExecutablePath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrBackendUnavailable, b.ExecutablePath)
		}
		return b.ExecutablePath, nil
	}

	for _, name := range whisperExecutableNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no whisper executable on PATH", ErrBackendUnavailable)
}

// execHandle is a loaded model bound to an executable and device
type execHandle struct {
	backend   *ExecutableBackend
	execPath  string
	modelFile string
	device    Device
}

// Device reports the compute device the handle runs on
func (h *execHandle) Device() Device {
	return h.device
}

// Run writes the samples to a temporary WAV file and invokes the executable
func (h *execHandle) Run(samples []float32, language string) (string, error) {
	wavPath, err := audio.TempWAV(samples, h.backend.SampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to stage audio for transcription: %w", err)
	}
	defer os.Remove(wavPath)

	args := []string{
		"-m", h.modelFile,
		"-f", wavPath,
		"-nt", // no timestamps
		"-np", // no progress prints
	}
	if h.device == DeviceCPU {
		args = append(args, "-ng") // disable GPU offload
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	if h.backend.Debug {
		logger.Debug(logger.CategoryTranscription, "Executing: %s %v", h.execPath, args)
	}

	cmd := exec.Command(h.execPath, args...)
	// Keep whisper.cpp thread usage bounded so the desktop stays responsive
	cmd.Env = append(os.Environ(), "OMP_NUM_THREADS=4")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("whisper executable failed: %s", msg)
	}

	return collectOutput(stdout.String()), nil
}

// Close is a no-op for the executable backend; each Run is a fresh process
func (h *execHandle) Close() error {
	return nil
}

// collectOutput joins transcript lines, dropping special tokens like
// [BLANK_AUDIO] that are not actual speech
func collectOutput(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
