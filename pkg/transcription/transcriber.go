package transcription

import "time"

// ModelSize selects which Whisper model to load
type ModelSize string

const (
	ModelTiny   ModelSize = "tiny"
	ModelBase   ModelSize = "base"
	ModelSmall  ModelSize = "small"
	ModelMedium ModelSize = "medium"
	ModelLarge  ModelSize = "large"
)

// Device selects the compute device for the backend
type Device string

const (
	// DeviceAuto tries GPU first and falls back to CPU
	DeviceAuto Device = "auto"
	// DeviceCUDA requests GPU-accelerated execution
	DeviceCUDA Device = "cuda"
	// DeviceCPU forces CPU execution
	DeviceCPU Device = "cpu"
)

// Config holds configuration for the transcription worker
type Config struct {
	// Model size to use
	ModelSize ModelSize
	// Directory holding model files
	ModelPath string
	// Language code (empty auto-detects)
	Language string
	// Compute device policy
	Device Device
	// SampleRate of the capture buffers handed to Transcribe
	SampleRate int
	// MinSamples below which Transcribe short-circuits with ErrTooShort
	MinSamples int
	// Timeout for a single transcription run (0 disables)
	Timeout time.Duration
	// Debug enables verbose logging
	Debug bool
}

// DefaultConfig returns the default configuration for transcription
func DefaultConfig() Config {
	return Config{
		ModelSize:  ModelSmall,
		Language:   "en",
		Device:     DeviceAuto,
		SampleRate: 16000,
		MinSamples: 8000, // half a second at 16kHz
		Timeout:    120 * time.Second,
	}
}

// Backend is the opaque transcription collaborator: it maps a finite audio
// buffer to text. Implementations load a model once and reuse it.
type Backend interface {
	// Load prepares a model on the given device
	Load(size ModelSize, modelPath string, device Device) (ModelHandle, error)
}

// ModelHandle is a loaded model. It is held by exactly one owner at a time;
// Close releases it deterministically on shutdown or reconfiguration.
type ModelHandle interface {
	// Run transcribes a finite 16kHz mono sample buffer
	Run(samples []float32, language string) (string, error)
	// Device reports which compute device the handle ended up on
	Device() Device
	// Close frees the model resources
	Close() error
}
