// Package audio provides functionality for capturing audio input
package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/hushkey/hushkey/pkg/logger"
)

// ErrDeviceUnavailable indicates the input device could not be opened or
// disappeared mid-capture (busy, removed, permission denied)
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// ErrAlreadyActive indicates Start was called while a capture is running
var ErrAlreadyActive = errors.New("capture session already active")

// ErrNotActive indicates Stop was called with no capture running
var ErrNotActive = errors.New("no capture session active")

// Config holds audio capture settings
type Config struct {
	// Sample rate in Hz (16000 is what the Whisper models expect)
	SampleRate float64
	// Number of channels (1 for mono)
	Channels int
	// Buffer size in frames per callback
	FramesPerBuffer int
	// Debug mode for verbose logging
	Debug bool
}

// DefaultConfig returns a reasonable default configuration for speech capture
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		Channels:        1,
		FramesPerBuffer: 1024,
		Debug:           false,
	}
}

// Session owns one audio input stream. While active it appends captured
// samples to an internal growable buffer; Stop finalizes the buffer and
// transfers ownership to the caller. Recording has no implicit duration
// limit.
type Session struct {
	config Config

	stream    *portaudio.Stream
	frames    []float32
	active    bool
	startedAt time.Time

	mu          sync.Mutex
	initialized bool
}

// NewSession creates a capture session and initializes the audio subsystem
func NewSession(config Config) (*Session, error) {
	s := &Session{config: config}

	if err := portaudio.Initialize(); err != nil {
		if strings.Contains(err.Error(), "ALSA") {
			logger.Warning(logger.CategoryAudio, "ALSA error during init; check audio configuration ('aplay -l', ~/.asoundrc)")
		}
		return nil, fmt.Errorf("%w: failed to initialize audio subsystem: %v", ErrDeviceUnavailable, err)
	}
	s.initialized = true

	if config.Debug {
		logger.Info(logger.CategoryAudio, "Audio subsystem initialized: %s", portaudio.VersionText())
	}

	return s, nil
}

// WarmUp probes the audio subsystem without opening a stream. The first real
// call on a cold subsystem is unreliable on some platforms, so this runs once
// during startup, off the user-visible path.
func (s *Session) WarmUp() error {
	hostAPI, err := portaudio.DefaultHostApi()
	if err != nil {
		return fmt.Errorf("%w: audio host API probe failed: %v", ErrDeviceUnavailable, err)
	}
	if hostAPI.DefaultInputDevice == nil {
		return fmt.Errorf("%w: no default input device", ErrDeviceUnavailable)
	}
	if s.config.Debug {
		logger.Info(logger.CategoryAudio, "Warm-up probe: host API %s, default input %s",
			hostAPI.Name, hostAPI.DefaultInputDevice.Name)
	}
	return nil
}

// Start opens the input stream and begins buffering samples.
// deviceID -1 selects the system default input device.
func (s *Session) Start(deviceID int) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.frames = s.frames[:0]
	s.mu.Unlock()

	// Opening and starting a stream can block on device I/O, so the lock is
	// not held across the portaudio calls
	stream, err := s.openStream(deviceID)
	if err != nil {
		return fmt.Errorf("%w: failed to open audio stream: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: failed to start audio stream: %v", ErrDeviceUnavailable, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.active = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	logger.Debug(logger.CategoryAudio, "Capture started (device %d)", deviceID)
	return nil
}

func (s *Session) openStream(deviceID int) (*portaudio.Stream, error) {
	if deviceID < 0 {
		return portaudio.OpenDefaultStream(
			s.config.Channels,
			0, // no output channels
			s.config.SampleRate,
			s.config.FramesPerBuffer,
			s.processAudio,
		)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID >= len(devices) {
		return nil, fmt.Errorf("input device index %d out of range", deviceID)
	}
	dev := devices[deviceID]
	if dev.MaxInputChannels < s.config.Channels {
		return nil, fmt.Errorf("device %q has no usable input channels", dev.Name)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = s.config.Channels
	params.SampleRate = s.config.SampleRate
	params.FramesPerBuffer = s.config.FramesPerBuffer
	return portaudio.OpenStream(params, s.processAudio)
}

// Stop finalizes the capture and returns the finite sample buffer. Ownership
// of the buffer transfers to the caller; the session holds no audio data
// afterward.
func (s *Session) Stop() ([]float32, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	s.active = false
	stream := s.stream
	s.stream = nil
	buffer := s.frames
	s.frames = nil
	s.mu.Unlock()

	var stopErr error
	if stream != nil {
		if err := stream.Stop(); err != nil {
			stopErr = fmt.Errorf("%w: failed to stop audio stream: %v", ErrDeviceUnavailable, err)
		}
		if err := stream.Close(); err != nil && stopErr == nil {
			stopErr = fmt.Errorf("%w: failed to close audio stream: %v", ErrDeviceUnavailable, err)
		}
	}

	logger.Debug(logger.CategoryAudio, "Capture stopped: %d samples (%.2fs, RMS %.4f)",
		len(buffer), float64(len(buffer))/s.config.SampleRate, CalculateRMSLevel(buffer))

	// The buffer captured so far is returned even on stream teardown errors
	return buffer, stopErr
}

// Abort stops the capture and discards any buffered samples
func (s *Session) Abort() error {
	_, err := s.Stop()
	if errors.Is(err, ErrNotActive) {
		return nil
	}
	return err
}

// IsActive reports whether a capture is in progress
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// StartedAt returns the time the current capture began
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Close releases the audio subsystem. The session is unusable afterward.
func (s *Session) Close() error {
	if err := s.Abort(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		s.initialized = false
		return portaudio.Terminate()
	}
	return nil
}

// Audio processing callback for portaudio
func (s *Session) processAudio(in []float32) {
	if len(in) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	// Drop corrupt samples rather than feeding NaN/Inf to the backend
	for _, sample := range in {
		if math.IsNaN(float64(sample)) || math.IsInf(float64(sample), 0) {
			if s.config.Debug {
				logger.Warning(logger.CategoryAudio, "Discarding buffer with corrupt samples")
			}
			return
		}
	}

	s.frames = append(s.frames, in...)
}
