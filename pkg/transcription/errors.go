// Package transcription provides speech-to-text functionality
package transcription

import (
	"errors"
)

// Common error types for the transcription package
var (
	// ErrTooShort indicates the capture was below the minimum duration and
	// the backend was never invoked
	ErrTooShort = errors.New("recording too short to transcribe")

	// ErrModelNotFound indicates the model file is not present locally
	ErrModelNotFound = errors.New("transcription model not found")

	// ErrModelDownloadFailed indicates that downloading the model failed
	ErrModelDownloadFailed = errors.New("failed to download transcription model")

	// ErrBackendUnavailable indicates no usable transcription backend
	// (executable or library) could be located
	ErrBackendUnavailable = errors.New("transcription backend unavailable")

	// ErrTranscriptionFailed indicates the transcription run failed or
	// exceeded the configured timeout
	ErrTranscriptionFailed = errors.New("transcription failed")
)
