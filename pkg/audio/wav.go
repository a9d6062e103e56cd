package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/hushkey/hushkey/pkg/logger"
)

// SaveWAV writes samples as a 16-bit mono PCM WAV file
func SaveWAV(samples []float32, sampleRate int, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, sample := range samples {
		// Clamp float32 [-1.0, 1.0] to int16 range
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}
		buf.Data[i] = int(sample * 32767.0)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	return nil
}

// TempWAV writes samples to a temporary WAV file and returns its path.
// The caller removes the file when done.
func TempWAV(samples []float32, sampleRate int) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("hushkey-%d.wav", time.Now().UnixNano()))
	if err := SaveWAV(samples, sampleRate, path); err != nil {
		return "", err
	}
	return path, nil
}

// BackupWAV saves a timestamped copy of a capture into the given directory
func BackupWAV(samples []float32, sampleRate int, backupDir string) (string, error) {
	name := time.Now().Format("20060102-150405") + ".wav"
	path := filepath.Join(backupDir, name)
	if err := SaveWAV(samples, sampleRate, path); err != nil {
		return "", err
	}
	logger.Debug(logger.CategoryAudio, "Saved audio backup: %s", path)
	return path, nil
}

// LoadWAV reads a mono WAV file back into float32 samples. Used by tests and
// by the device-check CLI path.
func LoadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV file: %w", err)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / 32767.0
	}
	return samples, buf.Format.SampleRate, nil
}
