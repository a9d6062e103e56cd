package main

import (
	"context"

	"github.com/hushkey/hushkey/pkg/audio"
	"github.com/hushkey/hushkey/pkg/logger"
	"github.com/hushkey/hushkey/pkg/transcription"
)

// backupTranscriber saves each capture as a timestamped WAV file before
// handing it to the worker. Backup failures are logged, not fatal.
type backupTranscriber struct {
	worker     *transcription.Worker
	dir        string
	sampleRate int
}

func (b *backupTranscriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if path, err := audio.BackupWAV(samples, b.sampleRate, b.dir); err != nil {
		logger.Warning(logger.CategoryAudio, "Failed to back up capture: %v", err)
	} else {
		logger.Debug(logger.CategoryAudio, "Capture backed up to %s", path)
	}
	return b.worker.Transcribe(ctx, samples)
}
