// Command transcribe-file runs the transcription pipeline over a WAV file.
// Useful for checking the whisper installation and comparing model sizes
// without involving the microphone.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hushkey/hushkey/config"
	"github.com/hushkey/hushkey/pkg/audio"
	"github.com/hushkey/hushkey/pkg/logger"
	"github.com/hushkey/hushkey/pkg/transcription"
)

func main() {
	modelSize := flag.String("model", "small", "Model size (tiny, base, small, medium, large)")
	modelPath := flag.String("model-path", "", "Model directory (default: ~/.hushkey/models)")
	language := flag.String("language", "en", "Transcription language")
	device := flag.String("device", "auto", "Compute device (auto, cuda, cpu)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Initialize()
	if *debug {
		logger.SetLevel(logger.LevelDebug)
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.wav>\n", os.Args[0])
		os.Exit(2)
	}
	wavPath := flag.Arg(0)

	samples, sampleRate, err := audio.LoadWAV(wavPath)
	if err != nil {
		logger.Error(logger.CategoryAudio, "Failed to load %s: %v", wavPath, err)
		os.Exit(1)
	}
	logger.Info(logger.CategoryAudio, "Loaded %d samples at %d Hz", len(samples), sampleRate)

	cfg := transcription.DefaultConfig()
	cfg.ModelSize = transcription.ModelSize(*modelSize)
	cfg.Language = *language
	cfg.Device = transcription.Device(*device)
	cfg.SampleRate = sampleRate
	cfg.Debug = *debug
	cfg.ModelPath = *modelPath
	if cfg.ModelPath == "" {
		dir, err := config.GetModelDir()
		if err != nil {
			logger.Error(logger.CategoryApp, "Cannot resolve model directory: %v", err)
			os.Exit(1)
		}
		cfg.ModelPath = dir
	}

	worker := transcription.NewWorker(transcription.NewExecutableBackend(sampleRate, *debug), cfg)
	defer worker.Close()

	text, err := worker.Transcribe(context.Background(), samples)
	if err != nil {
		logger.Error(logger.CategoryTranscription, "Transcription failed: %v", err)
		os.Exit(1)
	}
	fmt.Println(text)
}
