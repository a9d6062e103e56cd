package transcription

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hushkey/hushkey/pkg/logger"
)

const (
	// whisperBaseURL is the base URL for ggml Whisper models
	whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-"
)

// modelFilenames maps model size to the ggml model filename
var modelFilenames = map[ModelSize]string{
	ModelTiny:   "tiny.en.bin",
	ModelBase:   "base.en.bin",
	ModelSmall:  "small.en.bin",
	ModelMedium: "medium.en.bin",
	ModelLarge:  "large-v3.bin",
}

// ModelFilePath returns the on-disk path for a model size
func ModelFilePath(modelPath string, size ModelSize) (string, error) {
	name, ok := modelFilenames[size]
	if !ok {
		return "", fmt.Errorf("unknown model size: %s", size)
	}
	return filepath.Join(modelPath, name), nil
}

// ModelAvailable reports whether the model file is already on disk
func ModelAvailable(modelPath string, size ModelSize) bool {
	file, err := ModelFilePath(modelPath, size)
	if err != nil {
		return false
	}
	_, err = os.Stat(file)
	return err == nil
}

// DownloadModel downloads a Whisper model if it doesn't exist and returns
// the model file path
func DownloadModel(modelPath string, size ModelSize) (string, error) {
	modelFile, err := ModelFilePath(modelPath, size)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(modelFile); err == nil {
		logger.Info(logger.CategoryTranscription, "Using existing model file: %s", modelFile)
		return modelFile, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("error checking model file: %w", err)
	}

	logger.Info(logger.CategoryTranscription, "Model file %s not found. Downloading...", modelFile)

	if err := os.MkdirAll(modelPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	if err := downloadModelFile(modelFile, filepath.Base(modelFile)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelDownloadFailed, err)
	}

	logger.Info(logger.CategoryTranscription, "Model downloaded successfully: %s", modelFile)
	return modelFile, nil
}

// downloadModelFile downloads a Whisper model file from HuggingFace
func downloadModelFile(outputPath, modelFilename string) error {
	url := whisperBaseURL + modelFilename

	resp, err := http.Head(url)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %s", resp.Status)
	}

	if resp.ContentLength > 0 {
		logger.Info(logger.CategoryTranscription, "Downloading model (%d MB). This may take a while...",
			resp.ContentLength/(1024*1024))
	} else {
		logger.Info(logger.CategoryTranscription, "Downloading model. Size unknown. This may take a while...")
	}

	resp, err = http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Write to a partial file first so an interrupted download never looks
	// like a usable model
	partialPath := outputPath + ".partial"
	out, err := os.Create(partialPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(partialPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partialPath)
		return err
	}

	return os.Rename(partialPath, outputPath)
}
