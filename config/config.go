package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DeliveryMode selects how transcribed text reaches the focused application
type DeliveryMode string

const (
	// ModePaste writes to the clipboard and simulates a paste keystroke
	ModePaste DeliveryMode = "paste"
	// ModeType simulates character-by-character typing (for targets that
	// reject simulated paste, e.g. some terminal emulators)
	ModeType DeliveryMode = "type"
)

// Config holds the application configuration
type Config struct {
	// Hotkey configuration
	HotkeyCtrl  bool   `json:"hotkey_ctrl"`
	HotkeyShift bool   `json:"hotkey_shift"`
	HotkeyAlt   bool   `json:"hotkey_alt"`
	HotkeyKey   string `json:"hotkey_key"`

	// Audio configuration
	SampleRate  int `json:"sample_rate"`
	InputDevice int `json:"input_device"` // -1 = system default
	Channels    int `json:"channels"`

	// Transcription configuration
	ModelSize        string   `json:"model_size"`
	Language         string   `json:"language"`
	ModelPath        string   `json:"model_path"`
	DownloadedModels []string `json:"downloaded_models"`

	// Output configuration
	Delivery      DeliveryMode `json:"delivery"`
	SendEnter     bool         `json:"send_enter"`
	TrailingSpace bool         `json:"trailing_space"`
	KeepClipboard bool         `json:"keep_clipboard"`
	PreTypeDelay  float64      `json:"pre_type_delay"` // seconds before injection
	TypeDelay     float64      `json:"type_delay"`     // seconds between keystrokes

	// History and logging
	HistoryLength  int  `json:"history_length"`
	SaveTranscript bool `json:"save_transcript"`
	SaveAudio      bool `json:"save_audio"` // keep WAV backups of each capture
}

// mu serializes Update cycles across in-process writers
var mu sync.Mutex

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	modelDir := "./models/" // Fallback if home dir is unavailable
	if dir, err := GetModelDir(); err == nil {
		modelDir = dir
	}

	return &Config{
		// Default hotkey: Ctrl+Alt+Space
		HotkeyCtrl:  true,
		HotkeyShift: false,
		HotkeyAlt:   true,
		HotkeyKey:   "space",

		SampleRate:  16000, // 16kHz is what the Whisper models expect
		InputDevice: -1,
		Channels:    1,

		ModelSize:        "small",
		Language:         "en",
		ModelPath:        modelDir,
		DownloadedModels: nil,

		Delivery:      ModePaste,
		SendEnter:     true,
		TrailingSpace: true,
		KeepClipboard: false,
		PreTypeDelay:  0.2,
		TypeDelay:     0,

		HistoryLength:  5,
		SaveTranscript: true,
		SaveAudio:      false,
	}
}

// GetAppDir returns the path to the .hushkey directory
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, ".hushkey")

	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .hushkey directory: %w", err)
	}

	return appDir, nil
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, "config.json"), nil
}

// GetModelDir returns the path to the model directory
func GetModelDir() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}

	modelDir := filepath.Join(appDir, "models")
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	return modelDir, nil
}

// GetAudioBackupDir returns the path to the audio backup directory
func GetAudioBackupDir() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}

	backupDir := filepath.Join(appDir, "audio_backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio backup directory: %w", err)
	}

	return backupDir, nil
}

// GetTranscriptDir returns the path to the transcription log directory
func GetTranscriptDir() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}

	logDir := filepath.Join(appDir, "transcripts")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create transcript directory: %w", err)
	}

	return logDir, nil
}

// Load reads the configuration from disk, creating the default file if absent
func Load() (*Config, error) {
	configPath, err := GetConfigFilePath()
	if err != nil {
		return nil, err
	}
	return loadFrom(configPath)
}

func loadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := saveTo(configPath, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal over defaults so keys missing from older files keep
	// their default values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg *Config) error {
	configPath, err := GetConfigFilePath()
	if err != nil {
		return err
	}
	return saveTo(configPath, cfg)
}

func saveTo(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Update re-reads the file, applies mutate, and writes the result back.
// Always use this for write-modify-write cycles: writing a stale in-memory
// snapshot clobbers concurrent updates from other in-process writers
// (e.g. model-download bookkeeping).
func Update(mutate func(*Config)) (*Config, error) {
	configPath, err := GetConfigFilePath()
	if err != nil {
		return nil, err
	}
	return updateAt(configPath, mutate)
}

func updateAt(configPath string, mutate func(*Config)) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	cfg, err := loadFrom(configPath)
	if err != nil {
		return nil, err
	}

	mutate(cfg)

	if err := saveTo(configPath, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MarkModelDownloaded records a model size in the downloaded-models list
func MarkModelDownloaded(size string) error {
	_, err := Update(func(c *Config) {
		for _, s := range c.DownloadedModels {
			if s == size {
				return
			}
		}
		c.DownloadedModels = append(c.DownloadedModels, size)
	})
	return err
}
