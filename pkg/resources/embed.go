// Package resources handles embedded resources for the application
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"embed"
)

//go:embed icons
var embeddedFiles embed.FS

// IconState names one of the embedded tray icons.
type IconState string

const (
	IconIdle       IconState = "idle"
	IconRecording  IconState = "recording"
	IconProcessing IconState = "processing"
)

// IconData returns the raw PNG bytes for a tray icon state.
func IconData(state IconState) ([]byte, error) {
	data, err := embeddedFiles.ReadFile("icons/" + string(state) + ".png")
	if err != nil {
		return nil, fmt.Errorf("no embedded icon for state %q: %w", state, err)
	}
	return data, nil
}

// ExtractIcon writes the idle icon to the given path, for desktop entries.
func ExtractIcon(targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}
	data, err := IconData(IconIdle)
	if err != nil {
		return err
	}
	return os.WriteFile(targetPath, data, 0644)
}

// ExtractDesktopFile writes a freedesktop entry pointing at execPath.
func ExtractDesktopFile(targetPath, execPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}
	entry := strings.Join([]string{
		"[Desktop Entry]",
		"Type=Application",
		"Name=Hushkey",
		"Comment=Hotkey voice dictation",
		"Exec=" + execPath,
		"Icon=hushkey",
		"Terminal=false",
		"Categories=Utility;Audio;",
	}, "\n") + "\n"
	return os.WriteFile(targetPath, []byte(entry), 0644)
}
