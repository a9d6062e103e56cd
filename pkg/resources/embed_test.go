package resources

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIconDataAllStates(t *testing.T) {
	pngMagic := []byte{0x89, 'P', 'N', 'G'}

	for _, state := range []IconState{IconIdle, IconRecording, IconProcessing} {
		data, err := IconData(state)
		if err != nil {
			t.Errorf("IconData(%s) failed: %v", state, err)
			continue
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("Expected %s icon to be a PNG", state)
		}
	}

	if _, err := IconData(IconState("bogus")); err == nil {
		t.Error("Expected error for unknown icon state")
	}
}

func TestExtractIcon(t *testing.T) {
	target := filepath.Join(t.TempDir(), "icons", "hushkey.png")

	if err := ExtractIcon(target); err != nil {
		t.Fatalf("ExtractIcon failed: %v", err)
	}

	written, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Reading extracted icon failed: %v", err)
	}
	embedded, _ := IconData(IconIdle)
	if !bytes.Equal(written, embedded) {
		t.Error("Expected extracted icon to match the embedded idle icon")
	}
}

func TestExtractDesktopFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "applications", "hushkey.desktop")

	if err := ExtractDesktopFile(target, "/usr/local/bin/hushkey"); err != nil {
		t.Fatalf("ExtractDesktopFile failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Reading desktop entry failed: %v", err)
	}
	entry := string(data)
	for _, want := range []string{"[Desktop Entry]", "Exec=/usr/local/bin/hushkey", "Name=Hushkey"} {
		if !strings.Contains(entry, want) {
			t.Errorf("Expected desktop entry to contain %q", want)
		}
	}
}
