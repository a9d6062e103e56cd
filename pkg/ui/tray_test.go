package ui

import (
	"strings"
	"testing"

	"github.com/hushkey/hushkey/pkg/engine"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 48, "short"},
		{strings.Repeat("a", 48), 48, strings.Repeat("a", 48)},
		{strings.Repeat("a", 60), 48, strings.Repeat("a", 47) + "…"},
		{"", 48, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTooltipMentionsHotkey(t *testing.T) {
	tray := NewTray(Callbacks{}, nil, Options{HotkeyHint: "ctrl+alt+space"})

	for _, s := range []engine.State{engine.StateIdle, engine.StateRecording} {
		if !strings.Contains(tray.tooltip(s), "ctrl+alt+space") {
			t.Errorf("Tooltip for %v should include the hotkey, got %q", s, tray.tooltip(s))
		}
	}
	if tray.tooltip(engine.StateProcessing) == "" {
		t.Error("Processing tooltip is empty")
	}
}

func TestStateChangedBeforeReadyIsRecorded(t *testing.T) {
	tray := NewTray(Callbacks{}, nil, Options{HotkeyHint: "ctrl+alt+space"})

	// Must not touch the systray before onReady has run
	tray.StateChanged(engine.StateRecording)

	tray.mu.Lock()
	defer tray.mu.Unlock()
	if tray.state != engine.StateRecording {
		t.Errorf("Expected recorded state, got %v", tray.state)
	}
}
