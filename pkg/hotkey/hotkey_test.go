package hotkey

import (
	"sync"
	"testing"
	"time"

	hook "github.com/robotn/gohook"
)

// fakeHook swaps the process-global hook functions for the duration of a
// test and records the order they are called in.
func fakeHook(t *testing.T) (calls *[]string, mu *sync.Mutex, evChan chan hook.Event) {
	t.Helper()
	origStart, origEnd := hookStart, hookEnd
	t.Cleanup(func() { hookStart, hookEnd = origStart, origEnd })

	calls = &[]string{}
	mu = &sync.Mutex{}
	evChan = make(chan hook.Event, 1)
	hookStart = func() chan hook.Event {
		mu.Lock()
		*calls = append(*calls, "start")
		mu.Unlock()
		return evChan
	}
	hookEnd = func() {
		mu.Lock()
		*calls = append(*calls, "end")
		mu.Unlock()
	}
	return calls, mu, evChan
}

// event builds a key-down event with the given character and modifier state
func event(keychar rune, ctrl, shift, alt bool) hook.Event {
	var mask uint16
	if ctrl {
		mask |= maskCtrl
	}
	if shift {
		mask |= maskShift
	}
	if alt {
		mask |= maskAlt
	}
	return hook.Event{Kind: hook.KeyDown, Keychar: keychar, Mask: mask}
}

func TestIsToggleEvent(t *testing.T) {
	cfg := Config{Modifiers: []string{"ctrl", "alt"}, Key: "space"}

	testCases := []struct {
		name    string
		ev      hook.Event
		matches bool
	}{
		{"Exact combination", event(' ', true, false, true), true},
		{"Missing ctrl", event(' ', false, false, true), false},
		{"Missing alt", event(' ', true, false, false), false},
		{"Extra shift held", event(' ', true, true, true), false},
		{"Wrong key", event('x', true, false, true), false},
		{"No keychar", event(0, true, false, true), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isToggleEvent(tc.ev, cfg); got != tc.matches {
				t.Errorf("Expected %v, got %v", tc.matches, got)
			}
		})
	}
}

func TestIsToggleEventLetterKey(t *testing.T) {
	cfg := Config{Modifiers: []string{"ctrl", "shift"}, Key: "s"}

	if !isToggleEvent(event('s', true, true, false), cfg) {
		t.Error("Expected lowercase letter to match")
	}
	if !isToggleEvent(event('S', true, true, false), cfg) {
		t.Error("Expected uppercase letter to match (case insensitive)")
	}
	if isToggleEvent(event('s', true, false, false), cfg) {
		t.Error("Expected missing shift modifier to reject")
	}
}

func TestIsCancelEvent(t *testing.T) {
	if !isCancelEvent(hook.Event{Kind: hook.KeyDown, Keychar: 27}) {
		t.Error("Expected ASCII ESC to be recognized")
	}
	if !isCancelEvent(hook.Event{Kind: hook.KeyDown, Keychar: 65307}) {
		t.Error("Expected X11 Escape keysym to be recognized")
	}
	if isCancelEvent(hook.Event{Kind: hook.KeyDown, Keychar: ' '}) {
		t.Error("Expected space not to be recognized as cancel")
	}
}

func TestConfigString(t *testing.T) {
	cfg := Config{Modifiers: []string{"ctrl", "alt"}, Key: "space"}
	if cfg.String() != "ctrl+alt+space" {
		t.Errorf("Expected 'ctrl+alt+space', got '%s'", cfg.String())
	}
}

func TestFireToggleDebounce(t *testing.T) {
	count := 0
	l := NewListener(DefaultConfig())
	l.onToggle = func() { count++ }

	// Rapid repeats within the debounce window fire once
	l.fireToggle()
	l.fireToggle()
	l.fireToggle()
	if count != 1 {
		t.Errorf("Expected 1 toggle within debounce window, got %d", count)
	}

	// A press after the window fires again
	l.mu.Lock()
	l.lastToggle = time.Now().Add(-2 * debounceWindow)
	l.mu.Unlock()
	l.fireToggle()
	if count != 2 {
		t.Errorf("Expected 2 toggles after debounce window, got %d", count)
	}
}

func TestReconfigureEndsOldHookBeforeStartingNew(t *testing.T) {
	calls, mu, _ := fakeHook(t)

	l := NewListener(DefaultConfig())
	if err := l.Start(func() {}, func() {}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	l.Reconfigure(Config{Modifiers: []string{"ctrl"}, Key: "r"})
	l.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start", "end", "start", "end"}
	if len(*calls) != len(want) {
		t.Fatalf("Expected call sequence %v, got %v", want, *calls)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Fatalf("Expected call sequence %v, got %v", want, *calls)
		}
	}
}

func TestListenerFiresToggleFromHookEvents(t *testing.T) {
	_, _, evChan := fakeHook(t)

	toggled := make(chan struct{}, 1)
	l := NewListener(DefaultConfig())
	if err := l.Start(func() { toggled <- struct{}{} }, func() {}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer l.Stop()

	evChan <- event(' ', true, false, true)
	select {
	case <-toggled:
	case <-time.After(time.Second):
		t.Fatal("Expected toggle callback after matching key event")
	}
}

func TestReconfigureWhileStopped(t *testing.T) {
	l := NewListener(DefaultConfig())

	next := Config{Modifiers: []string{"ctrl", "shift"}, Key: "d"}
	l.Reconfigure(next)

	got := l.GetConfig()
	if got.Key != "d" || len(got.Modifiers) != 2 {
		t.Errorf("Expected reconfigured combination, got %+v", got)
	}
	if l.active {
		t.Error("Expected listener to remain stopped after reconfigure")
	}
}
