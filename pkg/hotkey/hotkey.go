// Package hotkey provides functionality for detecting global hotkeys
package hotkey

import (
	"fmt"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"github.com/hushkey/hushkey/pkg/logger"
)

// debounceWindow swallows OS key-repeat events so one physical press fires
// at most one signal
const debounceWindow = 250 * time.Millisecond

// Config describes the toggle key combination. Cancel is always Esc.
type Config struct {
	// Modifier keys (ctrl, shift, alt)
	Modifiers []string
	// Main key (e.g. "space" for Ctrl+Alt+Space)
	Key string
}

// DefaultConfig returns the default hotkey configuration (Ctrl+Alt+Space)
func DefaultConfig() Config {
	return Config{
		Modifiers: []string{"ctrl", "alt"},
		Key:       "space",
	}
}

// String renders the combination for display ("ctrl+alt+space")
func (c Config) String() string {
	parts := append(append([]string{}, c.Modifiers...), c.Key)
	return strings.Join(parts, "+")
}

// Listener watches for the toggle combination and the cancel key
// system-wide, regardless of which application has focus
type Listener struct {
	config   Config
	onToggle func()
	onCancel func()

	active     bool
	stopCh     chan struct{}
	done       chan struct{}
	lastToggle time.Time
	lastCancel time.Time
	mu         sync.Mutex
}

// The uiohook loop is process-global, not per-listener; these indirections
// exist so tests can run the listener without a display server.
var (
	hookStart = hook.Start
	hookEnd   = hook.End
)

// NewListener creates a listener with the given configuration
func NewListener(config Config) *Listener {
	return &Listener{config: config}
}

// GetConfig returns the current configuration
func (l *Listener) GetConfig() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

// Start begins listening. onToggle fires on the configured combination,
// onCancel on Esc; both are invoked from the listener goroutine and should
// only enqueue work.
func (l *Listener) Start(onToggle, onCancel func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		return fmt.Errorf("hotkey listener already running")
	}
	l.onToggle = onToggle
	l.onCancel = onCancel
	l.startLocked()

	logger.Info(logger.CategoryHotkey, "Listening for %s (cancel: esc)", l.config.String())
	return nil
}

func (l *Listener) startLocked() {
	l.active = true
	l.stopCh = make(chan struct{})
	l.done = make(chan struct{})

	stopCh := l.stopCh
	done := l.done
	cfg := l.config
	go func() {
		defer close(done)
		evChan := hookStart()
		defer hookEnd()

		for {
			select {
			case <-stopCh:
				return
			case ev := <-evChan:
				if ev.Kind != hook.KeyDown {
					continue
				}
				switch {
				case isToggleEvent(ev, cfg):
					l.fireToggle()
				case isCancelEvent(ev):
					l.fireCancel()
				}
			}
		}
	}()
}

func (l *Listener) fireToggle() {
	l.mu.Lock()
	now := time.Now()
	if now.Sub(l.lastToggle) < debounceWindow {
		l.mu.Unlock()
		return
	}
	l.lastToggle = now
	cb := l.onToggle
	l.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (l *Listener) fireCancel() {
	l.mu.Lock()
	now := time.Now()
	if now.Sub(l.lastCancel) < debounceWindow {
		l.mu.Unlock()
		return
	}
	l.lastCancel = now
	cb := l.onCancel
	l.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Reconfigure replaces the active combination. The old hook is fully
// unregistered before the new one starts: hook registration is
// process-global, and a late End from the old loop would tear down the
// replacement, leaving no hotkey active at all.
func (l *Listener) Reconfigure(config Config) {
	l.mu.Lock()
	wasActive := l.active
	var stopCh, done chan struct{}
	if wasActive {
		stopCh, done = l.stopCh, l.done
		l.active = false
	}
	l.config = config
	l.mu.Unlock()

	if !wasActive {
		return
	}

	close(stopCh)
	<-done

	l.mu.Lock()
	l.startLocked()
	l.mu.Unlock()
	logger.Info(logger.CategoryHotkey, "Hotkey changed to %s", config.String())
}

// Stop terminates the listener and waits for the hook to unregister
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.active = false
	stopCh, done := l.stopCh, l.done
	l.mu.Unlock()

	close(stopCh)
	<-done
}

// escKeychars are the key characters Esc arrives as on the supported
// platforms (ASCII ESC on most, X11 keysym on some Linux setups)
var escKeychars = map[rune]bool{27: true, 65307: true}

// isCancelEvent reports whether the event is an Esc press
func isCancelEvent(ev hook.Event) bool {
	return escKeychars[rune(ev.Keychar)]
}

// Modifier bits in hook.Event.Mask, left and right variants combined
// (libuiohook layout: shift/ctrl/meta/alt in the low nibble, right-hand
// variants shifted by four).
const (
	maskShift uint16 = 1<<0 | 1<<4
	maskCtrl  uint16 = 1<<1 | 1<<5
	maskAlt   uint16 = 1<<3 | 1<<7
)

// isToggleEvent checks whether the event matches the configured combination
func isToggleEvent(ev hook.Event, config Config) bool {
	if ev.Keychar == 0 {
		return false
	}

	if !keyMatches(rune(ev.Keychar), config.Key) {
		return false
	}

	modifierState := map[string]bool{
		"ctrl":  ev.Mask&maskCtrl != 0,
		"shift": ev.Mask&maskShift != 0,
		"alt":   ev.Mask&maskAlt != 0,
	}

	// All required modifiers must be down
	for _, mod := range config.Modifiers {
		if !modifierState[strings.ToLower(mod)] {
			return false
		}
	}

	// And no extra modifiers beyond the configured set
	for mod, pressed := range modifierState {
		if pressed && !containsIgnoreCase(config.Modifiers, mod) {
			return false
		}
	}

	return true
}

// keyMatches compares an event key character against a configured key name
func keyMatches(keychar rune, key string) bool {
	switch strings.ToLower(key) {
	case "space":
		return keychar == ' '
	case "tab":
		return keychar == '\t'
	case "enter", "return":
		return keychar == '\r' || keychar == '\n'
	default:
		return strings.EqualFold(string(keychar), key)
	}
}

// containsIgnoreCase checks if a string slice contains a string (case insensitive)
func containsIgnoreCase(arr []string, str string) bool {
	for _, s := range arr {
		if strings.EqualFold(s, str) {
			return true
		}
	}
	return false
}
