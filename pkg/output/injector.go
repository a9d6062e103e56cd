package output

import (
	"fmt"
	"runtime"
	"time"
	"unicode"

	"github.com/micmonay/keybd_event"

	"github.com/hushkey/hushkey/pkg/logger"
)

// Injector abstracts the OS keystroke-synthesis primitives so the dispatcher
// can be tested without a display server
type Injector interface {
	// WarmUp forces initialization of the key-injection subsystem; the
	// first synthetic keystroke on a cold subsystem is dropped on some
	// platforms
	WarmUp() error
	// Paste sends the platform paste chord (Ctrl+V)
	Paste() error
	// PressEnter sends a single Enter keystroke
	PressEnter() error
	// Type sends text character by character with the given inter-key delay
	Type(text string, delay time.Duration) error
}

// KeyInjector synthesizes keystrokes through the OS input layer
type KeyInjector struct {
	kb    keybd_event.KeyBonding
	ready bool
}

// NewKeyInjector creates an uninitialized injector; call WarmUp before use
func NewKeyInjector() *KeyInjector {
	return &KeyInjector{}
}

// WarmUp creates the key binding once at startup, off the user-visible path.
// On Linux the uinput device needs a settling delay before the first
// synthetic event is reliable.
func (k *KeyInjector) WarmUp() error {
	if k.ready {
		return nil
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("failed to initialize key injection: %w", err)
	}

	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}

	k.kb = kb
	k.ready = true
	logger.Debug(logger.CategoryOutput, "Key injection ready")
	return nil
}

func (k *KeyInjector) ensure() error {
	if !k.ready {
		return k.WarmUp()
	}
	return nil
}

// Paste sends Ctrl+V
func (k *KeyInjector) Paste() error {
	if err := k.ensure(); err != nil {
		return err
	}

	k.kb.Clear()
	k.kb.HasCTRL(true)
	k.kb.SetKeys(keybd_event.VK_V)
	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("paste keystroke failed: %w", err)
	}
	return nil
}

// PressEnter sends a single Enter keystroke
func (k *KeyInjector) PressEnter() error {
	if err := k.ensure(); err != nil {
		return err
	}

	k.kb.Clear()
	k.kb.SetKeys(keybd_event.VK_ENTER)
	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("enter keystroke failed: %w", err)
	}
	return nil
}

// Type sends text one character at a time. Characters outside the synthetic
// keymap are skipped with a warning; paste mode covers arbitrary text.
func (k *KeyInjector) Type(text string, delay time.Duration) error {
	if err := k.ensure(); err != nil {
		return err
	}

	for _, r := range text {
		code, shift, ok := keyFor(r)
		if !ok {
			logger.Warning(logger.CategoryOutput, "No synthetic keystroke for %q, skipping", r)
			continue
		}

		k.kb.Clear()
		k.kb.HasSHIFT(shift)
		k.kb.SetKeys(code)
		if err := k.kb.Launching(); err != nil {
			return fmt.Errorf("typing keystroke failed at %q: %w", r, err)
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

// letterKeys maps lowercase letters to virtual key codes
var letterKeys = map[rune]int{
	'a': keybd_event.VK_A, 'b': keybd_event.VK_B, 'c': keybd_event.VK_C,
	'd': keybd_event.VK_D, 'e': keybd_event.VK_E, 'f': keybd_event.VK_F,
	'g': keybd_event.VK_G, 'h': keybd_event.VK_H, 'i': keybd_event.VK_I,
	'j': keybd_event.VK_J, 'k': keybd_event.VK_K, 'l': keybd_event.VK_L,
	'm': keybd_event.VK_M, 'n': keybd_event.VK_N, 'o': keybd_event.VK_O,
	'p': keybd_event.VK_P, 'q': keybd_event.VK_Q, 'r': keybd_event.VK_R,
	's': keybd_event.VK_S, 't': keybd_event.VK_T, 'u': keybd_event.VK_U,
	'v': keybd_event.VK_V, 'w': keybd_event.VK_W, 'x': keybd_event.VK_X,
	'y': keybd_event.VK_Y, 'z': keybd_event.VK_Z,
}

// digitKeys maps digits to virtual key codes
var digitKeys = map[rune]int{
	'0': keybd_event.VK_0, '1': keybd_event.VK_1, '2': keybd_event.VK_2,
	'3': keybd_event.VK_3, '4': keybd_event.VK_4, '5': keybd_event.VK_5,
	'6': keybd_event.VK_6, '7': keybd_event.VK_7, '8': keybd_event.VK_8,
	'9': keybd_event.VK_9,
}

// shiftedDigits maps shifted digit-row symbols to the digit key to press
var shiftedDigits = map[rune]int{
	'!': keybd_event.VK_1,
	'@': keybd_event.VK_2,
	'#': keybd_event.VK_3,
	'$': keybd_event.VK_4,
	'%': keybd_event.VK_5,
	'^': keybd_event.VK_6,
	'&': keybd_event.VK_7,
	'*': keybd_event.VK_8,
	'(': keybd_event.VK_9,
	')': keybd_event.VK_0,
}

// keyFor resolves a rune to a virtual key code and shift state (US layout).
// punctKeys and shiftedPunct are platform-specific (keymap_*.go) because the
// underlying virtual key names differ per OS.
func keyFor(r rune) (code int, shift bool, ok bool) {
	if unicode.IsUpper(r) {
		code, ok = letterKeys[unicode.ToLower(r)]
		return code, true, ok
	}
	if code, ok = letterKeys[r]; ok {
		return code, false, true
	}
	if code, ok = digitKeys[r]; ok {
		return code, false, true
	}
	if code, ok = shiftedDigits[r]; ok {
		return code, true, true
	}
	switch r {
	case ' ':
		return keybd_event.VK_SPACE, false, true
	case '\n':
		return keybd_event.VK_ENTER, false, true
	case '\t':
		return keybd_event.VK_TAB, false, true
	}
	if code, ok = punctKeys[r]; ok {
		return code, false, true
	}
	if code, ok = shiftedPunct[r]; ok {
		return code, true, true
	}
	return 0, false, false
}
