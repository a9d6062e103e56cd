// Package output delivers transcribed text into the focused application,
// either by synthesizing a paste through the clipboard or by typing the text
// key by key.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hushkey/hushkey/pkg/logger"
)

// Clipboard abstracts the system clipboard so delivery can be tested without
// touching the real one.
type Clipboard interface {
	GetText() (string, error)
	SetText(text string) error
}

// Options controls how transcripts reach the focused application.
type Options struct {
	// Mode selects paste or per-key typing
	Mode Mode
	// SendEnter presses Enter after the text is delivered
	SendEnter bool
	// TrailingSpace appends a space so consecutive dictations read naturally
	TrailingSpace bool
	// KeepClipboard leaves the transcript on the clipboard after pasting
	KeepClipboard bool
	// PreDelay gives the user time to refocus the target window
	PreDelay time.Duration
	// TypeDelay is the pause between keystrokes in typing mode
	TypeDelay time.Duration
	// TranscriptDir, when set, receives daily transcript log files
	TranscriptDir string
}

// Mode is the text delivery mechanism.
type Mode string

const (
	// ModePaste copies the text to the clipboard and synthesizes a paste
	ModePaste Mode = "paste"
	// ModeType synthesizes individual keystrokes
	ModeType Mode = "type"
)

// restoreDelay gives the target application time to read the clipboard
// before the previous contents are put back.
const restoreDelay = 50 * time.Millisecond

// Dispatcher delivers finished transcripts and records them in history.
// Options may be swapped between deliveries from another goroutine.
type Dispatcher struct {
	mu       sync.Mutex
	opts     Options
	clip     Clipboard
	injector Injector
	history  *History
}

// NewDispatcher creates a dispatcher with the given delivery options.
func NewDispatcher(opts Options, clip Clipboard, injector Injector, history *History) *Dispatcher {
	return &Dispatcher{
		opts:     opts,
		clip:     clip,
		injector: injector,
		history:  history,
	}
}

// SetOptions replaces the delivery options.
func (d *Dispatcher) SetOptions(opts Options) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts = opts
}

// Options returns the current delivery options.
func (d *Dispatcher) Options() Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// History returns the dispatcher's transcript history.
func (d *Dispatcher) History() *History {
	return d.history
}

// Deliver sends text to the focused application. On success the transcript is
// appended to history; on failure nothing is recorded and the error is
// returned.
func (d *Dispatcher) Deliver(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	opts := d.Options()
	payload := formatPayload(text, opts)

	if opts.PreDelay > 0 {
		time.Sleep(opts.PreDelay)
	}

	var err error
	switch opts.Mode {
	case ModeType:
		err = d.deliverTyped(payload, opts)
	default:
		err = d.deliverPasted(payload, opts)
	}
	if err != nil {
		return err
	}

	if opts.SendEnter {
		if err := d.injector.PressEnter(); err != nil {
			logger.Warning(logger.CategoryOutput, "Failed to press Enter after delivery: %v", err)
		}
	}

	d.history.Append(text)
	d.logTranscript(text, opts.TranscriptDir)
	return nil
}

// formatPayload applies trailing space and newline handling to the raw
// transcript.
func formatPayload(text string, opts Options) string {
	if !opts.SendEnter {
		// Keep the payload single-line so a stray newline cannot submit
		// a form in the target application.
		text = strings.Join(strings.Fields(text), " ")
	}
	if opts.TrailingSpace {
		text += " "
	}
	return text
}

func (d *Dispatcher) deliverPasted(payload string, opts Options) error {
	previous, prevErr := d.clip.GetText()
	if prevErr != nil {
		logger.Debug(logger.CategoryOutput, "Could not read clipboard before paste: %v", prevErr)
	}

	if err := d.clip.SetText(payload); err != nil {
		return fmt.Errorf("failed to copy transcript to clipboard: %w", err)
	}

	if err := d.injector.Paste(); err != nil {
		return fmt.Errorf("failed to synthesize paste: %w", err)
	}

	if !opts.KeepClipboard && prevErr == nil {
		time.Sleep(restoreDelay)
		if err := d.clip.SetText(previous); err != nil {
			logger.Warning(logger.CategoryOutput, "Failed to restore clipboard: %v", err)
		}
	}
	return nil
}

func (d *Dispatcher) deliverTyped(payload string, opts Options) error {
	if err := d.injector.Type(payload, opts.TypeDelay); err != nil {
		return fmt.Errorf("failed to type transcript: %w", err)
	}
	return nil
}

// logTranscript appends the transcript to a per-day log file when a
// transcript directory is configured.
func (d *Dispatcher) logTranscript(text, dir string) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warning(logger.CategoryOutput, "Failed to create transcript directory: %v", err)
		return
	}
	now := time.Now()
	path := filepath.Join(dir, now.Format("2006-01-02")+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warning(logger.CategoryOutput, "Failed to open transcript log: %v", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "[%s] %s\n", now.Format("15:04:05"), text)
}
