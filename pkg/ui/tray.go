// Package ui provides the system tray surface: a state icon, a small menu
// and desktop notifications.
package ui

import (
	"sync"

	"fyne.io/systray"

	"github.com/hushkey/hushkey/pkg/engine"
	"github.com/hushkey/hushkey/pkg/logger"
	"github.com/hushkey/hushkey/pkg/output"
	"github.com/hushkey/hushkey/pkg/resources"
)

// historySlots is the number of recent transcripts shown in the menu.
const historySlots = 5

// HistorySource supplies recent transcripts for the history submenu.
type HistorySource interface {
	Entries() []output.HistoryEntry
}

// Callbacks are invoked from the tray's menu handler goroutine.
type Callbacks struct {
	OnToggle        func()
	OnSendEnter     func(enabled bool)
	OnKeepClipboard func(enabled bool)
	OnHistoryCopy   func(text string)
	OnRestart       func()
	OnQuit          func()
}

// Tray owns the system tray icon and menu. It implements engine.Notifier.
type Tray struct {
	callbacks  Callbacks
	history    HistorySource
	hotkeyHint string

	initialSendEnter bool
	initialKeepClip  bool

	mu      sync.Mutex
	ready   bool
	state   engine.State
	running bool

	historyClickCh chan int

	// menu items are kept as fields so they are not garbage collected
	mToggle      *systray.MenuItem
	mHistory     *systray.MenuItem
	historyItems []*systray.MenuItem
	historyTexts []string
	mSendEnter   *systray.MenuItem
	mKeepClip    *systray.MenuItem
	mRestart     *systray.MenuItem
	mQuit        *systray.MenuItem
}

// Options configures the tray at startup.
type Options struct {
	HotkeyHint    string
	SendEnter     bool
	KeepClipboard bool
}

// NewTray creates the tray surface. Call Run from the main goroutine.
func NewTray(callbacks Callbacks, history HistorySource, opts Options) *Tray {
	return &Tray{
		callbacks:        callbacks,
		history:          history,
		hotkeyHint:       opts.HotkeyHint,
		initialSendEnter: opts.SendEnter,
		initialKeepClip:  opts.KeepClipboard,
		state:            engine.StateIdle,
		historyClickCh:   make(chan int, 4),
	}
}

// Run blocks running the tray event loop until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and unblocks Run.
func (t *Tray) Quit() {
	t.mu.Lock()
	running := t.running
	t.running = false
	t.mu.Unlock()
	if running {
		systray.Quit()
	}
}

// StateChanged updates the tray icon and menu to match the engine state.
func (t *Tray) StateChanged(s engine.State) {
	t.mu.Lock()
	t.state = s
	if !t.ready {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.applyState(s)
	if s == engine.StateIdle {
		t.refreshHistory()
	}
}

// Notify surfaces a message to the user as a desktop notification and
// mirrors it in the tray tooltip, falling back to the log when notifications
// are unavailable.
func (t *Tray) Notify(message string, kind engine.NotifyKind) {
	if kind == engine.NotifyError {
		logger.Error(logger.CategorySystem, "%s", message)
	} else {
		logger.Info(logger.CategorySystem, "%s", message)
	}

	t.mu.Lock()
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.SetTooltip("Hushkey - " + message)
	}

	if err := sendNotification("Hushkey", message, urgencyFor(kind)); err != nil {
		logger.Debug(logger.CategorySystem, "Desktop notification failed: %v", err)
	}
}

// freedesktop notification urgency levels
const (
	urgencyLow      byte = 0
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

func urgencyFor(kind engine.NotifyKind) byte {
	switch kind {
	case engine.NotifyError:
		return urgencyCritical
	case engine.NotifySuccess:
		return urgencyLow
	default:
		return urgencyNormal
	}
}

func (t *Tray) onReady() {
	t.setIcon(engine.StateIdle)
	systray.SetTitle("Hushkey")
	systray.SetTooltip(t.tooltip(engine.StateIdle))

	t.mToggle = systray.AddMenuItem("Start Recording", "Toggle recording ("+t.hotkeyHint+")")
	systray.AddSeparator()

	t.mHistory = systray.AddMenuItem("History", "Recent transcripts, click to copy")
	for i := 0; i < historySlots; i++ {
		item := t.mHistory.AddSubMenuItem("", "Copy to clipboard")
		item.Hide()
		t.historyItems = append(t.historyItems, item)
		go t.forwardHistoryClicks(i, item)
	}

	systray.AddSeparator()
	t.mSendEnter = systray.AddMenuItemCheckbox("Press Enter after text", "Submit after delivery", t.initialSendEnter)
	t.mKeepClip = systray.AddMenuItemCheckbox("Keep text on clipboard", "Skip clipboard restore", t.initialKeepClip)
	systray.AddSeparator()
	t.mRestart = systray.AddMenuItem("Restart", "Restart Hushkey")
	t.mQuit = systray.AddMenuItem("Quit", "Quit Hushkey")

	t.mu.Lock()
	t.ready = true
	t.running = true
	pending := t.state
	t.mu.Unlock()

	t.applyState(pending)
	t.refreshHistory()

	go t.handleClicks()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

func (t *Tray) handleClicks() {
	for {
		select {
		case <-t.mToggle.ClickedCh:
			t.invoke(t.callbacks.OnToggle)
		case <-t.mSendEnter.ClickedCh:
			t.toggleCheckbox(t.mSendEnter, t.callbacks.OnSendEnter)
		case <-t.mKeepClip.ClickedCh:
			t.toggleCheckbox(t.mKeepClip, t.callbacks.OnKeepClipboard)
		case <-t.mRestart.ClickedCh:
			t.invoke(t.callbacks.OnRestart)
		case <-t.mQuit.ClickedCh:
			t.invoke(t.callbacks.OnQuit)
			return
		case i := <-t.historyClickCh:
			t.copyHistoryEntry(i)
		}
	}
}

func (t *Tray) forwardHistoryClicks(index int, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.historyClickCh <- index
	}
}

func (t *Tray) invoke(fn func()) {
	if fn != nil {
		fn()
	}
}

func (t *Tray) toggleCheckbox(item *systray.MenuItem, fn func(bool)) {
	if item.Checked() {
		item.Uncheck()
	} else {
		item.Check()
	}
	if fn != nil {
		fn(item.Checked())
	}
}

func (t *Tray) copyHistoryEntry(i int) {
	t.mu.Lock()
	var text string
	if i >= 0 && i < len(t.historyTexts) {
		text = t.historyTexts[i]
	}
	t.mu.Unlock()
	if text != "" && t.callbacks.OnHistoryCopy != nil {
		t.callbacks.OnHistoryCopy(text)
	}
}

func (t *Tray) applyState(s engine.State) {
	t.setIcon(s)
	systray.SetTooltip(t.tooltip(s))
	if t.mToggle == nil {
		return
	}
	switch s {
	case engine.StateRecording:
		t.mToggle.SetTitle("Stop Recording")
		t.mToggle.Enable()
	case engine.StateProcessing:
		t.mToggle.SetTitle("Transcribing...")
		t.mToggle.Disable()
	default:
		t.mToggle.SetTitle("Start Recording")
		t.mToggle.Enable()
	}
}

func (t *Tray) setIcon(s engine.State) {
	iconState := resources.IconIdle
	switch s {
	case engine.StateRecording:
		iconState = resources.IconRecording
	case engine.StateProcessing:
		iconState = resources.IconProcessing
	}
	data, err := resources.IconData(iconState)
	if err != nil {
		logger.Warning(logger.CategorySystem, "Failed to load tray icon: %v", err)
		return
	}
	systray.SetIcon(data)
}

func (t *Tray) tooltip(s engine.State) string {
	switch s {
	case engine.StateRecording:
		return "Hushkey - recording (" + t.hotkeyHint + " to stop)"
	case engine.StateProcessing:
		return "Hushkey - transcribing"
	default:
		return "Hushkey - " + t.hotkeyHint + " to dictate"
	}
}

// refreshHistory rewrites the history submenu from the current entries,
// newest first.
func (t *Tray) refreshHistory() {
	if t.history == nil || t.mHistory == nil {
		return
	}
	entries := t.history.Entries()

	t.mu.Lock()
	t.historyTexts = t.historyTexts[:0]
	for i := len(entries) - 1; i >= 0 && len(t.historyTexts) < len(t.historyItems); i-- {
		t.historyTexts = append(t.historyTexts, entries[i].Text)
	}
	texts := append([]string(nil), t.historyTexts...)
	t.mu.Unlock()

	for i, item := range t.historyItems {
		if i < len(texts) {
			item.SetTitle(truncate(texts[i], 48))
			item.Show()
		} else {
			item.Hide()
		}
	}
	if len(texts) == 0 {
		t.mHistory.Disable()
	} else {
		t.mHistory.Enable()
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
