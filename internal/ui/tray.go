package ui

import (
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/pkg/browser"

	"github.com/munzgen/munzgen-agent/internal/logging"
	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/studio"
)

type Tray struct {
	studio    *studio.Studio
	editorURL string
	logger    *slog.Logger
	openURL   func(string) error

	statusItem *systray.MenuItem
	playItem   *systray.MenuItem

	mu          sync.Mutex
	lastStatus  string
	lastPlaying bool
	unsubscribe func()

	onQuit func()
}

type TrayConfig struct {
	Studio    *studio.Studio
	EditorURL string
	Logger    *slog.Logger
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		studio:    cfg.Studio,
		editorURL: cfg.EditorURL,
		logger:    logging.WithComponent(cfg.Logger, "tray"),
		openURL:   browser.OpenURL,
		onQuit:    cfg.OnQuit,
	}
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("MunzGen")
	systray.SetTooltip("MunzGen AI Agent")

	t.statusItem = systray.AddMenuItem(statusTitle(""), "Current editor status")
	t.statusItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Editor", "Open the editor in a browser")
	t.playItem = systray.AddMenuItem(playTitle(false), "Toggle timeline playback")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit MunzGen Agent")

	t.mu.Lock()
	t.unsubscribe = t.studio.Session().Subscribe(t.refresh)
	t.mu.Unlock()
	t.refresh()

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				t.openEditor()
			case <-t.playItem.ClickedCh:
				t.studio.TogglePlayback()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.mu.Lock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.mu.Unlock()
	t.logger.Info("system tray exiting")
}

func (t *Tray) openEditor() {
	if t.editorURL == "" {
		return
	}
	if err := t.openURL(t.editorURL); err != nil {
		t.logger.Error("failed to open editor", "url", t.editorURL, "error", err)
	}
}

// refresh mirrors the session into the menu. Playback notifies on every
// tick, so titles are only touched when they change.
func (t *Tray) refresh() {
	snap := t.studio.Session().Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statusItem == nil {
		return
	}
	if snap.Status != t.lastStatus {
		t.lastStatus = snap.Status
		t.statusItem.SetTitle(statusTitle(snap.Status))
	}
	if snap.Playing != t.lastPlaying {
		t.lastPlaying = snap.Playing
		t.playItem.SetTitle(playTitle(snap.Playing))
	}
	if snap.ViewMode == project.ViewEditor || snap.Playing {
		t.playItem.Enable()
	} else {
		t.playItem.Disable()
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

func statusTitle(status string) string {
	if status == "" {
		status = "Idle"
	}
	return "Status: " + logging.Truncate(status, 48)
}

func playTitle(playing bool) string {
	if playing {
		return "Pause"
	}
	return "Play"
}
