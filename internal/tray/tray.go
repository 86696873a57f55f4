package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"github.com/rs/zerolog/log"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Tray manages the system tray icon and menu
type Tray struct {
	url          string
	shutdownFunc ShutdownFunc
	once         sync.Once
	shuttingDown atomic.Bool
	ready        atomic.Bool
	pads         atomic.Int32
	menuOpen     *systray.MenuItem
	menuPads     *systray.MenuItem
	menuExit     *systray.MenuItem
}

// New creates a new Tray instance pointing at url
func New(url string, shutdownFn ShutdownFunc) *Tray {
	return &Tray{
		url:          url,
		shutdownFunc: shutdownFn,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// Quit removes the tray icon and makes Run return
func (t *Tray) Quit() {
	t.shuttingDown.Store(true)
	systray.Quit()
}

// SetPads updates the connected pad count shown in the menu
func (t *Tray) SetPads(n int) {
	t.pads.Store(int32(n))
	if t.ready.Load() {
		t.menuPads.SetTitle(padsTitle(n))
		systray.SetTooltip(tooltip(t.url, n))
	}
}

func padsTitle(n int) string {
	if n == 1 {
		return "1 gamepad connected"
	}
	return fmt.Sprintf("%d gamepads connected", n)
}

func tooltip(url string, n int) string {
	return fmt.Sprintf("padmap - %s (%s)", url, padsTitle(n))
}

// onReady is called when the tray is ready
func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	n := int(t.pads.Load())
	systray.SetTitle("padmap")
	systray.SetTooltip(tooltip(t.url, n))

	t.menuOpen = systray.AddMenuItem("Open Browser", "Open web interface")
	t.menuPads = systray.AddMenuItem(padsTitle(n), "Connected gamepads")
	t.menuPads.Disable()
	systray.AddSeparator()
	t.menuExit = systray.AddMenuItem("Exit", "Quit application")
	t.ready.Store(true)

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()

	log.Print("System tray initialized")
}

// handleMenuClicks processes menu item clicks without blocking
func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuOpen.ClickedCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

// onExit is called when the tray is exiting
func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	log.Print("System tray exiting")
}

// browserCommand returns the command that opens url on goos
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// openBrowser opens the default web browser
func (t *Tray) openBrowser() {
	// Prevent multiple browser launches during shutdown
	if t.shuttingDown.Load() {
		return
	}

	name, args := browserCommand(runtime.GOOS, t.url)
	if err := exec.Command(name, args...).Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
