package systray

import (
	_ "embed"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

// Icon is the tray icon shipped with the binary
//
//go:embed icon.ico
var Icon []byte

// Manager manages the system tray icon and menu
type Manager struct {
	url      string
	iconData []byte
	ready    chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	stopOnce sync.Once
}

// NewManager creates a tray manager. An empty url hides the settings entry.
func NewManager(url string, iconData []byte) *Manager {
	return &Manager{
		url:      url,
		iconData: iconData,
		ready:    make(chan struct{}),
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop removes the tray once it is up
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		go func() {
			<-m.ready
			systray.Quit()
		}()
	})
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *Manager) WaitForQuit() <-chan struct{} {
	return m.quit
}

func (m *Manager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}
	systray.SetTitle("MapHider")
	systray.SetTooltip("MapHider - hold to hide")

	var settingsClicked <-chan struct{}
	if m.url != "" {
		mSettings := systray.AddMenuItem("Open Settings", "Open the MapHider settings page")
		settingsClicked = mSettings.ClickedCh
		systray.AddSeparator()
	}
	mQuit := systray.AddMenuItem("Quit", "Exit MapHider")

	close(m.ready)

	go func() {
		for {
			select {
			case <-settingsClicked:
				openBrowser(m.url)
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				m.quitOnce.Do(func() { close(m.quit) })
				m.Stop()
				return
			}
		}
	}()
}

func (m *Manager) onExit() {
	slog.Info("System tray exited")
}

// openBrowser opens url in the default browser
func openBrowser(url string) {
	slog.Info("Opening settings page", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open settings page", "error", err)
	}
}
