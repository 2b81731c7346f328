package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/maphider/host"
	"markestedt/maphider/obsws"
	"markestedt/maphider/storage"
	"markestedt/maphider/toggler"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Served on localhost only
	},
}

// Lifecycle is the part of the plugin the settings page drives
type Lifecycle interface {
	Update(settings host.SettingsStore)
	Rebind(settings host.SettingsStore, combos []string) error
	Hotkey() []string
	Configuration() (toggler.Config, bool)
}

// SceneLister enumerates scenes for the settings page's pickers
type SceneLister interface {
	SceneNames(ctx context.Context) ([]string, error)
	SceneItems(ctx context.Context, scene string) ([]obsws.SceneItem, error)
	Connected() bool
}

// Server serves the settings page and its JSON API
type Server struct {
	db     *storage.DB
	plugin Lifecycle
	scenes SceneLister
	port   int
	hub    *Hub
}

// NewServer creates a new web server
func NewServer(db *storage.DB, plugin Lifecycle, scenes SceneLister, port int) *Server {
	return &Server{
		db:     db,
		plugin: plugin,
		scenes: scenes,
		port:   port,
		hub:    NewHub(),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/description", s.handleDescription)
	mux.HandleFunc("/api/properties", s.handleProperties)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/hotkey", s.handleHotkey)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scenes/items", s.handleSceneItems)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	return mux, nil
}

// Start serves on localhost until ctx is done
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting web server", "port", s.port, "url", s.URL())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// URL returns the address of the settings page
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// BroadcastToggle pushes a flip to all connected clients
func (s *Server) BroadcastToggle(id int64, f toggler.Flip) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeToggle,
		Data: ToggleMessage{
			ID:        id,
			Edge:      f.Edge.String(),
			Scene:     f.Scene,
			Item:      f.Item,
			Visible:   f.Visible,
			Timestamp: f.Time.UTC().Format(time.RFC3339Nano),
		},
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}
