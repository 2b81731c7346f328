package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"markestedt/maphider/config"
	"markestedt/maphider/platform"
	"markestedt/maphider/toggler"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleDescription returns the description text
func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"description": toggler.Description})
}

// handleProperties returns the settings declaration
func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"properties": toggler.Properties()})
}

// handleSettings handles GET and PUT requests for the settings values
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.currentSettings())
	case http.MethodPut:
		s.handlePutSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// currentSettings returns the stored value of every declared property
func (s *Server) currentSettings() map[string]any {
	values := make(map[string]any)
	for _, p := range toggler.Properties() {
		switch p.Kind {
		case toggler.FloatSlider:
			values[p.Key] = s.db.GetDouble(p.Key)
		default:
			values[p.Key] = s.db.GetString(p.Key)
		}
	}
	return values
}

// handlePutSettings validates and stores a partial settings update, then notifies the plugin
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	props := make(map[string]toggler.Property)
	for _, p := range toggler.Properties() {
		props[p.Key] = p
	}

	strs := make(map[string]string)
	nums := make(map[string]float64)
	for key, raw := range req {
		p, ok := props[key]
		if !ok {
			http.Error(w, fmt.Sprintf("Unknown setting: %s", key), http.StatusBadRequest)
			return
		}

		switch p.Kind {
		case toggler.FloatSlider:
			var v float64
			if err := json.Unmarshal(raw, &v); err != nil {
				http.Error(w, fmt.Sprintf("Setting %s must be a number", key), http.StatusBadRequest)
				return
			}
			if v < p.Min || v > p.Max {
				http.Error(w, fmt.Sprintf("Setting %s must be between %g and %g", key, p.Min, p.Max), http.StatusBadRequest)
				return
			}
			nums[key] = v
		default:
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				http.Error(w, fmt.Sprintf("Setting %s must be a string", key), http.StatusBadRequest)
				return
			}
			strs[key] = v
		}
	}

	for key, v := range strs {
		if err := s.db.SetString(key, v); err != nil {
			slog.Error("Failed to save setting", "key", key, "error", err)
			http.Error(w, "Failed to save settings", http.StatusInternalServerError)
			return
		}
	}
	for key, v := range nums {
		if err := s.db.SetDouble(key, v); err != nil {
			slog.Error("Failed to save setting", "key", key, "error", err)
			http.Error(w, "Failed to save settings", http.StatusInternalServerError)
			return
		}
	}

	s.plugin.Update(s.db)

	values := s.currentSettings()
	s.hub.BroadcastMessage(Message{Type: MessageTypeSettings, Data: values})
	writeJSON(w, values)
}

// handleHotkey handles GET and PUT requests for the hotkey binding
func (s *Server) handleHotkey(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeHotkey(w)
	case http.MethodPut:
		s.handlePutHotkey(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeHotkey(w http.ResponseWriter) {
	combos := s.plugin.Hotkey()
	if combos == nil {
		combos = []string{}
	}
	writeJSON(w, map[string]any{
		"name":        toggler.KeyHotkey,
		"description": toggler.HotkeyDescription,
		"combos":      combos,
	})
}

func (s *Server) handlePutHotkey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Combos []string `json:"combos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for _, c := range req.Combos {
		combo, err := config.ParseHotkey(c)
		if err == nil {
			_, err = platform.VKCode(combo.Key)
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid hotkey %q: %v", c, err), http.StatusBadRequest)
			return
		}
	}

	if err := s.plugin.Rebind(s.db, req.Combos); err != nil {
		slog.Error("Failed to rebind hotkey", "error", err)
		http.Error(w, "Failed to save hotkey", http.StatusInternalServerError)
		return
	}

	s.hub.BroadcastMessage(Message{Type: MessageTypeHotkey, Data: s.plugin.Hotkey()})
	s.writeHotkey(w)
}

// handleScenes lists scene names from OBS
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names, err := s.scenes.SceneNames(ctx)
	if err != nil {
		slog.Warn("Failed to list scenes", "error", err)
		http.Error(w, "OBS unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"scenes": names})
}

// handleSceneItems lists the sources of one scene
func (s *Server) handleSceneItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scene := r.URL.Query().Get("scene")
	if scene == "" {
		http.Error(w, "Missing scene", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := s.scenes.SceneItems(ctx, scene)
	if err != nil {
		slog.Warn("Failed to list scene items", "scene", scene, "error", err)
		http.Error(w, "OBS unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"scene": scene, "items": items})
}

// handleHistory handles GET and DELETE requests for the toggle history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		n, err := s.db.DeleteToggles()
		if err != nil {
			slog.Error("Failed to delete history", "error", err)
			http.Error(w, "Failed to delete history", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"status": "success", "deleted": n})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated toggle history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	toggles, err := s.db.GetToggles(limit, offset)
	if err != nil {
		slog.Error("Failed to get toggles", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetToggleCount()
	if err != nil {
		slog.Error("Failed to get toggle count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"toggles": toggles,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleStats returns flip statistics for the last N days
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	scenes, err := s.db.GetSceneStats(days)
	if err != nil {
		slog.Error("Failed to get scene stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"days":   days,
		"daily":  daily,
		"scenes": scenes,
	})
}

// handleStatus returns the OBS connection state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg, loaded := s.plugin.Configuration()
	writeJSON(w, map[string]any{
		"obsConnected":  s.scenes.Connected(),
		"hotkey":        s.plugin.Hotkey(),
		"loaded":        loaded,
		"configuration": cfg,
	})
}
