package server

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供会话 Tick 参数的读取与更新（热更新）
// GET /admin/config?session=<id>  返回当前配置
// POST /admin/config?session=<id> 以 JSON 载荷更新部分字段
func (m *SessionManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	s, ok := m.Get(r.URL.Query().Get("session"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	type cfg struct {
		TicksPerSecond   *int     `json:"ticksPerSecond,omitempty"`
		MaxInputsPerTick *int     `json:"maxInputsPerTick,omitempty"`
		MaxDeltaSeconds  *float64 `json:"maxDeltaSeconds,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		cur := s.Settings()
		writeJSON(w, cfg{
			TicksPerSecond:   &cur.TicksPerSecond,
			MaxInputsPerTick: &cur.MaxInputsPerTick,
			MaxDeltaSeconds:  &cur.MaxDeltaSeconds,
		})
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TicksPerSecond != nil {
			http.Error(w, "ticksPerSecond is fixed for the session lifetime", http.StatusBadRequest)
			return
		}
		var maxInputs int
		var maxDelta float64
		if body.MaxInputsPerTick != nil {
			maxInputs = *body.MaxInputsPerTick
		}
		if body.MaxDeltaSeconds != nil {
			maxDelta = *body.MaxDeltaSeconds
		}
		if maxInputs < 0 || maxDelta < 0 {
			http.Error(w, "values must be positive", http.StatusBadRequest)
			return
		}
		s.UpdateSettings(maxInputs, maxDelta)
		cur := s.Settings()
		writeJSON(w, map[string]any{"ok": true})
		Log.Infof("config updated: session=%s maxInputsPerTick=%d maxDeltaSeconds=%.3f",
			s.ID, cur.MaxInputsPerTick, cur.MaxDeltaSeconds)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定会话的运行指标；不带 session 参数时列出所有会话
// GET /metrics?session=<id>
func (m *SessionManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeJSON(w, map[string]any{"sessions": m.IDs()})
		return
	}
	s, ok := m.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"session": s.ID,
		"scene":   s.Preset.Name,
		"tick":    s.TickSeq(),
		"metrics": s.Metrics().Snapshot(),
	})
}
