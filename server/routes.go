package server

import "net/http"

// Routes 注册 WebSocket、管理与监控接口（渲染客户端不由本服务托管）
func (m *SessionManager) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.HandleWS)
	mux.HandleFunc("/admin/config", m.HandleAdminConfig)
	mux.HandleFunc("/metrics", m.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
