package server

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"firstperson/scene"
)

// SessionManager 管理多个会话的生命周期
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	tick         TickConfig
	defaultScene string
}

// NewSessionManager 创建会话管理器
func NewSessionManager(cfg Config) *SessionManager {
	return &SessionManager{
		sessions:     make(map[string]*Session),
		tick:         cfg.Tick,
		defaultScene: cfg.DefaultScene,
	}
}

// GetOrCreate 获取或创建会话，并确保开始 Tick。
// id 为空时分配新的 UUID；已存在的会话忽略 sceneName（重连）。
func (m *SessionManager) GetOrCreate(id, sceneName string) (*Session, error) {
	if sceneName == "" {
		sceneName = m.defaultScene
	}
	preset, err := scene.LookupPreset(sceneName)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = NewSession(id, preset, m.tick)
		m.sessions[id] = s
		s.StartTicker()
		Log.Infof("session created: id=%s scene=%s", id, preset.Name)
	}
	return s, nil
}

// joinAttempts 重连与会话移除竞争时的最大重试次数
const joinAttempts = 3

// Join 获取或创建会话并绑定连接。
// 若拿到的会话恰好被并发移除（旧连接退出），重新获取一个新的会话。
func (m *SessionManager) Join(id, sceneName string, conn Sender) (*Session, error) {
	var err error
	for i := 0; i < joinAttempts; i++ {
		var s *Session
		s, err = m.GetOrCreate(id, sceneName)
		if err != nil {
			return nil, err
		}
		if err = s.Attach(conn); err == nil {
			return s, nil
		}
		Log.Debugf("session %s closed while joining, retrying", s.ID)
		m.drop(s)
	}
	return nil, err
}

// drop 仅当注册表中仍是该会话时移除，并关闭它（可重复调用）
func (m *SessionManager) drop(s *Session) {
	m.mu.Lock()
	if cur, ok := m.sessions[s.ID]; ok && cur == s {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()
	s.Close()
}

// Get 查找会话
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove 关闭并移除会话
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
		Log.Infof("session removed: id=%s ticks=%d", id, s.TickSeq())
	}
}

// IDs 所有会话 ID（排序）
func (m *SessionManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown 关闭所有会话
func (m *SessionManager) Shutdown() {
	for _, id := range m.IDs() {
		m.Remove(id)
	}
}
