package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:     ws,
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case <-c.closed:
	case c.send <- b:
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
	}
}

// Close 通知写协程退出并关闭底层连接，可重复调用
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端按键，转换为 Input 注入会话
func (c *ClientConn) readPump(m *SessionManager, s *Session) {
	defer func() {
		c.Close()
		// 读泵退出时，若仍是当前连接则结束会话
		if s.Detach(c) {
			m.drop(s)
		}
	}()
	c.ws.SetReadLimit(1 << 16)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Warnf("session %s: read: %v", s.ID, err)
			}
			return
		}
		in, err := ParseInput(payload)
		if err != nil {
			s.metrics.IncMalformed()
			Log.Debugf("session %s: drop message: %v", s.ID, err)
			continue
		}
		s.OnInput(in)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?scene=zenn-2022-05-15&session=<id>
func (m *SessionManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// 先校验场景并分配会话 ID，失败时仍可返回普通 HTTP 错误
	s, err := m.GetOrCreate(q.Get("session"), q.Get("scene"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Errorf("upgrade error: %v", err)
		// 新建但从未绑定连接的会话不保留
		if s.Detach(nil) {
			m.drop(s)
		}
		return
	}

	client := NewClientConn(ws)
	go client.writePump()
	s, err = m.Join(s.ID, s.Preset.Name, client)
	if err != nil {
		Log.Errorf("join session: %v", err)
		client.Close()
		return
	}
	go client.readPump(m, s)
}
