package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"firstperson/scene"
)

// ErrSessionClosed 会话已结束，不能再绑定连接
var ErrSessionClosed = errors.New("session closed")

// Sender 出站消息的发送端；ClientConn 为其网络实现
type Sender interface {
	Enqueue(b []byte)
	Close()
}

// Session 一个客户端独占的场景：权威状态维护在内存，单 goroutine Tick 推进
type Session struct {
	ID     string
	Preset scene.Preset

	world     *scene.World
	keys      scene.KeyState
	inputChan chan Input

	connMu sync.Mutex
	conn   Sender

	// 可热更新的 Tick 参数
	mu               sync.RWMutex
	tps              int
	maxDeltaSeconds  float64
	maxInputsPerTick int

	tickSeq int64
	metrics *SessionMetrics

	// 最近一帧的派生视图，供重连时下发
	snapMu sync.Mutex
	snap   snapshot

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	tickerStarted bool
}

type snapshot struct {
	player scene.Pose
	camera scene.Pose
	label  string
}

// NewSession 创建会话，启动场景（生成玩家、相机、坐标文本）
func NewSession(id string, preset scene.Preset, cfg TickConfig) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	world := scene.NewWorld(
		scene.WithLabelRefresh(preset.Refresh),
		scene.WithLogger(Log.Desugar().With(
			zap.String("session", id),
			zap.String("scene", preset.Name),
		)),
	)
	s := &Session{
		ID:               id,
		Preset:           preset,
		world:            world,
		keys:             scene.KeyState{},
		inputChan:        make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		tps:              cfg.TicksPerSecond,
		maxDeltaSeconds:  cfg.MaxDeltaSeconds,
		maxInputsPerTick: cfg.MaxInputsPerTick,
		metrics:          &SessionMetrics{},
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
	}
	s.snap = snapshot{player: world.Pose(), camera: world.CameraPose(), label: world.LabelText()}
	return s
}

// Attach 绑定客户端连接，并下发静态布景；重连时替换旧连接。
// 会话已关闭时返回 ErrSessionClosed，调用方应重新获取会话。
func (s *Session) Attach(conn Sender) error {
	s.connMu.Lock()
	if s.ctx.Err() != nil {
		s.connMu.Unlock()
		return ErrSessionClosed
	}
	old := s.conn
	s.conn = conn
	s.connMu.Unlock()
	if old != nil && old != conn {
		old.Close()
	}
	s.send(s.sceneMessage())
	return nil
}

// Detach 解除连接（仅当仍是当前连接时）
func (s *Session) Detach(conn Sender) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != conn {
		return false
	}
	s.conn = nil
	return true
}

// sceneMessage 使用最近一帧的快照，不直接读取 World（World 只属于 Tick goroutine）
func (s *Session) sceneMessage() SceneMessage {
	s.mu.RLock()
	tps := s.tps
	s.mu.RUnlock()
	s.snapMu.Lock()
	snap := s.snap
	s.snapMu.Unlock()
	return SceneMessage{
		Type:           "scene",
		Session:        s.ID,
		Scene:          s.Preset.Name,
		TicksPerSecond: tps,
		Scenery:        scene.DefaultScenery(s.Preset.Name),
		Player:         poseState(snap.player),
		Camera:         poseState(snap.camera),
		Label:          snap.label,
	}
}

// OnInput 入站输入（不立即改变状态），仅记录意图，等下一次 Tick 处理
func (s *Session) OnInput(in Input) {
	// 不阻塞：输入拥塞时丢弃，保证 Tick 准时
	select {
	case s.inputChan <- in:
	default:
		s.metrics.IncChanFullDiscarded()
	}
}

// ProcessInputs 处理当前帧的输入（非阻塞 drain）；超过单帧上限的留到下一帧
func (s *Session) ProcessInputs() {
	s.mu.RLock()
	limit := s.maxInputsPerTick
	s.mu.RUnlock()
	for n := 0; ; n++ {
		if n >= limit {
			if len(s.inputChan) > 0 {
				s.metrics.IncRateLimited()
			}
			return
		}
		select {
		case in := <-s.inputChan:
			in.apply(s.keys)
			s.metrics.IncAccepted()
		default:
			return
		}
	}
}

// Step 执行一帧：处理输入 → 推进场景 → 有写入时下发
func (s *Session) Step(dt float64) scene.Frame {
	s.mu.RLock()
	maxDelta := s.maxDeltaSeconds
	s.mu.RUnlock()
	if dt < 0 {
		dt = 0
	}
	if dt > maxDelta {
		dt = maxDelta
		s.metrics.IncDeltaClamped()
	}

	s.ProcessInputs()
	f := s.world.Tick(s.keys, float32(dt))
	atomic.StoreInt64(&s.tickSeq, f.Seq)
	if f.Err != nil {
		s.metrics.IncSyncErrors()
	}
	if f.Writes != scene.WroteNothing {
		s.snapMu.Lock()
		s.snap = snapshot{player: f.Pose, camera: f.Camera, label: f.Label}
		s.snapMu.Unlock()
		s.send(frameMessage(f))
	}
	return f
}

func (s *Session) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		Log.Errorf("session %s: marshal: %v", s.ID, err)
		return
	}
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn != nil {
		conn.Enqueue(b)
		s.metrics.IncFramesSent()
	}
}

// Close 停止 Tick 并关闭连接
func (s *Session) Close() {
	s.connMu.Lock()
	s.cancel()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Done Tick goroutine 退出后关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// TickSeq 已执行的帧数
func (s *Session) TickSeq() int64 { return atomic.LoadInt64(&s.tickSeq) }

// Metrics 运行指标
func (s *Session) Metrics() *SessionMetrics { return s.metrics }

// Settings 读取当前 Tick 参数
func (s *Session) Settings() TickConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TickConfig{
		TicksPerSecond:   s.tps,
		MaxDeltaSeconds:  s.maxDeltaSeconds,
		MaxInputsPerTick: s.maxInputsPerTick,
	}
}

// UpdateSettings 热更新部分字段（零值字段不修改）
func (s *Session) UpdateSettings(maxInputsPerTick int, maxDeltaSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxInputsPerTick > 0 {
		s.maxInputsPerTick = maxInputsPerTick
	}
	if maxDeltaSeconds > 0 {
		s.maxDeltaSeconds = maxDeltaSeconds
	}
}
