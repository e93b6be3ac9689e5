package server

import (
	"sync/atomic"
)

// SessionMetrics 记录会话运行期的关键指标（用于监控与调试）
type SessionMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 被应用的输入数
	RateLimited       int64 // 因单帧上限推迟处理的次数
	Malformed         int64 // 无法解析的入站消息数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	DeltaClamped      int64 // 帧间隔超过上限被截断的次数
	SyncErrors        int64 // 同步阶段出现可恢复错误的帧数
	FramesSent        int64 // 下发的消息数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *SessionMetrics) IncAccepted() { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *SessionMetrics) IncRateLimited() { atomic.AddInt64(&m.RateLimited, 1) }
func (m *SessionMetrics) IncMalformed() { atomic.AddInt64(&m.Malformed, 1) }
func (m *SessionMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *SessionMetrics) IncDeltaClamped() { atomic.AddInt64(&m.DeltaClamped, 1) }
func (m *SessionMetrics) IncSyncErrors() { atomic.AddInt64(&m.SyncErrors, 1) }
func (m *SessionMetrics) IncFramesSent() { atomic.AddInt64(&m.FramesSent, 1) }
func (m *SessionMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"malformed":           atomic.LoadInt64(&m.Malformed),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"delta_clamped":       atomic.LoadInt64(&m.DeltaClamped),
		"sync_errors":         atomic.LoadInt64(&m.SyncErrors),
		"frames_sent":         atomic.LoadInt64(&m.FramesSent),
		"avg_tick_ms":         avgMs,
	}
}
