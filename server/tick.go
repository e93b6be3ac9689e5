package server

import "time"

// tickInterval 由每秒帧数换算出的帧间隔
func tickInterval(tps int) time.Duration {
	if tps <= 0 {
		tps = DefaultConfig().Tick.TicksPerSecond
	}
	return time.Second / time.Duration(tps)
}

// StartTicker 启动会话的 Tick 循环（单 goroutine 推进场景），Close 后退出
func (s *Session) StartTicker() {
	if s.tickerStarted {
		return
	}
	s.tickerStarted = true
	s.mu.RLock()
	interval := tickInterval(s.tps)
	s.mu.RUnlock()
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				// 核心循环：处理输入 → 采样/积分 → 同步相机与文本 → 下发
				dt := now.Sub(last).Seconds()
				last = now
				start := time.Now()
				s.Step(dt)
				s.metrics.AddTick(time.Since(start).Nanoseconds())
			}
		}
	}()
}
