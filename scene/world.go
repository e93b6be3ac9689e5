// Package scene 第一人称场景的核心逻辑：输入采样 → 位姿积分 → 相机/文本同步。
// 不依赖任何引擎；World 由调用方按帧驱动。
package scene

import (
	"go.uber.org/zap"
)

// Frame 单个 Tick 的结果
type Frame struct {
	Seq    int64
	Intent Intent
	Change Change
	Writes Writes
	Pose   Pose
	Camera Pose
	Label  string
	Err    error // 同步阶段的可恢复错误，可能为 nil
}

// World 持有唯一的玩家位姿以及派生的相机与文本。
// 非并发安全：同一时刻只允许一个 goroutine 调用 Tick。
type World struct {
	pose   Pose
	camera *Camera
	label  *Label
	sync   *Synchronizer
	seq    int64
	log    *zap.Logger
}

type options struct {
	refresh  LabelRefresh
	log      *zap.Logger
	noCamera bool
	noLabel  bool
}

// Option 场景构造参数
type Option func(*options)

// WithLabelRefresh 设置文本刷新策略
func WithLabelRefresh(r LabelRefresh) Option {
	return func(o *options) { o.refresh = r }
}

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithoutCamera 不生成相机（用于模拟配置缺失）
func WithoutCamera() Option {
	return func(o *options) { o.noCamera = true }
}

// WithoutLabel 不生成文本（用于模拟配置缺失）
func WithoutLabel() Option {
	return func(o *options) { o.noLabel = true }
}

// NewWorld 启动阶段：生成玩家位姿、相机和坐标文本
func NewWorld(opts ...Option) *World {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	w := &World{pose: DefaultPose(), log: o.log}
	if !o.noCamera {
		w.camera = &Camera{Pose: w.pose.Translated(CameraOffset)}
	}
	if !o.noLabel {
		w.label = &Label{Sections: []string{FormatPosition(w.pose.Position)}}
	}
	w.sync = NewSynchronizer(w.camera, w.label, o.refresh, o.log)
	w.log.Debug("world ready",
		zap.String("label", w.label.Text()),
		zap.Stringer("refresh", o.refresh))
	return w
}

// Tick 按固定顺序执行三个阶段。dt 单位为秒。
func (w *World) Tick(keys KeyState, dt float32) Frame {
	w.seq++
	intent := Sample(keys)
	var change Change
	w.pose, change = Advance(w.pose, intent, dt)
	writes, err := w.sync.Sync(w.pose, change)
	return Frame{
		Seq:    w.seq,
		Intent: intent,
		Change: change,
		Writes: writes,
		Pose:   w.pose,
		Camera: w.CameraPose(),
		Label:  w.label.Text(),
		Err:    err,
	}
}

// Pose 当前玩家位姿
func (w *World) Pose() Pose { return w.pose }

// CameraPose 当前相机位姿；无相机时返回零值
func (w *World) CameraPose() Pose {
	if w.camera == nil {
		return Pose{}
	}
	return w.camera.Pose
}

// LabelText 当前文本
func (w *World) LabelText() string { return w.label.Text() }

// Seq 已执行的 Tick 数
func (w *World) Seq() int64 { return w.seq }

// AttachCamera 补挂相机，立即对齐当前位姿
func (w *World) AttachCamera() {
	w.camera = &Camera{Pose: w.pose.Translated(CameraOffset)}
	w.sync.AttachCamera(w.camera)
}

// AttachLabel 补挂文本，立即显示当前位置
func (w *World) AttachLabel() {
	w.label = &Label{Sections: []string{FormatPosition(w.pose.Position)}}
	w.sync.AttachLabel(w.label)
}
