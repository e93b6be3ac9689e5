package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrCameraMissing      = errors.New("camera not found")
	ErrLabelMissing       = errors.New("label not found")
	ErrTextSectionMissing = errors.New("label text section not found")
)

// CameraOffset 相机相对玩家的固定偏移（上方一个单位）
var CameraOffset = AxisY

// Camera 相机位姿，由玩家位姿派生，自身从不作为权威
type Camera struct {
	Pose Pose
}

// Label 屏幕上的坐标文本，Sections[0] 为显示内容
type Label struct {
	Sections []string
}

// Text 第一个文本段，不存在时返回空串
func (l *Label) Text() string {
	if l == nil || len(l.Sections) == 0 {
		return ""
	}
	return l.Sections[0]
}

// LabelRefresh 决定文本何时刷新
type LabelRefresh int

const (
	// RefreshOnTranslation 仅当位置变化时刷新（纯转向不刷新）
	RefreshOnTranslation LabelRefresh = iota
	// RefreshOnAnyChange 位姿任意变化都刷新，包括纯转向
	RefreshOnAnyChange
)

func (r LabelRefresh) String() string {
	if r == RefreshOnAnyChange {
		return "any-change"
	}
	return "translation"
}

func (r LabelRefresh) wants(c Change) bool {
	if r == RefreshOnAnyChange {
		return c.Any()
	}
	return c.Translated()
}

// Writes 同步阶段实际写入了什么
type Writes uint8

const (
	WroteCamera Writes = 1 << iota
	WroteLabel

	WroteNothing Writes = 0
)

func (w Writes) Camera() bool { return w&WroteCamera != 0 }
func (w Writes) Label() bool { return w&WroteLabel != 0 }

// Synchronizer 把玩家位姿同步到相机与文本。
// 相机、文本句柄在初始化时保存；缺失时只报告一次，之后每帧静默跳过，重新挂载后自动恢复。
type Synchronizer struct {
	camera  *Camera
	label   *Label
	refresh LabelRefresh
	log     *zap.Logger

	reported map[error]bool
}

// NewSynchronizer 创建同步器；camera/label 可为 nil（视为配置错误）
func NewSynchronizer(camera *Camera, label *Label, refresh LabelRefresh, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synchronizer{
		camera:   camera,
		label:    label,
		refresh:  refresh,
		log:      log,
		reported: make(map[error]bool),
	}
	// 句柄缺失属于配置错误：在这里报告一次，之后每帧不再重复记录
	if camera == nil {
		_ = s.report(ErrCameraMissing)
	}
	if label == nil {
		_ = s.report(ErrLabelMissing)
	}
	return s
}

// AttachCamera 重新挂载相机
func (s *Synchronizer) AttachCamera(c *Camera) {
	s.camera = c
	delete(s.reported, ErrCameraMissing)
}

// AttachLabel 重新挂载文本
func (s *Synchronizer) AttachLabel(l *Label) {
	s.label = l
	delete(s.reported, ErrLabelMissing)
	delete(s.reported, ErrTextSectionMissing)
}

// Sync 在 Updater 之后调用；change 为空时不做任何写入。
// 返回本次写入掩码以及本次遇到的（可恢复）错误。
func (s *Synchronizer) Sync(p Pose, change Change) (Writes, error) {
	if !change.Any() {
		return WroteNothing, nil
	}
	var (
		writes Writes
		err    error
	)
	if cerr := s.syncCamera(p); cerr != nil {
		err = multierr.Append(err, cerr)
	} else {
		writes |= WroteCamera
	}
	if s.refresh.wants(change) {
		if lerr := s.syncLabel(p); lerr != nil {
			err = multierr.Append(err, lerr)
		} else {
			writes |= WroteLabel
		}
	}
	return writes, err
}

func (s *Synchronizer) syncCamera(p Pose) error {
	if s.camera == nil {
		return s.report(ErrCameraMissing)
	}
	s.camera.Pose = Pose{
		Position: p.Position.Add(CameraOffset),
		Rotation: p.Rotation,
	}
	return nil
}

func (s *Synchronizer) syncLabel(p Pose) error {
	if s.label == nil {
		return s.report(ErrLabelMissing)
	}
	if len(s.label.Sections) == 0 {
		return s.report(ErrTextSectionMissing)
	}
	s.label.Sections[0] = FormatPosition(p.Position)
	return nil
}

// report 同一错误只记录一次日志
func (s *Synchronizer) report(err error) error {
	if !s.reported[err] {
		s.reported[err] = true
		s.log.Error("sync skipped", zap.Error(err))
	}
	return err
}

// FormatPosition 坐标文本，保留三位小数
func FormatPosition(v mgl32.Vec3) string {
	return fmt.Sprintf("X: %.3f, Y: %.3f, Z: %.3f", v.X(), v.Y(), v.Z())
}
