package scene

import "github.com/go-gl/mathgl/mgl32"

// Change 本 Tick 位姿发生了哪些变化
type Change uint8

const (
	ChangedTranslation Change = 1 << iota
	ChangedRotation

	ChangedNone Change = 0
)

// Translated 位置是否变化
func (c Change) Translated() bool { return c&ChangedTranslation != 0 }

// Rotated 朝向是否变化
func (c Change) Rotated() bool { return c&ChangedRotation != 0 }

// Any 有任意变化
func (c Change) Any() bool { return c != ChangedNone }

func (c Change) String() string {
	switch c {
	case ChangedNone:
		return "none"
	case ChangedTranslation:
		return "translation"
	case ChangedRotation:
		return "rotation"
	default:
		return "translation|rotation"
	}
}

// Advance 将意图积分到位姿上。
// 平移使用转向前的朝向，之后再应用绕 +Y 的旋转，避免同一 Tick 内移动与转向耦合。
// dt 小于 0 时按 0 处理。
func Advance(p Pose, in Intent, dt float32) (Pose, Change) {
	if dt < 0 {
		dt = 0
	}
	change := ChangedNone
	if in.Move != 0 {
		p.Position = p.Position.Add(p.Forward().Mul(in.Move * dt))
		change |= ChangedTranslation
	}
	if in.Turn != 0 {
		p.Rotation = mgl32.QuatRotate(in.Turn*dt, AxisY).Mul(p.Rotation).Normalize()
		change |= ChangedRotation
	}
	return p, change
}
