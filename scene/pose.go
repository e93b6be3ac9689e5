package scene

import "github.com/go-gl/mathgl/mgl32"

var (
	// 世界坐标轴（右手系，+Y 向上）
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	// 本地 -Z 为朝前方向
	localForward = mgl32.Vec3{0, 0, -1}
)

// Pose 玩家位姿：位置 + 朝向，是整个场景唯一的权威状态
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// DefaultPose 出生位姿：原点，朝向 +X，+Y 为上
func DefaultPose() Pose {
	return Pose{Rotation: LookRotation(AxisX, AxisY)}
}

// LookRotation 计算使本地 -Z 指向 dir、本地 +Y 尽量贴近 up 的旋转
func LookRotation(dir, up mgl32.Vec3) mgl32.Quat {
	back := dir.Mul(-1).Normalize()
	right := up.Cross(back).Normalize()
	up = back.Cross(right)
	return mgl32.Mat4ToQuat(mgl32.Mat3FromCols(right, up, back).Mat4()).Normalize()
}

// Forward 当前朝向下的前方单位向量
func (p Pose) Forward() mgl32.Vec3 {
	return p.Rotation.Rotate(localForward)
}

// Translated 返回平移后的位姿，朝向不变
func (p Pose) Translated(offset mgl32.Vec3) Pose {
	return Pose{Position: p.Position.Add(offset), Rotation: p.Rotation}
}
