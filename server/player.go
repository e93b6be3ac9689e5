package server

import (
	"firstperson/scene"
)

// PoseState 广播给客户端的位姿；rotation 顺序为 x,y,z,w
type PoseState struct {
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
}

func poseState(p scene.Pose) PoseState {
	return PoseState{
		Position: [3]float32{p.Position.X(), p.Position.Y(), p.Position.Z()},
		Rotation: [4]float32{p.Rotation.X(), p.Rotation.Y(), p.Rotation.Z(), p.Rotation.W},
	}
}

// SceneMessage 加入会话时下发一次：静态布景 + 初始派生视图
type SceneMessage struct {
	Type           string        `json:"type"`
	Session        string        `json:"session"`
	Scene          string        `json:"scene"`
	TicksPerSecond int           `json:"ticksPerSecond"`
	Scenery        scene.Scenery `json:"scenery"`
	Player         PoseState     `json:"player"`
	Camera         PoseState     `json:"camera"`
	Label          string        `json:"label"`
}

// FrameMessage 同步阶段有写入时才下发
type FrameMessage struct {
	Type   string     `json:"type"`
	Seq    int64      `json:"seq"`
	Change string     `json:"change"`
	Player PoseState  `json:"player"`
	Camera *PoseState `json:"camera,omitempty"`
	Label  *string    `json:"label,omitempty"`
}

func frameMessage(f scene.Frame) FrameMessage {
	msg := FrameMessage{
		Type:   "frame",
		Seq:    f.Seq,
		Change: f.Change.String(),
		Player: poseState(f.Pose),
	}
	if f.Writes.Camera() {
		cam := poseState(f.Camera)
		msg.Camera = &cam
	}
	if f.Writes.Label() {
		label := f.Label
		msg.Label = &label
	}
	return msg
}
