package scene

const (
	// MoveUnit 前进/后退速度（距离单位/秒）
	MoveUnit float32 = 10
	// TurnUnit 转向角速度（弧度/秒）
	TurnUnit float32 = 1
)

// Action 逻辑按键
type Action int

const (
	ActionForward Action = iota
	ActionBackward
	ActionLeft
	ActionRight
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionBackward:
		return "backward"
	case ActionLeft:
		return "left"
	case ActionRight:
		return "right"
	default:
		return "unknown"
	}
}

// KeyCode 物理按键，取值与浏览器 KeyboardEvent.code 一致
type KeyCode string

const (
	KeyW          KeyCode = "KeyW"
	KeyA          KeyCode = "KeyA"
	KeyS          KeyCode = "KeyS"
	KeyD          KeyCode = "KeyD"
	KeyArrowUp    KeyCode = "ArrowUp"
	KeyArrowDown  KeyCode = "ArrowDown"
	KeyArrowLeft  KeyCode = "ArrowLeft"
	KeyArrowRight KeyCode = "ArrowRight"
)

// Bindings 每个逻辑按键绑定两个物理按键
var Bindings = map[Action][2]KeyCode{
	ActionForward:  {KeyW, KeyArrowUp},
	ActionBackward: {KeyS, KeyArrowDown},
	ActionLeft:     {KeyA, KeyArrowLeft},
	ActionRight:    {KeyD, KeyArrowRight},
}

// KnownKey 是否为绑定过的物理按键
func KnownKey(code KeyCode) bool {
	for _, keys := range Bindings {
		if keys[0] == code || keys[1] == code {
			return true
		}
	}
	return false
}

// KeyState 当前按下的物理按键集合；nil 视为没有任何输入设备
type KeyState map[KeyCode]bool

// Set 记录按下/松开
func (k KeyState) Set(code KeyCode, pressed bool) {
	if pressed {
		k[code] = true
		return
	}
	delete(k, code)
}

// Pressed 逻辑按键任一绑定被按下即为 true
func (k KeyState) Pressed(a Action) bool {
	keys, ok := Bindings[a]
	if !ok {
		return false
	}
	return k[keys[0]] || k[keys[1]]
}

// Intent 每个 Tick 从输入得出的意图（积分前的速度与角速度）
type Intent struct {
	Move float32 // 正为前进
	Turn float32 // 正为左转
}

// IsZero 无任何意图
func (i Intent) IsZero() bool {
	return i.Move == 0 && i.Turn == 0
}

// Sample 按键状态 → 意图；前后、左右同时按下时相互抵消
func Sample(keys KeyState) Intent {
	var in Intent
	if keys.Pressed(ActionForward) {
		in.Move += MoveUnit
	}
	if keys.Pressed(ActionBackward) {
		in.Move -= MoveUnit
	}
	if keys.Pressed(ActionLeft) {
		in.Turn += TurnUnit
	}
	if keys.Pressed(ActionRight) {
		in.Turn -= TurnUnit
	}
	return in
}
