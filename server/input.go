package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"firstperson/scene"
)

// Input 客户端输入（按键意图），由会话在 Tick 中应用到按键状态
type Input struct {
	// Snapshot 为 true 时用 Pressed 整体替换当前按键状态
	Snapshot bool
	Pressed  []scene.KeyCode

	Code scene.KeyCode
	Down bool
}

// apply 更新按键状态
func (in Input) apply(keys scene.KeyState) {
	if in.Snapshot {
		for k := range keys {
			delete(keys, k)
		}
		for _, k := range in.Pressed {
			keys.Set(k, true)
		}
		return
	}
	keys.Set(in.Code, in.Down)
}

// Envelope 入站/出站消息外壳（WebSocket 文本消息）
// 示例：{"type":"key","data":{"code":"KeyW","pressed":true}}
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// KeyMessage 单个按键按下/松开
type KeyMessage struct {
	Code    string `mapstructure:"code"`
	Pressed bool   `mapstructure:"pressed"`
}

// KeysMessage 当前所有按下的按键（整体快照）
type KeysMessage struct {
	Pressed []string `mapstructure:"pressed"`
}

// ParseInput 解析一条入站消息；未绑定的按键会被忽略
func ParseInput(payload []byte) (Input, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Input{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch strings.ToLower(env.Type) {
	case "key":
		var km KeyMessage
		if err := mapstructure.Decode(env.Data, &km); err != nil {
			return Input{}, fmt.Errorf("decode key: %w", err)
		}
		code := scene.KeyCode(km.Code)
		if !scene.KnownKey(code) {
			return Input{}, fmt.Errorf("unbound key %q", km.Code)
		}
		return Input{Code: code, Down: km.Pressed}, nil
	case "keys":
		var ks KeysMessage
		if err := mapstructure.Decode(env.Data, &ks); err != nil {
			return Input{}, fmt.Errorf("decode keys: %w", err)
		}
		in := Input{Snapshot: true}
		for _, c := range ks.Pressed {
			if code := scene.KeyCode(c); scene.KnownKey(code) {
				in.Pressed = append(in.Pressed, code)
			}
		}
		return in, nil
	default:
		return Input{}, fmt.Errorf("unknown message type %q", env.Type)
	}
}
