package scene

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Color RGBA，0~1
type Color [4]float32

var (
	Black = Color{0, 0, 0, 1}
	White = Color{1, 1, 1, 1}
)

// Ground 地面平面（静态布景）
type Ground struct {
	Size     float32    `json:"size"`
	Color    Color      `json:"color"`
	Position mgl32.Vec3 `json:"position"`
}

// DirectionalLight 方向光，默认朝 -Z 照射
type DirectionalLight struct {
	Illuminance float32    `json:"illuminance"`
	Color       Color      `json:"color"`
	Rotation    mgl32.Quat `json:"rotation"`
}

// LabelStyle 坐标文本的样式与位置（像素，绝对定位于左下角）
type LabelStyle struct {
	Font     string  `json:"font"`
	FontSize float32 `json:"fontSize"`
	Color    Color   `json:"color"`
	Left     float32 `json:"left"`
	Bottom   float32 `json:"bottom"`
	Align    string  `json:"align"`
}

// Scenery 客户端渲染所需的静态布景，加入会话时下发一次
type Scenery struct {
	Title  string           `json:"title"`
	Ground Ground           `json:"ground"`
	Light  DirectionalLight `json:"light"`
	Label  LabelStyle       `json:"label"`
}

// DefaultScenery 10x10 黑色地面 + 一盏默认方向光 + 左下角白色坐标文本
func DefaultScenery(title string) Scenery {
	return Scenery{
		Title:  title,
		Ground: Ground{Size: 10, Color: Black},
		Light: DirectionalLight{
			Illuminance: 100000,
			Color:       White,
			Rotation:    mgl32.QuatIdent(),
		},
		Label: LabelStyle{
			Font:     "fonts/NotoSans-Regular.ttf",
			FontSize: 20,
			Color:    White,
			Left:     10,
			Bottom:   10,
			Align:    "left",
		},
	}
}

// Preset 一个可选场景：布景 + 文本刷新策略
type Preset struct {
	Name    string
	Refresh LabelRefresh
}

// 两个场景只在文本刷新策略上不同
var presets = map[string]Preset{
	"zenn-2022-05-15": {Name: "zenn-2022-05-15", Refresh: RefreshOnTranslation},
	"zenn-2022-06-04": {Name: "zenn-2022-06-04", Refresh: RefreshOnAnyChange},
}

// DefaultPreset 未指定场景时使用
const DefaultPreset = "zenn-2022-05-15"

// LookupPreset 按名称查找场景
func LookupPreset(name string) (Preset, error) {
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown scene %q", name)
	}
	return p, nil
}

// PresetNames 所有场景名（排序）
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
