package domain

import "fmt"

// System 选择目标机型的映射表。
type System string

const (
	SystemDS System = "ds" // Nintendo DS
	SystemGB System = "gb" // Game Boy / Game Boy Advance
)

// DefaultSystem 是 CLI 与配置文件都未指定时的最终默认值。
const DefaultSystem = SystemDS

// Systems 返回全部受支持的机型（稳定顺序）。
func Systems() []System { return []System{SystemDS, SystemGB} }

// ParseSystem 只接受字面量 "ds" / "gb"。
func ParseSystem(s string) (System, error) {
	switch System(s) {
	case SystemDS, SystemGB:
		return System(s), nil
	case "":
		return "", fmt.Errorf("system 不能为空")
	default:
		return "", fmt.Errorf("system 只能是 ds 或 gb，实际是 %q", s)
	}
}

// Label 返回用于展示的机型名称。
func (s System) Label() string {
	switch s {
	case SystemDS:
		return "Nintendo DS"
	case SystemGB:
		return "Game Boy / Game Boy Advance"
	default:
		return string(s)
	}
}
