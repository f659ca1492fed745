package domain

// Timing 控制脚本回放节奏（单位：帧）。
type Timing struct {
	HoldFrames int `json:"hold_frames" toml:"hold_frames"`
	GapFrames  int `json:"gap_frames" toml:"gap_frames"`
}

const (
	DefaultHoldFrames = 2
	DefaultGapFrames  = 2
)

// DefaultTiming 是脚本回放节奏的内置默认值。
func DefaultTiming() Timing {
	return Timing{HoldFrames: DefaultHoldFrames, GapFrames: DefaultGapFrames}
}

// ScriptMeta 是生成回放脚本所需的全部信息。
//
// 约束：同样的 ScriptMeta 必须生成字节级一致的脚本（不写时间戳等非确定字段）。
type ScriptMeta struct {
	Name      string // 文档展示名
	Source    string // 源文件名（仅展示）
	System    System
	Inputs    InputSequence
	Timing    Timing
	InputFile string // 脚本读取的按键文件名，默认 game_inputs.txt
}
