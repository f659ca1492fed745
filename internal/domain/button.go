package domain

// Button 是手柄输入词表中的一个按键名（封闭枚举）。
//
// 序列化形态就是字符串本身（例如 "UP"、"NO_INPUT"），下游脚本按名字消费。
type Button string

const (
	ButtonUp     Button = "UP"
	ButtonDown   Button = "DOWN"
	ButtonLeft   Button = "LEFT"
	ButtonRight  Button = "RIGHT"
	ButtonA      Button = "A"
	ButtonB      Button = "B"
	ButtonStart  Button = "START"
	ButtonSelect Button = "SELECT"
	ButtonL      Button = "L"
	ButtonR      Button = "R"

	// NoInput 表示这一步不按任何键（空格、换行、未知字符）。
	NoInput Button = "NO_INPUT"
)

// Buttons 按固定顺序返回完整词表（NO_INPUT 在最后）。
func Buttons() []Button {
	return []Button{
		ButtonUp, ButtonDown, ButtonLeft, ButtonRight,
		ButtonA, ButtonB, ButtonStart, ButtonSelect,
		ButtonL, ButtonR,
		NoInput,
	}
}

// ParseButton 校验按键名；只接受词表内的精确大写名字。
func ParseButton(s string) (Button, bool) {
	for _, b := range Buttons() {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

// Pressed 报告该按键是否真的需要按下（NO_INPUT 返回 false）。
func (b Button) Pressed() bool { return b != NoInput && b != "" }
