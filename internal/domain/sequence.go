package domain

// InputSequence 是文档“演奏”出来的有序按键序列。
//
// 不变量：长度等于规范化文本的字符（rune）数；顺序与原文一致，不丢弃、不重排。
type InputSequence []Button

// Strings 返回按键名切片（JSON 持久化与 game_inputs.txt 都用这个形态）。
func (s InputSequence) Strings() []string {
	out := make([]string, len(s))
	for i, b := range s {
		out[i] = string(b)
	}
	return out
}

// Counts 统计每个按键出现的次数（只包含出现过的按键）。
func (s InputSequence) Counts() map[string]int {
	m := make(map[string]int, 11)
	for _, b := range s {
		m[string(b)]++
	}
	return m
}

// Pressed 返回真正需要按键的步数（不含 NO_INPUT）。
func (s InputSequence) Pressed() int {
	n := 0
	for _, b := range s {
		if b.Pressed() {
			n++
		}
	}
	return n
}
