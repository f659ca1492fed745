// Package mapping 把规范化文本逐字符翻译为手柄按键序列。
//
// 映射表是纯数据：每个机型一张完整的静态表，查表未命中统一回退为 NO_INPUT。
// 新增机型只需要在 tables 里加一项，不需要新增分支逻辑。
package mapping

import (
	"sort"

	"github.com/John-Robertt/GameScript/internal/domain"
)

// Table 是单个机型的字符 -> 按键映射表（只读）。
type Table map[rune]domain.Button

// Lookup 查表；未知字符返回 NO_INPUT（get-with-default，而不是部分函数）。
func (t Table) Lookup(r rune) domain.Button {
	if b, ok := t[r]; ok {
		return b
	}
	return domain.NoInput
}

// Chars 返回表中定义的全部字符（按码点排序，便于稳定展示）。
func (t Table) Chars() []rune {
	out := make([]rune, 0, len(t))
	for r := range t {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var (
	up     = domain.ButtonUp
	down   = domain.ButtonDown
	left   = domain.ButtonLeft
	right  = domain.ButtonRight
	btnA   = domain.ButtonA
	btnB   = domain.ButtonB
	start  = domain.ButtonStart
	sel    = domain.ButtonSelect
	btnL   = domain.ButtonL
	btnR   = domain.ButtonR
	noneIn = domain.NoInput
)

var dsTable = Table{
	'A': up, 'B': down, 'C': left, 'D': right,
	'E': btnA, 'F': btnB, 'G': start, 'H': sel,
	'I': btnL, 'J': btnR, 'K': up, 'L': down,
	'M': left, 'N': right, 'O': btnA, 'P': btnB,
	'Q': btnL, 'R': btnR, 'S': start, 'T': sel,
	'U': left, 'V': right, 'W': up, 'X': down,
	'Y': btnA, 'Z': btnB,

	' ':  noneIn,
	'.':  btnA,
	',':  btnB,
	';':  start,
	':':  sel,
	'\n': noneIn,
}

// Game Boy 没有肩键：DS 表里映射到 L/R 的字符在这里改用 A/B/START/SELECT。
var gbTable = Table{
	'A': up, 'B': down, 'C': left, 'D': right,
	'E': btnA, 'F': btnB, 'G': start, 'H': sel,
	'I': btnA, 'J': btnB, 'K': up, 'L': down,
	'M': left, 'N': right, 'O': btnA, 'P': btnB,
	'Q': start, 'R': sel, 'S': start, 'T': sel,
	'U': left, 'V': right, 'W': up, 'X': down,
	'Y': btnA, 'Z': btnB,

	' ':  noneIn,
	'.':  btnA,
	',':  btnB,
	';':  start,
	':':  sel,
	'\n': noneIn,
}

var tables = map[domain.System]Table{
	domain.SystemDS: dsTable,
	domain.SystemGB: gbTable,
}

// TableFor 返回机型对应的映射表。返回的表是共享的只读数据，调用方不得修改。
func TableFor(sys domain.System) (Table, bool) {
	t, ok := tables[sys]
	return t, ok
}

// Systems 返回有映射表的机型（稳定顺序）。
func Systems() []domain.System {
	out := make([]domain.System, 0, len(tables))
	for s := range tables {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
