// Package script 把按键序列编码为模拟器需要的产物文件。
//
// 所有编码都是确定性的：同样的输入必须得到字节级一致的输出。
package script

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/domain"
)

// EncodeJSON 输出 inputs.json：按键名组成的 JSON 数组，两空格缩进，末尾换行。
func EncodeJSON(seq domain.InputSequence) ([]byte, error) {
	b, err := json.MarshalIndent(seq.Strings(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "编码 inputs.json")
	}
	return append(b, '\n'), nil
}

// DecodeJSON 读取 inputs.json；任何不在词表内的按键名都视为错误。
func DecodeJSON(b []byte) (domain.InputSequence, error) {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return nil, errors.Wrap(err, "解析 inputs.json")
	}
	seq := make(domain.InputSequence, 0, len(names))
	for i, n := range names {
		btn, ok := domain.ParseButton(n)
		if !ok {
			return nil, errors.Newf("第 %d 项不是合法按键名：%q", i, n)
		}
		seq = append(seq, btn)
	}
	return seq, nil
}

// EncodeInputsText 输出 game_inputs.txt：每行一个按键名（包括 NO_INPUT），以换行结尾。
func EncodeInputsText(seq domain.InputSequence) []byte {
	var b strings.Builder
	n := 0
	for _, btn := range seq {
		n += len(btn) + 1
	}
	b.Grow(n)
	for _, btn := range seq {
		b.WriteString(string(btn))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
