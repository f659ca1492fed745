package mapping

import (
	"fmt"

	"github.com/John-Robertt/GameScript/internal/domain"
)

// UnknownSystemError 表示机型不在枚举内（配置校验之后不应出现）。
type UnknownSystemError struct {
	System domain.System
}

func (e *UnknownSystemError) Error() string {
	return fmt.Sprintf("未知 system：%q（只支持 ds / gb）", string(e.System))
}

// MapToInputs 按 sys 的映射表把 text 的每个字符翻译为一个按键。
//
// 结果与 text 的字符（rune）数严格等长、顺序一致；表外字符映射为 NO_INPUT。
// 对受支持的机型永不失败；唯一的错误是 *UnknownSystemError。
func MapToInputs(text string, sys domain.System) (domain.InputSequence, error) {
	t, ok := TableFor(sys)
	if !ok {
		return nil, &UnknownSystemError{System: sys}
	}
	seq := make(domain.InputSequence, 0, len(text))
	for _, r := range text {
		seq = append(seq, t.Lookup(r))
	}
	return seq, nil
}
