// Package normalize 把原始文档文本折叠为可查表的规范形态。
package normalize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EmptyInputError 表示规范化后文本为空（原文为空或全是空白）。
//
// 这是本次运行的终止性错误：调用方必须换输入，不允许带着空序列继续。
type EmptyInputError struct {
	// RawChars 是原文的字符数（全是空白时 > 0）。
	RawChars int
}

func (e *EmptyInputError) Error() string {
	if e.RawChars == 0 {
		return "输入文本为空"
	}
	return fmt.Sprintf("输入文本规范化后为空（原文 %d 个字符全部是空白）", e.RawChars)
}

// Normalize 去掉首尾空白，把每段连续空白（空格/制表符/换行等）替换为单个空格，并转为大写。
//
// 空白是 unicode.IsSpace 再加上 U+001C..U+001F（文件/组/记录/单元分隔符）。
func Normalize(text string) (string, error) {
	out := strings.ToUpper(strings.Join(strings.FieldsFunc(text, isSpace), " "))
	if out == "" {
		return "", &EmptyInputError{RawChars: utf8.RuneCountInString(text)}
	}
	return out, nil
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
