// Package docname 从文件名推导文档展示名与输出目录 slug。
package docname

import (
	"strings"
	"unicode"

	"github.com/John-Robertt/GameScript/internal/domain"
)

// EmptySlugError 表示文件名里没有任何可用于 slug 的字母或数字。
type EmptySlugError struct {
	Base string
}

func (e *EmptySlugError) Error() string {
	return "无法从文件名 " + quote(e.Base) + " 推导输出目录名；请重命名文件使其包含字母或数字"
}

// DisplayName 把文件名（不含扩展名）转换为展示名：
// '_' 与 '-' 视为空格，连续空白折叠，然后做 title case。
//
// title case 规则：字母前一个字符不是字母时大写，否则小写（"thesis_v2b" -> "Thesis V2B"）。
func DisplayName(base string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(base)
	s = strings.Join(strings.Fields(s), " ")

	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

// Slug 把文件名转换为输出目录名：小写，非 [a-z0-9] 的连续片段替换为单个 '-'。
// 非 ASCII 字母不参与 slug（避免不同平台文件系统的大小写/规范化差异）。
func Slug(base string) (domain.Slug, error) {
	var b strings.Builder
	b.Grow(len(base))
	dash := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}

	s, ok := domain.ParseSlug(b.String())
	if !ok {
		return "", &EmptySlugError{Base: base}
	}
	return s, nil
}

func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}
