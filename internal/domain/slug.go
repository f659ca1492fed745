package domain

import (
	"regexp"
	"strings"
)

// Slug 是文档输出目录的主键（形如 portuguese-constitution）。
//
// 约束：不同文档不允许落到同一个 slug；宁可报冲突，也不允许互相覆盖产物。
type Slug string

var slugRE = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ParseSlug 校验已规范化的 slug 字符串。
func ParseSlug(s string) (Slug, bool) {
	s = strings.TrimSpace(s)
	if !slugRE.MatchString(s) {
		return "", false
	}
	return Slug(s), true
}
