package domain

// ItemPlan 是对某个文档的最小执行计划（只描述要做什么；真正执行在 run 包）。
type ItemPlan struct {
	Slug   Slug
	Doc    Document
	Name   string // 展示用文档名
	System System
	OutDir string

	// Skip=true 表示产物齐全且生成记录未过期。
	Skip bool
}
