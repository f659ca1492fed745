package domain

// WorkItem 是按 slug 聚合后的工作单元。
// WorkItem 只保存文件下标（指向 []Document），避免复制结构体。
type WorkItem struct {
	Slug   Slug
	DocIdx int
}
