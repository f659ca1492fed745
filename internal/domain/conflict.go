package domain

// Conflict 描述无法安全处理的输入文档。
// 用于 report 的冲突/非法条目（例如两个文档映射到同一个 slug）。
type Conflict struct {
	Doc   Document
	Kind  string // "slug_collision" | "invalid_name"
	Slug  Slug   // slug_collision 时为冲突的 slug
	Peers []string
}

const (
	ConflictSlugCollision = "slug_collision"
	ConflictInvalidName   = "invalid_name"
)
