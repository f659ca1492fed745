package domain

// Document 描述一次扫描得到的输入文档（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 扫描阶段只做 stat，不读文件内容
type Document struct {
	AbsPath string
	RelPath string
	Base    string // filename without ext
	Ext     string // ".pdf"（小写）
	Size    int64
	ModUnix int64

	// Explicit 表示该文件是 CLI/配置直接点名的（而不是目录扫描得到的）。
	// 点名的文件即使扩展名未知，也按纯文本读取。
	Explicit bool
}
