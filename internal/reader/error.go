package reader

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ExtractionError 是文档读取阶段的可追溯错误。
// 上层把它归类为 extract_failed：该文档在进入规范化之前就终止。
type ExtractionError struct {
	Reader string // reader name（小写）；未找到 reader 时为空
	Path   string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Reader == "" {
		return fmt.Sprintf("path=%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("reader=%s path=%s: %v", e.Reader, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsExtraction 判断 err 是否为 ExtractionError。
func IsExtraction(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

// ErrUnsupported 表示没有 reader 能处理该扩展名。
var ErrUnsupported = errors.New("不支持的文档格式")
