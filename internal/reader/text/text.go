// Package text 读取纯文本文档（UTF-8，可带 BOM；带 BOM 的 UTF-16 也能识别）。
package text

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Reader 实现纯文本读取。
//
// 非法 UTF-8 字节会被替换为 U+FFFD（映射阶段按未知字符处理为 NO_INPUT），不会中止读取。
type Reader struct{}

func (Reader) Name() string { return "text" }

func (Reader) Extensions() []string { return []string{".txt", ".md", ".text"} }

func (Reader) Read(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "打开文本文件")
	}
	defer f.Close()

	// BOMOverride：有 BOM 时按 BOM 指示的编码解码（并去掉 BOM），否则按 UTF-8。
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	b, err := io.ReadAll(transform.NewReader(&ctxReader{ctx: ctx, r: f}, dec))
	if err != nil {
		return "", errors.Wrap(err, "解码文本文件")
	}
	return string(b), nil
}

// ctxReader 让大文件读取可以被 ctx 取消。
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
