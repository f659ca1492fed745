// Package pdf 提取 PDF 文档中的纯文本。
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	lpdf "github.com/ledongthuc/pdf"
)

// ErrNoText 表示 PDF 中没有任何可提取的文本（常见于扫描件）。
var ErrNoText = errors.New("PDF 中没有可提取的文本")

// Reader 实现 PDF 文本提取。
//
// 规则：逐页提取，只保留有文本的页，页与页之间用换行连接。
// 底层解析库对畸形文件可能 panic，这里统一转换为 error。
type Reader struct{}

func (Reader) Name() string { return "pdf" }

func (Reader) Extensions() []string { return []string{".pdf"} }

func (Reader) Read(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithHint(
				errors.Newf("解析 PDF 失败：%v", r),
				"文件可能已损坏或使用了不支持的加密/压缩方式",
			)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "打开 PDF")
	}
	defer f.Close()

	n := r.NumPage()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "提取第 %d 页文本", i)
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		parts = append(parts, s)
	}

	if len(parts) == 0 {
		return "", errors.WithHint(
			errors.Wrap(ErrNoText, fmt.Sprintf("共 %d 页", n)),
			"扫描件需要先做 OCR；也可以先把文本另存为 .txt 再转换",
		)
	}
	return strings.Join(parts, "\n"), nil
}
