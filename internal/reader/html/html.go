// Package html 提取 HTML 文档 <body> 中的可见文本。
package html

import (
	"context"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// 这些元素的前后都视为换行，避免与相邻文字粘连。
const blockSelector = "p,div,li,tr,section,article,header,footer,blockquote,pre,h1,h2,h3,h4,h5,h6"

// Reader 实现 HTML 文本提取。
//
// 注意：goquery 不执行 CSS/JS；script/style/noscript/template 在取文本前移除。
type Reader struct{}

func (Reader) Name() string { return "html" }

func (Reader) Extensions() []string { return []string{".html", ".htm"} }

func (Reader) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "打开 HTML")
	}
	defer f.Close()

	// 只处理 BOM；无 BOM 时按 UTF-8 解析。
	dec := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	doc, err := goquery.NewDocumentFromReader(dec)
	if err != nil {
		return "", errors.Wrap(err, "解析 HTML")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return bodyText(doc), nil
}

func bodyText(doc *goquery.Document) string {
	doc.Find("script,style,noscript,template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	blocks := doc.Find(blockSelector)
	blocks.BeforeHtml("\n")
	blocks.AfterHtml("\n")

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return doc.Text()
	}
	return body.Text()
}
