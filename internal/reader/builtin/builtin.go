// Package builtin 组装内置的文档 reader。
package builtin

import (
	"github.com/John-Robertt/GameScript/internal/reader"
	"github.com/John-Robertt/GameScript/internal/reader/html"
	"github.com/John-Robertt/GameScript/internal/reader/pdf"
	"github.com/John-Robertt/GameScript/internal/reader/text"
)

// Registry 返回 text/pdf/html 三个 reader；点名的未知扩展名文件按纯文本读取。
func Registry() (reader.Registry, error) {
	return reader.NewRegistry(text.Reader{}, text.Reader{}, pdf.Reader{}, html.Reader{})
}
