package reader

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Reader 把“文档格式差异”限制在 reader 包内部；核心流程只拿到一段原始文本。
//
// 约束：
// - Read 只读不写，不做缓存（缓存由 run 层统一实现）
// - 同一文件多次 Read 必须得到相同文本
// - Extensions 返回小写、带 '.' 的扩展名
type Reader interface {
	Name() string
	Extensions() []string
	Read(ctx context.Context, path string) (string, error)
}

// Registry 是 reader 的只读注册表（按 name 与扩展名索引）。
type Registry struct {
	byName   map[string]Reader
	byExt    map[string]Reader
	fallback Reader
}

// NewRegistry 注册 readers；fallback 用于 CLI 点名但扩展名未知的文件（可以为 nil）。
func NewRegistry(fallback Reader, readers ...Reader) (Registry, error) {
	byName := make(map[string]Reader, len(readers))
	byExt := make(map[string]Reader, len(readers)*2)
	for _, r := range readers {
		if r == nil {
			return Registry{}, errors.Newf("reader 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(r.Name()))
		if name == "" {
			return Registry{}, errors.Newf("reader.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, errors.Newf("重复的 reader：%q", name)
		}
		byName[name] = r

		for _, ext := range r.Extensions() {
			ext = normExt(ext)
			if ext == "" {
				return Registry{}, errors.Newf("reader %q 声明了空扩展名", name)
			}
			if prev, ok := byExt[ext]; ok {
				return Registry{}, errors.Newf("扩展名 %q 同时注册给了 %q 与 %q", ext, prev.Name(), name)
			}
			byExt[ext] = r
		}
	}
	return Registry{byName: byName, byExt: byExt, fallback: fallback}, nil
}

func (r Registry) Get(name string) (Reader, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	rd, ok := r.byName[name]
	return rd, ok
}

// ForPath 按扩展名选择 reader；explicit=true 时未知扩展名回退到 fallback。
func (r Registry) ForPath(path string, explicit bool) (Reader, bool) {
	if rd, ok := r.byExt[normExt(filepath.Ext(path))]; ok {
		return rd, true
	}
	if explicit && r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Extract 选择 reader 并读取 path；任何失败都包装为 *ExtractionError（错误链中保留 hint）。
func (r Registry) Extract(ctx context.Context, path string, explicit bool) (text string, readerName string, err error) {
	rd, ok := r.ForPath(path, explicit)
	if !ok {
		err := errors.WithHintf(ErrUnsupported, "支持的扩展名：%s", strings.Join(r.sortedExts(), " "))
		return "", "", &ExtractionError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", rd.Name(), &ExtractionError{Reader: rd.Name(), Path: path, Err: err}
	}
	text, err = rd.Read(ctx, path)
	if err != nil {
		return "", rd.Name(), &ExtractionError{Reader: rd.Name(), Path: path, Err: err}
	}
	return text, rd.Name(), nil
}

// Extensions 返回全部已注册扩展名的集合（供扫描阶段过滤目录内文件）。
func (r Registry) Extensions() map[string]bool {
	out := make(map[string]bool, len(r.byExt))
	for ext := range r.byExt {
		out[ext] = true
	}
	return out
}

// Names 返回已注册 reader 名称（已排序）。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r Registry) sortedExts() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
