package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/domain"
)

// NotFoundError 表示 CLI/配置给出的输入路径不存在。
// 上层把它映射为 error_code=input_not_found。
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("输入路径不存在：%q", e.Path)
}

// ScanDocuments 把输入路径展开为待处理文档。
//
// 规则（硬约束）：
// - 输入是文件：直接接受（不看扩展名，Explicit=true）
// - 输入是目录：递归遍历，只保留 exts 中的扩展名（小写、带 '.'）
// - 永久排除 outDir；excludeDirs 相对每个目录输入解析（绝对路径按绝对路径处理）
// - 输出按 RelPath 排序，并按 AbsPath 去重
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanDocuments(inputs []string, outDir string, excludeDirs []string, exts map[string]bool) ([]domain.Document, error) {
	absOut := ""
	if strings.TrimSpace(outDir) != "" {
		p, err := filepath.Abs(outDir)
		if err != nil {
			return nil, err
		}
		absOut = filepath.Clean(p)
	}

	seen := make(map[string]bool, 64)
	docs := make([]domain.Document, 0, 64)
	add := func(d domain.Document) {
		if seen[d.AbsPath] {
			return
		}
		seen[d.AbsPath] = true
		docs = append(docs, d)
	}

	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &NotFoundError{Path: in}
			}
			return nil, errors.Wrapf(err, "读取输入 %q", in)
		}

		if !fi.IsDir() {
			if !fi.Mode().IsRegular() {
				return nil, errors.Newf("输入不是普通文件：%q", in)
			}
			add(newDocument(abs, filepath.Base(abs), fi, true))
			continue
		}

		found, err := walkDir(abs, buildExcluded(abs, absOut, excludeDirs), exts)
		if err != nil {
			return nil, errors.Wrapf(err, "扫描目录 %q", in)
		}
		for _, d := range found {
			add(d)
		}
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].RelPath != docs[j].RelPath {
			return docs[i].RelPath < docs[j].RelPath
		}
		return docs[i].AbsPath < docs[j].AbsPath
	})
	return docs, nil
}

// walkDir 遍历 root；RelPath 以 root 的目录名开头（例如 docs/a/b.txt）。
func walkDir(root string, excluded []string, exts map[string]bool) ([]domain.Document, error) {
	parent := filepath.Dir(root)

	var out []domain.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if !exts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		out = append(out, newDocument(path, rel, info, false))
		return nil
	})
	return out, err
}

func newDocument(abs, rel string, info fs.FileInfo, explicit bool) domain.Document {
	name := filepath.Base(abs)
	ext := filepath.Ext(name)
	return domain.Document{
		AbsPath:  filepath.Clean(abs),
		RelPath:  filepath.ToSlash(rel),
		Base:     strings.TrimSuffix(name, ext),
		Ext:      strings.ToLower(ext),
		Size:     info.Size(),
		ModUnix:  info.ModTime().Unix(),
		Explicit: explicit,
	}
}

func buildExcluded(root, absOut string, excludeDirs []string) []string {
	excluded := make([]string, 0, 1+len(excludeDirs))
	if absOut != "" {
		excluded = append(excluded, absOut)
	}

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
