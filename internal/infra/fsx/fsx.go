package fsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
// 上层可把它映射为 error_code=target_conflict。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// File 是 WriteSet 的一个写入单元。
type File struct {
	Name string
	Data []byte
}

// EnsureDir 确保 dir 存在且是目录；若同名路径是文件则返回 PathTypeConflictError。
func EnsureDir(dir string) error {
	fi, err := os.Stat(dir)
	if err == nil {
		if fi.IsDir() {
			return nil
		}
		return &PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteFileAtomic 在 dir 下原子写入 name（临时文件 + rename），若目标已存在则覆盖。
//
// 目标路径若已存在但不是普通文件，返回 PathTypeConflictError（不会删除目录）。
func WriteFileAtomic(dir, name string, data []byte) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)
	if _, err := checkTarget(dst); err != nil {
		return err
	}

	tmp, err := stage(dir, name, data)
	if err != nil {
		return err
	}
	if err := renameFunc(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "替换 %q", dst)
	}
	_ = syncDirBestEffort(dir)
	return nil
}

// WriteSet 把一组文件写入同一目录，语义是“全有或全无”：
//
//   - 先把全部内容写入同目录临时文件并 fsync（任何一步失败都不触碰目标文件）
//   - 再逐个 rename 替换；已存在的旧文件先改名为备份
//   - 中途失败：倒序回滚（恢复备份；原本不存在的目标被删除），然后返回错误
//
// 回滚本身是 best-effort；回滚失败的路径会附加到返回错误的 detail 中。
func WriteSet(dir string, files []File) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	type entry struct {
		dst    string
		tmp    string
		backup string // 旧文件备份路径；"" 表示原本不存在
	}

	entries := make([]entry, 0, len(files))
	cleanupTemps := func() {
		for _, e := range entries {
			if e.tmp != "" {
				_ = os.Remove(e.tmp)
			}
		}
	}

	for _, f := range files {
		dst := filepath.Join(dir, f.Name)
		if _, err := checkTarget(dst); err != nil {
			cleanupTemps()
			return err
		}
		tmp, err := stage(dir, f.Name, f.Data)
		if err != nil {
			cleanupTemps()
			return err
		}
		entries = append(entries, entry{dst: dst, tmp: tmp})
	}

	committed := 0
	rollback := func(cause error) error {
		var failed []string
		for i := committed - 1; i >= 0; i-- {
			e := entries[i]
			var rerr error
			if e.backup != "" {
				rerr = renameFunc(e.backup, e.dst)
			} else {
				rerr = os.Remove(e.dst)
			}
			if rerr != nil && !os.IsNotExist(rerr) {
				failed = append(failed, e.dst)
			}
		}
		cleanupTemps()
		if len(failed) > 0 {
			return errors.WithDetailf(cause, "回滚失败的文件：%v", failed)
		}
		return cause
	}

	for i := range entries {
		e := &entries[i]

		exists, err := checkTarget(e.dst)
		if err != nil {
			return rollback(err)
		}
		if exists {
			e.backup = e.tmp + ".bak"
			if err := renameFunc(e.dst, e.backup); err != nil {
				e.backup = ""
				return rollback(errors.Wrapf(err, "备份 %q", e.dst))
			}
		}
		if err := renameFunc(e.tmp, e.dst); err != nil {
			if e.backup != "" {
				_ = renameFunc(e.backup, e.dst)
			}
			return rollback(errors.Wrapf(err, "替换 %q", e.dst))
		}
		e.tmp = ""
		committed++
	}

	for _, e := range entries {
		if e.backup != "" {
			_ = os.Remove(e.backup)
		}
	}
	_ = syncDirBestEffort(dir)
	return nil
}

// checkTarget 返回目标是否已存在；存在但不是普通文件时返回 PathTypeConflictError。
func checkTarget(dst string) (bool, error) {
	fi, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if fi.IsDir() {
		return true, &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}
	if !fi.Mode().IsRegular() {
		return true, &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return true, nil
}

// stage 在 dir 下创建临时文件（前缀带 '.'），写入并 fsync，返回临时文件路径。
// 临时文件必须与目标文件在同目录，以保证 rename 的原子性。
func stage(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if err := writeAll(tmp, data); err != nil {
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	ok = true
	return tmpName, nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
