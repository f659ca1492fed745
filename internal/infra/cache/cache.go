package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/domain"
	"github.com/John-Robertt/GameScript/internal/infra/fsx"
)

// DirName 是缓存目录名（位于输出根目录下；以 '.' 开头，不会与 slug 冲突）。
const DirName = ".cache"

// Store 提供 <out>/.cache/ 下的文件缓存读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - 正常运行：允许写（ReadOnly=false）
type Store struct {
	Root     string // <out>（输出根目录）
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// TextPath 返回“已提取文本”缓存的绝对路径（按源文件内容的 sha256 寻址）。
func (s Store) TextPath(hash string) (string, error) {
	h, err := cleanHash(hash)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, DirName, "text", h+".txt"), nil
}

// StatePath 返回生成记录的绝对路径。
func (s Store) StatePath(slug domain.Slug) (string, error) {
	if _, ok := domain.ParseSlug(string(slug)); !ok {
		return "", errors.Newf("非法 slug：%q", slug)
	}
	return filepath.Join(s.Root, DirName, "state", string(slug)+".json"), nil
}

func (s Store) ReadText(hash string) (string, bool, error) {
	path, err := s.TextPath(hash)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

func (s Store) WriteText(hash, text string) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	h, err := cleanHash(hash)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Join(s.Root, DirName, "text"), h+".txt", []byte(text))
}

// ReadState 读取生成记录。记录损坏视为不存在（下一次生成会覆盖它）。
func (s Store) ReadState(slug domain.Slug) (*domain.GenState, bool, error) {
	path, err := s.StatePath(slug)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var st domain.GenState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, false, nil
	}
	return &st, true, nil
}

func (s Store) WriteState(slug domain.Slug, st domain.GenState) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if _, err := s.StatePath(slug); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(filepath.Join(s.Root, DirName, "state"), string(slug)+".json", b)
}

// HashFile 计算文件内容的 sha256（十六进制小写）。
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "读取 %q", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TextKey 把源文件 hash 与 reader 名组合成文本缓存的键：
// 同样的字节被不同 reader 读取（例如 .txt 与 .html）时得到不同的文本。
func TextKey(sourceHash, readerName string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(readerName) + "\x00" + strings.ToLower(sourceHash)))
	return hex.EncodeToString(sum[:])
}

var hashRE = regexp.MustCompile(`^[0-9a-f]{64}$`)

func cleanHash(h string) (string, error) {
	h = strings.ToLower(strings.TrimSpace(h))
	// 最小约束：避免路径穿越；hash 只能是 sha256 的十六进制形态。
	if !hashRE.MatchString(h) {
		return "", errors.Newf("非法 hash：%q", h)
	}
	return h, nil
}
