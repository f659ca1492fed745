package reader

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	name string
	exts []string
	text string
	err  error
}

func (f fakeReader) Name() string         { return f.name }
func (f fakeReader) Extensions() []string { return f.exts }
func (f fakeReader) Read(context.Context, string) (string, error) {
	return f.text, f.err
}

func TestNewRegistry_Duplicates(t *testing.T) {
	_, err := NewRegistry(nil, fakeReader{name: "a", exts: []string{".x"}}, fakeReader{name: "A", exts: []string{".y"}})
	assert.Error(t, err, "名称大小写不敏感")

	_, err = NewRegistry(nil, fakeReader{name: "a", exts: []string{".x"}}, fakeReader{name: "b", exts: []string{"X"}})
	assert.Error(t, err, "扩展名冲突")

	_, err = NewRegistry(nil, fakeReader{name: "a", exts: []string{" "}})
	assert.Error(t, err)
}

func TestRegistry_ForPath(t *testing.T) {
	txt := fakeReader{name: "text", exts: []string{".txt"}}
	pdf := fakeReader{name: "pdf", exts: []string{"PDF"}}
	reg, err := NewRegistry(txt, txt, pdf)
	require.NoError(t, err)

	rd, ok := reg.ForPath("/a/Book.PDF", false)
	require.True(t, ok)
	assert.Equal(t, "pdf", rd.Name())

	_, ok = reg.ForPath("/a/notes.rtf", false)
	assert.False(t, ok, "目录扫描出的未知扩展名不应被接受")

	rd, ok = reg.ForPath("/a/notes.rtf", true)
	require.True(t, ok)
	assert.Equal(t, "text", rd.Name())

	assert.Equal(t, map[string]bool{".txt": true, ".pdf": true}, reg.Extensions())
	assert.Equal(t, []string{"pdf", "text"}, reg.Names())

	got, ok := reg.Get(" PDF ")
	require.True(t, ok)
	assert.Equal(t, "pdf", got.Name())
}

func TestRegistry_Extract(t *testing.T) {
	boom := errors.New("boom")
	reg, err := NewRegistry(nil,
		fakeReader{name: "text", exts: []string{".txt"}, text: "hello"},
		fakeReader{name: "bad", exts: []string{".bad"}, err: boom},
	)
	require.NoError(t, err)

	text, name, err := reg.Extract(context.Background(), "a.txt", false)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "text", name)

	_, name, err = reg.Extract(context.Background(), "a.bad", false)
	require.Error(t, err)
	assert.Equal(t, "bad", name)
	assert.True(t, IsExtraction(err))
	assert.ErrorIs(t, err, boom)
	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "a.bad", ee.Path)
	assert.Contains(t, err.Error(), "reader=bad")

	_, _, err = reg.Extract(context.Background(), "a.doc", true)
	require.Error(t, err)
	assert.True(t, IsExtraction(err))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, []string{"支持的扩展名：.bad .txt"}, errors.GetAllHints(err))
}

func TestRegistry_ExtractCanceled(t *testing.T) {
	reg, err := NewRegistry(nil, fakeReader{name: "text", exts: []string{".txt"}, text: "x"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = reg.Extract(ctx, "a.txt", false)
	assert.ErrorIs(t, err, context.Canceled)
}
