package html

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_BodyTextOnly(t *testing.T) {
	p := writeFile(t, "page.html", `<!doctype html>
<html><head><title>Head Title</title><style>p { color: red }</style></head>
<body>
<p>Hello</p><script>var secret = 1;</script><p>World</p>
<noscript>enable js</noscript>
</body></html>`)

	got, err := Reader{}.Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "World"}, strings.Fields(got))
}

func TestRead_BlocksDoNotGlue(t *testing.T) {
	p := writeFile(t, "page.htm", `<body><div>one</div><div>two</div>three<br>four<ul><li>five</li><li>six</li></ul></body>`)

	got, err := Reader{}.Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four", "five", "six"}, strings.Fields(got))
}

func TestRead_TextBeforeBlockDoesNotGlue(t *testing.T) {
	p := writeFile(t, "inline.html", `<body>intro<p>para</p>tail<div>box</div><span>a</span><h2>title</h2></body>`)

	got, err := Reader{}.Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "para", "tail", "box", "a", "title"}, strings.Fields(got))
}

func TestRead_EntitiesAndBOM(t *testing.T) {
	p := writeFile(t, "bom.html", "\xEF\xBB\xBF<body><p>A &amp; B&nbsp;C</p></body>")

	got, err := Reader{}.Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "A & B\u00a0C", strings.TrimSpace(got))
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Reader{}.Read(context.Background(), filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_Canceled(t *testing.T) {
	p := writeFile(t, "a.html", "<p>x</p>")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reader{}.Read(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
