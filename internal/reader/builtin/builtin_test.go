package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	assert.Equal(t, []string{"html", "pdf", "text"}, reg.Names())
	for _, ext := range []string{".txt", ".md", ".pdf", ".html", ".htm"} {
		assert.True(t, reg.Extensions()[ext], ext)
	}

	rd, ok := reg.ForPath("notes.rtf", true)
	require.True(t, ok)
	assert.Equal(t, "text", rd.Name())
}
