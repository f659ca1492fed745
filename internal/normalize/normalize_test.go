package normalize

import (
	"errors"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CollapseAndUpper(t *testing.T) {
	got, err := Normalize("  Hello   World  ")
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", got)
}

func TestNormalize_MixedWhitespace(t *testing.T) {
	got, err := Normalize("line one\n\n\tline\r\ntwo end")
	require.NoError(t, err)
	assert.Equal(t, "LINE ONE LINE TWO END", got)
}

func TestNormalize_InformationSeparatorsAreWhitespace(t *testing.T) {
	got, err := Normalize("a\x1cb\x1dc\x1e\x1fd")
	require.NoError(t, err)
	assert.Equal(t, "A B C D", got)

	_, err = Normalize("\x1f\x1c")
	var ee *EmptyInputError
	assert.True(t, errors.As(err, &ee))
}

func TestNormalize_EmptyInput(t *testing.T) {
	for _, s := range []string{"", " ", "\n\t\r ", "　 "} {
		_, err := Normalize(s)

		var ee *EmptyInputError
		require.True(t, errors.As(err, &ee), "输入 %q 期望 EmptyInputError，实际 err=%v", s, err)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"  Hello   World  ",
		"Art. 1: Portugal é uma República soberana;\nbaseada na dignidade",
		"already NORMAL",
		"tabs\tand\nnewlines",
		"x",
	}
	for _, s := range inputs {
		once, err := Normalize(s)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_Invariants(t *testing.T) {
	got, err := Normalize("  a\t\tb  c\n\nd ")
	require.NoError(t, err)

	assert.NotContains(t, got, "  ")
	assert.Equal(t, strings.TrimSpace(got), got)
	for _, r := range got {
		assert.False(t, unicode.IsLower(r), "不应包含小写字母：%q", got)
		if unicode.IsSpace(r) {
			assert.Equal(t, ' ', r, "空白只能是单个空格")
		}
	}
}
