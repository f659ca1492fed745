package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/GameScript/internal/domain"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestMap_JSON(t *testing.T) {
	code, out, errOut := runCLI(t, "", "map", "Hello")
	require.Equal(t, 0, code, errOut)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"SELECT", "A", "DOWN", "DOWN", "A"}, names)
	assert.True(t, strings.HasSuffix(out, "]\n"))
}

func TestMap_StdinAndTextFormat(t *testing.T) {
	code, out, errOut := runCLI(t, "  hello \n\t world ", "map", "--format", "text")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "SELECT\nA\nDOWN\nDOWN\nA\nNO_INPUT\nUP\nA\nR\nDOWN\nRIGHT\n", out)
}

func TestMap_EmptyInputExit1(t *testing.T) {
	code, out, errOut := runCLI(t, " \n\t ", "map")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "错误：")
}

func TestUsageErrorsExit2(t *testing.T) {
	cases := [][]string{
		{"map", "--system", "nes", "x"},
		{"map", "--system", "DS", "x"},
		{"map", "--format", "xml", "x"},
		{"map", "a", "b"},
		{"run", "--concurrency", "abc"},
		{"run", "--no-such-flag"},
		{"systems", "extra"},
		{"nope"},
	}
	for _, args := range cases {
		code, out, errOut := runCLI(t, "", args...)
		assert.Equal(t, 2, code, "args=%v stderr=%s", args, errOut)
		assert.Empty(t, out, "args=%v", args)
		assert.Contains(t, errOut, "参数错误：", "args=%v", args)
	}
}

func TestSystems(t *testing.T) {
	code, out, _ := runCLI(t, "", "systems")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "ds  Nintendo DS")
	assert.Contains(t, out, "gb  Game Boy / Game Boy Advance")
	assert.Contains(t, out, "NO_INPUT")

	code, out, _ = runCLI(t, "", "systems", "--json")
	require.Equal(t, 0, code)
	var tables map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Equal(t, "SELECT", tables["ds"]["H"])
	assert.NotEmpty(t, tables["gb"])
}

func TestRun_NonTTY_WritesReport(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "hello_world.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Hello World"), 0o644))
	out := filepath.Join(root, "out")

	code, stdout, stderr := runCLI(t, "", "run", doc, "--out", out)
	require.Equal(t, 0, code, stderr)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rr), "stdout=%q", stdout)
	assert.Equal(t, 1, rr.Summary.Processed)
	assert.Equal(t, 11, rr.Summary.Inputs)
	assert.Contains(t, stderr, "完成：processed=1 skipped=0 failed=0 inputs=11")

	b, err := os.ReadFile(filepath.Join(out, ReportFileName))
	require.NoError(t, err)
	var onDisk domain.RunReport
	require.NoError(t, json.Unmarshal(b, &onDisk))
	assert.Equal(t, rr.RunID, onDisk.RunID)

	for _, name := range domain.OutputFiles() {
		_, err := os.Stat(filepath.Join(out, "hello-world", name))
		assert.NoError(t, err, name)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(doc, []byte("abc"), 0o644))
	out := filepath.Join(root, "out")

	code, stdout, _ := runCLI(t, "", "run", doc, "--out", out, "--dry-run")
	require.Equal(t, 0, code)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rr))
	assert.True(t, rr.DryRun)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry-run 不应创建输出目录")
}

func TestRun_FailuresExit1(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")

	code, stdout, stderr := runCLI(t, "", "run", filepath.Join(root, "missing.txt"), "--out", out)
	assert.Equal(t, 1, code)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rr))
	require.Len(t, rr.Items, 1)
	assert.Equal(t, domain.ErrCodeInputNotFound, rr.Items[0].ErrorCode)
	assert.Contains(t, stderr, "failed=1")
	assert.Contains(t, stderr, "input_not_found")
}

func TestRun_ConfigNotFoundExit1(t *testing.T) {
	root := t.TempDir()

	code, stdout, _ := runCLI(t, "", "run", "--config", filepath.Join(root, "nope.toml"))
	assert.Equal(t, 1, code)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rr))
	require.Len(t, rr.Items, 1)
	assert.Equal(t, domain.ErrCodeConfigNotFound, rr.Items[0].ErrorCode)
	assert.Equal(t, 1, rr.Summary.Failed)
}

func TestRun_ConfigFileDrivesRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "x.txt"), []byte("hi"), 0o644))
	cfg := filepath.Join(root, "gamescript.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
inputs = ["docs"]
out = "build"
system = "gb"
`), 0o644))

	code, stdout, stderr := runCLI(t, "", "run", "--config", cfg)
	require.Equal(t, 0, code, stderr)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rr))
	assert.Equal(t, "gb", rr.System)
	assert.Equal(t, filepath.Join(root, "build"), rr.OutDir)
	_, err := os.Stat(filepath.Join(root, "build", "x", "document_player.lua"))
	assert.NoError(t, err)
}
