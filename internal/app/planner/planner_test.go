package planner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/GameScript/internal/domain"
	"github.com/John-Robertt/GameScript/internal/infra/cache"
)

func TestReadOutState_MissingDir(t *testing.T) {
	root := t.TempDir()

	st, err := ReadOutState(root, "story", cache.New(root, true))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "story"), st.OutDir)
	assert.False(t, st.Complete())
	assert.Nil(t, st.State)
}

func TestReadOutState_ExistingOutputs(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, "story")
	write(t, filepath.Join(outDir, domain.FileInputsJSON))
	write(t, filepath.Join(outDir, domain.FileInputsText))
	// 同名目录不算产物。
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, domain.FileLuaScript), 0o755))

	st, err := ReadOutState(root, "story", cache.New(root, true))
	require.NoError(t, err)
	assert.True(t, st.HasJSON)
	assert.True(t, st.HasText)
	assert.False(t, st.HasLua)
	assert.False(t, st.Complete())
}

func TestPlanItem_SkipWhenCompleteAndFresh(t *testing.T) {
	root := t.TempDir()
	docs, item := oneDoc(t, root)
	store := cache.New(root, false)
	writeOutputs(t, filepath.Join(root, "my-story"))
	require.NoError(t, store.WriteState("my-story", freshState(t, docs[0])))

	st, err := ReadOutState(root, item.Slug, store)
	require.NoError(t, err)

	opt := Options{System: domain.SystemDS, Timing: domain.DefaultTiming()}
	plan, err := PlanItem(docs, item, st, opt)
	require.NoError(t, err)
	assert.True(t, plan.Skip)
	assert.Equal(t, "My Story", plan.Name)
	assert.Equal(t, filepath.Join(root, "my-story"), plan.OutDir)

	opt.Force = true
	plan, err = PlanItem(docs, item, st, opt)
	require.NoError(t, err)
	assert.False(t, plan.Skip, "--force 必须禁用跳过")
}

func TestPlanItem_StaleStateRegenerates(t *testing.T) {
	root := t.TempDir()
	docs, item := oneDoc(t, root)
	store := cache.New(root, false)
	writeOutputs(t, filepath.Join(root, "my-story"))
	require.NoError(t, store.WriteState("my-story", freshState(t, docs[0])))
	st, err := ReadOutState(root, item.Slug, store)
	require.NoError(t, err)

	cases := []struct {
		name string
		opt  Options
	}{
		{"system", Options{System: domain.SystemGB, Timing: domain.DefaultTiming()}},
		{"name", Options{System: domain.SystemDS, Name: "Other", Timing: domain.DefaultTiming()}},
		{"timing", Options{System: domain.SystemDS, Timing: domain.Timing{HoldFrames: 3, GapFrames: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanItem(docs, item, st, tc.opt)
			require.NoError(t, err)
			assert.False(t, plan.Skip)
		})
	}

	changed := append([]domain.Document(nil), docs...)
	changed[0].ModUnix++
	plan, err := PlanItem(changed, item, st, Options{System: domain.SystemDS, Timing: domain.DefaultTiming()})
	require.NoError(t, err)
	assert.False(t, plan.Skip, "源文件变化必须重新生成")
}

func TestPlanItem_SameSizeAndMtimeButNewContentRegenerates(t *testing.T) {
	root := t.TempDir()
	docs, item := oneDoc(t, root)
	store := cache.New(root, false)
	writeOutputs(t, filepath.Join(root, "my-story"))
	require.NoError(t, store.WriteState("my-story", freshState(t, docs[0])))

	// 同样长度的新内容，并把 mtime 恢复为原值：元数据完全一致。
	mtime := time.Unix(docs[0].ModUnix, 0)
	require.NoError(t, os.WriteFile(docs[0].AbsPath, []byte("xyz"), 0o644))
	require.NoError(t, os.Chtimes(docs[0].AbsPath, mtime, mtime))

	st, err := ReadOutState(root, item.Slug, store)
	require.NoError(t, err)
	require.True(t, st.State.Fresh(docs[0], domain.SystemDS, "My Story", domain.DefaultTiming()))

	plan, err := PlanItem(docs, item, st, Options{System: domain.SystemDS, Timing: domain.DefaultTiming()})
	require.NoError(t, err)
	assert.False(t, plan.Skip, "内容变化必须重新生成")
}

func TestPlanItem_StateWithoutHashRegenerates(t *testing.T) {
	root := t.TempDir()
	docs, item := oneDoc(t, root)
	store := cache.New(root, false)
	writeOutputs(t, filepath.Join(root, "my-story"))
	gs := freshState(t, docs[0])
	gs.SourceHash = ""
	require.NoError(t, store.WriteState("my-story", gs))

	st, err := ReadOutState(root, item.Slug, store)
	require.NoError(t, err)
	plan, err := PlanItem(docs, item, st, Options{System: domain.SystemDS, Timing: domain.DefaultTiming()})
	require.NoError(t, err)
	assert.False(t, plan.Skip)
}

func TestPlanItem_IncompleteOutputsRegenerate(t *testing.T) {
	root := t.TempDir()
	docs, item := oneDoc(t, root)

	st, err := ReadOutState(root, item.Slug, cache.New(root, true))
	require.NoError(t, err)
	gs := freshState(t, docs[0])
	st.State = &gs

	plan, err := PlanItem(docs, item, st, Options{System: domain.SystemDS, Timing: domain.DefaultTiming()})
	require.NoError(t, err)
	assert.False(t, plan.Skip)
}

func TestPlanItem_BadIndex(t *testing.T) {
	_, err := PlanItem(nil, domain.WorkItem{Slug: "x", DocIdx: 0}, domain.OutState{}, Options{})
	assert.Error(t, err)
}

func TestSortPlans(t *testing.T) {
	plans := []domain.ItemPlan{{Slug: "b"}, {Slug: "a"}}
	SortPlans(plans)
	assert.Equal(t, domain.Slug("a"), plans[0].Slug)
}

func oneDoc(t *testing.T, root string) ([]domain.Document, domain.WorkItem) {
	t.Helper()
	path := filepath.Join(root, "in", "my_story.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	mtime := time.Unix(1700000000, 0)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	docs := []domain.Document{{
		AbsPath: path,
		RelPath: "in/my_story.txt",
		Base:    "my_story",
		Ext:     ".txt",
		Size:    3,
		ModUnix: mtime.Unix(),
	}}
	return docs, domain.WorkItem{Slug: "my-story", DocIdx: 0}
}

// freshState 返回与 doc 当前内容完全匹配的生成记录（ds、默认 timing、展示名 "My Story"）。
func freshState(t *testing.T, doc domain.Document) domain.GenState {
	t.Helper()
	h, err := cache.HashFile(doc.AbsPath)
	require.NoError(t, err)
	return domain.GenState{
		Source:     doc.RelPath,
		Size:       doc.Size,
		ModUnix:    doc.ModUnix,
		System:     domain.SystemDS,
		Name:       "My Story",
		Timing:     domain.DefaultTiming(),
		SourceHash: h,
	}
}

func writeOutputs(t *testing.T, dir string) {
	t.Helper()
	for _, n := range domain.OutputFiles() {
		write(t, filepath.Join(dir, n))
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}
