package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		OutDir:     "/abs/out",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Slug: "b-doc", Status: StatusSkipped},
			{Slug: "", Source: "z.txt", Status: StatusFailed}, // 配置/冲突等合成项
			{Slug: "a-doc", Status: StatusProcessed, Inputs: 10},
			{Slug: "", Source: "a.txt", Status: StatusFailed},
		},
	}

	r.Finalize()

	// slug=="" 必须排在最后；其内部顺序保持稳定（SliceStable）。
	got := []string{r.Items[0].Slug, r.Items[1].Slug, r.Items[2].Source, r.Items[3].Source}
	assert.Equal(t, []string{"a-doc", "b-doc", "z.txt", "a.txt"}, got, "items 排序不符合契约")
	assert.Equal(t, ReportSummary{Processed: 1, Skipped: 1, Failed: 2, Inputs: 10}, r.Summary)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	assert.Contains(t, string(b), `"started_at":"2026-02-09T02:00:00Z"`)
}

func TestRunReport_MarshalJSON_NoNulls(t *testing.T) {
	r := RunReport{Items: []ItemResult{{Slug: "x", Status: StatusFailed}}}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	s := string(b)
	assert.NotContains(t, s, "null")
	assert.Contains(t, s, `"hints":[]`)
	assert.Contains(t, s, `"buttons":{}`)
	assert.Contains(t, s, `"files":[]`)

	empty, err := json.Marshal(RunReport{})
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"items":[]`)
}
