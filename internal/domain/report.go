package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	FileStatusPlanned = "planned"
	FileStatusWritten = "written"
	FileStatusKept    = "kept"
	FileStatusFailed  = "failed"
)

const (
	ErrCodeInputNotFound       = "input_not_found"
	ErrCodeExtractFailed       = "extract_failed"
	ErrCodeEmptyInput          = "empty_input"
	ErrCodeInvalidName         = "invalid_name"
	ErrCodeTargetConflict      = "target_conflict"
	ErrCodeIOFailed            = "io_failed"
	ErrCodeCanceled            = "canceled"
	ErrCodeConfigNotFound      = "config_not_found"
	ErrCodeConfigInvalid       = "config_invalid"
	ErrCodeConfigMissingInputs = "config_missing_inputs"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	OutDir string `json:"out_dir"`
	System string `json:"system"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Inputs    int `json:"inputs"`
}

type ItemResult struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Reader string `json:"reader"`

	Status    string   `json:"status"`
	ErrorCode string   `json:"error_code"`
	ErrorMsg  string   `json:"error_msg"`
	Hints     []string `json:"hints"`

	Chars   int            `json:"chars"`
	Inputs  int            `json:"inputs"`
	Pressed int            `json:"pressed"`
	Buttons map[string]int `json:"buttons"`

	Files []FileResult `json:"files"`
}

type FileResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 slug 字典序；slug=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Slug
		b := r.Items[j].Slug
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		if a != b {
			return a < b
		}
		return r.Items[i].Source < r.Items[j].Source
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
			s.Inputs += it.Inputs
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性：nil 切片/map 统一输出为 []/{}，避免出现 null。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	items := make([]ItemResult, len(a.Items))
	for i, it := range a.Items {
		if it.Hints == nil {
			it.Hints = []string{}
		}
		if it.Buttons == nil {
			it.Buttons = map[string]int{}
		}
		if it.Files == nil {
			it.Files = []FileResult{}
		}
		items[i] = it
	}
	a.Items = items
	return json.Marshal(a)
}
