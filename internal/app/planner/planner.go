package planner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/docname"
	"github.com/John-Robertt/GameScript/internal/domain"
	"github.com/John-Robertt/GameScript/internal/infra/cache"
)

// ReadOutState 读取 <outRoot>/<slug>/ 的现状（只做 ReadDir，不读产物内容），并附带缓存中的生成记录。
// 若输出目录不存在，返回空状态且不报错。
func ReadOutState(outRoot string, slug domain.Slug, store cache.Store) (domain.OutState, error) {
	st := domain.OutState{OutDir: filepath.Join(outRoot, string(slug))}

	entries, err := os.ReadDir(st.OutDir)
	if err != nil && !os.IsNotExist(err) {
		return domain.OutState{}, errors.Wrapf(err, "读取输出目录 %q", st.OutDir)
	}
	for _, e := range entries {
		// 同名目录不算产物；写入阶段会把它报告为路径冲突。
		if !e.Type().IsRegular() {
			continue
		}
		switch e.Name() {
		case domain.FileInputsJSON:
			st.HasJSON = true
		case domain.FileInputsText:
			st.HasText = true
		case domain.FileLuaScript:
			st.HasLua = true
		}
	}

	gs, ok, err := store.ReadState(slug)
	if err != nil {
		return domain.OutState{}, err
	}
	if ok {
		st.State = gs
	}
	return st, nil
}

// Options 是计划阶段需要的运行参数（来自 EffectiveConfig）。
type Options struct {
	System domain.System
	Name   string // 非空时覆盖展示名（仅单文档时由上层传入）
	Timing domain.Timing
	Force  bool
}

// PlanItem 基于 WorkItem + OutState 生成确定性的执行计划（不做任何写入）。
//
// 跳过条件：三个产物齐全，生成记录与本次的 system/name/timing 一致，且源文件 size/mtime/sha256 都未变化。
// Force 时从不跳过。
func PlanItem(docs []domain.Document, item domain.WorkItem, st domain.OutState, opt Options) (domain.ItemPlan, error) {
	if item.DocIdx < 0 || item.DocIdx >= len(docs) {
		return domain.ItemPlan{}, errors.Newf("非法 doc index：%d", item.DocIdx)
	}
	doc := docs[item.DocIdx]

	name := strings.TrimSpace(opt.Name)
	if name == "" {
		name = docname.DisplayName(doc.Base)
	}

	skip := !opt.Force && st.Complete() && st.State.Fresh(doc, opt.System, name, opt.Timing)
	if skip {
		// size/mtime 一致不代表内容一致：再核对源文件 sha256。
		h, err := cache.HashFile(doc.AbsPath)
		skip = err == nil && st.State.SourceHash != "" && h == st.State.SourceHash
	}

	return domain.ItemPlan{
		Slug:   item.Slug,
		Doc:    doc,
		Name:   name,
		System: opt.System,
		OutDir: st.OutDir,
		Skip:   skip,
	}, nil
}

// SortPlans 让上层在需要时可显式保证稳定顺序（而不是依赖 map 遍历顺序）。
func SortPlans(plans []domain.ItemPlan) {
	sort.Slice(plans, func(i, j int) bool { return plans[i].Slug < plans[j].Slug })
}
