package run

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/John-Robertt/GameScript/internal/app"
	"github.com/John-Robertt/GameScript/internal/app/planner"
	"github.com/John-Robertt/GameScript/internal/config"
	"github.com/John-Robertt/GameScript/internal/domain"
	"github.com/John-Robertt/GameScript/internal/infra/cache"
	"github.com/John-Robertt/GameScript/internal/infra/fsx"
	"github.com/John-Robertt/GameScript/internal/logger"
	"github.com/John-Robertt/GameScript/internal/mapping"
	"github.com/John-Robertt/GameScript/internal/normalize"
	"github.com/John-Robertt/GameScript/internal/reader"
	"github.com/John-Robertt/GameScript/internal/scan"
	"github.com/John-Robertt/GameScript/internal/script"
)

// ProgressInterval 是 exec 阶段 keepalive 事件的间隔。
var ProgressInterval = 2 * time.Second

// Execute 执行一次 run（dry-run/正常），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg reader.Registry) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, reg, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg reader.Registry, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		OutDir:    eff.OutDir,
		System:    string(eff.System),
		DryRun:    eff.DryRun,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 64),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		logger.Logger.Infow("run finished",
			"run_id", rr.RunID,
			"processed", rr.Summary.Processed,
			"skipped", rr.Summary.Skipped,
			"failed", rr.Summary.Failed,
		)
		return rr
	}
	logger.Logger.Infow("run started", "run_id", rr.RunID, "system", eff.System, "dry_run", eff.DryRun, "out", eff.OutDir)

	store := cache.New(eff.OutDir, eff.DryRun)

	scanStarted := time.Now()
	docs, err := scan.ScanDocuments(eff.Inputs, eff.OutDir, eff.ExcludeDirs, reg.Extensions())
	if err != nil {
		var nf *scan.NotFoundError
		if errors.As(err, &nf) {
			it := syntheticFailed(domain.ErrCodeInputNotFound, err.Error())
			it.Source = nf.Path
			it.Hints = []string{"检查路径拼写；相对路径相对当前目录（配置文件中的路径相对配置文件所在目录）"}
			rr.Items = append(rr.Items, it)
		} else {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		}
		return finish()
	}
	scanDur := time.Since(scanStarted)

	if eff.Name != "" && len(docs) > 1 {
		it := syntheticFailed(domain.ErrCodeInvalidName, fmt.Sprintf("--name 只能用于单个文档，本次扫描到 %d 个", len(docs)))
		it.Hints = []string{"去掉 --name 使用文件名推导的展示名，或只传入一个文件"}
		rr.Items = append(rr.Items, it)
		return finish()
	}

	groupStarted := time.Now()
	items, conflicts, err := app.GroupBySlug(docs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("分组失败：%v", err)))
		return finish()
	}
	groupDur := time.Since(groupStarted)

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"documents": len(docs),
		}, scanDur)
		obs.OnPhaseDone("group", map[string]any{
			"items":     len(items),
			"conflicts": len(conflicts),
		}, groupDur)
	}

	// 冲突：每个输入文档单独形成一条 item（更可解释，便于用户逐个修复）。
	for _, c := range conflicts {
		rr.Items = append(rr.Items, conflictItem(c))
	}

	planStarted := time.Now()
	opt := planner.Options{System: eff.System, Name: eff.Name, Timing: eff.Timing, Force: eff.Force}
	plans := make([]domain.ItemPlan, 0, len(items))
	for _, it := range items {
		st, e := planner.ReadOutState(eff.OutDir, it.Slug, store)
		if e != nil {
			rr.Items = append(rr.Items, failedPlanItem(docs, it, domain.ErrCodeIOFailed, fmt.Sprintf("读取输出状态失败：%v", e)))
			continue
		}
		p, e := planner.PlanItem(docs, it, st, opt)
		if e != nil {
			rr.Items = append(rr.Items, failedPlanItem(docs, it, domain.ErrCodeIOFailed, fmt.Sprintf("规划失败：%v", e)))
			continue
		}
		plans = append(plans, p)
	}
	planner.SortPlans(plans)
	planDur := time.Since(planStarted)

	if obs != nil {
		skip := 0
		for i := range plans {
			if plans[i].Skip {
				skip++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"items":    len(plans),
			"generate": len(plans) - skip,
			"skip":     skip,
		}, planDur)
	}

	// 执行阶段：按文档并发（worker pool），文档内串行。
	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(plans) && len(plans) > 0 {
		workers = len(plans)
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(plans),
		}, 0)
	}

	type execResult struct {
		slug domain.Slug
		res  domain.ItemResult
		dur  time.Duration
	}

	jobs := make(chan domain.ItemPlan)
	results := make(chan execResult, len(plans))
	tracker := newActiveSet()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				tracker.add(p.Slug)
				oneStarted := time.Now()
				r := execOne(ctx, eff, p, reg, store)
				tracker.remove(p.Slug)
				results <- execResult{
					slug: p.Slug,
					res:  r,
					dur:  time.Since(oneStarted),
				}
			}
		}()
	}

	go func() {
		for _, p := range plans {
			jobs <- p
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	execStarted := time.Now()
	var ticker *time.Ticker
	var tick <-chan time.Time
	if obs != nil && ProgressInterval > 0 {
		ticker = time.NewTicker(ProgressInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	out := (<-chan execResult)(results)
	done, nOK, nFail, nSkip := 0, 0, 0, 0
	for out != nil {
		select {
		case it, open := <-out:
			if !open {
				out = nil
				continue
			}
			done++
			switch it.res.Status {
			case domain.StatusProcessed:
				nOK++
			case domain.StatusSkipped:
				nSkip++
			default:
				nFail++
			}
			rr.Items = append(rr.Items, it.res)
			if obs != nil {
				obs.OnItemDone(done, len(plans), it.slug, it.res, it.dur)
			}
		case <-tick:
			active := tracker.snapshot()
			obs.OnProgress(done, len(plans), nOK, nFail, nSkip, len(active), active, time.Since(execStarted))
		}
	}

	return finish()
}

// execOne 处理单个文档：读取 → 规范化 → 映射 → 编码 → 原子写入三件产物 → 写生成记录。
func execOne(ctx context.Context, eff config.EffectiveConfig, p domain.ItemPlan, reg reader.Registry, store cache.Store) domain.ItemResult {
	item := domain.ItemResult{
		Slug:   string(p.Slug),
		Name:   p.Name,
		Source: p.Doc.RelPath,
		Status: domain.StatusProcessed, // 失败时覆盖
		Files:  buildFileResults(p),
	}
	log := logger.Logger.With("slug", p.Slug)

	if err := ctx.Err(); err != nil {
		fail(&item, domain.ErrCodeCanceled, err)
		return item
	}

	if p.Skip {
		item.Status = domain.StatusSkipped
		setFiles(&item, domain.FileStatusKept)
		log.Infow("skip: outputs up to date")
		return item
	}

	text, readerName, hash, err := extract(ctx, reg, store, p.Doc)
	item.Reader = readerName
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			fail(&item, domain.ErrCodeCanceled, err)
		} else {
			fail(&item, domain.ErrCodeExtractFailed, err)
		}
		return item
	}

	canonical, err := normalize.Normalize(text)
	if err != nil {
		var ee *normalize.EmptyInputError
		if errors.As(err, &ee) {
			fail(&item, domain.ErrCodeEmptyInput, errors.WithHint(err, "文档中没有可读文字；PDF 扫描件需要先做 OCR"))
			return item
		}
		fail(&item, domain.ErrCodeIOFailed, err)
		return item
	}

	seq, err := mapping.MapToInputs(canonical, p.System)
	if err != nil {
		fail(&item, domain.ErrCodeConfigInvalid, err)
		return item
	}
	item.Chars = utf8.RuneCountInString(canonical)
	item.Inputs = len(seq)
	item.Pressed = seq.Pressed()
	item.Buttons = seq.Counts()

	files, err := encodeAll(p, seq, eff.Timing)
	if err != nil {
		fail(&item, domain.ErrCodeIOFailed, err)
		return item
	}

	// dry-run：除写入以外全部执行（产物保持 planned）。
	if eff.DryRun {
		return item
	}

	if err := fsx.WriteSet(p.OutDir, files); err != nil {
		if fsx.IsPathTypeConflict(err) {
			fail(&item, domain.ErrCodeTargetConflict, err)
		} else {
			fail(&item, domain.ErrCodeIOFailed, err)
		}
		return item
	}
	setFiles(&item, domain.FileStatusWritten)

	gs := domain.GenState{
		Source:     p.Doc.RelPath,
		Size:       p.Doc.Size,
		ModUnix:    p.Doc.ModUnix,
		System:     p.System,
		Name:       p.Name,
		Timing:     eff.Timing,
		Inputs:     len(seq),
		SourceHash: hash,
	}
	// 记录写失败不影响产物本身，只会让下次运行重新生成。
	if err := store.WriteState(p.Slug, gs); err != nil {
		log.Warnw("write state failed", "error", err)
	}
	log.Debugw("generated", "inputs", len(seq), "reader", readerName)
	return item
}

// extract 先查文本缓存（按源文件内容 + reader 寻址），未命中再调用 reader。
// 返回的 hash 是源文件内容的 sha256；计算失败时为空（不影响提取）。
func extract(ctx context.Context, reg reader.Registry, store cache.Store, doc domain.Document) (text, readerName, hash string, err error) {
	rd, ok := reg.ForPath(doc.AbsPath, doc.Explicit)
	if ok {
		readerName = rd.Name()
	}

	hash, herr := cache.HashFile(doc.AbsPath)
	if herr != nil {
		logger.Logger.Debugw("hash failed, cache bypassed", "path", doc.AbsPath, "error", herr)
		hash = ""
	}

	key := ""
	if hash != "" && readerName != "" {
		key = cache.TextKey(hash, readerName)
		if t, hit, e := store.ReadText(key); e == nil && hit {
			logger.Logger.Debugw("text cache hit", "path", doc.RelPath, "reader", readerName)
			return t, readerName, hash, nil
		}
	}

	text, readerName, err = reg.Extract(ctx, doc.AbsPath, doc.Explicit)
	if err != nil {
		return "", readerName, hash, err
	}
	if key != "" && !store.ReadOnly {
		if e := store.WriteText(key, text); e != nil {
			logger.Logger.Warnw("write text cache failed", "path", doc.RelPath, "error", e)
		}
	}
	return text, readerName, hash, nil
}

func encodeAll(p domain.ItemPlan, seq domain.InputSequence, timing domain.Timing) ([]fsx.File, error) {
	jsonB, err := script.EncodeJSON(seq)
	if err != nil {
		return nil, err
	}
	luaB, err := script.EncodeLua(domain.ScriptMeta{
		Name:      p.Name,
		Source:    filepath.Base(p.Doc.AbsPath),
		System:    p.System,
		Inputs:    seq,
		Timing:    timing,
		InputFile: domain.FileInputsText,
	})
	if err != nil {
		return nil, err
	}
	// 写入顺序固定：先数据，后脚本。
	return []fsx.File{
		{Name: domain.FileInputsJSON, Data: jsonB},
		{Name: domain.FileInputsText, Data: script.EncodeInputsText(seq)},
		{Name: domain.FileLuaScript, Data: luaB},
	}, nil
}

func conflictItem(c domain.Conflict) domain.ItemResult {
	item := domain.ItemResult{
		Source: c.Doc.RelPath,
		Name:   "",
		Status: domain.StatusFailed,
		Files:  []domain.FileResult{},
	}
	switch c.Kind {
	case domain.ConflictSlugCollision:
		item.Slug = string(c.Slug)
		item.ErrorCode = domain.ErrCodeTargetConflict
		item.ErrorMsg = fmt.Sprintf("多个文档映射到同一输出目录 %q：%v", c.Slug, c.Peers)
		item.Hints = []string{"重命名其中一个文件，或分开运行并用 --out 指定不同的输出目录"}
	default:
		item.ErrorCode = domain.ErrCodeInvalidName
		item.ErrorMsg = fmt.Sprintf("无法从文件名 %q 推导输出目录名", c.Doc.Base)
		item.Hints = []string{"文件名需要包含至少一个 ASCII 字母或数字"}
	}
	return item
}

func failedPlanItem(docs []domain.Document, it domain.WorkItem, code, msg string) domain.ItemResult {
	out := syntheticFailed(code, msg)
	out.Slug = string(it.Slug)
	if it.DocIdx >= 0 && it.DocIdx < len(docs) {
		out.Source = docs[it.DocIdx].RelPath
	}
	return out
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
		Hints:     []string{},
		Files:     []domain.FileResult{},
	}
}

func buildFileResults(p domain.ItemPlan) []domain.FileResult {
	names := domain.OutputFiles()
	out := make([]domain.FileResult, 0, len(names))
	for _, n := range names {
		out = append(out, domain.FileResult{
			Path:   filepath.ToSlash(filepath.Join(string(p.Slug), n)),
			Status: domain.FileStatusPlanned,
		})
	}
	return out
}

func fail(item *domain.ItemResult, code string, err error) {
	item.Status = domain.StatusFailed
	item.ErrorCode = code
	item.ErrorMsg = err.Error()
	item.Hints = errors.GetAllHints(err)
	setFiles(item, domain.FileStatusFailed)
}

func setFiles(item *domain.ItemResult, status string) {
	for i := range item.Files {
		item.Files[i].Status = status
	}
}

// activeSet 记录正在处理的 slug（供 keepalive 展示）。
type activeSet struct {
	mu  sync.Mutex
	set map[domain.Slug]struct{}
}

func newActiveSet() *activeSet {
	return &activeSet{set: make(map[domain.Slug]struct{})}
}

func (a *activeSet) add(s domain.Slug) {
	a.mu.Lock()
	a.set[s] = struct{}{}
	a.mu.Unlock()
}

func (a *activeSet) remove(s domain.Slug) {
	a.mu.Lock()
	delete(a.set, s)
	a.mu.Unlock()
}

func (a *activeSet) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.set))
	for s := range a.set {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}
