package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/John-Robertt/GameScript/internal/app/run"
	"github.com/John-Robertt/GameScript/internal/config"
	"github.com/John-Robertt/GameScript/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 约束：
// - 只写 stderr（或 fallback 到 stdout），stdout 的 JSON 契约不受影响
// - run 层只发事件；keepalive 由 run 层周期性调用 OnProgress，这里只负责限流
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	// 距上次输出超过该阈值时，才把 OnProgress 打印出来。
	keepaliveThreshold time.Duration
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "write"
	modeHint := ""
	if eff.DryRun {
		mode = "dry-run"
		modeHint = pterm.Gray(" (不写入任何文件)")
	}

	fmt.Fprintf(p.w, "[%s] %s (%s)\n", now.Format("15:04:05"), pterm.LightCyan("GameScript run"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  inputs: %s\n", formatStringListJSON(eff.Inputs))
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  system: %s (%s)\n", eff.System, eff.System.Label())
	fmt.Fprintf(p.w, "  timing: hold=%d gap=%d\n", eff.Timing.HoldFrames, eff.Timing.GapFrames)
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  force: %s\n", onOff(eff.Force))
	if eff.Name != "" {
		fmt.Fprintf(p.w, "  name: %s\n", truncate(eff.Name, 120))
	}
	fmt.Fprintf(p.w, "  exclude_dirs: %s + 固定排除 out/\n", formatStringListJSON(eff.ExcludeDirs))

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  out: %s\n", eff.OutDir)
	if !eff.DryRun {
		fmt.Fprintf(p.w, "  cache: %s\n", filepath.Join(eff.OutDir, ".cache"))
		fmt.Fprintf(p.w, "  report: %s\n", filepath.Join(eff.OutDir, ReportFileName))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: documents=%d (%s)\n",
			intField(fields, "documents"), formatShortDuration(dur),
		)
	case "group":
		conflicts := intField(fields, "conflicts")
		c := fmt.Sprint(conflicts)
		if conflicts > 0 {
			c = pterm.Yellow(conflicts)
		}
		fmt.Fprintf(p.w, "分组: items=%d conflicts=%s (%s)\n",
			intField(fields, "items"), c, formatShortDuration(dur),
		)
	case "plan":
		fmt.Fprintf(p.w, "规划: items=%d generate=%d skip=%d (%s)\n",
			intField(fields, "items"),
			intField(fields, "generate"),
			intField(fields, "skip"),
			formatShortDuration(dur),
		)
	case "exec":
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d\n\n",
			intField(fields, "workers"), intField(fields, "total_items"),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, slug domain.Slug, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w, formatItemLine(idx, total, slug, res, dur))
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnProgress(done, total, ok, fail, skip, active int, activeSlugs []string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastPrinted) <= p.keepaliveThreshold {
		return
	}
	line := fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d skip=%d active=%d elapsed=%s",
		done, total, ok, fail, skip, active, formatElapsed(elapsed),
	)
	if len(activeSlugs) > 0 {
		line += " " + pterm.Gray("["+truncate(strings.Join(activeSlugs, ","), 80)+"]")
	}
	fmt.Fprintln(p.w, line)
	p.lastPrinted = time.Now()
}

func formatItemLine(idx, total int, slug domain.Slug, res domain.ItemResult, dur time.Duration) string {
	head := fmt.Sprintf("[%d/%d] %s", idx, total, slug)
	switch res.Status {
	case domain.StatusFailed:
		return fmt.Sprintf("%s %s %s: %s (%s)",
			head, pterm.Red("FAIL"), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		return fmt.Sprintf("%s %s (产物已是最新) (%s)",
			head, pterm.Yellow("SKIP"), formatShortDuration(dur),
		)
	default:
		return fmt.Sprintf("%s %s reader=%s chars=%d inputs=%d pressed=%d (%s)",
			head, pterm.Green("OK"), res.Reader, res.Chars, res.Inputs, res.Pressed, formatShortDuration(dur),
		)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate 按 rune 截断，避免切坏多字节字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if max <= 0 || len(rs) <= max {
		return s
	}
	if max <= 3 {
		return string(rs[:max])
	}
	return string(rs[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// intField 读取阶段事件里的计数；run 层只发 int。
func intField(fields map[string]any, key string) int {
	n, _ := fields[key].(int)
	return n
}
