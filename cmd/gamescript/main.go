package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/GameScript/internal/app/run"
	"github.com/John-Robertt/GameScript/internal/config"
	"github.com/John-Robertt/GameScript/internal/domain"
	"github.com/John-Robertt/GameScript/internal/infra/fsx"
	"github.com/John-Robertt/GameScript/internal/logger"
	"github.com/John-Robertt/GameScript/internal/mapping"
	"github.com/John-Robertt/GameScript/internal/normalize"
	"github.com/John-Robertt/GameScript/internal/reader/builtin"
	"github.com/John-Robertt/GameScript/internal/script"
)

// ReportFileName 是写在输出根目录下的运行报告文件名（dry-run 不写）。
const ReportFileName = "report.json"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	logger.Cleanup()
	os.Exit(code)
}

// exitError 携带进程退出码；其他 error 一律视为用法错误（退出码 2）。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type cliIO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(cliIO{in: stdin, out: stdout, errOut: stderr})
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "错误：%v\n", ee.err)
			printHints(stderr, ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	printHints(stderr, err)
	fmt.Fprintln(stderr, `使用 "gamescript --help" 查看用法。`)
	return 2
}

func newRootCmd(cio cliIO) *cobra.Command {
	var (
		verbosity int
		logJSON   bool
	)

	root := &cobra.Command{
		Use:   "gamescript",
		Short: "把文档转换为模拟器可回放的手柄输入",
		Long: `GameScript 把文本/HTML/PDF 文档逐字符映射为手柄按键序列，
并为每个文档生成 inputs.json、game_inputs.txt 与 document_player.lua。

命令：
  run      转换文档并写入产物（支持 --dry-run）
  map      把一段文本映射为按键序列（JSON 输出到 stdout）
  systems  列出支持的机型与映射表`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 日志固定写 stderr：stdout 只留给 report JSON 与 map 输出。
			logger.Initialize(cio.errOut, verbosity, logJSON)
			return nil
		},
	}
	root.SetIn(cio.in)
	root.SetOut(cio.out)
	root.SetErr(cio.errOut)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.WithHintf(err, "使用 \"%s --help\" 查看可用参数", cmd.CommandPath())
	})

	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "增加日志详细程度（-v info，-vv debug）")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "日志输出为 JSON（写 stderr）")

	root.AddCommand(newRunCmd(cio), newMapCmd(cio), newSystemsCmd(cio))
	return root
}

type runFlags struct {
	system      string
	name        string
	out         string
	configPath  string
	dryRun      bool
	force       bool
	concurrency int
}

func newRunCmd(cio cliIO) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [inputs...]",
		Short: "转换文档并写入产物",
		Long: `转换文档并写入产物。

inputs 可以是文件或目录；未给出时读取配置文件（默认 ./gamescript.toml）中的 inputs。
目录只收录支持的扩展名（.txt .md .text .pdf .html .htm）；直接点名的文件总会按纯文本兜底读取。

覆盖优先级：命令行 > 配置文件 > 默认值。`,
		Example: `  gamescript run thesis.pdf --name "My Thesis"
  gamescript run docs/ --system gb --out build
  gamescript run --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, cio, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.system, "system", "", "目标机型：ds|gb（默认 ds）")
	fl.StringVar(&f.name, "name", "", "文档展示名（仅单个文档时可用）")
	fl.StringVar(&f.out, "out", "", "输出根目录（默认 ./out）")
	fl.StringVar(&f.configPath, "config", "", "配置文件路径（指定后必须存在）")
	fl.BoolVar(&f.dryRun, "dry-run", false, "只做转换校验，不写入任何文件")
	fl.BoolVar(&f.force, "force", false, "忽略生成记录，总是重新生成；支持 --force=false 覆盖配置")
	fl.IntVar(&f.concurrency, "concurrency", config.DefaultConcurrency, "并发处理的文档数（1..32）")
	return cmd
}

func runRun(cmd *cobra.Command, cio cliIO, f runFlags, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: 1, err: errors.Wrap(err, "读取当前目录")}
	}

	fl := cmd.Flags()
	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Inputs:         args,
		ConfigPath:     f.configPath,
		System:         f.system,
		SystemSet:      fl.Changed("system"),
		OutDir:         f.out,
		OutSet:         fl.Changed("out"),
		Force:          f.force,
		ForceSet:       fl.Changed("force"),
		Concurrency:    f.concurrency,
		ConcurrencySet: fl.Changed("concurrency"),
		Name:           f.name,
		DryRun:         f.dryRun,
	})
	if err != nil {
		rr := reportForConfigError(cwd, f, err)
		emitReport(cio.out, cio.errOut, rr)
		return &exitError{code: 1}
	}
	if len(eff.UnknownKeys) > 0 {
		logger.Logger.Warnw("配置文件中有未识别的键（已忽略）", "config", eff.ConfigPath, "keys", eff.UnknownKeys)
	}

	reg, err := builtin.Registry()
	if err != nil {
		return &exitError{code: 1, err: errors.Wrap(err, "初始化 reader registry")}
	}

	progressW, interactive := pickProgressWriter(cio.out, cio.errOut)
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(cmd.Context(), eff, reg, obs)

	// 正常运行：写入 <out>/report.json；dry-run 禁止落盘。
	if !eff.DryRun {
		if err := writeReportFile(eff.OutDir, rr); err != nil {
			fmt.Fprintf(cio.errOut, "写入 %s 失败：%v\n", ReportFileName, err)
			emitReport(cio.out, cio.errOut, rr)
			return &exitError{code: 1}
		}
	}

	emitReport(cio.out, cio.errOut, rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.Summary.Failed == 0 {
		return nil
	}
	return &exitError{code: 1}
}

func newMapCmd(cio cliIO) *cobra.Command {
	var (
		system string
		format string
	)

	cmd := &cobra.Command{
		Use:   "map [text]",
		Short: "把文本映射为按键序列",
		Long: `把文本规范化（折叠空白、转大写）后逐字符映射为按键序列。
未给出 text 时从 stdin 读取。默认输出 inputs.json 格式；--format text 输出 game_inputs.txt 格式。`,
		Example: `  gamescript map "Hello World"
  echo hi | gamescript map --system gb`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := domain.ParseSystem(strings.TrimSpace(system))
			if err != nil {
				return err
			}
			if format != "json" && format != "text" {
				return errors.Newf("--format 只能是 json 或 text，实际是 %q", format)
			}

			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return &exitError{code: 1, err: errors.Wrap(err, "读取 stdin")}
				}
				raw = string(b)
			}

			canonical, err := normalize.Normalize(raw)
			if err != nil {
				return &exitError{code: 1, err: errors.WithHint(err, "输入只包含空白字符")}
			}
			seq, err := mapping.MapToInputs(canonical, sys)
			if err != nil {
				return &exitError{code: 1, err: err}
			}

			if format == "text" {
				_, err = cmd.OutOrStdout().Write(script.EncodeInputsText(seq))
				return err
			}
			b, err := script.EncodeJSON(seq)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().StringVar(&system, "system", string(domain.DefaultSystem), "目标机型：ds|gb")
	cmd.Flags().StringVar(&format, "format", "json", "输出格式：json|text")
	return cmd
}

func newSystemsCmd(cio cliIO) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "systems",
		Short: "列出支持的机型与映射表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if asJSON {
				out := make(map[string]map[string]string, len(mapping.Systems()))
				for _, sys := range mapping.Systems() {
					tbl, _ := mapping.TableFor(sys)
					m := make(map[string]string, len(tbl))
					for _, r := range tbl.Chars() {
						m[string(r)] = string(tbl.Lookup(r))
					}
					out[string(sys)] = m
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for i, sys := range mapping.Systems() {
				if i > 0 {
					fmt.Fprintln(w)
				}
				tbl, _ := mapping.TableFor(sys)
				fmt.Fprintf(w, "%s  %s\n", sys, sys.Label())
				for _, r := range tbl.Chars() {
					fmt.Fprintf(w, "  %-6s %s\n", strconv.QuoteRune(r), tbl.Lookup(r))
				}
				fmt.Fprintf(w, "  %-6s %s\n", "其他", domain.NoInput)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出映射表")
	return cmd
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	if isTTY(stdout) {
		fmt.Fprintf(stdout, "完成：processed=%s skipped=%s failed=%s inputs=%d\n",
			pterm.Green(rr.Summary.Processed), pterm.Yellow(rr.Summary.Skipped), failedColor(rr.Summary.Failed), rr.Summary.Inputs,
		)
		printFailures(stderr, rr)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(stderr, "完成：processed=%d skipped=%d failed=%d inputs=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Inputs,
	)
	printFailures(stderr, rr)
}

func printFailures(w io.Writer, rr domain.RunReport) {
	for _, it := range rr.Items {
		if it.Status != domain.StatusFailed {
			continue
		}
		key := it.Slug
		if key == "" {
			// 冲突/配置等合成条目：用源文件路径做定位锚点。
			key = it.Source
		}
		if key == "" {
			key = "<run>"
		}
		fmt.Fprintf(w, "%s %s: %s\n", key, pterm.Red(it.ErrorCode), it.ErrorMsg)
		for _, h := range it.Hints {
			fmt.Fprintf(w, "  提示：%s\n", h)
		}
	}
}

func failedColor(n int) string {
	if n == 0 {
		return pterm.Gray(n)
	}
	return pterm.Red(n)
}

func printHints(w io.Writer, err error) {
	if h := errors.FlattenHints(err); h != "" {
		for _, line := range strings.Split(h, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(w, "提示：%s\n", line)
			}
		}
	}
}

// reportForConfigError 在配置阶段失败时构造只含一个合成条目的报告，保证 stdout 契约不变。
func reportForConfigError(cwd string, f runFlags, err error) domain.RunReport {
	now := time.Now().UTC()
	out := f.out
	if out == "" {
		out = config.DefaultOutDir
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(cwd, out)
	}
	rr := domain.RunReport{
		OutDir:     filepath.Clean(out),
		System:     f.system,
		DryRun:     f.dryRun,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
			Hints:     errors.GetAllHints(err),
			Files:     []domain.FileResult{},
		}},
	}
	if rr.Items[0].ErrorCode == "" {
		rr.Items[0].ErrorCode = domain.ErrCodeConfigInvalid
	}
	rr.Finalize()
	return rr
}

func writeReportFile(outDir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(outDir, ReportFileName, b)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这两行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if !eff.DryRun {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.OutDir, ReportFileName))
	}
	fmt.Fprintf(w, "out: %s\n", eff.OutDir)
}
