package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/domain"
)

// FileName 是默认配置文件名（在 cwd 下自动发现）。
const FileName = "gamescript.toml"

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingInputs 表示 CLI 与配置文件都没有给出任何输入。
	ErrCodeMissingInputs = domain.ErrCodeConfigMissingInputs
)

const (
	// DefaultOutDir 是输出根目录的内置默认值（相对 cwd）。
	DefaultOutDir = "out"
	// DefaultConcurrency 是并发的内置默认值（当 CLI 与配置都未指定时）。
	DefaultConcurrency = 4
	// MaxConcurrency 是并发上限；超出截断。
	MaxConcurrency = 32
)

// CLIArgs 是 CLI 暴露的入口参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --force=false 必须能覆盖 force = true。
type CLIArgs struct {
	Inputs     []string
	ConfigPath string

	System    string
	SystemSet bool

	OutDir string
	OutSet bool

	Force    bool
	ForceSet bool

	Concurrency    int
	ConcurrencySet bool

	// Name 只能来自 CLI（配置文件里写死一个文档名没有意义）。
	Name   string
	DryRun bool
}

// FileConfig 对应 gamescript.toml 的解析结构。
type FileConfig struct {
	Inputs      []string     `toml:"inputs"`
	Out         string       `toml:"out"`
	System      string       `toml:"system"`
	Concurrency int          `toml:"concurrency"`
	ExcludeDirs []string     `toml:"exclude_dirs"`
	Force       *bool        `toml:"force"`
	Script      ScriptConfig `toml:"script"`
}

// ScriptConfig 对应 [script] 表；指针用于区分“未写”与“写了 0”。
type ScriptConfig struct {
	HoldFrames *int `toml:"hold_frames"`
	GapFrames  *int `toml:"gap_frames"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Inputs []string // clean + absolute
	OutDir string   // clean + absolute

	System      domain.System
	DryRun      bool
	Force       bool
	Concurrency int
	ExcludeDirs []string
	Name        string
	Timing      domain.Timing

	// ConfigPath 是实际读取到的配置文件；没有读取任何文件时为空。
	ConfigPath string
	// UnknownKeys 是配置文件中未识别的键（不报错，由上层决定是否提示）。
	UnknownKeys []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingInputs:
		if e.Path == "" {
			return fmt.Sprintf("%s：没有给出任何输入文件或目录", e.Code)
		}
		return fmt.Sprintf("%s：命令行未给出输入，且配置文件 %q 缺少 inputs", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：该文件必须存在
// 2) 否则尝试读取 <cwd>/gamescript.toml（可选）
//
// 覆盖优先级（固定）：
// - inputs/out/system/force/concurrency：CLI > config > 默认
// - exclude_dirs、[script]：仅由 config 控制
// - 配置文件中的相对路径相对配置文件所在目录；CLI 的相对路径相对 cwd
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		unknown []string
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, unknown, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, unknown, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			cfgPath = ""
		}
	}

	cfgDir := cwdAbs
	if cfgPath != "" {
		cfgDir = filepath.Dir(cfgPath)
	}
	eff, err := merge(cwdAbs, cfgDir, cli, fc, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.UnknownKeys = unknown
	return eff, nil
}

func merge(cwdAbs, cfgDir string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// inputs：CLI > config；两者都没有则报错。
	var inputs []string
	if len(nonEmpty(cli.Inputs)) > 0 {
		for _, in := range nonEmpty(cli.Inputs) {
			inputs = append(inputs, absCleanFrom(cwdAbs, in))
		}
	} else {
		for _, in := range nonEmpty(fc.Inputs) {
			inputs = append(inputs, absCleanFrom(cfgDir, in))
		}
	}
	if len(inputs) == 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingInputs, Path: cfgPath}
	}

	// out：CLI > config > 默认
	outDir := absCleanFrom(cwdAbs, DefaultOutDir)
	if cli.OutSet && strings.TrimSpace(cli.OutDir) != "" {
		outDir = absCleanFrom(cwdAbs, cli.OutDir)
	} else if strings.TrimSpace(fc.Out) != "" {
		outDir = absCleanFrom(cfgDir, fc.Out)
	}

	// system：CLI > config > 默认
	sysRaw := string(domain.DefaultSystem)
	if cli.SystemSet {
		sysRaw = strings.TrimSpace(cli.System)
	} else if strings.TrimSpace(fc.System) != "" {
		sysRaw = strings.TrimSpace(fc.System)
	}
	sys, err := domain.ParseSystem(sysRaw)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	// force：CLI > config > 默认 false
	force := false
	if cli.ForceSet {
		force = cli.Force
	} else if fc.Force != nil {
		force = *fc.Force
	}

	concurrency := DefaultConcurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	} else if fc.Concurrency != 0 {
		concurrency = fc.Concurrency
	}
	// 约定范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	timing := domain.DefaultTiming()
	if fc.Script.HoldFrames != nil {
		timing.HoldFrames = *fc.Script.HoldFrames
	}
	if fc.Script.GapFrames != nil {
		timing.GapFrames = *fc.Script.GapFrames
	}
	if timing.HoldFrames < 1 {
		return EffectiveConfig{}, invalid(errors.Newf("script.hold_frames 必须 >= 1，实际是 %d", timing.HoldFrames))
	}
	if timing.GapFrames < 0 {
		return EffectiveConfig{}, invalid(errors.Newf("script.gap_frames 不能为负数，实际是 %d", timing.GapFrames))
	}

	return EffectiveConfig{
		Inputs:      inputs,
		OutDir:      outDir,
		System:      sys,
		DryRun:      cli.DryRun,
		Force:       force,
		Concurrency: concurrency,
		ExcludeDirs: nonEmpty(fc.ExcludeDirs),
		Name:        strings.TrimSpace(cli.Name),
		Timing:      timing,
		ConfigPath:  cfgPath,
	}, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）；unknown 是未识别的键（已排序）。
func readFileConfig(path string) (fc FileConfig, unknown []string, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil, false, nil
		}
		return FileConfig{}, nil, false, err
	}
	md, err := toml.Decode(string(b), &fc)
	if err != nil {
		return FileConfig{}, nil, true, errors.WithHint(err, "配置文件必须是合法的 TOML，例如 inputs = [\"docs\"]")
	}
	for _, k := range md.Undecoded() {
		unknown = append(unknown, k.String())
	}
	sort.Strings(unknown)
	return fc, unknown, true, nil
}
