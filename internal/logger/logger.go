// Package logger 持有进程级 zap logger。
//
// 日志一律写 stderr：stdout 留给 report JSON 与 map 命令的输出。
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 是全局 logger；Initialize 之前是 no-op，不会因为未初始化而 panic。
var Logger = zap.NewNop().Sugar()

// 命令行 -v 计数对应的详细程度。
const (
	VerbosityQuiet = 0 // 只输出 warn/error
	VerbosityInfo  = 1 // -v：阶段进度、跳过原因
	VerbosityDebug = 2 // -vv：缓存命中、每个文件的 reader
)

// VerbosityToLevel 把 -v 计数映射为 zap 级别（2 及以上都是 debug）。
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityQuiet:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Initialize 按详细程度与输出格式重建全局 logger。
func Initialize(w io.Writer, verbosity int, jsonOutput bool) {
	Logger = New(w, verbosity, jsonOutput).Sugar()
}

// New 构造一个写入 w 的 logger（console 或 JSON 编码）。
func New(w io.Writer, verbosity int, jsonOutput bool) *zap.Logger {
	var enc zapcore.Encoder
	if jsonOutput {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.CallerKey = zapcore.OmitKey
		cfg.NameKey = zapcore.OmitKey
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), VerbosityToLevel(verbosity))
	return zap.New(core)
}

// Cleanup 刷出缓冲的日志。
func Cleanup() {
	_ = Logger.Sync()
}
