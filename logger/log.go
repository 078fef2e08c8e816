package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志器。控制台彩色输出，级别由 LOG_LEVEL 控制（默认 debug）。
var Log *zap.Logger

// wrapped 供 *f 系列包装函数用，caller 往上跳一层才落在调用方
var wrapped *zap.Logger

func init() {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalColorLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	level := zapcore.DebugLevel
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		level,
	)

	Log = zap.New(core, zap.AddCaller())
	wrapped = Log.WithOptions(zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }

func Infof(format string, args ...interface{}) {
	wrapped.Info(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	wrapped.Warn(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	wrapped.Error(fmt.Sprintf(format, args...))
}
