package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"topmovers.com/pkg/config"
)

// Logger zerolog 封装
// 所有日志都通过这个包输出
type Logger struct {
	zlog zerolog.Logger
}

// New 按配置创建 Logger
func New(cfg *config.Config) *Logger {
	var output io.Writer = os.Stdout
	if cfg.LogFormat == "console" || cfg.LogFormat == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(parseLogLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// NewWithWriter 输出到指定 writer（JSON 格式），测试用
func NewWithWriter(w io.Writer, level string) *Logger {
	return &Logger{zlog: zerolog.New(w).Level(parseLogLevel(level)).With().Timestamp().Logger()}
}

// Nop 丢弃所有日志
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// parseLogLevel 字符串转 zerolog.Level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug 输出 debug 日志
func (l *Logger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

// Info 输出 info 日志
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Warn 输出 warn 日志
func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

// Error 输出 error 日志
func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

// Debugf 格式化输出 debug 日志
func (l *Logger) Debugf(format string, args ...any) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof 格式化输出 info 日志
func (l *Logger) Infof(format string, args ...any) {
	l.zlog.Info().Msgf(format, args...)
}

// Warnf 格式化输出 warn 日志
func (l *Logger) Warnf(format string, args ...any) {
	l.zlog.Warn().Msgf(format, args...)
}

// Errorf 格式化输出 error 日志
func (l *Logger) Errorf(format string, args ...any) {
	l.zlog.Error().Msgf(format, args...)
}

// WithField 附加一个字段
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields 附加多个字段
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError 附加错误字段
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// Zerolog 返回底层 zerolog.Logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
