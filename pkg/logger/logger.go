package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel определяет уровень логирования
type LogLevel = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
	LevelFatal = zerolog.FatalLevel
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// Logger представляет структурированный логгер поверх zerolog
type Logger struct {
	zl zerolog.Logger
}

// Options настройки логгера
type Options struct {
	Level   string
	Console bool
	Output  io.Writer
}

// New создает новый логгер
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}

	zl := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()

	return &Logger{zl: zl}
}

// Nop возвращает логгер, который ничего не пишет
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel разбирает уровень логирования, по умолчанию info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Debug записывает debug сообщение
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(l.zl.Debug(), msg, fields)
}

// Info записывает info сообщение
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(l.zl.Info(), msg, fields)
}

// Warn записывает warning сообщение
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(l.zl.Warn(), msg, fields)
}

// Error записывает error сообщение
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(l.zl.Error(), msg, fields)
}

// Fatal записывает fatal сообщение и завершает программу
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.log(l.zl.WithLevel(zerolog.FatalLevel), msg, fields)
	os.Exit(1)
}

// WithFields возвращает логгер с предустановленными полями
func (l *Logger) WithFields(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) log(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.apply(e)
	}
	e.Msg(msg)
}

// Field представляет поле логирования
type Field struct {
	Key   string
	Value interface{}
}

// String возвращает строковое представление поля
func (f Field) String() string {
	return fmt.Sprintf("%s=%v", f.Key, f.Value)
}

func (f Field) apply(e *zerolog.Event) {
	switch v := f.Value.(type) {
	case string:
		e.Str(f.Key, v)
	case int:
		e.Int(f.Key, v)
	case int64:
		e.Int64(f.Key, v)
	case bool:
		e.Bool(f.Key, v)
	case time.Duration:
		e.Dur(f.Key, v)
	case error:
		if v != nil {
			e.AnErr(f.Key, v)
		}
	default:
		e.Interface(f.Key, v)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return c.Str(f.Key, v)
	case int:
		return c.Int(f.Key, v)
	case int64:
		return c.Int64(f.Key, v)
	case bool:
		return c.Bool(f.Key, v)
	case time.Duration:
		return c.Dur(f.Key, v)
	case error:
		return c.AnErr(f.Key, v)
	default:
		return c.Interface(f.Key, v)
	}
}

// Вспомогательные функции для создания полей
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
