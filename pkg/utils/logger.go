package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - структурированное логирование на базе zap
//
// Один глобальный логгер на процесс (L()), компоненты получают дочерние
// логгеры через WithComponent / WithSymbol.

// LogConfig - настройки логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json или text
	Output      string // путь к файлу, пусто = stderr
	Development bool
}

// Logger - обёртка над zap.Logger с доменными конструкторами дочерних логгеров
type Logger struct {
	*zap.Logger
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitLogger создаёт логгер по конфигурации.
// При ошибке открытия файла пишет в stderr.
func InitLogger(cfg LogConfig) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "text") {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		if cfg.Development {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sink := zapcore.Lock(os.Stderr)
	if cfg.Output != "" {
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			sink = zapcore.Lock(f)
		}
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(parseLevel(cfg.Level)))

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return &Logger{Logger: zap.New(core, opts...)}
}

// parseLevel переводит строку в уровень zap, по умолчанию info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitGlobalLogger создаёт логгер и делает его глобальным
func InitGlobalLogger(cfg LogConfig) *Logger {
	l := InitLogger(cfg)
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger заменяет глобальный логгер
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger возвращает глобальный логгер, создавая логгер по умолчанию при первом вызове
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// L - короткий алиас GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// With возвращает дочерний логгер с полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With(zap.String("component", name))
}

func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(Symbol(symbol))
}

// ============ Доменные поля ============

func Symbol(symbol string) zap.Field { return zap.String("symbol", symbol) }
func SessionID(id int64) zap.Field   { return zap.Int64("session_id", id) }
func OrderID(id string) zap.Field    { return zap.String("order_id", id) }
func Quantity(v float64) zap.Field   { return zap.Float64("quantity", v) }
func Amount(v float64) zap.Field     { return zap.Float64("amount", v) }
func Side(side string) zap.Field     { return zap.String("side", side) }
func State(state string) zap.Field   { return zap.String("state", state) }
func Action(action string) zap.Field { return zap.String("action", action) }
func Reason(reason string) zap.Field { return zap.String("reason", reason) }
func Sentiment(s string) zap.Field   { return zap.String("sentiment", s) }
func Latency(ms float64) zap.Field   { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field  { return zap.String("request_id", id) }

// Переэкспорт базовых конструкторов zap, чтобы пакеты не импортировали zap напрямую

// Field - поле структурированного лога
type Field = zap.Field

var (
	String  = zap.String
	Int     = zap.Int
	Int64   = zap.Int64
	Float64 = zap.Float64
	Bool    = zap.Bool
	Err     = zap.Error
	Any     = zap.Any
	Dur     = zap.Duration
)
