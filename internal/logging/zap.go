package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.Logger to Logger.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a zap backed logger writing to w, or stderr when w is
// nil. format is "console" or "json".
func NewZapLogger(minLevel Level, format string, w io.Writer) (*ZapLogger, error) {
	var encoder zapcore.Encoder
	switch format {
	case "", "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	sink := zapcore.Lock(os.Stderr)
	if w != nil {
		sink = zapcore.AddSync(w)
	}
	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(zapLevel(minLevel)))
	return &ZapLogger{logger: zap.New(core, zap.AddStacktrace(zap.DPanicLevel))}, nil
}

// WrapZap adapts an existing zap logger.
func WrapZap(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelVerbose:
		return zap.DebugLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func zapFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	if runID := RunID(ctx); runID != "" {
		out = append(out, zap.String("run_id", runID))
	}
	return out
}

func (z *ZapLogger) Verbose(ctx context.Context, msg string, fields ...Field) {
	z.logger.Debug(msg, zapFields(ctx, fields)...)
}

func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.logger.Info(msg, zapFields(ctx, fields)...)
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.logger.Warn(msg, zapFields(ctx, fields)...)
}

func (z *ZapLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {
	z.logger.Error(msg, append(zapFields(ctx, fields), zap.Error(err))...)
}

func (z *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{logger: z.logger.With(zapFields(context.Background(), fields)...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
