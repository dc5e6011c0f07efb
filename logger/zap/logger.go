package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a *zap.Logger with the fluent "With" helpers the runtime's
// subsystems use to attach statement/session context to every line.
type Logger struct {
	zlog *zap.Logger
}

func wrap(z *zap.Logger) *Logger { return &Logger{zlog: z} }

func (l *Logger) Debug(args ...any) { l.zlog.Sugar().Debug(args...) }
func (l *Logger) Info(args ...any)  { l.zlog.Sugar().Info(args...) }
func (l *Logger) Warn(args ...any)  { l.zlog.Sugar().Warn(args...) }
func (l *Logger) Error(args ...any) { l.zlog.Sugar().Error(args...) }

func (l *Logger) Debugf(format string, args ...any) { l.zlog.Sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zlog.Sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zlog.Sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zlog.Sugar().Errorf(format, args...) }

func (l *Logger) Debugw(msg string, keysValues ...any) { l.zlog.Sugar().Debugw(msg, keysValues...) }
func (l *Logger) Infow(msg string, keysValues ...any)  { l.zlog.Sugar().Infow(msg, keysValues...) }
func (l *Logger) Warnw(msg string, keysValues ...any)  { l.zlog.Sugar().Warnw(msg, keysValues...) }
func (l *Logger) Errorw(msg string, keysValues ...any) { l.zlog.Sugar().Errorw(msg, keysValues...) }

func (l *Logger) ZapLogger() *zap.Logger { return l.zlog }

// With returns a derived logger carrying statement/namespace/activity
// context, mirroring the statement id breadcrumb attached to execution
// errors (internal/xerrors.Execution).
func (l *Logger) With(fields ...string) *Logger {
	if len(fields) == 0 {
		return l
	}
	if len(fields)%2 != 0 {
		fields = append(fields, "")
	}
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if len(fields[i]) == 0 {
			continue
		}
		zapFields = append(zapFields, zap.String(fields[i], fields[i+1]))
	}
	return wrap(l.zlog.With(zapFields...))
}

// WithStatement attaches the mapped-statement id and the current activity
// (e.g. "query", "update", "batch-flush") to every subsequent log line.
func (l *Logger) WithStatement(statementID, activity string) *Logger {
	return l.With("statementId", statementID, "activity", activity)
}

type keyValueObject map[string]any

func (o keyValueObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for k, v := range o {
		_ = enc.AddReflected(k, v)
	}
	return nil
}
