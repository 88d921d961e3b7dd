package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// engineCore is a zapcore.Core writing through a Logger, so the search engine
// can log with zap while entries keep the service's format and sink.
type engineCore struct {
	logger *Logger
}

var _ zapcore.Core = (*engineCore)(nil)

// levelOf maps zap levels onto ours. Panic and fatal entries are logged as
// errors; zap itself panics or exits after the write.
func levelOf(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (a *engineCore) Enabled(level zapcore.Level) bool {
	return a.logger.Enabled(levelOf(level))
}

// encodeFields converts zap fields into plain values, letting each field
// encode itself.
func encodeFields(fields []zapcore.Field, into map[string]interface{}) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}
	if into == nil {
		return enc.Fields
	}
	for k, v := range enc.Fields {
		into[k] = v
	}
	return into
}

func (a *engineCore) With(fields []zapcore.Field) zapcore.Core {
	return &engineCore{
		logger: a.logger.WithFields(encodeFields(fields, nil)),
	}
}

func (a *engineCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(ent.Level) {
		return ce.AddCore(ent, a)
	}
	return ce
}

// Write keeps zap's caller and logger name as fields.
func (a *engineCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := make(map[string]interface{}, len(fields)+2)
	if ent.Caller.Defined {
		f["caller"] = ent.Caller.TrimmedPath()
	}
	if ent.LoggerName != "" {
		f["logger"] = ent.LoggerName
	}
	a.logger.log(levelOf(ent.Level), ent.Message, encodeFields(fields, f))
	return nil
}

func (a *engineCore) Sync() error {
	return a.logger.Sync()
}

// NewZapLogger returns a zap logger whose entries are written by logger at
// the matching level.
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(&engineCore{logger: logger}, zap.AddCaller())
}
