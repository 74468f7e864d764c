package actions

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a logger that renders entries as workflow commands:
// debug, warning and error entries become ::debug::, ::warning:: and ::error:: lines, info entries are printed as-is.
func NewLogger(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
	return zap.New(&commandCore{
		LevelEnabler: level,
		enc:          enc,
		out:          zapcore.AddSync(w),
	})
}

type commandCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	out zapcore.WriteSyncer
}

func (c *commandCore) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &commandCore{LevelEnabler: c.LevelEnabler, enc: enc, out: c.out}
}

func (c *commandCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *commandCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	text := strings.TrimSuffix(buf.String(), zapcore.DefaultLineEnding)
	buf.Free()

	if cmd := levelCommand(ent.Level); cmd != "" {
		text = "::" + cmd + "::" + escapeData(text)
	}
	_, err = io.WriteString(c.out, text+"\n")
	if err != nil {
		return err
	}
	if ent.Level > zapcore.ErrorLevel {
		return c.out.Sync()
	}
	return nil
}

func (c *commandCore) Sync() error {
	return c.out.Sync()
}

func levelCommand(l zapcore.Level) string {
	switch {
	case l == zapcore.DebugLevel:
		return "debug"
	case l == zapcore.WarnLevel:
		return "warning"
	case l >= zapcore.ErrorLevel:
		return "error"
	}
	return ""
}

var dataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

func escapeData(s string) string {
	return dataEscaper.Replace(s)
}
