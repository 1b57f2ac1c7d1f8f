package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "resume-matcher"

type Config struct {
	JSON  bool
	Debug bool
	// Output paths, stdout when empty.
	Output []string
}

// New builds the process logger: console or json output on stdout, info or debug level.
func New(json bool, debug bool) (*zap.Logger, error) {
	return Build(Config{JSON: json, Debug: debug})
}

func Build(c Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if c.JSON {
		encoding = "json"
	}

	if c.Debug {
		level = zapcore.DebugLevel
	}

	output := c.Output
	if len(output) == 0 {
		output = []string{"stdout"}
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      output,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]any{"service": ServiceName},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			StacktraceKey:  "stacktrace",
			EncodeDuration: zapcore.MillisDurationEncoder,
		},
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return logger, nil
}
