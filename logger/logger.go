package logger

import (
	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// InitWithFile routes JSON log lines to path in addition to stderr.
// The file is created on first write and appended to across restarts.
func InitWithFile(path string) error {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr", path}
	cfg.ErrorOutputPaths = []string{"stderr", path}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = logger.Sugar()
	return nil
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
