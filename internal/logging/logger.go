package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the structured log written under the logs directory.
const FileName = "coursepick.log"

// New builds a zap logger that appends JSON lines to logsDir/coursepick.log,
// so the terminal stays free for the TUI. The returned closer flushes and
// releases the file.
func New(logsDir string, verbose bool) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logsDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(f),
		zap.NewAtomicLevelAt(level),
	)
	logger := zap.New(core)
	closer := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closer, nil
}
