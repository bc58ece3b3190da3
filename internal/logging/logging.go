// Package logging builds the run logger: a zap logger that writes to a
// timestamped run log file under --log-dir and mirrors to stderr. The log
// file is authoritative; the console output is a convenience mirror.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a run logger writing to logDir/duplicate_finder_<ts>.log and
// to stderr. verbose enables debug-level output on both cores.
func New(logDir string, verbose bool, startedAt time.Time) (*zap.SugaredLogger, string, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("duplicate_finder_%s.log", startedAt.Format("20060102_150405")))
	f, err := os.Create(logPath)
	if err != nil {
		return nil, "", fmt.Errorf("create log file: %w", err)
	}

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoder := zapcore.NewJSONEncoder(encoderCfg)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(f), level),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level),
	)

	logger := zap.New(core)
	return logger.Sugar(), logPath, nil
}
