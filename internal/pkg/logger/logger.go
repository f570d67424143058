package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = zap.NewNop()
var testMode bool

// SetTestMode makes Fatal log at error level instead of exiting.
func SetTestMode(enabled bool) {
	testMode = enabled
}

// Init builds the process logger. Entries always go to stdout as JSON; when
// logPath is set they are also written to a rotated file. If the log file
// directory cannot be created the stdout logger is still installed and the
// error is returned.
func Init(level, logPath string) error {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}

	var err error
	if logPath != "" {
		if err = os.MkdirAll(filepath.Dir(logPath), 0750); err == nil {
			sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    100, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}))
		}
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(sinks...),
		zap.NewAtomicLevelAt(parseLevel(level)),
	)

	log = zap.New(core)
	zap.ReplaceGlobals(log)

	return err
}

// Use swaps the process logger, mostly for tests that observe output.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	return log
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

// Fatal logs a fatal message and then calls os.Exit(1)
func Fatal(msg string, fields ...zap.Field) {
	if testMode {
		log.Error(msg, fields...)
		return
	}
	log.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return log.Sync()
}

// Preview cuts s to at most n runes for log fields.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
