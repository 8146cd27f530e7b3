// Package logger is the logging package shared by every service in this
// module. It wraps a zap logger whose output is teed to the console, to
// Sentry (errors only) and to Logz.io. The remote cores only ship events when
// the service is not running in a local environment.
package logger // import "github.com/xuuxu-xu/stripe-integration/logger"

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/xuuxu-xu/stripe-integration/metadata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func init() {
	// Define the logic for filtering messages according to their level.
	// For Logzio we want all messages, but for Sentry only the errors
	// are considered. In addition, we disable debug messages in console
	// output to avoid polluting stdout.
	onlyErrors := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	logsAndErrors := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.InfoLevel
	})
	allLevels := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return true
	})

	// Define a stdout with Locking so that the logging methods are
	// safe for concurrent use.
	consoleDebugging := zapcore.Lock(os.Stdout)

	sentryEncoderConfig := newSentryEncoderConfig()
	logzEncoderConfig := newLogzioEncoderConfig()
	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()

	// Enable colored output on stdout
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	sentryEncoder := zapcore.NewJSONEncoder(sentryEncoderConfig)
	logzEncoder := zapcore.NewJSONEncoder(logzEncoderConfig)
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)

	core := zapcore.NewTee(
		newLogzioCore(logzEncoder, allLevels),
		newSentryCore(sentryEncoder, onlyErrors),
		zapcore.NewCore(consoleEncoder, consoleDebugging, logsAndErrors),
	)

	logger = zap.New(core)
}

// ReplaceCore sends every log entry to `core` until the returned function is
// called. Tests use it to inspect what was logged.
func ReplaceCore(core zapcore.Core) (restore func()) {
	prev := logger
	logger = zap.New(core)

	return func() {
		logger = prev
	}
}

// usingProdLogging reports whether events should be shipped to Sentry and
// Logz.io. Local development only logs to the console.
func usingProdLogging() bool {
	return !metadata.IsLocalEnv()
}

// Sync is a function that flushes the queues and sends the events to the
// corresponding output. This should be called before exiting the program.
func Sync() {
	err := logger.Sync()
	if err != nil && !strings.Contains(err.Error(), "sync /dev/stdout") {
		Errorf("failed to drain log queues: %s", err)
	}
}

// Debug constructs a debug message.
func Debug(v ...interface{}) {
	logger.Sugar().Debug(v...)
}

// Info constructs a log message.
func Info(v ...interface{}) {
	logger.Sugar().Info(v...)
}

// Error logs an error.
func Error(err error) {
	logger.Sugar().Error(err)
}

// Warning logs a warning message.
func Warning(err error) {
	logger.Sugar().Warn(err)
}

// Panic sends an error to Sentry and "pretends" to panic on it by printing the
// stack trace and calling the provided global context-cancelling function.
// This causes all the goroutines in the program to kill themselves (cleanly).
// Passing in a nil `globalCancel` parameter will panic on `err` instead,
// after flushing the logging queues.
func Panic(globalCancel context.CancelFunc, err error) {
	PrintStackTrace()

	if globalCancel != nil {
		Error(err)
		globalCancel()
	} else {
		_ = logger.Sync()
		logger.Sugar().Panic(err)
	}
}

// Debugf is like Debug, but it respects printf syntax.
func Debugf(format string, v ...interface{}) {
	logger.Sugar().Debugf(format, v...)
}

// Infof is like Info, but it respects printf syntax.
func Infof(format string, v ...interface{}) {
	logger.Sugar().Infof(format, v...)
}

// Errorf is like Error, but it respects printf syntax.
func Errorf(format string, v ...interface{}) {
	logger.Sugar().Errorf(format, v...)
}

// Warningf is like Warning, but it respects printf syntax.
func Warningf(format string, v ...interface{}) {
	logger.Sugar().Warnf(format, v...)
}

// Panicf is like Panic, but it respects printf syntax.
func Panicf(globalCancel context.CancelFunc, format string, v ...interface{}) {
	Panic(globalCancel, fmt.Errorf(format, v...))
}

// Infow constructs a log message with additional context fields, given as
// alternating keys and values.
func Infow(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Infow(msg, keysAndValues...)
}

// Warningw constructs a warning message with additional context fields.
func Warningw(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Warnw(msg, keysAndValues...)
}

// Errorw constructs an error message with additional context fields.
func Errorw(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Errorw(msg, keysAndValues...)
}

// PrintStackTrace prints the stack trace, for debugging purposes.
func PrintStackTrace() {
	Info("Printing stack trace: ")
	debug.PrintStack()
}
