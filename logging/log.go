// Package logging provides the package-level zap logger shared by the
// decomposition engine, the ensemble runner and the CLI.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu         sync.RWMutex
	log        *zap.SugaredLogger
	baseLogger *zap.Logger
)

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	SetLogger(zapLogger)
	return nil
}

// SetLogger replaces the package-level logger, e.g. with zaptest or
// zap.NewNop in tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	baseLogger = l
	log = l.Sugar()
}

// GetZapLogger returns the base zap logger
func GetZapLogger() *zap.Logger {
	sugared()
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// GetSugaredLogger returns the sugared logger instance
func GetSugaredLogger() *zap.SugaredLogger {
	return sugared()
}

func sugared() *zap.SugaredLogger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	// Fallback logger if not initialized
	zl, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		zl = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		baseLogger = zl
		log = zl.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}

func Debugw(msg string, keysAndValues ...interface{}) {
	sugared().Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	sugared().Infow(msg, keysAndValues...)
}

func Infof(template string, args ...interface{}) {
	sugared().Infof(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	sugared().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	sugared().Errorw(msg, keysAndValues...)
}
