// Package logging configures the controller-runtime logger used by every package.
// Call sites log through ctrl.LoggerFrom(ctx) and ctrl.Log.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Verbosity levels for logger.V().
const (
	DEBUG = 1
	TRACE = 2
)

// NewLogger builds a zap-backed logr.Logger. level is one of error, info, debug, trace.
func NewLogger(level string, development bool) (logr.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}
	return zap.New(zap.UseDevMode(development), zap.Level(lvl)), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "debug":
		return zapcore.Level(-DEBUG), nil
	case "trace":
		return zapcore.Level(-TRACE), nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewTestLogger installs a development logger at trace verbosity as ctrl.Log.
func NewTestLogger() logr.Logger {
	l := zap.New(zap.UseDevMode(true), zap.Level(zapcore.Level(-TRACE)))
	ctrl.SetLogger(l)
	return l
}
