/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log builds the process-wide logr.Logger and registers it with
// controller-runtime, so every package that calls log.FromContext(ctx) or
// crlog.FromContext(ctx) downstream gets the same zap-backed sink.
package log

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"
)

// NewLogger builds a zap-backed logr.Logger at the requested level ("debug", "info",
// "error"; anything else falls back to "info"), writing JSON to stdout/stderr.
func NewLogger(level string) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// SetupOrDie builds the logger at level, registers it with controller-runtime as the
// default sink, and stashes it in ctx, panicking on construction failure the way a
// misconfigured logging flag should fail fast at startup.
func SetupOrDie(ctx context.Context, level string) context.Context {
	logger, err := NewLogger(level)
	if err != nil {
		panic(err)
	}
	crlog.SetLogger(logger)
	return crlog.IntoContext(ctx, logger)
}
