/*
Copyright 2026 The Vitess Authors.

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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

var (
	logFormat string
	logLevel  string

	// structured is nil until Init or SetLogger installs a logger. While it
	// is nil the *S functions write through glog.
	structured atomic.Pointer[slog.Logger]
)

// Init switches to structured logging when --log-fmt was given explicitly.
func Init(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	if f := fs.Lookup("log-fmt"); f == nil || !f.Changed {
		return nil
	}
	handler, err := newHandler(os.Stderr, logFormat, logLevel)
	if err != nil {
		return err
	}
	structured.Store(slog.New(handler))
	return nil
}

func newHandler(w io.Writer, format, level string) (slog.Handler, error) {
	lvl, err := slogLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "logfmt":
		return slog.NewTextHandler(w, opts), nil
	case "text":
		return tint.NewHandler(w, &tint.Options{
			AddSource:  true,
			Level:      lvl,
			TimeFormat: time.StampMilli,
			NoColor:    !isTerminal(w),
		}), nil
	}
	return nil, fmt.Errorf("invalid log-fmt %q: expected json, logfmt or text", format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func slogLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return 0, fmt.Errorf("invalid log-level %q: expected debug, info, warn, or error", level)
	}
	return lvl, nil
}

// Enabled reports whether a record at level would be written. Without a
// structured logger, debug records need glog verbosity 1.
func Enabled(level slog.Level) bool {
	if l := structured.Load(); l != nil {
		return l.Enabled(context.Background(), level)
	}
	return level >= slog.LevelInfo || bool(glog.V(1))
}

func logS(level slog.Level, msg string, kv ...any) {
	l := structured.Load()
	if l == nil {
		if Enabled(level) {
			glogS(level, msg, kv)
		}
		return
	}
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	// skip runtime.Callers, logS and the exported wrapper.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(kv...)
	_ = l.Handler().Handle(ctx, r)
}

// glogS renders kv as "msg key=value ..." on the glog severity for level.
func glogS(level slog.Level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString(msg)
	r := slog.NewRecord(time.Time{}, level, "", 0)
	r.Add(kv...)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	// skip glogS, logS and the exported wrapper.
	const depth = 3
	switch {
	case level >= slog.LevelError:
		glog.ErrorDepth(depth, b.String())
	case level >= slog.LevelWarn:
		glog.WarningDepth(depth, b.String())
	default:
		glog.InfoDepth(depth, b.String())
	}
}

// InfoS logs msg with key/value pairs at the Info level.
func InfoS(msg string, kv ...any) { logS(slog.LevelInfo, msg, kv...) }

// WarnS logs msg with key/value pairs at the Warn level.
func WarnS(msg string, kv ...any) { logS(slog.LevelWarn, msg, kv...) }

// ErrorS logs msg with key/value pairs at the Error level.
func ErrorS(msg string, kv ...any) { logS(slog.LevelError, msg, kv...) }

// DebugS logs msg with key/value pairs at the Debug level.
func DebugS(msg string, kv ...any) { logS(slog.LevelDebug, msg, kv...) }

// SetLogger installs logger for the *S functions and returns a function
// restoring the previous one. A nil logger reverts to glog.
func SetLogger(logger *slog.Logger) func() {
	prev := structured.Swap(logger)
	return func() { structured.Store(prev) }
}
