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

// Package log is the planner's logging facade. Printf style calls go to
// glog. The *S functions take key/value pairs and are written as structured
// records once --log-fmt is set, and through glog otherwise.
package log

import (
	"strconv"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/spf13/pflag"

	"github.com/olapfe/planstate/go/vt/utils"
)

var (
	// V reports whether verbose logging at a level is enabled.
	V = glog.V
	// Flush writes pending log I/O.
	Flush = glog.Flush

	Infof    = glog.Infof
	Warningf = glog.Warningf
	Error    = glog.Error
	Errorf   = glog.Errorf
)

// RegisterFlags adds the log rotation and structured logging flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	maxSize := &rotateMaxSize{strconv.FormatUint(atomic.LoadUint64(&glog.MaxSize), 10)}
	utils.SetFlagVar(fs, maxSize, "log-rotate-max-size", "size in bytes at which log files are rotated")
	utils.SetFlagStringVar(fs, &logFormat, "log-fmt", "json", "structured log format: json, logfmt or text (colored on a terminal); glog is used when unset")
	utils.SetFlagStringVar(fs, &logLevel, "log-level", "info", "minimum structured log level: debug, info, warn or error")
}

// rotateMaxSize sets glog.MaxSize atomically.
type rotateMaxSize struct {
	val string
}

func (r *rotateMaxSize) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	atomic.StoreUint64(&glog.MaxSize, n)
	r.val = s
	return nil
}

func (r *rotateMaxSize) String() string { return r.val }

func (r *rotateMaxSize) Type() string { return "uint64" }
