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

// Package logutil holds logging helpers shared by the planner packages.
package logutil

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olapfe/planstate/go/vt/log"
)

// ThrottledLogger will allow logging of messages but won't spam the
// logs. Messages arriving faster than once per maxInterval are dropped;
// the next message that gets through reports how many were skipped.
type ThrottledLogger struct {
	// set at construction
	name    string
	limiter *rate.Limiter

	// mu protects the following members
	mu           sync.Mutex
	skippedCount int
	// now is replaced in tests
	now func() time.Time
}

// NewThrottledLogger will create a ThrottledLogger with the given
// name and throttling interval.
func NewThrottledLogger(name string, maxInterval time.Duration) *ThrottledLogger {
	return &ThrottledLogger{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(maxInterval), 1),
		now:     time.Now,
	}
}

type logFunc func(string, ...any)

// log returns true if the message was written.
func (tl *ThrottledLogger) log(logF logFunc, format string, v ...any) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if !tl.limiter.AllowN(tl.now(), 1) {
		tl.skippedCount++
		return false
	}
	if tl.skippedCount > 0 {
		logF("%v: skipped %v log messages", tl.name, tl.skippedCount)
		tl.skippedCount = 0
	}
	logF(tl.name+": "+format, v...)
	return true
}

// Skipped returns the number of messages dropped since the last one
// that was written.
func (tl *ThrottledLogger) Skipped() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.skippedCount
}

// Infof logs an info if not throttled.
func (tl *ThrottledLogger) Infof(format string, v ...any) {
	tl.log(log.Infof, format, v...)
}

// Warningf logs a warning if not throttled.
func (tl *ThrottledLogger) Warningf(format string, v ...any) {
	tl.log(log.Warningf, format, v...)
}

// Errorf logs an error if not throttled.
func (tl *ThrottledLogger) Errorf(format string, v ...any) {
	tl.log(log.Errorf, format, v...)
}
