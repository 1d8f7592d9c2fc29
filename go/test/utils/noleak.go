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

// Package utils holds helpers shared by the planner's tests.
package utils

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// backgroundGoroutines are process wide and never owned by a test.
var backgroundGoroutines = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	goleak.IgnoreTopFunction("testing.tRunner.func1"),
}

// LeakCheckContext returns a context cancelled when the test ends. A test
// that passed is then checked for leaked goroutines.
func LeakCheckContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	return leakCheck(t, ctx, cancel)
}

// LeakCheckContextTimeout is LeakCheckContext with a deadline.
func LeakCheckContextTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return leakCheck(t, ctx, cancel)
}

func leakCheck(t testing.TB, ctx context.Context, cancel context.CancelFunc) context.Context {
	t.Cleanup(func() {
		cancel()
		EnsureNoLeaks(t)
	})
	return ctx
}

// EnsureNoLeaks fails a passing test if goroutines it started are still
// running after a short grace period. Daemons stop asynchronously, so the
// check is retried.
func EnsureNoLeaks(t testing.TB) {
	t.Helper()
	if t.Failed() {
		return
	}
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = goleak.Find(backgroundGoroutines...); err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal(err)
}
