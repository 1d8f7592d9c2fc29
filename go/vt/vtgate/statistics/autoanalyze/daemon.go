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

// Package autoanalyze runs the two daemons that keep column statistics
// current: the Appender turns queried columns and a slow sweep of the catalog
// into prioritized jobs, the Collector executes them.
package autoanalyze

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/olapfe/planstate/go/sync2"
	"github.com/olapfe/planstate/go/timer"
	"github.com/olapfe/planstate/go/vt/log"
)

// daemon runs round on a SuspendableTicker under a ServiceManager. The first
// round runs as soon as the daemon is opened.
type daemon struct {
	name     string
	interval time.Duration
	round    func(ctx context.Context)

	svm sync2.ServiceManager

	mu        sync.Mutex
	ticker    *timer.SuspendableTicker
	suspended bool
}

func (d *daemon) open() bool {
	return d.svm.Go(func(svm *sync2.ServiceManager) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-svm.ShuttingDown():
				cancel()
			case <-ctx.Done():
			}
		}()

		d.mu.Lock()
		ticker := timer.NewSuspendableTicker(d.interval, d.suspended)
		d.ticker = ticker
		d.mu.Unlock()
		defer func() {
			d.mu.Lock()
			d.ticker = nil
			d.mu.Unlock()
			ticker.Stop()
		}()
		go ticker.TickNow()

		log.InfoS("daemon started", "daemon", d.name, "interval", d.interval)
		for {
			select {
			case <-svm.ShuttingDown():
				log.InfoS("daemon stopped", "daemon", d.name)
				return
			case <-ticker.C:
				d.runRound(ctx)
			}
		}
	})
}

// runRound never lets a panic escape.
func (d *daemon) runRound(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			roundPanics.Add(d.name, 1)
			log.Errorf("%s round panicked: %v\n%s", d.name, r, debug.Stack())
		}
	}()
	roundsRun.Add(d.name, 1)
	d.round(ctx)
}

func (d *daemon) close() {
	d.svm.Stop()
}

func (d *daemon) isRunning() bool {
	return d.svm.IsRunning()
}

func (d *daemon) state() sync2.ServiceState {
	return d.svm.State()
}

func (d *daemon) suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = true
	if d.ticker != nil {
		d.ticker.Suspend()
	}
}

func (d *daemon) resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = false
	if d.ticker != nil {
		d.ticker.Resume()
	}
}

func (d *daemon) isSuspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}
