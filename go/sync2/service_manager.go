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

// Package sync2 holds concurrency primitives for the planner's background
// services.
package sync2

import (
	"sync"
	"sync/atomic"
)

// ServiceState is the lifecycle state of a ServiceManager.
type ServiceState int32

const (
	ServiceStopped ServiceState = iota
	ServiceRunning
	ServiceShuttingDown
)

func (s ServiceState) String() string {
	switch s {
	case ServiceStopped:
		return "Stopped"
	case ServiceRunning:
		return "Running"
	case ServiceShuttingDown:
		return "ShuttingDown"
	}
	return "Unknown"
}

// ServiceManager runs at most one instance of a service goroutine at a time.
// The zero value is stopped and ready to use.
type ServiceManager struct {
	// mu serializes Go and Stop.
	mu       sync.Mutex
	wg       sync.WaitGroup
	state    atomic.Int32
	shutdown chan struct{}
}

// Go starts service in a goroutine unless one is already running, and
// reports whether it did. service must return once ShuttingDown is closed.
// The manager is stopped again when service returns.
func (svm *ServiceManager) Go(service func(svm *ServiceManager)) bool {
	svm.mu.Lock()
	defer svm.mu.Unlock()
	if !svm.transition(ServiceStopped, ServiceRunning) {
		return false
	}
	svm.shutdown = make(chan struct{})
	svm.wg.Add(1)
	go func() {
		defer svm.wg.Done()
		defer svm.state.Store(int32(ServiceStopped))
		service(svm)
	}()
	return true
}

// Stop signals the running service to return and waits until it has. It
// reports whether a running service was signalled. Go may be called again
// afterwards.
func (svm *ServiceManager) Stop() bool {
	svm.mu.Lock()
	defer svm.mu.Unlock()
	signalled := svm.transition(ServiceRunning, ServiceShuttingDown)
	if signalled {
		close(svm.shutdown)
	}
	svm.wg.Wait()
	return signalled
}

func (svm *ServiceManager) transition(from, to ServiceState) bool {
	return svm.state.CompareAndSwap(int32(from), int32(to))
}

// ShuttingDown is closed when Stop is called. It must only be used by the
// service func.
func (svm *ServiceManager) ShuttingDown() <-chan struct{} {
	return svm.shutdown
}

func (svm *ServiceManager) IsRunning() bool {
	return svm.State() == ServiceRunning
}

// Wait blocks until the service func has returned.
func (svm *ServiceManager) Wait() {
	svm.wg.Wait()
}

// State is for reporting only; it may change right after the call.
func (svm *ServiceManager) State() ServiceState {
	return ServiceState(svm.state.Load())
}
