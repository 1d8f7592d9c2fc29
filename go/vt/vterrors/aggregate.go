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

package vterrors

import (
	"sync"
)

// FirstErrorRecorder records the first error it sees and counts the rest.
// It is safe for concurrent use.
type FirstErrorRecorder struct {
	mu      sync.Mutex
	first   error
	dropped int
}

// RecordError records err. Only the first non-nil error is kept.
func (fer *FirstErrorRecorder) RecordError(err error) {
	if err == nil {
		return
	}
	fer.mu.Lock()
	defer fer.mu.Unlock()
	if fer.first == nil {
		fer.first = err
		return
	}
	fer.dropped++
}

// HasErrors returns true if any error was recorded.
func (fer *FirstErrorRecorder) HasErrors() bool {
	fer.mu.Lock()
	defer fer.mu.Unlock()
	return fer.first != nil
}

// Error returns the first recorded error, or nil.
func (fer *FirstErrorRecorder) Error() error {
	fer.mu.Lock()
	defer fer.mu.Unlock()
	return fer.first
}

// Dropped returns how many errors were recorded after the first one.
func (fer *FirstErrorRecorder) Dropped() int {
	fer.mu.Lock()
	defer fer.mu.Unlock()
	return fer.dropped
}
