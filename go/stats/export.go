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

// Package stats is a wrapper around a set of in-process counters and gauges.
// Variables are published under a name; backends such as prometheusbackend
// register a hook and export every published variable.
package stats

import (
	"fmt"
	"sync"

	"github.com/olapfe/planstate/go/vt/log"
)

// Variable is the minimal interface implemented by every published metric.
type Variable interface {
	// Help returns the help string for the variable.
	Help() string
	// String returns the current value, for debug pages.
	String() string
}

// NewVarHook is the type of a hook to export variables in a different way.
type NewVarHook func(name string, v Variable)

type varGroup struct {
	sync.Mutex
	vars       map[string]Variable
	newVarHook []NewVarHook
}

var defaultVarGroup = varGroup{vars: make(map[string]Variable)}

// Register allows you to register a callback function that will be called
// whenever a new stats variable gets created. Variables already published
// are replayed to the hook.
func Register(nvh NewVarHook) {
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	defaultVarGroup.newVarHook = append(defaultVarGroup.newVarHook, nvh)
	for name, v := range defaultVarGroup.vars {
		nvh(name, v)
	}
}

// Get returns the variable published under name, or nil.
func Get(name string) Variable {
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	return defaultVarGroup.vars[name]
}

// Do calls f for each published variable.
func Do(f func(name string, v Variable)) {
	defaultVarGroup.Lock()
	vars := make(map[string]Variable, len(defaultVarGroup.vars))
	for k, v := range defaultVarGroup.vars {
		vars[k] = v
	}
	defaultVarGroup.Unlock()
	for k, v := range vars {
		f(k, v)
	}
}

// publish exports v under name. If a variable of the same type was already
// published under name, that variable is returned instead so that packages
// creating their metrics more than once (tests, reopened services) share one
// instance.
func publish[T Variable](name string, v T) T {
	if name == "" {
		return v
	}
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	if existing, ok := defaultVarGroup.vars[name]; ok {
		if same, ok := existing.(T); ok {
			return same
		}
		log.Errorf("stats: %s already published as %T, not publishing %T", name, existing, v)
		return v
	}
	defaultVarGroup.vars[name] = v
	for _, hook := range defaultVarGroup.newVarHook {
		hook(name, v)
	}
	return v
}

func formatCounts(counts map[string]int64) string {
	s := "{"
	first := true
	for k, v := range counts {
		if !first {
			s += ", "
		}
		first = false
		s += fmt.Sprintf("%q: %v", k, v)
	}
	return s + "}"
}
