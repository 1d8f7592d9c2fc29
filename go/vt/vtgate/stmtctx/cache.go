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

package stmtctx

import "sync"

type cacheEntry struct {
	once  sync.Once
	value any
}

// GetOrRegisterCache returns the value cached under key, computing it with
// supplier on first use. supplier runs at most once per key until the key
// is invalidated. It is safe for concurrent use.
func GetOrRegisterCache[T any](sc *StatementContext, key string, supplier func() T) T {
	sc.cacheMu.Lock()
	e, ok := sc.cache[key]
	if !ok {
		e = &cacheEntry{}
		sc.cache[key] = e
	}
	sc.cacheMu.Unlock()

	e.once.Do(func() {
		e.value = supplier()
	})
	v, _ := e.value.(T)
	return v
}

// InvalidateCache drops the value cached under key.
func (sc *StatementContext) InvalidateCache(key string) {
	sc.cacheMu.Lock()
	defer sc.cacheMu.Unlock()
	delete(sc.cache, key)
}
