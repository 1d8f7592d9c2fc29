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

package utils

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// MustMatchFn returns a comparison that fails the test on any difference
// between want and got. Struct fields named in ignoredFields, such as
// timestamps, are left out of the comparison. Unexported fields are compared.
func MustMatchFn(ignoredFields ...string) func(t testing.TB, want, got any, msg ...any) {
	ignored := make(map[string]struct{}, len(ignoredFields))
	for _, f := range ignoredFields {
		ignored[f] = struct{}{}
	}
	opts := cmp.Options{
		cmp.Exporter(func(reflect.Type) bool { return true }),
		cmp.FilterPath(func(p cmp.Path) bool {
			sf, ok := p.Last().(cmp.StructField)
			if !ok {
				return false
			}
			_, skip := ignored[sf.Name()]
			return skip
		}, cmp.Ignore()),
	}
	return func(t testing.TB, want, got any, msg ...any) {
		t.Helper()
		if diff := cmp.Diff(want, got, opts); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", fmt.Sprint(msg...), diff)
		}
	}
}

// MustMatch compares every field.
var MustMatch = MustMatchFn()
